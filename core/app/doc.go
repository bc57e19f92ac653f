// Package app provides the bootstrap spec §6 expects of a Configurator-
// driven process: one actor.System, its scheduler/clock/metrics wiring,
// and a transport.Node/Client pair, assembled from a single Config.
//
// # Basic Usage
//
//	a, err := app.Run(app.Config{
//	    NodeID: "node-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Stop()
//
//	ref := a.Spawn(myBehavior, actor.SpawnOptions{})
//
//	asker := a.NewAsker()
//	defer asker.Stop()
//	reply, err := actor.Ask[MyReply](ctx, asker, ref, time.Second, &MyRequest{})
//
// # Configuration
//
// Pass a *ports/config.Configurator loaded from a file and/or CLI
// overlay to control scheduler policy and thread count:
//
//	cfg, err := config.Parse(fileContents)
//	cli, positional := config.ParseCLI(os.Args[1:], nil)
//	a, err := app.Run(app.Config{Configurator: cfg.Merge(cli)})
//
// # Clustering
//
// For multi-node deployments, supply a shared transport.Transport (e.g.
// ports/transport/nats) and grow Router as nodes join:
//
//	a, err := app.Run(app.Config{
//	    NodeID:    "node-1",
//	    Transport: natsTransport,
//	})
//	a.Router().AddNode("node-2")
//	ref, err := a.Client().RemoteSpawn(ctx, "Worker", "tenant-42", "")
package app
