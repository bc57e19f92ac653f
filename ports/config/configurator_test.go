package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalarsAndNesting(t *testing.T) {
	src := `
# a comment
caf.scheduler.policy = "sharing"
caf.scheduler.max-threads = 8
caf.scheduler.max-throughput = 5
caf.logger.level = "info"
ratio = 0.5
timeout = 30s
short = 500ms
long = 2h
enabled = true
endpoint = <nats://localhost:4222>
tags = ["a", "b", "c"]
meta = {region = "eu", replicas = 3}
`
	c, err := Parse(src)
	require.NoError(t, err)

	v, ok := c.Get("caf.scheduler", "policy")
	require.True(t, ok)
	assert.Equal(t, "sharing", v.String())

	assert.Equal(t, 8, c.IntOr("caf.scheduler", "max-threads", 0))
	assert.Equal(t, 5, c.IntOr("caf.scheduler", "max-throughput", 0))
	assert.Equal(t, "info", c.StringOr("caf.logger", "level", ""))

	ratio, ok := c.Get("", "ratio")
	require.True(t, ok)
	f, err := ratio.Float()
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	assert.Equal(t, 30*time.Second, c.DurationOr("", "timeout", 0))
	assert.Equal(t, 500*time.Millisecond, c.DurationOr("", "short", 0))
	assert.Equal(t, 2*time.Hour, c.DurationOr("", "long", 0))
	assert.True(t, c.BoolOr("", "enabled", false))

	uriVal, ok := c.Get("", "endpoint")
	require.True(t, ok)
	u, err := uriVal.URL()
	require.NoError(t, err)
	assert.Equal(t, "nats", u.Scheme)

	tags, ok := c.Get("", "tags")
	require.True(t, ok)
	list, err := tags.ListValue()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[1].String())

	meta, ok := c.Get("", "meta")
	require.True(t, ok)
	m, err := meta.MapValue()
	require.NoError(t, err)
	assert.Equal(t, "eu", m["region"].String())
	region, err := m["replicas"].Int()
	require.NoError(t, err)
	assert.EqualValues(t, 3, region)
}

func TestCLIOverlayWinsOverFile(t *testing.T) {
	fileCfg, err := Parse(`caf.scheduler.policy = "sharing"`)
	require.NoError(t, err)

	cliCfg, positional := ParseCLI([]string{"--caf.scheduler.policy=stealing", "serve", "8080"}, nil)
	merged := fileCfg.Merge(cliCfg)

	assert.Equal(t, "stealing", merged.StringOr("caf.scheduler", "policy", ""))
	assert.Equal(t, []string{"serve", "8080"}, positional)
}

func TestCLIShortcuts(t *testing.T) {
	shortcuts := Shortcut{"n": "caf.name", "v": "caf.verbose"}

	cfg, positional := ParseCLI([]string{"-n", "relayd", "-vtrue", "run"}, shortcuts)
	assert.Equal(t, "relayd", cfg.StringOr("caf", "name", ""))
	assert.True(t, cfg.BoolOr("caf", "verbose", false))
	assert.Equal(t, []string{"run"}, positional)
}

func TestMergeLeavesOriginalsUntouched(t *testing.T) {
	a := New()
	a.Set("x", "y", Int(1))
	b := New()
	b.Set("x", "y", Int(2))

	merged := a.Merge(b)
	assert.Equal(t, 2, merged.IntOr("x", "y", 0))
	assert.Equal(t, 1, a.IntOr("x", "y", 0))
}
