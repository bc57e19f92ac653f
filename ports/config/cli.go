package config

import "strings"

// Shortcut maps a single-letter CLI flag (without its leading '-') onto
// the dotted key path it sets, e.g. {"n": "caf.name"} makes both
// "-n myapp" and "-nmyapp" equivalent to "--caf.name=myapp".
type Shortcut map[string]string

// ParseCLI implements spec §6's CLI form: "--category.name=value",
// "-shortcut value", or "-svalue". Recognized options populate the
// returned Configurator; everything else is returned, in order, as
// positional arguments (spec §6's reference-driver CLI surface: "first
// positional arg program name; remaining positional args passed to the
// user's main").
func ParseCLI(args []string, shortcuts Shortcut) (*Configurator, []string) {
	c := New()
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case strings.HasPrefix(arg, "--"):
			body := arg[2:]
			key, val, hasVal := strings.Cut(body, "=")
			if !hasVal {
				// "--flag" with no '=value' is treated as a boolean true.
				c.SetKeyPath(key, Bool(true))
				continue
			}
			c.SetKeyPath(key, parseScalar(val))

		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			body := arg[1:]
			letter := body[:1]
			path, ok := shortcuts[letter]
			if !ok {
				positional = append(positional, arg)
				continue
			}
			if len(body) > 1 {
				// "-svalue": value glued to the shortcut letter.
				c.SetKeyPath(path, parseScalar(body[1:]))
				continue
			}
			// "-shortcut value": value is the next argument.
			if i+1 < len(args) {
				i++
				c.SetKeyPath(path, parseScalar(args[i]))
			} else {
				c.SetKeyPath(path, Bool(true))
			}

		default:
			positional = append(positional, arg)
		}
	}

	return c, positional
}
