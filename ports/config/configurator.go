package config

import (
	"strconv"
	"strings"
	"time"
)

// Configurator is spec §6's category → (name → Value) mapping. Category
// and name together form a dotted key path, e.g. "caf.scheduler.policy"
// is category "caf.scheduler", name "policy".
type Configurator struct {
	categories map[string]map[string]Value
}

// New returns an empty Configurator.
func New() *Configurator {
	return &Configurator{categories: map[string]map[string]Value{}}
}

// Set stores value under category/name, creating the category if needed.
func (c *Configurator) Set(category, name string, value Value) {
	cat, ok := c.categories[category]
	if !ok {
		cat = map[string]Value{}
		c.categories[category] = cat
	}
	cat[name] = value
}

// Get looks up category/name.
func (c *Configurator) Get(category, name string) (Value, bool) {
	cat, ok := c.categories[category]
	if !ok {
		return Value{}, false
	}
	v, ok := cat[name]
	return v, ok
}

// GetKeyPath looks up a dotted key path (e.g. "caf.scheduler.policy"),
// splitting it on the last '.' into category and name.
func (c *Configurator) GetKeyPath(path string) (Value, bool) {
	category, name := splitKeyPath(path)
	return c.Get(category, name)
}

// SetKeyPath stores value under a dotted key path, splitting on the last
// '.' into category and name.
func (c *Configurator) SetKeyPath(path string, value Value) {
	category, name := splitKeyPath(path)
	c.Set(category, name, value)
}

func splitKeyPath(path string) (category, name string) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Category returns a copy of the name → Value map for category, or nil if
// the category has no entries.
func (c *Configurator) Category(category string) map[string]Value {
	cat, ok := c.categories[category]
	if !ok {
		return nil
	}
	out := make(map[string]Value, len(cat))
	for k, v := range cat {
		out[k] = v
	}
	return out
}

// Merge overlays other's entries onto c, other winning on conflicts. Used
// to apply a CLI overlay on top of a file-loaded Configurator (spec §8
// scenario 6, "config precedence").
func (c *Configurator) Merge(other *Configurator) *Configurator {
	merged := New()
	for cat, entries := range c.categories {
		for name, v := range entries {
			merged.Set(cat, name, v)
		}
	}
	for cat, entries := range other.categories {
		for name, v := range entries {
			merged.Set(cat, name, v)
		}
	}
	return merged
}

// StringOr returns the string at category/name, or fallback if absent or
// of the wrong kind.
func (c *Configurator) StringOr(category, name, fallback string) string {
	v, ok := c.Get(category, name)
	if !ok || v.Kind() != KindString {
		return fallback
	}
	return v.s
}

// IntOr returns the integer at category/name, or fallback if absent or of
// the wrong kind.
func (c *Configurator) IntOr(category, name string, fallback int) int {
	v, ok := c.Get(category, name)
	if !ok {
		return fallback
	}
	n, err := v.Int()
	if err != nil {
		return fallback
	}
	return int(n)
}

// DurationOr returns the duration at category/name, or fallback if absent
// or of the wrong kind.
func (c *Configurator) DurationOr(category, name string, fallback time.Duration) time.Duration {
	v, ok := c.Get(category, name)
	if !ok {
		return fallback
	}
	d, err := v.Duration()
	if err != nil {
		return fallback
	}
	return d
}

// BoolOr returns the boolean at category/name, or fallback if absent or
// of the wrong kind.
func (c *Configurator) BoolOr(category, name string, fallback bool) bool {
	v, ok := c.Get(category, name)
	if !ok {
		return fallback
	}
	b, err := v.Bool()
	if err != nil {
		return fallback
	}
	return b
}

// parseScalar interprets a bare CLI/env string as the most specific Value
// kind it matches: bool, then integer, then duration, then falls back to
// string. Used by the CLI overlay, where there is no grammar to tag a
// value's type the way the file format's literals do.
func parseScalar(s string) Value {
	if b, err := strconv.ParseBool(s); err == nil {
		return Bool(b)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if d, err := time.ParseDuration(s); err == nil {
		return Dur(d)
	}
	return String(s)
}
