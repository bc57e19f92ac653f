// Package config implements spec component §6's Configurator contract: a
// category → (name → Value) mapping loaded from a HOCON-like file, a CLI
// overlay, and an fsnotify-driven hot-reload watcher.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Kind tags which alternative of the Value union is populated.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindDuration
	KindString
	KindURI
	KindList
	KindMap
)

// Value is the tagged union spec §6 draws Configurator values from:
// {bool, integer, double, duration, string, uri, list<value>, map<string,value>}.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    time.Duration
	s    string
	u    *url.URL
	list []Value
	m    map[string]Value
}

func Bool(v bool) Value             { return Value{kind: KindBool, b: v} }
func Int(v int64) Value             { return Value{kind: KindInt, i: v} }
func Float(v float64) Value         { return Value{kind: KindFloat, f: v} }
func Dur(v time.Duration) Value     { return Value{kind: KindDuration, d: v} }
func String(v string) Value         { return Value{kind: KindString, s: v} }
func URI(v *url.URL) Value          { return Value{kind: KindURI, u: v} }
func List(v []Value) Value          { return Value{kind: KindList, list: v} }
func Map(v map[string]Value) Value  { return Value{kind: KindMap, m: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: want bool, have %v", ErrWrongKind, v.kind)
	}
	return v.b, nil
}

func (v Value) Int() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("%w: want integer, have %v", ErrWrongKind, v.kind)
	}
	return v.i, nil
}

func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, fmt.Errorf("%w: want double, have %v", ErrWrongKind, v.kind)
	}
}

func (v Value) Duration() (time.Duration, error) {
	if v.kind != KindDuration {
		return 0, fmt.Errorf("%w: want duration, have %v", ErrWrongKind, v.kind)
	}
	return v.d, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindDuration:
		return v.d.String()
	case KindString:
		return v.s
	case KindURI:
		if v.u == nil {
			return ""
		}
		return v.u.String()
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return ""
	}
}

func (v Value) URL() (*url.URL, error) {
	if v.kind != KindURI {
		return nil, fmt.Errorf("%w: want uri, have %v", ErrWrongKind, v.kind)
	}
	return v.u, nil
}

func (v Value) ListValue() ([]Value, error) {
	if v.kind != KindList {
		return nil, fmt.Errorf("%w: want list, have %v", ErrWrongKind, v.kind)
	}
	return v.list, nil
}

func (v Value) MapValue() (map[string]Value, error) {
	if v.kind != KindMap {
		return nil, fmt.Errorf("%w: want map, have %v", ErrWrongKind, v.kind)
	}
	return v.m, nil
}
