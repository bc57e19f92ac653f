package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Parse reads the HOCON-like grammar of spec §6 from src and returns the
// Configurator it describes: a sequence of `key.path = value` assignments
// at the top level, one per statement, newline- or comma-separated.
//
// No library in the retrieved pack implements this exact grammar, so this
// hand-written recursive-descent parser is the justified stdlib-only
// exception noted in DESIGN.md.
func Parse(src string) (*Configurator, error) {
	p := &parser{lx: newLexer(src)}
	p.advance()
	c := New()
	for p.tok.kind != tokEOF {
		key, err := p.parseKeyPath()
		if err != nil {
			return nil, err
		}
		if p.tok.kind == tokEquals {
			p.advance()
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		c.SetKeyPath(key, v)
	}
	return c, nil
}

type parser struct {
	lx  *lexer
	tok token
}

func (p *parser) advance() { p.tok = p.lx.next() }

func (p *parser) parseKeyPath() (string, error) {
	if p.tok.kind != tokIdent {
		return "", fmt.Errorf("%w: expected key, got %q", ErrSyntax, p.tok.text)
	}
	key := p.tok.text
	p.advance()
	return key, nil
}

func (p *parser) parseValue() (Value, error) {
	switch p.tok.kind {
	case tokString:
		s := p.tok.text
		p.advance()
		return String(s), nil
	case tokNumber:
		s := p.tok.text
		p.advance()
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Value{}, fmt.Errorf("%w: bad number %q: %v", ErrSyntax, s, err)
			}
			return Float(f), nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad integer %q: %v", ErrSyntax, s, err)
		}
		return Int(n), nil
	case tokDuration:
		text := p.tok.text
		if strings.HasSuffix(text, "min") {
			// time.ParseDuration spells minutes "m".
			text = strings.TrimSuffix(text, "min") + "m"
		}
		d, err := time.ParseDuration(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad duration %q: %v", ErrSyntax, p.tok.text, err)
		}
		p.advance()
		return Dur(d), nil
	case tokBool:
		b := p.tok.text == "true"
		p.advance()
		return Bool(b), nil
	case tokURI:
		u, err := url.Parse(p.tok.text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad uri %q: %v", ErrSyntax, p.tok.text, err)
		}
		p.advance()
		return URI(u), nil
	case tokLBracket:
		return p.parseList()
	case tokLBrace:
		return p.parseMap()
	default:
		return Value{}, fmt.Errorf("%w: unexpected token %q", ErrSyntax, p.tok.text)
	}
}

func (p *parser) parseList() (Value, error) {
	p.advance() // consume '['
	var items []Value
	for p.tok.kind != tokRBracket {
		if p.tok.kind == tokEOF {
			return Value{}, fmt.Errorf("%w: unterminated list", ErrSyntax)
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		if p.tok.kind == tokComma {
			p.advance()
		}
	}
	p.advance() // consume ']'
	return List(items), nil
}

func (p *parser) parseMap() (Value, error) {
	p.advance() // consume '{'
	m := map[string]Value{}
	for p.tok.kind != tokRBrace {
		if p.tok.kind == tokEOF {
			return Value{}, fmt.Errorf("%w: unterminated map", ErrSyntax)
		}
		key, err := p.parseKeyPath()
		if err != nil {
			return Value{}, err
		}
		if p.tok.kind == tokEquals {
			p.advance()
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		m[key] = v
		if p.tok.kind == tokComma {
			p.advance()
		}
	}
	p.advance() // consume '}'
	return Map(m), nil
}
