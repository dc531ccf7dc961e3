package frontend

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// ParseType parses a Slice type string such as "int32", "string?",
// "sequence<Zoo::Dog>" or "dictionary<string, varint62?>". Entity names are
// kept as written; Validate resolves them against the module scope.
func ParseType(s string) (grammar.TypeRef, error) {
	p := &typeParser{src: s}
	t, err := p.parseType()
	if err != nil {
		return grammar.TypeRef{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return grammar.TypeRef{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("invalid type %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

// name reads a possibly scoped identifier: ("::")? ident ("::" ident)*.
func (p *typeParser) name() (string, error) {
	p.skipSpace()
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "::") {
		p.pos += 2
	}
	for {
		if !p.ident() {
			return "", p.errorf("expected identifier")
		}
		if !strings.HasPrefix(p.src[p.pos:], "::") {
			break
		}
		p.pos += 2
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) ident() bool {
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r == '_' || unicode.IsLetter(r) || (p.pos > start && unicode.IsDigit(r)) {
			p.pos++
			continue
		}
		break
	}
	return p.pos > start
}

func (p *typeParser) parseType() (grammar.TypeRef, error) {
	n, err := p.name()
	if err != nil {
		return grammar.TypeRef{}, err
	}

	var t grammar.TypeRef
	switch n {
	case "sequence":
		if err := p.expect("<"); err != nil {
			return t, err
		}
		elem, err := p.parseType()
		if err != nil {
			return t, err
		}
		if err := p.expect(">"); err != nil {
			return t, err
		}
		t = grammar.SequenceOf(elem)
	case "dictionary":
		if err := p.expect("<"); err != nil {
			return t, err
		}
		key, err := p.parseType()
		if err != nil {
			return t, err
		}
		if err := p.expect(","); err != nil {
			return t, err
		}
		value, err := p.parseType()
		if err != nil {
			return t, err
		}
		if err := p.expect(">"); err != nil {
			return t, err
		}
		t = grammar.DictionaryOf(key, value)
	default:
		if prim, ok := grammar.LookupPrimitive(n); ok {
			t = grammar.PrimitiveOf(prim)
		} else {
			t = grammar.Named(n)
		}
	}

	if p.accept("?") {
		t = t.AsOptional()
	}
	return t, nil
}
