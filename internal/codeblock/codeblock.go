// Package codeblock provides an append-only text accumulator used by the
// generators to assemble C# source.
//
// Fragments added with AddBlock are separated by exactly one blank line.
// A Block is owned by one caller at a time; it is never shared between
// goroutines.
package codeblock

import (
	"fmt"
	"strings"
)

// Indentation is the unit of one nested scope.
const Indentation = "    "

// Block accumulates source text. Trailing newlines are held back until more
// text follows, so that AddBlock can replace them with one blank line.
type Block struct {
	sb      strings.Builder
	pending int
}

// New returns a block holding the given lines, joined with newlines.
func New(lines ...string) *Block {
	b := &Block{}
	for _, l := range lines {
		b.Writeln(l)
	}
	return b
}

// Write appends raw text without any separation.
func (b *Block) Write(s string) *Block {
	body := strings.TrimRight(s, "\n")
	if body == "" {
		b.pending += len(s)
		return b
	}
	for ; b.pending > 0; b.pending-- {
		b.sb.WriteByte('\n')
	}
	b.sb.WriteString(body)
	b.pending = len(s) - len(body)
	return b
}

// Writef appends formatted text without any separation.
func (b *Block) Writef(format string, args ...any) *Block {
	return b.Write(fmt.Sprintf(format, args...))
}

// Writeln appends s followed by a newline.
func (b *Block) Writeln(s string) *Block {
	return b.Write(s + "\n")
}

// AddBlock appends a fragment, separated from previous content by one blank
// line. fragment may be a string, a *Block or a fmt.Stringer. Fragments that
// are empty after trimming are ignored.
func (b *Block) AddBlock(fragment any) *Block {
	var text string
	switch f := fragment.(type) {
	case string:
		text = f
	case *Block:
		if f == nil {
			return b
		}
		text = f.String()
	case fmt.Stringer:
		text = f.String()
	default:
		panic(fmt.Sprintf("codeblock: unsupported fragment type %T", fragment))
	}

	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return b
	}

	b.pending = 0
	if b.sb.Len() > 0 {
		b.pending = 2
	}
	return b.Write(text)
}

// IsEmpty reports whether the block holds only whitespace.
func (b *Block) IsEmpty() bool {
	return strings.TrimSpace(b.sb.String()) == ""
}

// String renders the block. Rendering does not modify the block.
func (b *Block) String() string {
	return b.sb.String()
}

// Indent returns a copy of the block with every non-empty line indented by
// one level.
func (b *Block) Indent() *Block {
	return New().Write(Indent(b.String()))
}

// Indent indents every non-empty line of s by one level.
func Indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = Indentation + l
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// Braced returns "header\n{\n    body\n}". An empty body renders as "header\n{\n}".
func Braced(header string, body any) string {
	inner := New().AddBlock(body)
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n{\n")
	if !inner.IsEmpty() {
		sb.WriteString(Indent(inner.String()))
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}
