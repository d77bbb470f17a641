// Package basic provides a small reference schema (paragraphs, headings,
// blockquotes, lists, images and the usual inline marks) and helpers for
// building documents against it.
package basic

import (
	_ "embed"
	"fmt"

	"github.com/dshills/prosecore/internal/engine/model"
)

//go:embed basic.yaml
var schemaYAML []byte

// SchemaYAML returns the YAML source of the basic schema.
func SchemaYAML() []byte { return append([]byte(nil), schemaYAML...) }

// NewSchema compiles the basic schema.
func NewSchema() (*model.Schema, error) {
	return model.LoadSchemaYAML(schemaYAML)
}

// Builder constructs nodes in the basic schema. Its methods panic on invalid
// content and are meant for tests and fixtures.
type Builder struct {
	Schema *model.Schema
}

// NewBuilder returns a builder for a fresh basic schema. It panics if the
// embedded schema fails to compile.
func NewBuilder() *Builder {
	s, err := NewSchema()
	if err != nil {
		panic(fmt.Sprintf("basic: %v", err))
	}
	return &Builder{Schema: s}
}

// Children accepted by builder methods: string (text), *model.Node, or
// []*model.Node (the output of mark helpers).
func (b *Builder) flatten(children []any, marks []*model.Mark) []*model.Node {
	var out []*model.Node
	for _, c := range children {
		switch v := c.(type) {
		case string:
			if v == "" {
				continue
			}
			n, err := b.Schema.Text(v, nil)
			if err != nil {
				panic(err)
			}
			out = append(out, n)
		case *model.Node:
			out = append(out, v)
		case []*model.Node:
			out = append(out, v...)
		default:
			panic(fmt.Sprintf("basic: unsupported child %T", c))
		}
	}
	if len(marks) > 0 {
		for i, n := range out {
			set := n.Marks
			for _, m := range marks {
				set = m.AddToSet(set)
			}
			out[i] = n.Mark(set)
		}
	}
	return out
}

func (b *Builder) node(name string, attrs model.Attrs, children []any) *model.Node {
	n, err := b.Schema.Node(name, attrs, b.flatten(children, nil), nil)
	if err != nil {
		panic(err)
	}
	return n
}

func (b *Builder) mark(name string, attrs model.Attrs) *model.Mark {
	m, err := b.Schema.Mark(name, attrs)
	if err != nil {
		panic(err)
	}
	return m
}

// Doc builds a document node.
func (b *Builder) Doc(children ...any) *model.Node { return b.node("doc", nil, children) }

// P builds a paragraph.
func (b *Builder) P(children ...any) *model.Node { return b.node("paragraph", nil, children) }

// Blockquote builds a blockquote.
func (b *Builder) Blockquote(children ...any) *model.Node {
	return b.node("blockquote", nil, children)
}

// H builds a heading of the given level.
func (b *Builder) H(level int, children ...any) *model.Node {
	return b.node("heading", model.Attrs{"level": level}, children)
}

// Pre builds a code block.
func (b *Builder) Pre(children ...any) *model.Node { return b.node("code_block", nil, children) }

// HR builds a horizontal rule.
func (b *Builder) HR() *model.Node { return b.node("horizontal_rule", nil, nil) }

// UL builds a bullet list.
func (b *Builder) UL(children ...any) *model.Node { return b.node("bullet_list", nil, children) }

// LI builds a list item.
func (b *Builder) LI(children ...any) *model.Node { return b.node("list_item", nil, children) }

// Img builds an inline image.
func (b *Builder) Img(src string) *model.Node {
	return b.node("image", model.Attrs{"src": src}, nil)
}

// Br builds a hard break.
func (b *Builder) Br() *model.Node { return b.node("hard_break", nil, nil) }

// Text builds a single text node.
func (b *Builder) Text(text string, marks ...*model.Mark) *model.Node {
	n, err := b.Schema.Text(text, marks)
	if err != nil {
		panic(err)
	}
	return n
}

// Em applies emphasis to its children.
func (b *Builder) Em(children ...any) []*model.Node {
	return b.flatten(children, []*model.Mark{b.EmMark()})
}

// Strong applies strong emphasis to its children.
func (b *Builder) Strong(children ...any) []*model.Node {
	return b.flatten(children, []*model.Mark{b.StrongMark()})
}

// Code applies the code mark to its children.
func (b *Builder) Code(children ...any) []*model.Node {
	return b.flatten(children, []*model.Mark{b.CodeMark()})
}

// Link applies a link mark to its children.
func (b *Builder) Link(href string, children ...any) []*model.Node {
	return b.flatten(children, []*model.Mark{b.LinkMark(href)})
}

// EmMark returns an em mark.
func (b *Builder) EmMark() *model.Mark { return b.mark("em", nil) }

// StrongMark returns a strong mark.
func (b *Builder) StrongMark() *model.Mark { return b.mark("strong", nil) }

// CodeMark returns a code mark.
func (b *Builder) CodeMark() *model.Mark { return b.mark("code", nil) }

// LinkMark returns a link mark pointing at href.
func (b *Builder) LinkMark(href string) *model.Mark {
	return b.mark("link", model.Attrs{"href": href})
}
