package selection

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/prosecore/internal/engine/model"
)

// Serialized selection kinds.
const (
	TypeText = "text"
	TypeNode = "node"
	TypeAll  = "all"
)

// ToJSON implements Selection.
func (s *TextSelection) ToJSON() ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "type", TypeText)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "anchor", s.Anchor()); err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "head", s.Head())
}

// ToJSON implements Selection.
func (s *NodeSelection) ToJSON() ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "type", TypeNode)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "anchor", s.Anchor())
}

// ToJSON implements Selection.
func (s *AllSelection) ToJSON() ([]byte, error) {
	return sjson.SetBytes([]byte(`{}`), "type", TypeAll)
}

// FromJSON decodes a selection in doc.
func FromJSON(doc *model.Node, data []byte) (Selection, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: selection", model.ErrInvalidJSON)
	}
	return FromResult(doc, gjson.ParseBytes(data))
}

// FromResult decodes a parsed selection in doc.
func FromResult(doc *model.Node, r gjson.Result) (Selection, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: selection must be an object", model.ErrInvalidJSON)
	}
	switch kind := r.Get("type").String(); kind {
	case TypeText:
		anchor, head := r.Get("anchor"), r.Get("head")
		if anchor.Type != gjson.Number || head.Type != gjson.Number {
			return nil, fmt.Errorf("%w: text selection needs anchor and head", model.ErrInvalidJSON)
		}
		return CreateText(doc, int(anchor.Int()), int(head.Int()))
	case TypeNode:
		anchor := r.Get("anchor")
		if anchor.Type != gjson.Number {
			return nil, fmt.Errorf("%w: node selection needs anchor", model.ErrInvalidJSON)
		}
		return CreateNode(doc, int(anchor.Int()))
	case TypeAll:
		return NewAllSelection(doc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelectionType, kind)
	}
}
