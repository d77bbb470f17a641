package model

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ToJSON encodes the node as {"type", "attrs"?, "content"?, "marks"?, "text"?}.
func (n *Node) ToJSON() ([]byte, error) {
	out := []byte(`{}`)
	var err error
	if out, err = sjson.SetBytes(out, "type", n.Type.Name); err != nil {
		return nil, err
	}
	if len(n.Attrs) > 0 {
		raw, err := json.Marshal(n.Attrs)
		if err != nil {
			return nil, fmt.Errorf("encode attrs of %s: %w", n.Type.Name, err)
		}
		if out, err = sjson.SetRawBytes(out, "attrs", raw); err != nil {
			return nil, err
		}
	}
	if n.content.Size() > 0 {
		raw, err := n.content.ToJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "content", raw); err != nil {
			return nil, err
		}
	}
	if len(n.Marks) > 0 {
		raw, err := MarksToJSON(n.Marks)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "marks", raw); err != nil {
			return nil, err
		}
	}
	if n.IsText() {
		if out, err = sjson.SetBytes(out, "text", n.text); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToJSON encodes the fragment as an array of nodes, or null when empty.
func (f *Fragment) ToJSON() ([]byte, error) {
	if len(f.content) == 0 {
		return []byte("null"), nil
	}
	out := []byte(`[]`)
	for _, child := range f.content {
		raw, err := child.ToJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToJSON encodes the mark as {"type", "attrs"?}.
func (m *Mark) ToJSON() ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "type", m.Type.Name)
	if err != nil {
		return nil, err
	}
	if len(m.Attrs) > 0 {
		raw, err := json.Marshal(m.Attrs)
		if err != nil {
			return nil, fmt.Errorf("encode attrs of %s: %w", m.Type.Name, err)
		}
		if out, err = sjson.SetRawBytes(out, "attrs", raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarksToJSON encodes a mark set as an array.
func MarksToJSON(marks []*Mark) ([]byte, error) {
	out := []byte(`[]`)
	for _, m := range marks {
		raw, err := m.ToJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToJSON encodes the slice as {"content", "openStart"?, "openEnd"?}, or null
// for the empty slice.
func (s *Slice) ToJSON() ([]byte, error) {
	if s.Content.Size() == 0 {
		return []byte("null"), nil
	}
	content, err := s.Content.ToJSON()
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetRawBytes([]byte(`{}`), "content", content)
	if err != nil {
		return nil, err
	}
	if s.OpenStart > 0 {
		if out, err = sjson.SetBytes(out, "openStart", s.OpenStart); err != nil {
			return nil, err
		}
	}
	if s.OpenEnd > 0 {
		if out, err = sjson.SetBytes(out, "openEnd", s.OpenEnd); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NodeFromJSON decodes a document and checks it against the schema.
func NodeFromJSON(s *Schema, data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: node", ErrInvalidJSON)
	}
	n, err := s.NodeFromResult(gjson.ParseBytes(data))
	if err != nil {
		return nil, err
	}
	if err := n.Check(); err != nil {
		return nil, err
	}
	return n, nil
}

// NodeFromResult decodes a parsed node without checking its content, which
// allows the open edges of slices to be represented.
func (s *Schema) NodeFromResult(r gjson.Result) (*Node, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: node must be an object", ErrInvalidJSON)
	}
	name := r.Get("type").String()
	nt := s.nodes[name]
	if nt == nil {
		return nil, fmt.Errorf("%w: node type %q", ErrUnknownType, name)
	}
	marks, err := s.MarksFromResult(r.Get("marks"))
	if err != nil {
		return nil, err
	}
	if nt.IsText() {
		text := r.Get("text")
		if text.Type != gjson.String {
			return nil, fmt.Errorf("%w: invalid text node", ErrInvalidJSON)
		}
		return s.Text(text.String(), marks)
	}
	attrs, err := nt.ComputeAttrs(attrsFromResult(r.Get("attrs")))
	if err != nil {
		return nil, err
	}
	content, err := s.FragmentFromResult(r.Get("content"))
	if err != nil {
		return nil, err
	}
	return newNode(nt, attrs, content, marks), nil
}

// FragmentFromResult decodes an array of nodes. A missing or null value is the empty fragment.
func (s *Schema) FragmentFromResult(r gjson.Result) (*Fragment, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return EmptyFragment, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: fragment must be an array", ErrInvalidJSON)
	}
	var nodes []*Node
	for _, item := range r.Array() {
		n, err := s.NodeFromResult(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return FragmentFromArray(nodes), nil
}

// MarkFromResult decodes a mark.
func (s *Schema) MarkFromResult(r gjson.Result) (*Mark, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: mark must be an object", ErrInvalidJSON)
	}
	return s.Mark(r.Get("type").String(), attrsFromResult(r.Get("attrs")))
}

// MarksFromResult decodes a mark set.
func (s *Schema) MarksFromResult(r gjson.Result) ([]*Mark, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: marks must be an array", ErrInvalidJSON)
	}
	var marks []*Mark
	for _, item := range r.Array() {
		m, err := s.MarkFromResult(item)
		if err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return MarkSetFrom(marks), nil
}

// SliceFromResult decodes a slice. A missing or null value is the empty slice.
func (s *Schema) SliceFromResult(r gjson.Result) (*Slice, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return EmptySlice, nil
	}
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: slice must be an object", ErrInvalidJSON)
	}
	openStart, openEnd := r.Get("openStart"), r.Get("openEnd")
	if (openStart.Exists() && openStart.Type != gjson.Number) || (openEnd.Exists() && openEnd.Type != gjson.Number) {
		return nil, fmt.Errorf("%w: invalid open depths for slice", ErrInvalidJSON)
	}
	content, err := s.FragmentFromResult(r.Get("content"))
	if err != nil {
		return nil, err
	}
	slice := NewSlice(content, int(openStart.Int()), int(openEnd.Int()))
	if err := slice.checkOpen(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return slice, nil
}

func attrsFromResult(r gjson.Result) Attrs {
	if !r.IsObject() {
		return nil
	}
	attrs := Attrs{}
	r.ForEach(func(key, value gjson.Result) bool {
		attrs[key.String()] = value.Value()
		return true
	})
	return attrs
}
