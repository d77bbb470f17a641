package engine

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/selection"
)

// ToJSON encodes the document and selection, and the collaboration version
// when collaboration is enabled. History is not serialized.
func (s *State) ToJSON() ([]byte, error) {
	doc, err := s.Doc.ToJSON()
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetRawBytes([]byte(`{}`), "doc", doc)
	if err != nil {
		return nil, err
	}
	sel, err := s.Selection.ToJSON()
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "selection", sel); err != nil {
		return nil, err
	}
	if s.Collab != nil {
		if out, err = sjson.SetBytes(out, "version", s.Collab.Version); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// StateFromJSON decodes a state encoded by ToJSON. A stored version
// overrides the one given to WithCollab.
func StateFromJSON(schema *model.Schema, data []byte, opts ...Option) (*State, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: state", model.ErrInvalidJSON)
	}
	r := gjson.ParseBytes(data)
	docResult := r.Get("doc")
	if !docResult.Exists() {
		return nil, fmt.Errorf("%w: state has no doc", model.ErrInvalidJSON)
	}
	doc, err := model.NodeFromJSON(schema, []byte(docResult.Raw))
	if err != nil {
		return nil, err
	}
	if selResult := r.Get("selection"); selResult.Exists() {
		sel, err := selection.FromResult(doc, selResult)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSelection(sel))
	}
	st, err := NewState(doc, opts...)
	if err != nil {
		return nil, err
	}
	if v := r.Get("version"); v.Exists() && st.Collab != nil {
		st.Collab = collab.NewState(int(v.Int()))
	}
	return st, nil
}
