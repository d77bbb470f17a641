package transform

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/prosecore/internal/engine/model"
)

// Serialized step type tags.
const (
	StepTypeReplace    = "replace"
	StepTypeAddMark    = "addMark"
	StepTypeRemoveMark = "removeMark"
)

// ToJSON implements Step.
func (s *ReplaceStep) ToJSON() ([]byte, error) {
	out, err := rangeJSON(StepTypeReplace, s.From, s.To)
	if err != nil {
		return nil, err
	}
	if s.Slice.Content.Size() > 0 {
		slice, err := s.Slice.ToJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "slice", slice); err != nil {
			return nil, err
		}
	}
	if s.Structure {
		if out, err = sjson.SetBytes(out, "structure", true); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToJSON implements Step.
func (s *AddMarkStep) ToJSON() ([]byte, error) {
	return markStepJSON(StepTypeAddMark, s.From, s.To, s.Mark)
}

// ToJSON implements Step.
func (s *RemoveMarkStep) ToJSON() ([]byte, error) {
	return markStepJSON(StepTypeRemoveMark, s.From, s.To, s.Mark)
}

func rangeJSON(stepType string, from, to int) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "stepType", stepType)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "from", from); err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "to", to)
}

func markStepJSON(stepType string, from, to int, mark *model.Mark) ([]byte, error) {
	out, err := rangeJSON(stepType, from, to)
	if err != nil {
		return nil, err
	}
	raw, err := mark.ToJSON()
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "mark", raw)
}

// StepFromJSON decodes a step serialized by ToJSON.
func StepFromJSON(schema *model.Schema, data []byte) (Step, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: step", model.ErrInvalidJSON)
	}
	return StepFromResult(schema, gjson.ParseBytes(data))
}

// StepFromResult decodes a parsed step.
func StepFromResult(schema *model.Schema, r gjson.Result) (Step, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: step must be an object", model.ErrInvalidJSON)
	}
	from, to := r.Get("from"), r.Get("to")
	if from.Type != gjson.Number || to.Type != gjson.Number {
		return nil, fmt.Errorf("%w: step needs numeric from and to", model.ErrInvalidJSON)
	}
	stepType := r.Get("stepType").String()
	switch stepType {
	case StepTypeReplace:
		slice, err := schema.SliceFromResult(r.Get("slice"))
		if err != nil {
			return nil, err
		}
		return NewReplaceStep(int(from.Int()), int(to.Int()), slice, r.Get("structure").Bool()), nil
	case StepTypeAddMark, StepTypeRemoveMark:
		mark, err := schema.MarkFromResult(r.Get("mark"))
		if err != nil {
			return nil, err
		}
		if stepType == StepTypeAddMark {
			return NewAddMarkStep(int(from.Int()), int(to.Int()), mark), nil
		}
		return NewRemoveMarkStep(int(from.Int()), int(to.Int()), mark), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
}

// StepsToJSON encodes a list of steps as a JSON array.
func StepsToJSON(steps []Step) ([]byte, error) {
	out := []byte(`[]`)
	for _, s := range steps {
		raw, err := s.ToJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// StepsFromJSON decodes a JSON array of steps.
func StepsFromJSON(schema *model.Schema, data []byte) ([]Step, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: steps", model.ErrInvalidJSON)
	}
	r := gjson.ParseBytes(data)
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: steps must be an array", model.ErrInvalidJSON)
	}
	var steps []Step
	for _, item := range r.Array() {
		s, err := StepFromResult(schema, item)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}
