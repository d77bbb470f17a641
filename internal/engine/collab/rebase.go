package collab

import (
	"fmt"

	"github.com/dshills/prosecore/internal/engine/transform"
)

// Rebaseable is an unconfirmed local step together with its inverse.
type Rebaseable struct {
	Step     transform.Step
	Inverted transform.Step
	// Origin is the transform the step was first applied in.
	Origin *transform.Transform
}

// UnconfirmedFrom wraps the steps of tr as rebaseable steps.
func UnconfirmedFrom(tr *transform.Transform) []Rebaseable {
	result := make([]Rebaseable, len(tr.Steps))
	for i, s := range tr.Steps {
		result[i] = Rebaseable{Step: s, Inverted: s.Invert(tr.Docs[i]), Origin: tr}
	}
	return result
}

// RebaseSteps undoes steps in tr, applies over, then maps steps over them
// and re-applies those that still apply. tr must start at the document
// with steps applied. Each re-applied step's map is registered as the mirror
// of its inverse, so positions inside content that survived the rebase map
// back exactly.
//
// It returns the rebased steps and the number of steps, local or remote,
// that failed to apply and were dropped.
func RebaseSteps(tr *transform.Transform, steps []Rebaseable, over []transform.Step) ([]Rebaseable, int, error) {
	for i := len(steps) - 1; i >= 0; i-- {
		if err := tr.Step(steps[i].Inverted); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrRebaseFailed, err)
		}
	}
	dropped := 0
	for _, s := range over {
		if tr.MaybeStep(s).Failed != "" {
			dropped++
		}
	}

	var result []Rebaseable
	mapFrom := len(steps)
	for _, s := range steps {
		mapped := s.Step.Map(tr.Mapping.SliceFrom(mapFrom))
		mapFrom--
		if mapped == nil {
			dropped++
			continue
		}
		before := tr.Doc
		if tr.MaybeStep(mapped).Failed != "" {
			dropped++
			continue
		}
		tr.Mapping.SetMirror(mapFrom, len(tr.Steps)-1)
		result = append(result, Rebaseable{Step: mapped, Inverted: mapped.Invert(before), Origin: s.Origin})
	}
	return result, dropped, nil
}
