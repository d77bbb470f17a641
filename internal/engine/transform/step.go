package transform

import (
	"github.com/dshills/prosecore/internal/engine/model"
)

// Step is an atomic, invertible change to a document. The set of step kinds
// is closed: ReplaceStep, AddMarkStep and RemoveMarkStep.
type Step interface {
	// Apply applies the step to doc. Failure is reported in the result.
	Apply(doc *model.Node) StepResult

	// GetMap returns the map describing how positions move across the step.
	GetMap() *StepMap

	// Invert returns the step that undoes this one. doc must be the document
	// the step was applied to; Invert returns nil when the step's range does
	// not exist in doc.
	Invert(doc *model.Node) Step

	// Map maps the step's positions through a mapping. It returns nil when
	// the content the step targeted was deleted.
	Map(mapping Mappable) Step

	// Merge merges this step with other, which is applied directly after it.
	// It reports false when the steps cannot be expressed as one.
	Merge(other Step) (Step, bool)

	// ToJSON encodes the step as {"stepType", ...}.
	ToJSON() ([]byte, error)

	isStep()
}

// StepResult is the result of applying a step: a new document or a failure message.
type StepResult struct {
	Doc    *model.Node
	Failed string
}

// OK creates a successful step result.
func OK(doc *model.Node) StepResult { return StepResult{Doc: doc} }

// Fail creates a failed step result.
func Fail(message string) StepResult { return StepResult{Failed: message} }

// FromReplace replaces [from, to) in doc with slice, turning a replace error
// into a failed result.
func FromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(replaced)
}
