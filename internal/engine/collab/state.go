package collab

import (
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// State is the collaboration state of one replica. It is immutable.
type State struct {
	// Version is the number of authority steps this replica has applied.
	Version int
	// Unconfirmed are local steps not yet confirmed by the authority.
	Unconfirmed []Rebaseable
	// Dropped counts steps lost to rebasing over the replica's lifetime.
	Dropped int
}

// NewState returns a synced state at version.
func NewState(version int) *State {
	return &State{Version: version}
}

// Synced reports whether every local step has been confirmed.
func (s *State) Synced() bool { return len(s.Unconfirmed) == 0 }

// Apply records the steps of a local transform as unconfirmed.
func (s *State) Apply(tr *transform.Transform) *State {
	if !tr.DocChanged() {
		return s
	}
	unconfirmed := make([]Rebaseable, 0, len(s.Unconfirmed)+len(tr.Steps))
	unconfirmed = append(unconfirmed, s.Unconfirmed...)
	unconfirmed = append(unconfirmed, UnconfirmedFrom(tr)...)
	return &State{Version: s.Version, Unconfirmed: unconfirmed, Dropped: s.Dropped}
}

// Sendable is a batch of local steps ready to be submitted to the authority.
type Sendable struct {
	Version  int
	Steps    []transform.Step
	ClientID string
	// Origins are the transforms the steps came from, one per step.
	Origins []*transform.Transform
}

// SendableSteps returns the unconfirmed steps, or nil when there are none.
func (s *State) SendableSteps(clientID string) *Sendable {
	if len(s.Unconfirmed) == 0 {
		return nil
	}
	out := &Sendable{
		Version:  s.Version,
		ClientID: clientID,
		Steps:    make([]transform.Step, len(s.Unconfirmed)),
		Origins:  make([]*transform.Transform, len(s.Unconfirmed)),
	}
	for i, u := range s.Unconfirmed {
		out.Steps[i] = u.Step
		out.Origins[i] = u.Origin
	}
	return out
}

// Received is the outcome of receiving authority steps.
type Received struct {
	// Transform turns the replica's document into the new one. It has no
	// steps when every received step was the replica's own.
	Transform *transform.Transform
	State     *State
	// Confirmed is the number of own steps acknowledged by the batch.
	Confirmed int
	// Rebased is the number of unconfirmed steps that were undone and
	// replayed. History needs it to remap its items.
	Rebased int
	// Dropped is the number of steps lost in this batch.
	Dropped int
}

// Receive applies steps from the authority to doc, the replica's current
// document. clientIDs holds the submitting client of each step and ourID is
// the replica's own client ID. The leading steps submitted by this replica
// confirm its unconfirmed steps; the rest are applied with the remaining
// unconfirmed steps rebased on top.
func (s *State) Receive(doc *model.Node, steps []transform.Step, clientIDs []string, ourID string) (*Received, error) {
	version := s.Version + len(steps)
	ours := 0
	for ours < len(clientIDs) && ours < len(steps) && clientIDs[ours] == ourID {
		ours++
	}
	ours = min(ours, len(s.Unconfirmed))
	unconfirmed := s.Unconfirmed[ours:]
	steps = steps[ours:]

	tr := transform.New(doc)
	if len(steps) == 0 {
		return &Received{
			Transform: tr,
			State:     &State{Version: version, Unconfirmed: unconfirmed, Dropped: s.Dropped},
			Confirmed: ours,
		}, nil
	}

	var (
		dropped int
		err     error
	)
	rebased := len(unconfirmed)
	if rebased > 0 {
		unconfirmed, dropped, err = RebaseSteps(tr, unconfirmed, steps)
		if err != nil {
			return nil, err
		}
	} else {
		for _, step := range steps {
			if tr.MaybeStep(step).Failed != "" {
				dropped++
			}
		}
	}
	return &Received{
		Transform: tr,
		State:     &State{Version: version, Unconfirmed: unconfirmed, Dropped: s.Dropped + dropped},
		Confirmed: ours,
		Rebased:   rebased,
		Dropped:   dropped,
	}, nil
}
