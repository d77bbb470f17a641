package collab

import (
	"fmt"
	"sync"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Authority is the single ordering point of a collaborative session. It
// accepts step batches that are based on its current version and keeps the
// resulting document. It is safe for concurrent use.
type Authority struct {
	mu        sync.Mutex
	doc       *model.Node
	steps     []transform.Step
	clientIDs []string
	subs      map[chan int]struct{}
}

// NewAuthority creates an authority whose version 0 is doc.
func NewAuthority(doc *model.Node) *Authority {
	return &Authority{doc: doc, subs: make(map[chan int]struct{})}
}

// Version returns the number of accepted steps.
func (a *Authority) Version() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.steps)
}

// Doc returns the current document.
func (a *Authority) Doc() *model.Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc
}

// Submit appends steps made by clientID on top of version. The batch is
// rejected with ErrVersionMismatch unless version is current, and with an
// error wrapping transform.ErrStepFailed if any step does not apply. A
// rejected batch leaves the authority unchanged.
func (a *Authority) Submit(version int, steps []transform.Step, clientID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if version != len(a.steps) {
		return fmt.Errorf("%w: submitted %d, current %d", ErrVersionMismatch, version, len(a.steps))
	}
	tr := transform.New(a.doc)
	for i, step := range steps {
		if err := tr.Step(step); err != nil {
			return fmt.Errorf("step %d from %s: %w", i, clientID, err)
		}
	}
	a.doc = tr.Doc
	a.steps = append(a.steps, steps...)
	for range steps {
		a.clientIDs = append(a.clientIDs, clientID)
	}
	a.notify(len(a.steps))
	return nil
}

// StepsSince returns the steps accepted after version with the client ID
// of each.
func (a *Authority) StepsSince(version int) ([]transform.Step, []string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if version < 0 || version > len(a.steps) {
		return nil, nil, fmt.Errorf("%w: requested %d, current %d", ErrVersionMismatch, version, len(a.steps))
	}
	steps := append([]transform.Step(nil), a.steps[version:]...)
	ids := append([]string(nil), a.clientIDs[version:]...)
	return steps, ids, nil
}

// Subscribe returns a channel that receives the new version after every
// accepted batch, and a function that ends the subscription. Versions are
// dropped for subscribers that are not ready to receive; the latest version
// can always be read with Version.
func (a *Authority) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)
	a.mu.Lock()
	a.subs[ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, ch)
			a.mu.Unlock()
			close(ch)
		})
	}
}

func (a *Authority) notify(version int) {
	for ch := range a.subs {
		select {
		case ch <- version:
		default:
		}
	}
}
