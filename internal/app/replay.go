package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/prosecore/internal/engine"
	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
	"github.com/dshills/prosecore/internal/logging"
)

// Entry is one action of a replay log, performed by Client.
//
// In JSON an entry is an object such as
//
//	{"client": "a", "steps": [...], "close": true, "undo": true, "sync": true}
//
// Its actions run in the order steps, close, undo, redo, sync. A bare step
// object is shorthand for a single-step entry of the default client.
type Entry struct {
	Client string
	Steps  []transform.Step
	Close  bool
	Undo   bool
	Redo   bool
	Sync   bool
}

// ParseLog decodes a replay log: a JSON array of entries and bare steps.
// Consecutive bare steps form one entry.
func ParseLog(schema *model.Schema, data []byte, defaultClient string) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidLog)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected an array", ErrInvalidLog)
	}

	var entries []Entry
	bare := -1 // index of the entry collecting bare steps
	for i, item := range root.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrInvalidLog, i)
		}
		if item.Get("stepType").Exists() {
			step, err := transform.StepFromResult(schema, item)
			if err != nil {
				return nil, &EntryError{Index: i, Client: defaultClient, Err: err}
			}
			if bare < 0 {
				entries = append(entries, Entry{Client: defaultClient})
				bare = len(entries) - 1
			}
			entries[bare].Steps = append(entries[bare].Steps, step)
			continue
		}
		bare = -1

		e := Entry{
			Client: item.Get("client").String(),
			Close:  item.Get("close").Bool(),
			Undo:   item.Get("undo").Bool(),
			Redo:   item.Get("redo").Bool(),
			Sync:   item.Get("sync").Bool(),
		}
		if e.Client == "" {
			e.Client = defaultClient
		}
		if steps := item.Get("steps"); steps.Exists() {
			parsed, err := transform.StepsFromJSON(schema, []byte(steps.Raw))
			if err != nil {
				return nil, &EntryError{Index: i, Client: e.Client, Err: err}
			}
			e.Steps = parsed
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReplayOption configures a Replay.
type ReplayOption func(*Replay)

// WithEngineOptions sets options for every client's engine state. Client
// IDs are always set by the replay.
func WithEngineOptions(opts ...engine.Option) ReplayOption {
	return func(r *Replay) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithReplayLogger sets the replay logger.
func WithReplayLogger(l *logging.Logger) ReplayOption {
	return func(r *Replay) {
		r.logger = l
	}
}

// Replay runs a log of client actions against one authority.
type Replay struct {
	doc        *model.Node
	auth       *collab.Authority
	engineOpts []engine.Option
	logger     *logging.Logger

	clients map[string]*engine.Editor
	order   []string
}

// NewReplay creates a replay whose authority and clients start at doc.
func NewReplay(doc *model.Node, opts ...ReplayOption) *Replay {
	r := &Replay{
		doc:     doc,
		auth:    collab.NewAuthority(doc),
		logger:  logging.NullLogger,
		clients: make(map[string]*engine.Editor),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("replay")
	return r
}

// Authority returns the replay's authority.
func (r *Replay) Authority() *collab.Authority { return r.auth }

func (r *Replay) client(id string) (*engine.Editor, error) {
	if ed, ok := r.clients[id]; ok {
		return ed, nil
	}
	opts := append(append([]engine.Option(nil), r.engineOpts...), engine.WithCollab(id, 0))
	ed, err := engine.NewEditor(r.doc, opts...)
	if err != nil {
		return nil, err
	}
	// A client joining late starts from the authority's current document.
	if err := ed.Pull(r.auth); err != nil {
		return nil, err
	}
	r.clients[id] = ed
	r.order = append(r.order, id)
	return ed, nil
}

// Run performs the entries and then synchronizes every client with the
// authority.
func (r *Replay) Run(ctx context.Context, entries []Entry) (*Result, error) {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.perform(e); err != nil {
			return nil, &EntryError{Index: i, Client: e.Client, Err: err}
		}
	}

	for _, id := range r.order {
		if err := r.clients[id].Sync(r.auth); err != nil {
			return nil, fmt.Errorf("final sync of %s: %w", id, err)
		}
	}
	for _, id := range r.order {
		if err := r.clients[id].Pull(r.auth); err != nil {
			return nil, fmt.Errorf("final pull of %s: %w", id, err)
		}
	}

	res := &Result{Doc: r.auth.Doc(), Version: r.auth.Version()}
	for _, id := range r.order {
		res.Clients = append(res.Clients, ClientResult{ID: id, State: r.clients[id].State()})
	}
	r.logger.WithFields(map[string]any{
		"version": res.Version,
		"clients": len(res.Clients),
	}).Info("replayed %d entries", len(entries))
	return res, nil
}

func (r *Replay) perform(e Entry) error {
	ed, err := r.client(e.Client)
	if err != nil {
		return err
	}
	log := r.logger.WithField("clientID", e.Client)

	if len(e.Steps) > 0 {
		err := ed.Dispatch(func(tr *engine.Transaction) error {
			for _, s := range e.Steps {
				if err := tr.Step(s); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if e.Close {
		ed.CloseHistory()
	}
	if e.Undo && !ed.Undo() {
		log.Debug("nothing to undo")
	}
	if e.Redo && !ed.Redo() {
		log.Debug("nothing to redo")
	}
	if e.Sync {
		return ed.Sync(r.auth)
	}
	return nil
}

// ClientResult is a client's state after a replay.
type ClientResult struct {
	ID    string
	State *engine.State
}

// Result is the outcome of a replay.
type Result struct {
	Doc     *model.Node
	Version int
	Clients []ClientResult
}

// Converged reports whether every client holds the authority's document
// at its version.
func (res *Result) Converged() bool {
	for _, c := range res.Clients {
		if !res.agrees(c) {
			return false
		}
	}
	return true
}

func (res *Result) agrees(c ClientResult) bool {
	return c.State.Version() == res.Version && c.State.Doc.Eq(res.Doc)
}

// ToJSON encodes the result as
//
//	{"version": n, "doc": {...}, "converged": true, "clients": [{"id", "version", "converged", "undoDepth"}]}
func (res *Result) ToJSON() ([]byte, error) {
	doc, err := res.Doc.ToJSON()
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes([]byte(`{}`), "version", res.Version)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "doc", doc); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "converged", res.Converged()); err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "clients", []byte(`[]`)); err != nil {
		return nil, err
	}
	for _, c := range res.Clients {
		client := map[string]any{
			"id":        c.ID,
			"version":   c.State.Version(),
			"converged": res.agrees(c),
			"undoDepth": c.State.UndoDepth(),
		}
		if out, err = sjson.SetBytes(out, "clients.-1", client); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteText writes a readable summary of the result in a single Write.
func (res *Result) WriteText(w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "version %d\n%s\n%q\n", res.Version, res.Doc, res.Doc.TextContent())
	for _, c := range res.Clients {
		status := "converged"
		if !res.agrees(c) {
			status = "diverged"
		}
		fmt.Fprintf(&buf, "  %s: %s (version %d, %d undoable)\n", c.ID, status, c.State.Version(), c.State.UndoDepth())
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
