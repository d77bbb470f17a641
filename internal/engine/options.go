package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/prosecore/internal/engine/history"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/logging"
)

// Option configures a State during creation.
type Option func(*options)

type options struct {
	history   history.Config
	noHistory bool
	collab    bool
	clientID  string
	version   int
	logger    *logging.Logger
	selection selection.Selection
	clock     func() time.Time
}

// config is shared by every state derived from the same NewState call.
type config struct {
	history   history.Config
	noHistory bool
	clientID  string
	logger    *logging.Logger
	clock     func() time.Time
}

func defaultOptions() *options {
	return &options{
		history: history.DefaultConfig(),
		logger:  logging.NullLogger,
		clock:   time.Now,
	}
}

// WithHistory sets the undo history configuration.
func WithHistory(cfg history.Config) Option {
	return func(o *options) {
		o.history = cfg
	}
}

// WithoutHistory creates a state that records no undo history.
func WithoutHistory() Option {
	return func(o *options) {
		o.noHistory = true
	}
}

// WithCollab enables collaboration, starting at version of the authority's
// step log. An empty clientID is replaced by a random one. Collaboration
// always keeps one history item per step, whatever the history config says.
func WithCollab(clientID string, version int) Option {
	return func(o *options) {
		o.collab = true
		o.clientID = clientID
		o.version = version
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSelection sets the initial selection. It must point into the
// state's document.
func WithSelection(sel selection.Selection) Option {
	return func(o *options) {
		o.selection = sel
	}
}

// WithClock sets the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func (o *options) config() *config {
	clientID := o.clientID
	hc := o.history
	if o.collab {
		if clientID == "" {
			clientID = uuid.NewString()
		}
		// Rebased history items are swapped one-for-one with unconfirmed steps.
		hc.PreserveItems = true
	}
	return &config{
		history:   hc,
		noHistory: o.noHistory,
		clientID:  clientID,
		logger:    o.logger.WithComponent("engine"),
		clock:     o.clock,
	}
}
