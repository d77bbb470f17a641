// Package app wires configuration, logging, the schema and the engine
// together for the prosecore command. An Application replays a log of
// client edits through an in-memory authority and reports the converged
// document.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"

	"github.com/dshills/prosecore/internal/config"
	"github.com/dshills/prosecore/internal/config/watcher"
	"github.com/dshills/prosecore/internal/engine"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/model/basic"
	"github.com/dshills/prosecore/internal/logging"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses the defaults
	// and the environment only.
	ConfigPath string

	// SchemaPath is a YAML schema. It overrides schema.path from the
	// configuration; the basic schema is used when both are empty.
	SchemaPath string

	// DocPath is the starting document, as node JSON or state JSON. Empty
	// starts from the schema's smallest valid document.
	DocPath string

	// StepsPath is the replay log. Empty only loads and prints the document.
	StepsPath string

	// LogLevel overrides logging.level when set.
	LogLevel string

	// Format is FormatText or FormatJSON.
	Format string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer
}

// Application holds the loaded configuration, logger and schema.
type Application struct {
	opts     Options
	config   *config.Config
	settings config.Settings
	logger   *logging.Logger
	schema   *model.Schema
}

// New creates an Application, loading its configuration and schema.
func New(opts Options) (*Application, error) {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return nil, &InitError{Component: "output", Err: fmt.Errorf("unknown format %q", opts.Format)}
	}
	app := &Application{opts: opts}
	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap loads components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	var cfgOpts []config.Option
	if app.opts.ConfigPath != "" {
		cfgOpts = append(cfgOpts, config.WithFile(app.opts.ConfigPath))
	}
	app.config = config.New(cfgOpts...)
	if err := app.config.Load(context.Background()); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if app.opts.LogLevel != "" {
		if err := app.config.Set("logging.level", app.opts.LogLevel); err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	settings, err := app.config.Settings()
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.settings = settings

	// 2. Logger
	lc := settings.LoggerConfig()
	if app.opts.LogOutput != nil {
		lc.Output = app.opts.LogOutput
	}
	app.logger = logging.NewLogger(lc)

	// 3. Schema
	schemaPath := app.opts.SchemaPath
	if schemaPath == "" {
		schemaPath = settings.Schema.Path
	}
	if schemaPath == "" {
		app.schema, err = basic.NewSchema()
	} else {
		app.schema, err = model.LoadSchemaFile(schemaPath)
	}
	if err != nil {
		return &InitError{Component: "schema", Err: err}
	}
	app.logger.WithField("schema", schemaPath).Debug("schema loaded")
	return nil
}

// Settings returns the loaded settings.
func (app *Application) Settings() config.Settings { return app.settings }

// Schema returns the loaded schema.
func (app *Application) Schema() *model.Schema { return app.schema }

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.logger }

// Run loads the document, replays the log and writes the result to out.
func (app *Application) Run(ctx context.Context, out io.Writer) error {
	doc, err := app.loadDoc()
	if err != nil {
		return err
	}
	var entries []Entry
	if app.opts.StepsPath != "" {
		data, err := os.ReadFile(app.opts.StepsPath)
		if err != nil {
			return err
		}
		if entries, err = ParseLog(app.schema, data, app.settings.Collab.ClientID); err != nil {
			return err
		}
	}

	r := NewReplay(doc, app.replayOptions()...)
	res, err := r.Run(ctx, entries)
	if err != nil {
		return err
	}
	if err := app.write(out, res); err != nil {
		return err
	}
	if !res.Converged() {
		return ErrDiverged
	}
	return nil
}

// Watch runs once, then again whenever one of the input files changes,
// until ctx is done. Failed runs are logged and do not stop watching.
func (app *Application) Watch(ctx context.Context, out io.Writer) error {
	w, err := watcher.New(watcher.WithLogger(app.logger))
	if err != nil {
		return err
	}
	defer w.Close()

	for _, p := range app.inputs() {
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}

	app.runLogged(ctx, out)
	err = w.Run(ctx, func(ev watcher.Event) {
		app.logger.WithField("path", ev.Path).Info("input changed (%s)", ev.Op)
		if ev.Path == absPath(app.opts.ConfigPath) || ev.Path == absPath(app.opts.SchemaPath) {
			if err := app.bootstrap(); err != nil {
				app.logger.Error("reload: %v", err)
				return
			}
		}
		app.runLogged(ctx, out)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (app *Application) runLogged(ctx context.Context, out io.Writer) {
	if err := app.Run(ctx, out); err != nil {
		app.logger.Error("replay: %v", err)
	}
}

func (app *Application) inputs() []string {
	var paths []string
	for _, p := range []string{app.opts.ConfigPath, app.opts.SchemaPath, app.opts.DocPath, app.opts.StepsPath} {
		if p != "" {
			paths = append(paths, absPath(p))
		}
	}
	return paths
}

func (app *Application) replayOptions() []ReplayOption {
	return []ReplayOption{
		WithEngineOptions(engine.WithHistory(app.settings.HistoryConfig()), engine.WithLogger(app.logger)),
		WithReplayLogger(app.logger),
	}
}

// loadDoc reads the starting document. A state object's "doc" is used when
// present.
func (app *Application) loadDoc() (*model.Node, error) {
	if app.opts.DocPath == "" {
		top := app.schema.TopNodeType()
		doc := top.CreateAndFill(nil, nil, nil)
		if doc == nil {
			return nil, fmt.Errorf("%w: schema has no default %s", model.ErrInvalidContent, top.Name)
		}
		return doc, nil
	}
	data, err := os.ReadFile(app.opts.DocPath)
	if err != nil {
		return nil, err
	}
	if inner := gjson.GetBytes(data, "doc"); inner.IsObject() {
		data = []byte(inner.Raw)
	}
	doc, err := model.NodeFromJSON(app.schema, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", app.opts.DocPath, err)
	}
	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", app.opts.DocPath, err)
	}
	return doc, nil
}

func (app *Application) write(out io.Writer, res *Result) error {
	if app.opts.Format == FormatJSON {
		data, err := res.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}
	return res.WriteText(out)
}
