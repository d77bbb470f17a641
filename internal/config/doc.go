// Package config loads the settings of a Prosecore process.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← PROSECORE_*
//	├─────────────────────────────┤
//	│  2. TOML File               │  ← WithFile(path), may @include others
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// # Sections
//
//	[history]
//	depth = 100            # events kept per branch
//	newGroupDelay = "500ms" # pause that starts a new undo event
//	preserveItems = false  # required when collaborating
//
//	[collab]
//	clientID = ""          # a fresh UUID when empty
//	version = 0
//
//	[logging]
//	level = "info"
//	format = "console"     # or "json"
//
//	[schema]
//	path = ""              # YAML schema; the basic schema when empty
//
// # Usage
//
//	cfg := config.New(config.WithFile("prosecore.toml"))
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//	settings, err := cfg.Settings()
//
// Environment variables map to paths by section and camel-cased setting:
// PROSECORE_HISTORY_NEW_GROUP_DELAY sets history.newGroupDelay. A few
// short names exist as well; see loader.EnvLoader.
package config
