package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/abelbrown/popcorn/internal/config"
	"github.com/abelbrown/popcorn/internal/events"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/movie"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/store"
)

// appEnv holds what setup built for the running command.
type appEnv struct {
	fs         afero.Fs
	cfg        *config.Config
	configPath string

	store     *store.Store
	events    *events.Logger
	eventFile io.Closer
}

var rt *appEnv

// setup loads config and starts logging. Stores and clients are opened on
// demand by the commands that need them.
func setup(cmd *cobra.Command) error {
	fs := afero.NewOsFs()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(fs, path)
	if err != nil {
		return err
	}

	if keys, _ := cmd.Flags().GetString("keys"); keys != "" {
		if err := cfg.LoadKeysFromFile(fs, keys); err != nil {
			return fmt.Errorf("load keys: %w", err)
		}
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	if err := logging.Init(logging.Options{
		Dir:        cfg.Log.Dir,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}); err != nil {
		return err
	}
	if perr := cfg.ParseError(); perr != nil {
		logging.Warn("config unreadable, using defaults", "path", path, "error", perr)
		cliLogger(cmd).Warn("config unreadable, using defaults", "path", path, "error", perr)
	}
	logging.Debug("config loaded", "path", path, "command", cmd.Name())

	rt = &appEnv{fs: fs, cfg: cfg, configPath: path}
	return nil
}

// teardown flushes and closes whatever setup and the command opened.
// Safe to call more than once.
func teardown() {
	if rt == nil {
		return
	}
	if rt.events != nil {
		rt.events.Emit(events.Event{Kind: events.KindShutdown, Comp: "main"})
		rt.events.Close()
	}
	if rt.eventFile != nil {
		rt.eventFile.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	logging.Close()
	rt = nil
}

// openStore opens the database once per run.
func (r *appEnv) openStore() (*store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(r.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	r.store = st
	return st, nil
}

// watchedList returns the watched list bound to the configured key.
func (r *appEnv) watchedList() (*store.List[movie.WatchedEntry], error) {
	st, err := r.openStore()
	if err != nil {
		return nil, err
	}
	return store.NewList[movie.WatchedEntry](st, r.cfg.Store.WatchedKey), nil
}

// client builds the OMDb client, refusing to run without an API key.
func (r *appEnv) client() (*omdb.Client, error) {
	c := omdb.NewClient(strings.TrimSpace(r.cfg.OMDb.APIKey), r.cfg.OMDb.Endpoint, r.cfg.OMDb.Timeout)
	if !c.Available() {
		return nil, fmt.Errorf("OMDB_API_KEY is not set: export it or set omdb.api_key in %s", r.configPath)
	}
	return c, nil
}

// eventLogPath is the JSONL event log inside the log directory.
func (r *appEnv) eventLogPath() string {
	return filepath.Join(r.cfg.Log.Dir, "events.jsonl")
}

// eventLogger opens the rotating event log and starts the async writer.
func (r *appEnv) eventLogger() *events.Logger {
	if r.events != nil {
		return r.events
	}
	w := &lumberjack.Logger{
		Filename:   r.eventLogPath(),
		MaxSize:    r.cfg.Log.MaxSizeMB,
		MaxBackups: r.cfg.Log.MaxBackups,
	}
	r.eventFile = w
	r.events = events.NewLogger(w)
	r.events.Emit(events.Event{Kind: events.KindStartup, Comp: "main", Msg: "popcorn started"})
	return r.events
}

// cliLogger returns a stderr logger for command output that isn't data.
func cliLogger(cmd *cobra.Command) *log.Logger {
	return log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "popcorn"})
}
