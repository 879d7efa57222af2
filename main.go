// geniotext - a terminal front end for the GenioText conversation service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/JoaoDevFullStack/genio-text/internal/cli"
	"github.com/JoaoDevFullStack/genio-text/internal/config"
	"github.com/JoaoDevFullStack/genio-text/internal/generate"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
	"github.com/JoaoDevFullStack/genio-text/internal/session"
	"github.com/JoaoDevFullStack/genio-text/internal/storage"
	"github.com/JoaoDevFullStack/genio-text/internal/ui/chat"
	"github.com/JoaoDevFullStack/genio-text/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		flagPrompt   = flag.String("prompt", "", "start a new conversation from this prompt")
		flagResume   = flag.String("resume", "", "resume the conversation with this id")
		flagREPL     = flag.Bool("repl", false, "use the line-oriented REPL instead of the TUI")
		flagConfig   = flag.String("config", "", "path to a config file (default ~/.geniotext/config.toml)")
		flagIdentity = flag.String("identity", "", "identity to run as (default $GENIOTEXT_IDENTITY)")
		flagDebug    = flag.Bool("debug", false, "enable debug logging")
		flagVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("geniotext %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*flagPrompt, *flagResume, *flagREPL, *flagConfig, *flagIdentity, *flagDebug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(prompt, resume string, repl bool, configPath, identityFlag string, debug bool) error {
	log, err := newLogger(repl, debug)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// Everything below takes cfg explicitly; the global is for code
	// that has no wiring path, such as deep UI helpers.
	config.SetGlobal(cfg)

	provider := newProvider(identityFlag)
	recordSignIn(provider, log)

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	client := generate.NewClient(&generate.ClientConfig{
		BaseURL: cfg.Generate.BaseURL,
		Timeout: cfg.Generate.Timeout(),
	}, log)

	sess := session.New(session.Config{
		Provider:  provider,
		Store:     store,
		Generator: client,
		Durations: durations(cfg.Session),
		Logger:    log,
	})
	defer sess.Close()
	provider.OnChange(sess.HandleIdentityChanged)

	watcher, err := newWatcher(cfg, store, sess, log)
	if err != nil {
		log.Warn().Err(err).Msg("external change watching disabled")
	} else if watcher != nil {
		defer watcher.Close()
	}

	entry := session.EntryParams{ConversationID: resume, Prompt: prompt}

	if repl {
		return cli.NewREPL(sess, cfg.Generate.Timeout()+10*time.Second).Run(entry)
	}

	sess.Resolve(entry)
	model := chat.New(sess, cfg.UI, styles.NewTheme())
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// newLogger builds the process logger. The TUI owns the terminal, so
// its logs go to a file; the REPL logs to stderr.
func newLogger(repl, debug bool) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if repl {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger(), nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return zerolog.Nop(), err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return zerolog.Nop(), err
	}
	f, err := os.OpenFile(filepath.Join(dir, "geniotext.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger(), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// newProvider resolves the identity to run as: the -identity flag, then
// the GENIOTEXT_IDENTITY environment variable. Empty means signed out.
func newProvider(identityFlag string) *identity.StaticProvider {
	id := identityFlag
	if id == "" {
		id = os.Getenv("GENIOTEXT_IDENTITY")
	}
	return identity.NewSignedIn(id)
}

// recordSignIn best-effort records the sign-in for usage accounting.
// Failures are logged and ignored; the session does not depend on it.
func recordSignIn(provider *identity.StaticProvider, log zerolog.Logger) {
	if provider.Status() != identity.StatusSignedIn {
		return
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return
	}
	rec, err := identity.NewSQLiteRecorder(filepath.Join(dir, "geniotext.db"), log)
	if err != nil {
		log.Warn().Err(err).Msg("sign-in recording unavailable")
		return
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.RecordSignIn(ctx, identity.Account{Identity: provider.Identity()}); err != nil {
		log.Warn().Err(err).Msg("sign-in recording failed")
	}
}

// newStore builds the configured history backend.
func newStore(cfg *config.Config, log zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		path := cfg.Storage.DatabasePath
		if path == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(dir, "geniotext.db")
		}
		store, err := storage.NewSQLiteStore(path, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		var (
			store *storage.FileStore
			err   error
		)
		if cfg.Storage.Dir != "" {
			store, err = storage.NewFileStoreWithDir(cfg.Storage.Dir, log)
		} else {
			store, err = storage.NewFileStore(log)
		}
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// newWatcher wires external-change detection for the file backend, so a
// rewrite by another process shows up in the history sidebar.
func newWatcher(cfg *config.Config, store storage.Store, sess *session.Session, log zerolog.Logger) (*storage.Watcher, error) {
	if cfg.Storage.Backend == "sqlite" || !cfg.Storage.WatchExternal {
		return nil, nil
	}
	fileStore, ok := store.(*storage.FileStore)
	if !ok {
		return nil, nil
	}

	watcher, err := storage.NewWatcher(fileStore, time.Second, sess.ExternalRefresh, log)
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func durations(s config.SessionConfig) session.Durations {
	d := session.DefaultDurations()
	if s.ResumeWindowMs > 0 {
		d.ResumeWindow = time.Duration(s.ResumeWindowMs) * time.Millisecond
	}
	if s.ResumeProbeMs > 0 {
		d.ResumeProbe = time.Duration(s.ResumeProbeMs) * time.Millisecond
	}
	if s.CosmeticDelayMs >= 0 {
		d.CosmeticDelay = time.Duration(s.CosmeticDelayMs) * time.Millisecond
	}
	if s.DebounceMs > 0 {
		d.Debounce = time.Duration(s.DebounceMs) * time.Millisecond
	}
	if s.RevealIntervalMs > 0 {
		d.RevealInterval = time.Duration(s.RevealIntervalMs) * time.Millisecond
	}
	return d
}
