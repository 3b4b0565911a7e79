package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/config"
	"github.com/five82/foreman/internal/console"
	"github.com/five82/foreman/internal/notify"
	"github.com/five82/foreman/internal/prefs"
	"github.com/five82/foreman/internal/session"
	"github.com/five82/foreman/internal/state"
	"github.com/five82/foreman/internal/tokenstore"
	"github.com/five82/foreman/internal/ui"
)

// Options configure the foreman console.
type Options struct {
	ConfigPath string // empty uses ~/.config/foreman/config.toml
	PrefsPath  string // empty uses ~/.config/foreman/prefs.toml
	BaseURL    string // non-empty overrides config and environment
	Version    string
}

// Run boots the console until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	if err := config.LoadDotenv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = base
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("foreman starting",
		slog.String("base_url", cfg.BaseURL),
		slog.String("token_store", cfg.TokenStore),
		slog.Bool("strict_fallback", cfg.StrictFallback))

	store, err := tokenstore.New(tokenstore.Options{
		Kind:      cfg.TokenStore,
		Path:      cfg.TokenPath,
		RedisAddr: cfg.RedisAddr,
		RedisKey:  cfg.RedisKey,
	})
	if err != nil {
		return fmt.Errorf("init token store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	hub := notify.NewHub(notify.Options{TTL: cfg.ToastTTL, Grace: cfg.BusyGrace})
	defer hub.Close()

	clientOpts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithActivity(hub),
		api.WithLogger(logger),
	}
	if opts.Version != "" {
		clientOpts = append(clientOpts, api.WithUserAgent("foreman/"+opts.Version))
	}
	// The client reads the token per request; the manager owning it needs the
	// client, so the source closes over mgr.
	var mgr *session.Manager
	clientOpts = append(clientOpts, api.WithTokenSource(func() string { return mgr.Token() }))
	client, err := api.NewClient(cfg.BaseURL, clientOpts...)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	mgr = session.NewManager(client, store,
		session.WithLogger(logger),
		session.WithStrictMutations(cfg.StrictFallback))

	for _, w := range cfg.Warnings() {
		logger.Warn("config warning", slog.String("warning", w))
		hub.Info("Check configuration", w)
	}

	deps := console.Deps{
		Client:          client,
		Notify:          hub,
		Logger:          logger,
		StrictMutations: cfg.StrictFallback,
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	sessionState := &state.Store{}
	StartPoller(ctx, sessionState, mgr, 0, logger)

	err = ui.Run(ui.Options{
		Context:            ctx,
		Session:            mgr,
		Hub:                hub,
		Projects:           console.NewProjects(deps),
		Users:              console.NewUsers(deps),
		Roles:              console.NewRoles(deps),
		Store:              sessionState,
		BaseURL:            client.BaseURL(),
		LogPath:            cfg.LogFile,
		ConfirmDestructive: cfg.ConfirmDestructive,
		Prefs:              userPrefs,
		PrefsPath:          opts.PrefsPath,
	})
	logger.Info("foreman stopped", slog.Any("error", err))
	return err
}

// openLogger writes JSON records to the configured log file. The terminal
// belongs to the TUI, so nothing is logged to stderr.
func openLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return logger, func() { _ = f.Close() }, nil
}
