// Package app wires the server components together and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"baatcheet/pkg/auth"
	"baatcheet/pkg/chat"
	"baatcheet/pkg/config"
	"baatcheet/pkg/logger"
	"baatcheet/pkg/presence"
	"baatcheet/pkg/store"
	"baatcheet/pkg/telemetry"
	"baatcheet/pkg/validation"
	"baatcheet/pkg/ws"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st       *store.Store
	registry *presence.Registry
	hub      *ws.Hub
	tracker  *presence.Tracker
	resolver *chat.Resolver
	pipeline *chat.Pipeline
	receipts *chat.Receipts
	verifier *auth.Verifier
	gateway  *ws.Gateway

	srv *http.Server
}

// New initializes resources that do not require a running context: the
// store, runtime keys, validation rules and the live-channel plumbing. It
// does not start the HTTP server; call Run to start it and block until
// shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys; auth reads them back through the config getters
	runtimeCfg := &config.RuntimeConfig{
		BackendKeys: map[string]struct{}{},
		SigningKeys: append([]string(nil), eff.Config.Security.SigningKeys...),
	}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	initValidation(eff)

	// traces and crash dumps share the state dir next to the database
	telemetry.SetOutputDir(filepath.Join(eff.DBPath, "state", "logs"))

	st, err := store.Open(eff.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, st: st}
	a.wireChat()
	return a, nil
}

// wireChat assembles the presence and delivery components around the open
// store.
func (a *App) wireChat() {
	cc := a.eff.Config.Chat
	a.registry = presence.NewRegistry()
	a.hub = ws.NewHub(a.registry)
	a.tracker = presence.NewTracker(a.registry, a.st, a.hub, cc.Roster())
	a.resolver = chat.NewResolver(a.st)
	a.pipeline = chat.NewPipeline(a.resolver, a.st, a.st, a.st, a.hub)
	a.receipts = chat.NewReceipts(a.st, a.hub)
	a.verifier = auth.NewVerifier(config.GetSigningKeys())
	a.gateway = ws.New(a.hub, a.tracker, a.pipeline, a.receipts, a.verifier, a.st,
		cc.FrameLimit(), a.eff.Config.Security.CORS.AllowedOrigins)
}

// Run starts the HTTP server and blocks until ctx is canceled or a fatal
// server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown closes live connections first so clients observe the disconnect,
// then the HTTP listener, then the store.
func (a *App) shutdown() {
	logger.Info("shutdown_started")
	if a.gateway != nil {
		a.gateway.Shutdown()
	}
	if a.registry != nil {
		a.registry.Drain()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if a.st != nil {
		if err := a.st.Close(); err != nil {
			logger.Error("store_close_failed", "error", err)
		}
	}
	logger.Info("shutdown_complete")
}

// initValidation builds message bounds from config and sets them globally.
func initValidation(eff config.EffectiveConfigResult) {
	cc := eff.Config.Chat
	validation.SetRules(validation.Rules{
		MaxTextLen:       cc.MaxTextLen,
		MaxAttachments:   cc.MaxAttachments,
		MaxVoiceDuration: cc.MaxVoiceSeconds,
	})
}
