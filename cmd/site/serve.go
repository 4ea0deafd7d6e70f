package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/logging"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/server"
	"github.com/minehubyt/Anand-Pandey/internal/server/ratelimit"
)

var (
	servePort          int
	serveSecureCookies bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the site server",
	Long:  `Start the HTTP server for the public site, the /api/send relay, the client dashboard and the admin portal.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: server.port)")
	serveCmd.Flags().BoolVar(&serveSecureCookies, "secure-cookies", false, "Mark session cookies Secure (enable behind HTTPS)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireJWT(); err != nil {
		return err
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := &backends{log: logger}
	defer b.Close()

	deps, err := buildDeps(ctx, b, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:            port,
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       ratelimit.SiteConfig(cfg.Server.RateLimit),
		FailOpen:        cfg.Messaging.FailOpen,
		SecureCookies:   serveSecureCookies,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if configPath != "" {
		go watchConfig(ctx, srv)
	}
	return srv.Start(ctx)
}

// buildDeps opens every backend the server routes to.
func buildDeps(ctx context.Context, b *backends, c *config.Config) (server.Deps, error) {
	svc, err := b.openContent(ctx, c.Store)
	if err != nil {
		return server.Deps{}, err
	}
	if _, err := svc.SeedHero(ctx); err != nil {
		return server.Deps{}, err
	}

	store, err := b.openPending(c.Redis)
	if err != nil {
		return server.Deps{}, err
	}

	provider := messaging.ProviderFromConfig(c.Messaging)
	notifier, err := b.openMessaging(c.Messaging, c.AdminEmail, provider)
	if err != nil {
		return server.Deps{}, err
	}

	classifier, err := b.openClassifier(ctx, c.Inference, svc.PracticeAreas)
	if err != nil {
		return server.Deps{}, err
	}

	uploader, files, err := b.openAssets(ctx, c.Assets)
	if err != nil {
		return server.Deps{}, err
	}

	idx := b.openSearch(c.Search)
	if _, err := idx.Reindex(ctx, svc); err != nil {
		b.log.Warn("initial search index failed", zap.Error(err))
	}
	b.onClose(idx.Watch(ctx, svc))

	var google identity.GoogleVerifier
	if c.Google.ClientID != "" {
		google = &identity.IDTokenVerifier{Audience: c.Google.ClientID}
	}
	jwtCfg, pwCfg := c.JWT, c.Password

	return server.Deps{
		Content:    svc,
		Auth:       identity.NewAuthenticator(svc, &pwCfg, google, c.AdminEmail, b.log),
		Tokens:     identity.NewTokenService(&jwtCfg),
		Pending:    store,
		Notifier:   notifier,
		Provider:   provider,
		Classifier: classifier,
		Uploader:   uploader,
		AssetFiles: files,
		Search:     idx,
		Logger:     b.log,
	}, nil
}

// watchConfig applies edits to the live switches until ctx ends.
func watchConfig(ctx context.Context, srv *server.Server) {
	err := config.Watch(ctx, configPath, func(sw config.Switches) {
		srv.SetFailOpen(sw.FailOpen)
		if err := logging.SetLevel(level, sw.LogLevel); err != nil {
			logger.Warn("ignoring log level", zap.Error(err))
		}
		logger.Info("config reloaded", zap.Bool("fail_open", sw.FailOpen), zap.String("log_level", sw.LogLevel))
	}, func(err error) {
		logger.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		logger.Warn("config watch stopped", zap.Error(err))
	}
}
