// Package main deploys the email relay as a Cloud Function. It serves the
// same contract as the site's /api/send route.
package main

import (
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/logging"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/server"
)

var (
	handler http.Handler
	once    sync.Once
)

func init() {
	functions.HTTP("Send", send)
}

// main is required by the Go Functions Framework.
func main() {}

func send(w http.ResponseWriter, r *http.Request) {
	once.Do(func() { handler = newHandler() })
	handler.ServeHTTP(w, r)
}

// newHandler reads SITE_* and the legacy variables. A bad configuration
// still yields a handler; it answers 500 like a missing provider.
func newHandler() http.Handler {
	log, _, err := logging.New("info", "json")
	if err != nil {
		log = zap.NewNop()
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Error("failed to load config", zap.Error(err))
		return server.NewSendHandler(nil, "*", log)
	}
	provider := messaging.ProviderFromConfig(cfg.Messaging)
	if provider == nil {
		log.Warn("no email provider configured", zap.String("provider", cfg.Messaging.Provider))
	}
	return server.NewSendHandler(provider, cfg.Server.AllowedOrigin, log)
}
