package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/assets"
	"github.com/minehubyt/Anand-Pandey/internal/classify"
	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/docstore"
	"github.com/minehubyt/Anand-Pandey/internal/llm"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/pending"
	"github.com/minehubyt/Anand-Pandey/internal/search"
)

// backends owns every connection opened for one command and closes them
// in reverse order.
type backends struct {
	log     *zap.Logger
	closers []func()
}

func (b *backends) onClose(fn func()) {
	b.closers = append(b.closers, fn)
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// openStore connects the configured document store.
func (b *backends) openStore(ctx context.Context, c config.StoreConfig) (docstore.Store, error) {
	var store docstore.Store
	switch c.Backend {
	case "firestore":
		fs, err := docstore.NewFirestore(ctx, c.ProjectID, b.log)
		if err != nil {
			return nil, err
		}
		store = fs
	case "postgres":
		pg, err := docstore.ConnectPostgres(ctx, c.DatabaseURL, b.log)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		store = pg
	default:
		store = docstore.NewMemory()
	}
	b.log.Info("document store ready", zap.String("backend", c.Backend))
	b.onClose(func() { _ = store.Close() })
	return store, nil
}

func (b *backends) newContent(store docstore.Store) *content.Service {
	return content.NewService(store, content.WithLogger(b.log))
}

// openContent wraps the store and applies the seed bundle. Records that
// already exist are left alone, so this is safe on every start.
func (b *backends) openContent(ctx context.Context, c config.StoreConfig) (*content.Service, error) {
	store, err := b.openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	svc := b.newContent(store)
	if _, err := svc.SeedFromFile(ctx, c.SeedFile); err != nil {
		return nil, err
	}
	return svc, nil
}

// openAssets returns the uploader and, for the in-process store, the
// blobs the server must serve itself.
func (b *backends) openAssets(ctx context.Context, c config.AssetsConfig) (*assets.Uploader, *assets.Memory, error) {
	switch c.Backend {
	case "gcs":
		gcs, err := assets.NewGCS(ctx, c.Bucket, c.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		b.onClose(func() { _ = gcs.Close() })
		return assets.NewUploader(gcs, assets.WithLogger(b.log)), nil, nil
	case "s3":
		s3, err := assets.NewS3(ctx, assets.S3Config{
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Bucket:    c.Bucket,
			UseSSL:    c.S3UseSSL,
			BaseURL:   c.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return assets.NewUploader(s3, assets.WithLogger(b.log)), nil, nil
	default:
		mem := assets.NewMemory()
		return assets.NewUploader(mem, assets.WithLogger(b.log)), mem, nil
	}
}

// openSearch returns the search facade, backed by Meilisearch when a URL
// is configured.
func (b *backends) openSearch(c config.SearchConfig) *search.Service {
	if c.MeiliURL == "" {
		return search.NewService(nil, b.log)
	}
	m := search.NewMeili(c.MeiliURL, c.MeiliAPIKey, b.log)
	b.onClose(m.Close)
	return search.NewService(m, b.log)
}

// openPending keeps pending actions in Redis when configured.
func (b *backends) openPending(c config.RedisConfig) (pending.Store, error) {
	if c.URL == "" {
		mem := pending.NewMemory(c.PendingTTL)
		b.onClose(func() { _ = mem.Close() })
		return mem, nil
	}
	rs, err := pending.NewRedisStore(c.URL, c.PendingTTL)
	if err != nil {
		return nil, err
	}
	b.onClose(func() { _ = rs.Close() })
	return rs, nil
}

// openMessaging builds the notifier for the configured delivery mode.
func (b *backends) openMessaging(c config.MessagingConfig, adminEmail string, provider messaging.Provider) (*messaging.Notifier, error) {
	mode, err := messaging.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	opts := []messaging.ClientOption{messaging.WithLogger(b.log)}
	switch mode {
	case messaging.ModeRelay:
		opts = append(opts, messaging.WithRelayURL(c.RelayURL))
	case messaging.ModeDirect:
		if provider == nil {
			return nil, fmt.Errorf("messaging.mode direct needs %s credentials", c.Provider)
		}
		opts = append(opts, messaging.WithProvider(provider))
	case messaging.ModeLocal:
		if c.LocalDelay > 0 {
			opts = append(opts, messaging.WithLocalDelay(c.LocalDelay))
		}
	}
	client, err := messaging.NewClient(mode, opts...)
	if err != nil {
		return nil, err
	}
	b.log.Info("messaging ready", zap.String("mode", string(mode)))

	nopts := []messaging.NotifierOption{
		messaging.WithAdminEmail(adminEmail),
		messaging.WithNotifierLogger(b.log),
	}
	if c.PortalURL != "" {
		nopts = append(nopts, messaging.WithPortalURL(c.PortalURL))
	}
	return messaging.NewNotifier(client, nopts...), nil
}

// openClassifier connects the inference provider. A disabled provider
// yields a classifier whose Enabled reports false.
func (b *backends) openClassifier(ctx context.Context, c config.InferenceConfig, areas func() []content.PracticeArea) (*classify.Classifier, error) {
	opts := []classify.Option{classify.WithLogger(b.log), classify.WithPracticeAreas(areas)}
	if !c.Enabled() {
		b.log.Info("classification disabled")
		return classify.New(nil, opts...), nil
	}

	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		return nil, err
	}
	lc := llm.DefaultConfig()
	lc.Provider = provider
	lc.ProjectID = c.ProjectID
	if c.Location != "" {
		lc.Location = c.Location
	}
	if c.LiteModel != "" {
		lc = lc.WithModel(llm.TierLite, c.LiteModel)
	}
	if c.StandardModel != "" {
		lc = lc.WithModel(llm.TierStandard, c.StandardModel)
	}

	client, err := llm.NewClient(ctx, lc, c.APIKey)
	if err != nil {
		return nil, err
	}
	b.onClose(func() { _ = client.Close() })
	b.log.Info("classification enabled", zap.String("provider", c.Provider))
	return classify.New(client, opts...), nil
}
