package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"jardin/internal/archive"
	"jardin/internal/auth"
	"jardin/internal/catalog"
	"jardin/internal/classifier"
	"jardin/internal/config"
	"jardin/internal/connectivity"
	"jardin/internal/progress"
	"jardin/internal/queue"
	"jardin/internal/service"
	"jardin/internal/store"
)

// app holds the components built from the loaded configuration.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      store.Store
	queue      *queue.Queue
	classifier *classifier.Client
	catalog    catalog.Source
	watcher    *catalog.FileSource
	monitor    *connectivity.Monitor
	svc        *service.Service
	agent      *service.Agent
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	st, err := store.NewByEngine(cfg.Store.Engine, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init store failed: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: st}

	a.classifier, err = classifier.NewClient(classifier.Config{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
		Timeout: cfg.ClassifierTimeout(),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if err := a.initCatalog(); err != nil {
		a.close()
		return nil, err
	}

	archiver, err := archive.New(cfg.Archive)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Archive.Enabled() {
		logger.Info("photo archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	a.queue = queue.New(st, cfg.Queue.Slot)
	a.monitor = connectivity.NewMonitor(cfg.Connectivity.StartOnline, logger.Named("connectivity"))
	a.svc = service.New(service.Deps{
		Progress:   progress.NewAdapter(st, logger.Named("progress")),
		Queue:      a.queue,
		Classifier: a.classifier,
		Catalog:    a.catalog,
		Archiver:   archiver,
		Notifier:   service.NewLogNotifier(logger.Named("milestones")),
		Logger:     logger.Named("service"),
	})
	a.agent = service.NewAgent(a.svc, a.monitor, logger.Named("agent"))

	logger.Info("jardin initialized",
		zap.String("store", cfg.Store.Engine),
		zap.String("data", cfg.Store.Path),
		zap.String("classifier", cfg.Classifier.BaseURL),
	)
	return a, nil
}

func (a *app) initCatalog() error {
	switch {
	case strings.TrimSpace(a.cfg.Catalog.File) != "":
		a.watcher = catalog.NewFileSource(a.cfg.Catalog.File, a.cfg.Catalog.PhotoBaseURL, a.logger.Named("catalog"))
		if err := a.watcher.Reload(); err != nil {
			return err
		}
		a.catalog = a.watcher
	case strings.TrimSpace(a.cfg.Catalog.URL) != "":
		a.catalog = catalog.NewHTTPSource(a.cfg.Catalog.URL, a.cfg.Catalog.PhotoBaseURL, a.cfg.CatalogTimeout())
	default:
		src, err := catalog.Default(a.cfg.Catalog.PhotoBaseURL)
		if err != nil {
			return err
		}
		a.catalog = src
	}
	return nil
}

// openSession restores the given user without reconciling.
func (a *app) openSession(ctx context.Context, userID string, email string) service.Session {
	return a.svc.Open(ctx, auth.User{ID: strings.TrimSpace(userID), Email: strings.TrimSpace(email)})
}

func (a *app) close() {
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
}

func defaultDataFile(engine string) string {
	return store.DefaultPath(engine)
}
