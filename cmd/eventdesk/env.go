package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/eventdesk/internal/config"
	"github.com/alfredjeanlab/eventdesk/internal/notify"
	"github.com/alfredjeanlab/eventdesk/internal/repo"
	"github.com/alfredjeanlab/eventdesk/internal/store"
)

// cliEnv is what the event commands run against: the configured backend
// wrapped in a repository, publishing to NATS when configured.
type cliEnv struct {
	cfg       *config.Config
	store     store.Store
	publisher notify.Publisher
	repo      *repo.Repository
	logger    *slog.Logger
}

func openEnv(stderr io.Writer) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cliLogger(stderr)

	s, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	var publisher notify.Publisher = &notify.NoopPublisher{}
	if cfg.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		publisher = pub
	}

	return &cliEnv{
		cfg:       cfg,
		store:     s,
		publisher: publisher,
		repo:      repo.New(s, publisher, repo.Options{Logger: logger}),
		logger:    logger,
	}, nil
}

// Close flushes pending notifications and releases the backend.
func (e *cliEnv) Close() {
	if p, ok := e.publisher.(*notify.NATSPublisher); ok {
		if err := p.Flush(); err != nil {
			e.logger.Warn("flush notifications", "err", err)
		}
	}
	if err := e.publisher.Close(); err != nil {
		e.logger.Warn("close publisher", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close backend", "err", err)
	}
}
