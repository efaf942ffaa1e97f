package queue

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const (
	DefaultMaxWorkers      = 5
	DefaultShutdownTimeout = 30 * time.Second
)

type ServerConfig struct {
	Pool            *pgxpool.Pool
	MaxWorkers      int
	ShutdownTimeout time.Duration
	Workers         *river.Workers
}

type Server struct {
	client          *river.Client[pgx.Tx]
	shutdownTimeout time.Duration
}

func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	client, err := river.NewClient(riverpgxv5.New(cfg.Pool), &river.Config{
		Queues:  buildQueueConfig(cfg),
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		client:          client,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

func buildQueueConfig(cfg ServerConfig) map[string]river.QueueConfig {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: maxWorkers},
	}
}

func (s *Server) Start(ctx context.Context) error {
	return s.client.Start(ctx)
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.client.Stop(ctx)
}

func (s *Server) Client() *river.Client[pgx.Tx] {
	return s.client
}
