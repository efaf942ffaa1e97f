// Package queue wraps River on pgx for job inserts and worker serving.
package queue

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/threatcanvas/integrations/internal/adapter/queue/bulkscan"
	"github.com/threatcanvas/integrations/internal/domain/scan"
)

var _ scan.TaskQueue = (*Client)(nil)

// Client is insert-only (no worker).
type Client struct {
	client *river.Client[pgx.Tx]
}

func NewClient(ctx context.Context, pool *pgxpool.Pool) (*Client, error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
	}, nil
}

func (c *Client) Close() error {
	// river.Client doesn't need explicit close for insert-only mode
	return nil
}

// EnqueueBulkScan inserts one bulk scan job. Dedup against in-flight
// duplicates comes from the args' InsertOpts unique settings.
func (c *Client) EnqueueBulkScan(ctx context.Context, urls []string, concurrency int) error {
	_, err := c.client.Insert(ctx, bulkscan.Args{
		URLs:        urls,
		Concurrency: concurrency,
	}, nil)
	return err
}
