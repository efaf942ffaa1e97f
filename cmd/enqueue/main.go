package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/threatcanvas/integrations/internal/adapter/githubapi"
	"github.com/threatcanvas/integrations/internal/domain/scan"
	"github.com/threatcanvas/integrations/internal/infra/db"
	"github.com/threatcanvas/integrations/internal/infra/queue"
	"github.com/threatcanvas/integrations/internal/usecase/batchscan"
)

func main() {
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"), "Database URL")
	concurrency := flag.Int("concurrency", batchscan.DefaultConcurrency, "Repositories analyzed concurrently within the job")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: Database URL is required (use -database flag or set DATABASE_URL)")
		os.Exit(1)
	}

	urls := flag.Args()
	refs := make([]scan.RemoteRepositoryRef, 0, len(urls))
	for _, rawURL := range urls {
		ref, err := scan.ParseRepositoryURL(rawURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		refs = append(refs, ref)
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		if err := verifyRepositories(context.Background(), token, refs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := enqueue(*databaseURL, urls, *concurrency); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to enqueue job: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: enqueue [flags] <repo-url> [<repo-url> ...]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Arguments:")
	fmt.Fprintln(os.Stderr, "  <repo-url>  Repository URL (e.g., github.com/owner/repo)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  enqueue github.com/octocat/Hello-World")
	fmt.Fprintln(os.Stderr, "  enqueue -concurrency 5 github.com/org/one github.com/org/two")
	fmt.Fprintln(os.Stderr, "  enqueue -database postgres://localhost/mydb https://github.com/owner/repo.git")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "When GITHUB_TOKEN is set, each repository is verified against the GitHub")
	fmt.Fprintln(os.Stderr, "API before the job is inserted.")
}

// verifyRepositories rejects typos and deleted repositories before a job is
// inserted. Anonymous enqueues skip straight to the queue.
func verifyRepositories(ctx context.Context, token string, refs []scan.RemoteRepositoryRef) error {
	client, err := githubapi.New(token)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if _, err := client.GetRepository(ctx, ref.Owner, ref.Name); err != nil {
			return fmt.Errorf("repository %s: %w", ref.FullName(), err)
		}
	}
	return nil
}

func enqueue(databaseURL string, urls []string, concurrency int) error {
	ctx := context.Background()

	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	client, err := queue.NewClient(ctx, pool)
	if err != nil {
		return fmt.Errorf("create queue client: %w", err)
	}
	defer client.Close()

	if err := client.EnqueueBulkScan(ctx, urls, concurrency); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	slog.Info("bulk scan enqueued",
		"repositories", len(urls),
		"concurrency", concurrency,
	)
	return nil
}
