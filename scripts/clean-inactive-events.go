//go:build ignore

// clean-inactive-events.go - Sync stored card statuses with live Gamma state
//
// This script looks up every stored event card on the Gamma API, fixes rows
// whose active flag drifted, and deletes cards that are no longer active (or
// are closed/archived upstream) together with their predictions and tag
// links. Cards Gamma no longer returns are reported but left untouched.
//
// Usage:
//   go run scripts/clean-inactive-events.go -config config.yaml
//
// Options:
//   -yes    Skip the confirmation prompt

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/crawler"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
	"github.com/predictionlabs/prediction-oracle/pkg/pgutil"
)

// Paces Gamma lookups to stay under rate limits.
const statusLookupDelay = 100 * time.Millisecond

var (
	cieConfigPath = flag.String("config", "config.yaml", "Path to config file")
	cieYes        = flag.Bool("yes", false, "Skip the confirmation prompt")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*cieConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store := marketstore.NewStore(db)
	client := crawler.NewClient(cfg.Crawler, logger)
	ctx := context.Background()

	cards, err := store.ListCards(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list cards: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d stored cards\n", len(cards))
	fmt.Println("Checking live status on Gamma...")

	statuses, err := client.FetchStatuses(ctx, cards, statusLookupDelay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status scan failed: %v\n", err)
		os.Exit(1)
	}

	plan := crawler.BuildSyncPlan(cards, statuses)

	fmt.Println("\nSync plan:")
	fmt.Printf("  status updates: %d\n", len(plan.Updates))
	fmt.Printf("  deletions:      %d\n", len(plan.Deletions))
	fmt.Printf("  not found:      %d\n", len(plan.NotFound))

	if len(plan.Deletions) > 0 {
		fmt.Println("\nCards to delete:")
		for i, d := range plan.Deletions {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(plan.Deletions)-10)
				break
			}
			fmt.Printf("  - %s: %.40s (%s)\n", d.Card.PolymarketID, d.Card.Title, d.Reason)
		}
	}

	if plan.Empty() {
		fmt.Println("\nDatabase already matches upstream, nothing to do")
		return
	}

	if !*cieYes && !confirm("\nApply updates and deletions? (y/N): ") {
		fmt.Println("Aborted")
		return
	}

	if err := crawler.ApplySyncPlan(ctx, store, plan); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to apply sync plan: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDone: %d updated, %d deleted\n", len(plan.Updates), len(plan.Deletions))
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
