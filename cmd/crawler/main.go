package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/predictionlabs/prediction-oracle/pkg/app"
	appcrawler "github.com/predictionlabs/prediction-oracle/pkg/app/crawler"
	"github.com/predictionlabs/prediction-oracle/pkg/config"
)

var (
	configPath   = flag.String("config", "config.yaml", "Path to configuration file")
	targetEvents = flag.Int("target", 0, "Override the number of events to crawl")
	concurrency  = flag.Int("concurrency", 0, "Override the number of concurrent page fetches")
	analyze      = flag.Bool("analyze", false, "Run AI analysis on crawled events")
	reanalyzeTop = flag.Int("reanalyze", 0, "Re-analyze the top N stored cards by volume instead of crawling")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = appcrawler.NewJob(cfg, appcrawler.Options{
		TargetEvents: *targetEvents,
		Concurrency:  *concurrency,
		Analyze:      *analyze,
		ReanalyzeTop: *reanalyzeTop,
	})
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Crawler failed: %v\n", err)
		os.Exit(1)
	}
}
