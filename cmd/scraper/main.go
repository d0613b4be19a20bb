package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"terptracker/internal/sources"
	"terptracker/pkg/logger"
	"terptracker/pkg/utils"
)

// scraper prints what the page scraper and the COA parser see for one
// product URL, without merging or touching the database.
func main() {
	var (
		pageURL = flag.String("url", "", "product page URL")
		coa     = flag.Bool("coa", false, "also parse the discovered COA links")
	)
	flag.Parse()
	if *pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: scraper -url <product page> [-coa]")
		os.Exit(2)
	}

	cfg := utils.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, err := sources.NewPageScraper(log).Scrape(ctx, *pageURL)
	if err != nil {
		log.Fatal("scrape failed", "url", *pageURL, "error", err)
	}
	printJSON(page)

	if !*coa || page == nil {
		return
	}
	client := sources.NewCannlytics(cfg.CannlyticsBaseURL, cfg.CannlyticsAPIKey, log)
	if !client.Enabled() {
		log.Warn("cannlytics api key not set, skipping COA parsing")
		return
	}
	for _, link := range page.COALinks {
		res, err := client.ParseCOA(ctx, link)
		if err != nil {
			log.Warn("coa parse failed", "url", link, "error", err)
			continue
		}
		printJSON(res)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "json: %v\n", err)
		return
	}
	fmt.Println(string(b))
}
