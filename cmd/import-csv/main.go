package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"terptracker/internal/datasets"
	"terptracker/internal/profiles"
	"terptracker/pkg/database"
	"terptracker/pkg/logger"
	"terptracker/pkg/utils"
)

func main() {
	var (
		in  = flag.String("in", "", "input CSV path in Terpene Profile Parser format")
		url = flag.String("url", datasets.TerpeneParserURL, "download the dataset from this URL when -in is empty")
	)
	flag.Parse()

	cfg := utils.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	src, err := openSource(ctx, *in, *url)
	if err != nil {
		log.Fatal("open dataset failed", "error", err)
	}
	defer src.Close()

	strains, err := datasets.ParseTerpeneParserCSV(src)
	if err != nil {
		log.Fatal("parse dataset failed", "error", err)
	}
	log.Info("parsed dataset", "strains", len(strains))

	res, err := datasets.Import(ctx, profiles.NewRepo(db, nil, log), strains, log)
	if err != nil {
		log.Fatal("import failed", "error", err)
	}

	log.Info("✅ import done", "db", cfg.DBPath, "imported", res.Imported, "skipped", res.Skipped, "failed", res.Failed)
}

func openSource(ctx context.Context, path, url string) (io.ReadCloser, error) {
	if path != "" {
		return os.Open(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := (&http.Client{Timeout: 60 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
