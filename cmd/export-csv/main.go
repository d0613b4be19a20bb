package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
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
		out   = flag.String("out", "data/profiles.csv", "output CSV path for strain profiles")
		limit = flag.Int("limit", 0, "max profiles to export (0 = all)")
	)
	flag.Parse()

	cfg := utils.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	n, err := exportProfiles(ctx, profiles.NewRepo(db, nil, log), *out, *limit)
	if err != nil {
		log.Fatal("export profiles failed", "error", err)
	}

	log.Info("✅ exported profiles", "count", n, "out", *out)
}

func exportProfiles(ctx context.Context, repo *profiles.Repo, outPath string, limit int) (int, error) {
	list, err := repo.List(ctx, limit)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := datasets.WriteCSV(f, list); err != nil {
		return 0, err
	}
	return len(list), nil
}
