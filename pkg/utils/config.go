package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBPath       string
	RedisAddr    string
	AliasMapPath string
	HTTPAddr     string
	Debug        bool
	LogMode      string

	CannlyticsBaseURL string
	CannlyticsAPIKey  string
	KushyBaseURL      string

	RateLimitPerMinute int
	CacheTTL           time.Duration
	CORSOrigins        []string
}

// LoadConfig reads TERPTRACKER_* environment variables on top of dev
// defaults.
func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix("TERPTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	v.SetDefault("db_path", filepath.Join(home, ".terptracker", "data.db"))
	v.SetDefault("redis_addr", "")
	v.SetDefault("alias_map_path", filepath.Join(home, ".terptracker", "strain_alias_map.json"))
	v.SetDefault("http_addr", ":8080")
	// dev default; set TERPTRACKER_DEBUG=false in production
	v.SetDefault("debug", true)
	v.SetDefault("log_mode", "development")
	v.SetDefault("cannlytics_base_url", "https://cannlytics.com/api")
	v.SetDefault("cannlytics_api_key", "")
	v.SetDefault("kushy_base_url", "http://api.kushy.net/api/1.1/tables/strains/rows")
	v.SetDefault("rate_limit_per_minute", 30)
	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("cors_origins", "http://localhost:3000")

	ttl := v.GetDuration("cache_ttl")
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	limit := v.GetInt("rate_limit_per_minute")
	if limit <= 0 {
		limit = 30
	}

	return Config{
		DBPath:             v.GetString("db_path"),
		RedisAddr:          strings.TrimSpace(v.GetString("redis_addr")),
		AliasMapPath:       v.GetString("alias_map_path"),
		HTTPAddr:           v.GetString("http_addr"),
		Debug:              v.GetBool("debug"),
		LogMode:            v.GetString("log_mode"),
		CannlyticsBaseURL:  strings.TrimRight(v.GetString("cannlytics_base_url"), "/"),
		CannlyticsAPIKey:   v.GetString("cannlytics_api_key"),
		KushyBaseURL:       v.GetString("kushy_base_url"),
		RateLimitPerMinute: limit,
		CacheTTL:           ttl,
		CORSOrigins:        splitList(v.GetString("cors_origins")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
