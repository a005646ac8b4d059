package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/metasearch-overlay/internal/favicon"
	"github.com/DeafMist/metasearch-overlay/internal/links"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
	StripTrackers  bool
}

// ResultProxy configures proxied visits of result links.
type ResultProxy struct {
	Enabled bool
	Method  string
	URL     string
	Key     string
	Params  []links.Param
}

// Rendering holds the defaults of the per-request rendering context.
type Rendering struct {
	ResultsOnNewTab bool
	FaviconResolver string
	URLFormatting   urlfmt.Mode
	CacheURL        string
	ImageProxyURL   string
	ImageProxyKey   string
	Proxy           ResultProxy
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Rendering
	BindAddr          string
	DefaultPage       int
	MaxPage           int
	FaviconTimeout    time.Duration
	FaviconFailureTTL time.Duration
	RatePerMinute     int
	RateBurst         int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "results"),
	}
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "results_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "results-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
		StripTrackers:  getBool("WORKER_STRIP_TRACKERS", true),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common: loadCommon(),
		Rendering: Rendering{
			ResultsOnNewTab: getBool("RESULTS_ON_NEW_TAB", false),
			FaviconResolver: strings.ToLower(getEnv("FAVICON_RESOLVER", "")),
			URLFormatting:   urlfmt.ParseMode(getEnv("URL_FORMATTING", "full")),
			CacheURL:        getEnv("CACHE_URL", "https://web.archive.org/web/"),
			ImageProxyURL:   getEnv("IMAGE_PROXY_URL", ""),
			ImageProxyKey:   getEnv("IMAGE_PROXY_KEY", ""),
			Proxy: ResultProxy{
				Enabled: getBool("PROXIFY_RESULTS", false),
				Method:  strings.ToUpper(getEnv("RESULT_PROXY_METHOD", http.MethodGet)),
				URL:     getEnv("RESULT_PROXY_URL", ""),
				Key:     getEnv("RESULT_PROXY_KEY", ""),
			},
		},
		BindAddr:          getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:       getInt("API_PAGE_SIZE", 20),
		MaxPage:           getInt("API_MAX_PAGE_SIZE", 100),
		FaviconTimeout:    getDuration("FAVICON_TIMEOUT", "3s"),
		FaviconFailureTTL: getDuration("FAVICON_FAILURE_TTL", "1h"),
		RatePerMinute:     getInt("API_RATE_PER_MIN", 120),
		RateBurst:         getInt("API_RATE_BURST", 20),
	}

	if path := getEnv("RESULT_PROXY_CONFIG", ""); path != "" {
		file, err := loadProxyFile(path)
		if err != nil {
			return nil, err
		}
		file.applyTo(&c.Proxy)
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.FaviconResolver != "" && !favicon.Valid(c.FaviconResolver) {
		return nil, fmt.Errorf("FAVICON_RESOLVER %q is not supported", c.FaviconResolver)
	}
	if c.Proxy.Method != http.MethodGet && c.Proxy.Method != http.MethodPost {
		return nil, fmt.Errorf("RESULT_PROXY_METHOD must be GET or POST")
	}
	if c.Proxy.Enabled && c.Proxy.URL == "" {
		return nil, fmt.Errorf("RESULT_PROXY_URL is required when PROXIFY_RESULTS is set")
	}
	if c.RatePerMinute <= 0 || c.RateBurst <= 0 {
		return nil, fmt.Errorf("API_RATE_PER_MIN and API_RATE_BURST must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
