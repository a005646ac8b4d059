package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/metasearch-overlay/internal/config"
	"github.com/DeafMist/metasearch-overlay/internal/links"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")
	t.Setenv("WORKER_STRIP_TRACKERS", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "results", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "results_raw", cfg.KafkaTopic)
	require.Equal(t, "results-worker", cfg.KafkaConsumer)
	require.True(t, cfg.StripTrackers)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")
	t.Setenv("WORKER_STRIP_TRACKERS", "false")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
	require.False(t, cfg.StripTrackers)
}

func TestLoadWorkerRejectsBadBatch(t *testing.T) {
	t.Setenv("WORKER_BATCH_SIZE", "0")
	_, err := config.LoadWorker()
	require.Error(t, err)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")
	t.Setenv("RESULTS_ON_NEW_TAB", "true")
	t.Setenv("FAVICON_RESOLVER", "DuckDuckGo")
	t.Setenv("URL_FORMATTING", "host")
	t.Setenv("CACHE_URL", "https://cache.example/")
	t.Setenv("PROXIFY_RESULTS", "1")
	t.Setenv("RESULT_PROXY_METHOD", "post")
	t.Setenv("RESULT_PROXY_URL", "/p")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
	require.True(t, cfg.ResultsOnNewTab)
	require.Equal(t, "duckduckgo", cfg.FaviconResolver)
	require.Equal(t, urlfmt.ModeHost, cfg.URLFormatting)
	require.Equal(t, "https://cache.example/", cfg.CacheURL)
	require.True(t, cfg.Proxy.Enabled)
	require.Equal(t, "POST", cfg.Proxy.Method)
	require.Equal(t, "/p", cfg.Proxy.URL)
}

func TestLoadAPIValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "page above max", env: map[string]string{"API_PAGE_SIZE": "50", "API_MAX_PAGE_SIZE": "10"}},
		{name: "unknown favicon resolver", env: map[string]string{"FAVICON_RESOLVER": "bing"}},
		{name: "bad proxy method", env: map[string]string{"RESULT_PROXY_METHOD": "PUT"}},
		{name: "proxy without url", env: map[string]string{"PROXIFY_RESULTS": "true", "RESULT_PROXY_URL": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}
}

func TestLoadAPIProxyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://proxy.example/fetch
method: post
key: s3cret
parameters:
  zeta: "go?%s"
  alpha: fixed
  mid: "%s"
`), 0o600))

	t.Setenv("PROXIFY_RESULTS", "true")
	t.Setenv("RESULT_PROXY_URL", "")
	t.Setenv("RESULT_PROXY_CONFIG", path)

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, "https://proxy.example/fetch", cfg.Proxy.URL)
	require.Equal(t, "POST", cfg.Proxy.Method)
	require.Equal(t, "s3cret", cfg.Proxy.Key)
	require.Equal(t, []links.Param{
		{Name: "zeta", Template: "go?%s"},
		{Name: "alpha", Template: "fixed"},
		{Name: "mid", Template: "%s"},
	}, cfg.Proxy.Params)
}

func TestLoadAPIProxyFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "parameters not mapping", body: "parameters: [a, b]\n"},
		{name: "nested value", body: "parameters:\n  a:\n    b: c\n"},
		{name: "duplicate key", body: "parameters:\n  a: x\n  a: y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "proxy.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			t.Setenv("RESULT_PROXY_CONFIG", path)
			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("RESULT_PROXY_CONFIG", filepath.Join(t.TempDir(), "nope.yml"))
		_, err := config.LoadAPI()
		require.Error(t, err)
	})
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}
