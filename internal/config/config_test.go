package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mstrand/serp-audit/internal/config"
)

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "serp_records", cfg.ElasticsearchIndex)
	require.Len(t, cfg.KafkaBrokers, 1)
	require.Equal(t, "kafka:9092", cfg.KafkaBrokers[0])
	require.Equal(t, "serp_raw", cfg.KafkaTopic)
	require.Equal(t, "serp-worker", cfg.KafkaConsumer)
	require.Equal(t, 10000, cfg.CacheCapacity)
	require.Equal(t, 24*time.Hour, cfg.CacheTTL)
	require.Equal(t, 5, cfg.MaxFeatureItems)
	require.False(t, cfg.ForceLocalIntent)
	require.Empty(t, cfg.DomainOverrides)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_CACHE_CAPACITY", "5")
	t.Setenv("WORKER_CACHE_TTL", "48h")
	t.Setenv("WORKER_MAX_FEATURE_ITEMS", "8")
	t.Setenv("WORKER_FORCE_LOCAL_INTENT", "true")
	t.Setenv("WORKER_BATCH_SIZE", "3")
	t.Setenv("WORKER_COMMIT_INTERVAL", "5s")
	t.Setenv("WORKER_DOMAIN_OVERRIDES", "/etc/serp/domains.yaml")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "broker-a:29092", cfg.KafkaBrokers[0])
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.CacheCapacity)
	require.Equal(t, 48*time.Hour, cfg.CacheTTL)
	require.Equal(t, 8, cfg.MaxFeatureItems)
	require.True(t, cfg.ForceLocalIntent)
	require.Equal(t, 3, cfg.BatchSize)
	require.Equal(t, 5*time.Second, cfg.CommitInterval)
	require.Equal(t, "/etc/serp/domains.yaml", cfg.DomainOverrides)
}

func TestLoadWorkerRejectsInvalid(t *testing.T) {
	t.Setenv("WORKER_CACHE_CAPACITY", "-1")

	_, err := config.LoadWorker()
	require.Error(t, err)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("API_REPORT_SIZE", "50")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, 50, cfg.ReportSize)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
}

func TestLoadAPIPageBounds(t *testing.T) {
	t.Setenv("API_PAGE_SIZE", "500")
	t.Setenv("API_MAX_PAGE_SIZE", "100")

	_, err := config.LoadAPI()
	require.Error(t, err)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_INTERVAL", "12h")
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
