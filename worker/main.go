package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mstrand/serp-audit/internal/classify"
	"github.com/mstrand/serp-audit/internal/config"
	"github.com/mstrand/serp-audit/internal/elasticsearch"
	"github.com/mstrand/serp-audit/internal/engine"
	"github.com/mstrand/serp-audit/internal/logger"
	"github.com/mstrand/serp-audit/internal/models"
)

// rawBundle is one Kafka message: the query context of a run plus every raw
// call result the upstream collector fetched for it. The worker never calls
// the search API itself.
type rawBundle struct {
	Query         bundleQuery            `json:"query"`
	Calls         []models.RawCallResult `json:"calls"`
	ExhaustivePAA bool                   `json:"exhaustive_paa"`
	ForceFresh    bool                   `json:"force_fresh"`
	LocalIntent   bool                   `json:"local_intent"`
}

type bundleQuery struct {
	Query      string `json:"query"`
	Country    string `json:"country"`
	Language   string `json:"language"`
	Location   string `json:"location"`
	Device     string `json:"device"`
	RunID      string `json:"run_id"`
	CapturedAt string `json:"captured_at"`
}

type recordIndexer interface {
	IndexRecord(ctx context.Context, rec models.NormalizedRecord) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	entities, err := loadEntityClassifier(cfg.DomainOverrides)
	if err != nil {
		log.Error("load domain overrides", slog.Any("err", err))
		os.Exit(1)
	}

	cache := engine.NewRecordCache(cfg.CacheCapacity, cfg.CacheTTL)
	coordinator := engine.New(cache, entities, cfg.MaxFeatureItems)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, coordinator, cfg, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			dlqMsg := kafka.Message{
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
					kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
					kafka.Header{Key: "error", Value: []byte(err.Error())},
					kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
				),
			}

			// Retry DLQ write with exponential backoff
			dlqSuccess := false
			for attempt := 0; attempt < 5; attempt++ {
				if dlqErr := dlqWriter.WriteMessages(ctx, dlqMsg); dlqErr == nil {
					dlqSuccess = true
					log.Info("message sent to DLQ",
						slog.Int("partition", msg.Partition),
						slog.Int64("offset", msg.Offset),
						slog.Int("attempt", attempt+1),
					)
					break
				} else {
					backoff := time.Duration(1<<uint(attempt)) * time.Second
					log.Warn("DLQ write failed, retrying",
						slog.Any("err", dlqErr),
						slog.Int("attempt", attempt+1),
						slog.Duration("backoff", backoff),
					)
					select {
					case <-time.After(backoff):
						// Continue to next attempt
					case <-ctx.Done():
						log.Info("context canceled during DLQ retry")
						return
					}
				}
			}

			// Only commit if DLQ write succeeded; otherwise skip commit and reprocess on restart
			if dlqSuccess {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Error("commit failed message to dlq", slog.Any("err", err))
				}
			} else {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func processMessage(ctx context.Context, log *slog.Logger, idx recordIndexer, coordinator *engine.Coordinator, cfg *config.Worker, msg kafka.Message) error {
	var bundle rawBundle
	if err := json.Unmarshal(msg.Value, &bundle); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}

	qc := models.QueryContext{
		Query:      strings.TrimSpace(bundle.Query.Query),
		Country:    bundle.Query.Country,
		Language:   bundle.Query.Language,
		Location:   bundle.Query.Location,
		Device:     bundle.Query.Device,
		RunID:      strings.TrimSpace(bundle.Query.RunID),
		CapturedAt: parseTimestamp(bundle.Query.CapturedAt),
	}

	opts := engine.Options{
		ForceFresh:    bundle.ForceFresh,
		ExhaustivePAA: bundle.ExhaustivePAA,
		LocalIntent:   bundle.LocalIntent || cfg.ForceLocalIntent,
	}

	rec, err := coordinator.Run(ctx, qc, primaryCall(bundle.Calls), bundleSource{calls: bundle.Calls}, opts)
	if err != nil {
		return fmt.Errorf("normalize run: %w", err)
	}

	if err := idx.IndexRecord(ctx, *rec); err != nil {
		return err
	}

	log.Info("indexed record",
		slog.String("run_id", rec.QueryContext.RunID),
		slog.String("query", rec.QueryContext.Query),
		slog.Int("warnings", len(rec.ParsingWarnings)),
	)
	return nil
}

// primaryCall picks the main query-mode result out of the bundle. A bundle
// without one yields a transient-error placeholder; the engine degrades the
// run to warnings instead of failing it.
func primaryCall(calls []models.RawCallResult) models.RawCallResult {
	for _, c := range calls {
		if c.Engine == "google" || c.Engine == "primary" {
			return c
		}
	}
	return models.RawCallResult{Engine: "google", Status: models.CallTransientError}
}

// bundleSource serves secondary payloads out of the pre-fetched bundle.
type bundleSource struct {
	calls []models.RawCallResult
}

var secondaryEngines = map[engine.SecondaryKind][]string{
	engine.SecondaryAIOverview: {"google_ai_overview"},
	engine.SecondaryMaps:       {"google_maps"},
	engine.SecondaryPAA:        {"google_paa", "google_related_questions"},
}

func (s bundleSource) Fetch(_ context.Context, req engine.SecondaryRequest) (models.RawCallResult, error) {
	for _, name := range secondaryEngines[req.Kind] {
		for _, c := range s.calls {
			if c.Engine == name {
				return c, nil
			}
		}
	}
	return models.RawCallResult{}, fmt.Errorf("%w: no %s call in bundle", engine.ErrSourceUnavailable, req.Kind)
}

func loadEntityClassifier(path string) (*classify.EntityClassifier, error) {
	if path == "" {
		return classify.NewEntityClassifier(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return classify.NewEntityClassifier(data)
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}
