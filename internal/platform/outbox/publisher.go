package outbox

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
)

const (
	defaultPollEvery = 2 * time.Second
	defaultBatchSize = 50
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

type Publisher struct {
	pool      db.Pool
	store     *Store
	logger    zerolog.Logger
	writer    MessageWriter
	pollEvery time.Duration
	batchSize int
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(pool db.Pool, store *Store, logger zerolog.Logger, cfg PublisherConfig) *Publisher {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}
	return newPublisher(pool, store, logger, writer, cfg)
}

func newPublisher(pool db.Pool, store *Store, logger zerolog.Logger, writer MessageWriter, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultPollEvery
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Publisher{
		pool:      pool,
		store:     store,
		logger:    logger.With().Str("component", "outbox").Logger(),
		writer:    writer,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run polls the outbox until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	p.logger.Info().Dur("poll_every", p.pollEvery).Msg("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			if err != nil {
				p.logger.Error().Err(err).Msg("outbox publish failed")
				continue
			}
			if n > 0 {
				p.logger.Debug().Int("events", n).Msg("outbox events published")
			}
		}
	}
}

// PublishBatch relays one batch and marks it published. Rows stay pending if
// any write fails, so delivery is at least once.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.store.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, toMessage(r))
		ids = append(ids, r.ID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.store.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(records), nil
}

func toMessage(r Record) kafka.Message {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(r.EventID)},
		{Key: "event_type", Value: []byte(r.EventType)},
	}
	// Re-inject the trace context captured at insert time.
	carrier := propagation.MapCarrier{"traceparent": r.Traceparent, "tracestate": r.Tracestate}
	msgCtx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
	out := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(msgCtx, out)
	for _, k := range out.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(out.Get(k))})
	}
	return kafka.Message{
		Topic:   r.EventType,
		Key:     []byte(r.AggregateID),
		Value:   r.Payload,
		Headers: headers,
	}
}
