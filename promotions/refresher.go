package promotions

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"
)

// MessageReader is the consuming side of a *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Reloader interface {
	Reload(ctx context.Context) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
}

// Refresher reloads the promotion cache whenever the promotions admin
// publishes a change event. Reloads are rate limited so a burst of admin
// edits does not turn into a burst of backend fetches.
type Refresher struct {
	reader      MessageReader
	reloader    Reloader
	invalidator Invalidator
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

type RefresherOption func(*Refresher)

// WithInvalidator clears a shared cache before each reload.
func WithInvalidator(inv Invalidator) RefresherOption {
	return func(r *Refresher) { r.invalidator = inv }
}

// WithMinInterval spaces reloads, and retries after read errors, at least d apart.
func WithMinInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

func WithRefresherLogger(logger zerolog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = logger }
}

func NewRefresher(reader MessageReader, reloader Reloader, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		reader:   reader,
		reloader: reloader,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes events until ctx is cancelled or the reader is closed.
func (r *Refresher) Run(ctx context.Context) error {
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			r.logger.Error().Err(err).Msg("reading promotion event")
			// Read failures share the reload budget so a broken broker is not spun on.
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}

		if err := r.wait(ctx); err != nil {
			return err
		}
		r.handle(ctx, msg)
	}
}

// wait blocks for the next limiter token. Wait refuses up front when the
// token would come after ctx's deadline; nothing can run before then anyway.
func (r *Refresher) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (r *Refresher) handle(ctx context.Context, msg kafka.Message) {
	logger := r.logger.With().
		Str("topic", msg.Topic).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Logger()

	if r.invalidator != nil {
		if err := r.invalidator.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not invalidate shared promotion cache")
		}
	}
	if err := r.reloader.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("promotion reload after change event failed")
		return
	}
	logger.Info().Msg("promotions reloaded after change event")
}

func (r *Refresher) Close() error {
	return r.reader.Close()
}
