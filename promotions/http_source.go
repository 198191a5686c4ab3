package promotions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mytheresa/storefront-pricing/pricing"
)

// ErrUnexpectedStatus is returned when the promotions backend answers non-2xx.
var ErrUnexpectedStatus = errors.New("unexpected status from promotions backend")

const maxBodyBytes = 4 << 20

// HTTPSource reads the promotion list from the promotions REST endpoint.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewHTTPSource(url string, timeout time.Duration, tracer trace.Tracer) *HTTPSource {
	if tracer == nil {
		tracer = otel.Tracer("github.com/mytheresa/storefront-pricing/promotions")
	}
	return &HTTPSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
		tracer: tracer,
	}
}

// Fetch performs a single GET with no retry.
func (s *HTTPSource) Fetch(ctx context.Context) ([]pricing.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "promotions.HTTPSource.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("building promotions request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	span.SetAttributes(
		attribute.String("http.url", s.url),
		attribute.String("http.method", http.MethodGet),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching promotions: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, err := decodeRecords(ctx, io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("promotions.records", len(records)))
	return NormalizeAll(ctx, records), nil
}

// decodeRecords accepts a bare array or an object wrapping it under
// "promotions" or "data". Entries that are not even valid records are
// skipped like any other malformed promotion.
func decodeRecords(ctx context.Context, r io.Reader) ([]Record, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading promotions body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("decoding promotions: empty body")
	}

	var raw []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding promotions: %w", err)
		}
	} else {
		var envelope struct {
			Promotions []json.RawMessage `json:"promotions"`
			Data       []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decoding promotions: %w", err)
		}
		raw = envelope.Promotions
		if raw == nil {
			raw = envelope.Data
		}
	}

	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("index", i).Msg("skipping undecodable promotion")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
