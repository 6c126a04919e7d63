package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yuri-schmaltz/tileseed/internal/breaker"
	"github.com/yuri-schmaltz/tileseed/internal/creds"
	"github.com/yuri-schmaltz/tileseed/internal/retry"
	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

// Service describes an upstream tile service.
type Service struct {
	// Name identifies the service for circuit breaking and credential
	// lookup.
	Name string

	// URLTemplate is the tile URL with {z}, {x}, {y} and optional
	// {api_key} placeholders.
	URLTemplate string

	// UserAgent is sent with every request. Tile services commonly
	// require an identifying agent.
	UserAgent string
}

// Fetcher downloads tiles from one service with retries and circuit
// breaking. It is safe for concurrent use by many workers; the breaker is
// the only shared state and its lock is held only for state transitions.
type Fetcher struct {
	client  *Client
	svc     Service
	breaker *breaker.Breaker
	policy  retry.Policy
	apiKey  string
	log     *zap.Logger
}

// NewFetcher builds a fetcher for svc. The API key is resolved from
// provider once, here, and never logged. A nil provider or logger is
// allowed.
func NewFetcher(client *Client, svc Service, reg *breaker.Registry, policy retry.Policy, provider creds.Provider, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}

	var apiKey string
	if provider != nil {
		apiKey, _ = provider.APIKey(svc.Name)
	}

	return &Fetcher{
		client:  client,
		svc:     svc,
		breaker: reg.Get(svc.Name),
		policy:  policy,
		apiKey:  apiKey,
		log:     log.With(zap.String("service", svc.Name)),
	}
}

// Fetch downloads one tile. Retries apply only to transient failures and
// only while the circuit admits calls; once the circuit opens, remaining
// attempts are skipped and the error is *breaker.OpenError. Permanent
// failures return immediately.
func (f *Fetcher) Fetch(ctx context.Context, key tile.Key) (tile.Record, error) {
	url := tile.URL(f.svc.URLTemplate, key, f.apiKey)

	var rec tile.Record
	op := func(ctx context.Context) error {
		return f.breaker.Execute(func() error {
			data, contentType, err := f.client.GetTile(ctx, url, f.svc.UserAgent)
			if err != nil {
				return err
			}
			rec = tile.Record{
				Key:         key,
				Data:        data,
				ContentType: contentType,
				FetchedAt:   time.Now().UTC(),
				Size:        int64(len(data)),
			}
			return nil
		})
	}

	if err := f.policy.Do(ctx, op, IsTransient); err != nil {
		f.log.Debug("tile fetch failed",
			zap.String("tile", key.String()),
			zap.Error(err),
		)
		return tile.Record{}, err
	}

	return rec, nil
}

// Service returns the service this fetcher targets.
func (f *Fetcher) Service() Service { return f.svc }
