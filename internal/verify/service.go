// Package verify merges on-chain facts and off-chain records into a single
// verdict. The chain decides validity; the off-chain record only decorates
// the answer with display metadata.
package verify

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"dhruva/internal/credential"
	credstore "dhruva/internal/credential/store"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/registry"
	"dhruva/internal/registry/cache"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// batchConcurrency bounds parallel chain lookups in a batch request.
const batchConcurrency = 8

// Verdict is the merged verification outcome.
type Verdict string

const (
	VerdictVerified Verdict = "verified"
	VerdictRevoked  Verdict = "revoked"
	VerdictExpired  Verdict = "expired"
	VerdictNotFound Verdict = "not_found"
	// VerdictUnavailable only appears in batch results, where one
	// unreachable lookup must not fail the whole request.
	VerdictUnavailable Verdict = "unavailable"
)

// Result is the full answer for one hash. Valid collapses the verdict to
// the single boolean exists && !revoked && !expired.
type Result struct {
	Hash       string             `json:"hash"`
	Verdict    Verdict            `json:"verdict"`
	Valid      bool               `json:"valid"`
	Fact       *registry.Fact     `json:"onChain,omitempty"`
	Credential *credential.Record `json:"credential,omitempty"`
}

// Service resolves verdicts, consulting the fact cache before the chain.
type Service struct {
	registry registry.Registry
	cache    *cache.FactCache
	creds    credstore.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(reg registry.Registry, factCache *cache.FactCache, creds credstore.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		registry: reg,
		cache:    factCache,
		creds:    creds,
		metrics:  m,
		logger:   logger,
	}
}

// Verify resolves one hash. An unreachable registry is an error distinct
// from not_found: the caller must not treat "could not determine" as
// "does not exist".
func (s *Service) Verify(ctx context.Context, hash string) (*Result, error) {
	if _, err := registry.ParseHash(hash); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid credential hash")
	}

	fact, err := s.lookup(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.New(dErrors.CodeUnavailable, "verification temporarily unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
	}

	result := s.merge(ctx, hash, fact)
	s.metrics.RecordVerdict(string(result.Verdict))
	return result, nil
}

// BatchVerify resolves many hashes with bounded concurrency. Results come
// back in input order; per-hash failures degrade to the unavailable
// verdict instead of failing the batch.
func (s *Service) BatchVerify(ctx context.Context, hashes []string) ([]*Result, error) {
	if len(hashes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "hashes array is required")
	}

	results := make([]*Result, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, hash := range hashes {
		g.Go(func() error {
			if _, err := registry.ParseHash(hash); err != nil {
				results[i] = &Result{Hash: hash, Verdict: VerdictNotFound}
				return nil
			}
			fact, err := s.lookup(gctx, hash)
			if err != nil {
				results[i] = &Result{Hash: hash, Verdict: VerdictUnavailable}
				return nil
			}
			results[i] = s.merge(gctx, hash, fact)
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	for _, r := range results {
		s.metrics.RecordVerdict(string(r.Verdict))
	}
	return results, nil
}

// lookup serves a fact from the cache or the chain. Only existing facts
// are cached so a pre-issuance miss never masks a later anchor.
func (s *Service) lookup(ctx context.Context, hash string) (registry.Fact, error) {
	if fact, ok := s.cache.Get(ctx, hash); ok {
		return fact, nil
	}
	fact, err := s.registry.Verify(ctx, hash)
	if err != nil {
		return registry.Fact{}, err
	}
	if fact.Exists {
		s.cache.Put(ctx, hash, fact)
	}
	return fact, nil
}

// merge folds the fact into a verdict. Revocation beats expiry; expiry is
// recomputed against the request clock rather than trusted from the cache.
func (s *Service) merge(ctx context.Context, hash string, fact registry.Fact) *Result {
	result := &Result{Hash: hash}

	switch {
	case !fact.Exists:
		result.Verdict = VerdictNotFound
		return result
	case fact.Revoked:
		result.Verdict = VerdictRevoked
	case fact.ExpiryDate <= requestcontext.Now(ctx).Unix():
		result.Verdict = VerdictExpired
	default:
		result.Verdict = VerdictVerified
		result.Valid = true
	}
	fact.Expired = fact.ExpiryDate <= requestcontext.Now(ctx).Unix()
	result.Fact = &fact

	if rec, err := s.creds.FindByHash(ctx, hash); err == nil {
		result.Credential = rec
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "off-chain lookup failed during verification", "hash", hash, "error", err)
	}
	return result
}
