package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dhruva/internal/audit"
	"dhruva/internal/credential"
	"dhruva/internal/credential/store"
	"dhruva/internal/platform/metrics"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// Service owns the off-chain credential lifecycle: store-once records plus
// the display-only verification lookups built on top of them.
type Service struct {
	store       store.Store
	audit       *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	frontendURL string
}

func New(store store.Store, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger, frontendURL string) *Service {
	return &Service{
		store:       store,
		audit:       auditPub,
		metrics:     m,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// VerifyResult is the off-chain presence check. Valid only says a record
// exists here; on-chain validity is the registry's call.
type VerifyResult struct {
	Valid           bool               `json:"valid"`
	Credential      *credential.Record `json:"credential"`
	VerificationURL string             `json:"verificationUrl"`
}

// Create stores a new credential record. Addresses are normalized to
// lowercase before they touch storage so lookups are case-insensitive.
func (s *Service) Create(ctx context.Context, rec *credential.Record) (*credential.Record, error) {
	if rec.Hash == "" || rec.Issuer == "" || rec.Holder == "" || rec.CredentialName == "" || rec.ExpiryDate == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"missing required fields: hash, issuer, holder, credentialName, expiryDate")
	}

	rec.Issuer = strings.ToLower(rec.Issuer)
	rec.Holder = strings.ToLower(rec.Holder)
	now := requestcontext.Now(ctx)
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = now
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "credential with this hash already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.metrics.CredentialsStored.Inc()
	s.audit.Emit(ctx, audit.Event{
		Actor:  rec.Issuer,
		Action: audit.ActionCredentialStored,
		Hash:   rec.Hash,
		Detail: rec.CredentialName,
	})
	s.logger.InfoContext(ctx, "credential stored",
		"hash", rec.Hash,
		"issuer", rec.Issuer,
		"holder", rec.Holder,
	)
	return rec, nil
}

// Get returns the record for one hash.
func (s *Service) Get(ctx context.Context, hash string) (*credential.Record, error) {
	rec, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return rec, nil
}

// ListByHolder returns the holder's credentials, newest first.
func (s *Service) ListByHolder(ctx context.Context, address string) ([]*credential.Record, error) {
	recs, err := s.store.ListByHolder(ctx, strings.ToLower(address))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return recs, nil
}

// ListByIssuer returns the issuer's credentials, newest first.
func (s *Service) ListByIssuer(ctx context.Context, address string) ([]*credential.Record, error) {
	recs, err := s.store.ListByIssuer(ctx, strings.ToLower(address))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return recs, nil
}

// VerifyOffChain reports whether a record exists for the hash. Missing
// records are a negative result, not an error.
func (s *Service) VerifyOffChain(ctx context.Context, hash string) (*VerifyResult, error) {
	result := &VerifyResult{
		VerificationURL: fmt.Sprintf("%s/verify?hash=%s", strings.TrimRight(s.frontendURL, "/"), hash),
	}
	rec, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return result, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credential")
	}
	result.Valid = true
	result.Credential = rec
	return result, nil
}

// BatchVerify looks up many hashes in one round trip. Results come back in
// input order, one entry per requested hash.
func (s *Service) BatchVerify(ctx context.Context, hashes []string) ([]credential.BatchResult, error) {
	if len(hashes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "hashes array is required")
	}

	found, err := s.store.FindByHashes(ctx, hashes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	results := make([]credential.BatchResult, 0, len(hashes))
	for _, hash := range hashes {
		rec, ok := found[hash]
		results = append(results, credential.BatchResult{
			Hash:       hash,
			Found:      ok,
			Credential: rec,
		})
	}
	return results, nil
}
