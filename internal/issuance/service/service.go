package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"dhruva/internal/audit"
	"dhruva/internal/credential"
	credstore "dhruva/internal/credential/store"
	"dhruva/internal/issuance"
	"dhruva/internal/issuance/store"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/registry"
	"dhruva/internal/registry/cache"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// Service runs the orchestrated issuance flow. The server computes both
// hashes itself, anchors on chain first, and only then stores the
// off-chain record. Intents make the two-phase write observable.
type Service struct {
	intents  store.Store
	creds    credstore.Store
	registry registry.Registry
	cache    *cache.FactCache
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(intents store.Store, creds credstore.Store, reg registry.Registry, factCache *cache.FactCache, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		intents:  intents,
		creds:    creds,
		registry: reg,
		cache:    factCache,
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
	}
}

// Request is one orchestrated issuance. ExpiryDate is epoch milliseconds;
// the on-chain expiry is the same instant in seconds.
type Request struct {
	DocumentType     string
	CredentialName   string
	Description      string
	Holder           string
	RecipientName    string
	Issuer           string
	FromOrganisation string
	HolderDID        string
	IssuerDID        string
	ExpiryDate       int64
	File             []byte
	FileURL          string
	Subject          *credential.Subject
	Metadata         map[string]any
}

// Result reports the derived hashes and the intent tracking the write.
// State tells the caller how far the issuance got.
type Result struct {
	Hash     string           `json:"hash"`
	FileHash string           `json:"fileHash"`
	Intent   *issuance.Intent `json:"intent"`
}

// Issue anchors a new credential on chain and stores its off-chain record.
// A registry outage leaves the intent pending for the reconciler and is not
// an error; the caller sees the pending state and can poll the intent.
func (s *Service) Issue(ctx context.Context, req Request) (*Result, error) {
	if req.Issuer == "" || req.Holder == "" || req.CredentialName == "" || req.ExpiryDate == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"missing required fields: issuer, holder, credentialName, expiryDate")
	}
	if len(req.File) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "credential document file is required")
	}

	checksumHolder, err := issuance.ChecksumAddress(req.Holder)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "holder is not a valid address")
	}
	if _, err := issuance.ChecksumAddress(req.Issuer); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "issuer is not a valid address")
	}
	// Credentials minted to the contract itself are unrecoverable.
	if strings.EqualFold(req.Holder, s.registry.ContractAddress()) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "holder cannot be the registry contract address")
	}

	now := requestcontext.Now(ctx)
	expirySeconds := req.ExpiryDate / 1000
	if expirySeconds <= now.Unix() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "expiryDate must be in the future")
	}

	fileHash := issuance.HashFile(req.File)
	hash, err := issuance.Hash(issuance.Payload{
		DocumentType:       req.DocumentType,
		CredentialName:     req.CredentialName,
		Description:        req.Description,
		DestinationAddress: checksumHolder,
		RecipientName:      req.RecipientName,
		Issuer:             req.Issuer,
		FromOrganisation:   req.FromOrganisation,
		FileHash:           fileHash,
		IssuedAt:           now.UnixMilli(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute credential hash")
	}

	if _, err := s.creds.FindByHash(ctx, hash); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "credential with this hash already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing credential")
	}

	record := credential.Record{
		Hash:             hash,
		Issuer:           strings.ToLower(req.Issuer),
		Holder:           strings.ToLower(req.Holder),
		CredentialName:   req.CredentialName,
		Description:      req.Description,
		DocumentType:     req.DocumentType,
		FromOrganisation: req.FromOrganisation,
		HolderDID:        req.HolderDID,
		IssuerDID:        req.IssuerDID,
		Subject:          req.Subject,
		FileURL:          req.FileURL,
		ExpiryDate:       req.ExpiryDate,
		IssuedAt:         now,
		Metadata:         req.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	intent := &issuance.Intent{
		ID:        uuid.NewString(),
		Hash:      hash,
		FileHash:  fileHash,
		Record:    record,
		State:     issuance.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record issuance intent")
	}

	result := &Result{Hash: hash, FileHash: fileHash, Intent: intent}

	err = s.registry.Issue(ctx, registry.IssueParams{
		Holder:     checksumHolder,
		Hash:       hash,
		ExpiryDate: expirySeconds,
		Name:       req.CredentialName,
		Experience: req.Description,
	})
	if err != nil {
		intent.Attempts++
		intent.LastError = err.Error()
		intent.UpdatedAt = now
		if errors.Is(err, sentinel.ErrUnavailable) {
			// Registry outage: the intent stays pending and the reconciler
			// retries. The request itself succeeded.
			s.updateIntent(ctx, intent)
			s.logger.WarnContext(ctx, "registry unavailable, issuance queued", "hash", hash, "intent", intent.ID)
			return result, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			intent.State = issuance.StateFailed
			s.updateIntent(ctx, intent)
			return nil, dErrors.New(dErrors.CodeConflict, "credential already anchored on chain")
		}
		intent.State = issuance.StateFailed
		s.updateIntent(ctx, intent)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "on-chain issuance failed")
	}

	intent.State = issuance.StateAnchored
	intent.UpdatedAt = now
	s.updateIntent(ctx, intent)

	if err := s.creds.Create(ctx, &record); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		// Anchored but not stored. Leave the intent for the reconciler.
		intent.LastError = err.Error()
		s.updateIntent(ctx, intent)
		s.logger.ErrorContext(ctx, "off-chain store failed after anchoring", "hash", hash, "error", err)
		return result, nil
	}

	intent.State = issuance.StateComplete
	intent.LastError = ""
	s.updateIntent(ctx, intent)

	s.metrics.CredentialsStored.Inc()
	s.audit.Emit(ctx, audit.Event{
		Actor:  record.Issuer,
		Action: audit.ActionCredentialIssued,
		Hash:   hash,
		Detail: record.CredentialName,
	})
	s.logger.InfoContext(ctx, "credential issued",
		"hash", hash,
		"issuer", record.Issuer,
		"holder", record.Holder,
	)
	return result, nil
}

// Revoke marks a credential revoked on chain. Irreversible.
func (s *Service) Revoke(ctx context.Context, hash string) error {
	if _, err := registry.ParseHash(hash); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid credential hash")
	}
	if err := s.registry.Revoke(ctx, hash); err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return dErrors.New(dErrors.CodeUnavailable, "registry unavailable")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found on chain")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "on-chain revocation failed")
	}
	// Drop any cached fact so the next verification sees the revocation.
	s.cache.Invalidate(ctx, hash)
	s.audit.Emit(ctx, audit.Event{
		Actor:  requestcontext.Wallet(ctx),
		Action: audit.ActionCredentialRevoked,
		Hash:   hash,
	})
	return nil
}

// GetIntent returns one intent by ID.
func (s *Service) GetIntent(ctx context.Context, id string) (*issuance.Intent, error) {
	intent, err := s.intents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "issuance intent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuance intent")
	}
	return intent, nil
}

func (s *Service) updateIntent(ctx context.Context, intent *issuance.Intent) {
	if err := s.intents.Update(ctx, intent); err != nil {
		s.logger.ErrorContext(ctx, "failed to update issuance intent", "intent", intent.ID, "error", err)
	}
}
