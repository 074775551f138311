package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dhruva/internal/audit"
	credstore "dhruva/internal/credential/store"
	"dhruva/internal/issuance"
	"dhruva/internal/issuance/store"
	"dhruva/internal/registry"
	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// Reconciler sweeps intents that got stuck between the on-chain and
// off-chain writes. The chain is the source of truth: an anchored hash with
// a missing record gets its record restored, an unanchored intent gets the
// chain write retried.
type Reconciler struct {
	intents     store.Store
	creds       credstore.Store
	registry    registry.Registry
	audit       *audit.Publisher
	logger      *slog.Logger
	interval    time.Duration
	stuckAfter  time.Duration
	maxAttempts int
}

func NewReconciler(intents store.Store, creds credstore.Store, reg registry.Registry, auditPub *audit.Publisher, logger *slog.Logger, interval, stuckAfter time.Duration, maxAttempts int) *Reconciler {
	return &Reconciler{
		intents:     intents,
		creds:       creds,
		registry:    reg,
		audit:       auditPub,
		logger:      logger,
		interval:    interval,
		stuckAfter:  stuckAfter,
		maxAttempts: maxAttempts,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep processes every stuck intent once.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := requestcontext.Now(ctx).Add(-r.stuckAfter)
	stuck, err := r.intents.ListStuck(ctx, cutoff, r.maxAttempts)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list stuck intents", "error", err)
		return
	}
	for _, intent := range stuck {
		r.reconcile(ctx, intent)
	}
}

func (r *Reconciler) reconcile(ctx context.Context, intent *issuance.Intent) {
	fact, err := r.registry.Verify(ctx, intent.Hash)
	if err != nil {
		// Cannot tell whether the hash is anchored. Not an attempt; try
		// again next sweep.
		r.logger.WarnContext(ctx, "registry unreachable during reconcile", "intent", intent.ID, "error", err)
		return
	}

	if fact.Exists {
		r.completeAnchored(ctx, intent)
		return
	}

	// Never anchored. Retry the chain write from the stored record.
	intent.Attempts++
	err = r.registry.Issue(ctx, registry.IssueParams{
		Holder:     intent.Record.Holder,
		Hash:       intent.Hash,
		ExpiryDate: intent.Record.ExpiryDate / 1000,
		Name:       intent.Record.CredentialName,
		Experience: intent.Record.Description,
	})
	if err != nil {
		intent.LastError = err.Error()
		if intent.Attempts >= r.maxAttempts {
			intent.State = issuance.StateFailed
			r.audit.Emit(ctx, audit.Event{
				Actor:  intent.Record.Issuer,
				Action: audit.ActionIntentFailed,
				Hash:   intent.Hash,
				Detail: intent.LastError,
			})
			r.logger.ErrorContext(ctx, "issuance intent failed permanently", "intent", intent.ID, "error", err)
		}
		r.update(ctx, intent)
		return
	}

	intent.State = issuance.StateAnchored
	r.completeAnchored(ctx, intent)
}

// completeAnchored ensures the off-chain record exists for an anchored
// intent and marks it complete.
func (r *Reconciler) completeAnchored(ctx context.Context, intent *issuance.Intent) {
	record := intent.Record
	if err := r.creds.Create(ctx, &record); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		intent.LastError = err.Error()
		intent.State = issuance.StateAnchored
		r.update(ctx, intent)
		r.logger.ErrorContext(ctx, "failed to restore off-chain record", "intent", intent.ID, "error", err)
		return
	}

	intent.State = issuance.StateComplete
	intent.LastError = ""
	r.update(ctx, intent)

	r.audit.Emit(ctx, audit.Event{
		Actor:  intent.Record.Issuer,
		Action: audit.ActionIntentReconciled,
		Hash:   intent.Hash,
	})
	r.logger.InfoContext(ctx, "issuance intent reconciled", "intent", intent.ID, "hash", intent.Hash)
}

func (r *Reconciler) update(ctx context.Context, intent *issuance.Intent) {
	intent.UpdatedAt = requestcontext.Now(ctx)
	if err := r.intents.Update(ctx, intent); err != nil {
		r.logger.ErrorContext(ctx, "failed to update intent", "intent", intent.ID, "error", err)
	}
}
