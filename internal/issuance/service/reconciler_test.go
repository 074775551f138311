package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhruva/internal/audit"
	auditstore "dhruva/internal/audit/store"
	credstore "dhruva/internal/credential/store"
	"dhruva/internal/issuance"
	"dhruva/internal/issuance/store"
	"dhruva/internal/registry"
	"dhruva/pkg/requestcontext"
)

func newReconcilerFixture(t *testing.T) (*Reconciler, *fixture) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	auditMem := auditstore.NewMemory()
	auditPub := audit.NewPublisher(auditMem, nil, logger)
	mock := registry.NewMock(ownerAddress, contractAddress)
	intents := store.NewMemory()
	creds := credstore.NewMemory()
	f := &fixture{
		svc:      New(intents, creds, mock, nil, auditPub, testMetrics, logger),
		mock:     mock,
		intents:  intents,
		creds:    creds,
		auditMem: auditMem,
	}
	rec := NewReconciler(intents, creds, mock, auditPub, logger, time.Second, time.Minute, 3)
	return rec, f
}

// laterCtx pins time far enough past the issue time that intents count as
// stuck.
func laterCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
}

func TestSweepRetriesUnanchoredIntent(t *testing.T) {
	rec, f := newReconcilerFixture(t)

	// Outage during issuance leaves a pending intent.
	f.mock.Unavailable = true
	result, err := f.svc.Issue(testCtx(), validRequest())
	require.NoError(t, err)
	require.Equal(t, issuance.StatePending, result.Intent.State)

	// Registry comes back; the sweep finishes the job.
	f.mock.Unavailable = false
	rec.Sweep(laterCtx())

	intent, err := f.intents.Get(context.Background(), result.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, issuance.StateComplete, intent.State)

	fact, err := f.mock.Verify(context.Background(), result.Hash)
	require.NoError(t, err)
	assert.True(t, fact.Exists)
	assert.Equal(t, "First class honours", fact.Experience)

	_, err = f.creds.FindByHash(context.Background(), result.Hash)
	require.NoError(t, err)
}

func TestSweepRestoresMissingRecord(t *testing.T) {
	rec, f := newReconcilerFixture(t)
	ctx := testCtx()

	// Simulate a crash between the chain write and the store write: the
	// hash is anchored but no off-chain record exists.
	result, err := f.svc.Issue(ctx, validRequest())
	require.NoError(t, err)

	intent, err := f.intents.Get(ctx, result.Intent.ID)
	require.NoError(t, err)
	intent.State = issuance.StateAnchored
	require.NoError(t, f.intents.Update(ctx, intent))

	fresh := credstore.NewMemory()
	rec.creds = fresh
	rec.Sweep(laterCtx())

	restored, err := fresh.FindByHash(ctx, result.Hash)
	require.NoError(t, err)
	assert.Equal(t, result.Intent.Record.CredentialName, restored.CredentialName)

	intent, err = f.intents.Get(ctx, result.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, issuance.StateComplete, intent.State)
}

func TestSweepSkipsWhileRegistryDown(t *testing.T) {
	rec, f := newReconcilerFixture(t)

	f.mock.Unavailable = true
	result, err := f.svc.Issue(testCtx(), validRequest())
	require.NoError(t, err)

	// Still down: no attempt is burned on an unreachable registry.
	rec.Sweep(laterCtx())

	intent, err := f.intents.Get(context.Background(), result.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, issuance.StatePending, intent.State)
	assert.Equal(t, 1, intent.Attempts)
}

func TestSweepFailsAfterMaxAttempts(t *testing.T) {
	rec, f := newReconcilerFixture(t)
	ctx := testCtx()

	// An intent whose stored record can never anchor: the mock rejects the
	// malformed hash on every retry.
	intent := &issuance.Intent{
		ID:        "stuck-intent",
		Hash:      "0xnothex",
		State:     issuance.StatePending,
		Attempts:  0,
		CreatedAt: requestcontext.Now(ctx),
		UpdatedAt: requestcontext.Now(ctx),
	}
	intent.Record.ExpiryDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	require.NoError(t, f.intents.Create(ctx, intent))

	// Each sweep runs far enough after the previous update to count as
	// stuck again.
	for i := 0; i < 3; i++ {
		sweepCtx := requestcontext.WithTime(context.Background(),
			time.Date(2026, 3, 1, 13+2*i, 0, 0, 0, time.UTC))
		rec.Sweep(sweepCtx)
	}

	got, err := f.intents.Get(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, issuance.StateFailed, got.State)
	assert.Equal(t, 3, got.Attempts)

	events := f.auditMem.All()
	var failed int
	for _, e := range events {
		if e.Action == audit.ActionIntentFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
