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
	"dhruva/internal/platform/metrics"
	"dhruva/internal/registry"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/requestcontext"
)

var testMetrics = metrics.New()

const (
	ownerAddress    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	contractAddress = "0xcccc000000000000000000000000000000000003"
	holderAddress   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type fixture struct {
	svc      *Service
	mock     *registry.Mock
	intents  *store.MemoryStore
	creds    *credstore.MemoryStore
	auditMem *auditstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	auditMem := auditstore.NewMemory()
	auditPub := audit.NewPublisher(auditMem, nil, logger)
	mock := registry.NewMock(ownerAddress, contractAddress)
	intents := store.NewMemory()
	creds := credstore.NewMemory()
	return &fixture{
		svc:      New(intents, creds, mock, nil, auditPub, testMetrics, logger),
		mock:     mock,
		intents:  intents,
		creds:    creds,
		auditMem: auditMem,
	}
}

func testCtx() context.Context {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), now)
}

func validRequest() Request {
	return Request{
		DocumentType:     "degree",
		CredentialName:   "BSc Computer Science",
		Description:      "First class honours",
		Holder:           holderAddress,
		RecipientName:    "Alice",
		Issuer:           ownerAddress,
		FromOrganisation: "Dhruva University",
		ExpiryDate:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		File:             []byte("%PDF-1.4 degree document"),
		FileURL:          "http://localhost:5000/uploads/abc.pdf",
	}
}

func TestIssue(t *testing.T) {
	t.Run("happy path anchors then stores", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx()

		result, err := f.svc.Issue(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, issuance.StateComplete, result.Intent.State)
		assert.Len(t, result.Hash, 66)
		assert.Len(t, result.FileHash, 66)

		fact, err := f.mock.Verify(ctx, result.Hash)
		require.NoError(t, err)
		assert.True(t, fact.Exists)
		assert.False(t, fact.Expired)

		rec, err := f.creds.FindByHash(ctx, result.Hash)
		require.NoError(t, err)
		assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", rec.Holder)
		assert.NotEqual(t, result.FileHash, result.Hash)
	})

	t.Run("anchors name and description on chain", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx()

		result, err := f.svc.Issue(ctx, validRequest())
		require.NoError(t, err)

		// The contract's display tuple is (name, description), not the
		// issuing organisation.
		fact, err := f.mock.Verify(ctx, result.Hash)
		require.NoError(t, err)
		assert.Equal(t, "BSc Computer Science", fact.Name)
		assert.Equal(t, "First class honours", fact.Experience)
	})

	t.Run("deterministic hash for identical requests", func(t *testing.T) {
		first := newFixture(t)
		second := newFixture(t)
		ctx := testCtx()

		a, err := first.svc.Issue(ctx, validRequest())
		require.NoError(t, err)
		b, err := second.svc.Issue(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, a.Hash, b.Hash)
	})

	t.Run("rejects past expiry", func(t *testing.T) {
		f := newFixture(t)
		req := validRequest()
		req.ExpiryDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

		_, err := f.svc.Issue(testCtx(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.Contains(t, dErrors.MessageOf(err), "future")
	})

	t.Run("rejects contract address as holder", func(t *testing.T) {
		f := newFixture(t)
		req := validRequest()
		req.Holder = "0xCCCC000000000000000000000000000000000003"

		_, err := f.svc.Issue(testCtx(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid holder address", func(t *testing.T) {
		f := newFixture(t)
		req := validRequest()
		req.Holder = "alice"

		_, err := f.svc.Issue(testCtx(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects missing file", func(t *testing.T) {
		f := newFixture(t)
		req := validRequest()
		req.File = nil

		_, err := f.svc.Issue(testCtx(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("duplicate issuance conflicts", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx()

		_, err := f.svc.Issue(ctx, validRequest())
		require.NoError(t, err)

		// Same pinned time means the same payload and the same hash.
		_, err = f.svc.Issue(ctx, validRequest())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("registry outage leaves pending intent", func(t *testing.T) {
		f := newFixture(t)
		f.mock.Unavailable = true
		ctx := testCtx()

		result, err := f.svc.Issue(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, issuance.StatePending, result.Intent.State)
		assert.Equal(t, 1, result.Intent.Attempts)
		assert.NotEmpty(t, result.Intent.LastError)

		// Nothing stored off chain until the anchor lands.
		_, err = f.creds.FindByHash(ctx, result.Hash)
		require.Error(t, err)
	})
}

func TestRevoke(t *testing.T) {
	t.Run("revokes anchored credential", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx()

		result, err := f.svc.Issue(ctx, validRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.Revoke(ctx, result.Hash))

		fact, err := f.mock.Verify(ctx, result.Hash)
		require.NoError(t, err)
		assert.True(t, fact.Revoked)
	})

	t.Run("unknown hash", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Revoke(testCtx(), "0x1111111111111111111111111111111111111111111111111111111111111111")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("malformed hash", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Revoke(testCtx(), "0xzz")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestGetIntent(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()

	result, err := f.svc.Issue(ctx, validRequest())
	require.NoError(t, err)

	intent, err := f.svc.GetIntent(ctx, result.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, issuance.StateComplete, intent.State)

	_, err = f.svc.GetIntent(ctx, "missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
