package verify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhruva/internal/credential"
	credstore "dhruva/internal/credential/store"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/registry"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/requestcontext"
)

var testMetrics = metrics.New()

const (
	ownerAddress    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	contractAddress = "0xcccc000000000000000000000000000000000003"
	holderAddress   = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	testHash        = "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
)

func newTestService(t *testing.T) (*Service, *registry.Mock, *credstore.MemoryStore) {
	t.Helper()
	mock := registry.NewMock(ownerAddress, contractAddress)
	creds := credstore.NewMemory()
	svc := New(mock, nil, creds, testMetrics, slog.New(slog.DiscardHandler))
	return svc, mock, creds
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func issueTestCredential(t *testing.T, mock *registry.Mock, hash string, expiry time.Time) {
	t.Helper()
	err := mock.Issue(testCtx(), registry.IssueParams{
		Holder:     holderAddress,
		Hash:       hash,
		ExpiryDate: expiry.Unix(),
		Name:       "BSc Computer Science",
		Experience: "Dhruva University",
	})
	require.NoError(t, err)
}

func TestVerify(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("verified", func(t *testing.T) {
		svc, mock, creds := newTestService(t)
		issueTestCredential(t, mock, testHash, future)
		require.NoError(t, creds.Create(testCtx(), &credential.Record{
			Hash:           testHash,
			Issuer:         ownerAddress,
			Holder:         holderAddress,
			CredentialName: "BSc Computer Science",
			ExpiryDate:     future.UnixMilli(),
		}))

		result, err := svc.Verify(testCtx(), testHash)
		require.NoError(t, err)
		assert.Equal(t, VerdictVerified, result.Verdict)
		assert.True(t, result.Valid)
		require.NotNil(t, result.Fact)
		assert.Equal(t, holderAddress, result.Fact.Holder)
		require.NotNil(t, result.Credential)
		assert.Equal(t, "BSc Computer Science", result.Credential.CredentialName)
	})

	t.Run("not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		result, err := svc.Verify(testCtx(), testHash)
		require.NoError(t, err)
		assert.Equal(t, VerdictNotFound, result.Verdict)
		assert.Nil(t, result.Fact)
	})

	t.Run("revoked beats expired", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		// Expired AND revoked: revoked wins.
		issueTestCredential(t, mock, testHash, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, mock.Revoke(testCtx(), testHash))

		result, err := svc.Verify(testCtx(), testHash)
		require.NoError(t, err)
		assert.Equal(t, VerdictRevoked, result.Verdict)
	})

	t.Run("expired", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		issueTestCredential(t, mock, testHash, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

		result, err := svc.Verify(testCtx(), testHash)
		require.NoError(t, err)
		assert.Equal(t, VerdictExpired, result.Verdict)
		assert.False(t, result.Valid)
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		// Expiry exactly at the request clock counts as expired.
		issueTestCredential(t, mock, testHash, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

		result, err := svc.Verify(testCtx(), testHash)
		require.NoError(t, err)
		assert.Equal(t, VerdictExpired, result.Verdict)
	})

	t.Run("unreachable registry is unavailable, not not_found", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		issueTestCredential(t, mock, testHash, future)
		mock.Unavailable = true

		_, err := svc.Verify(testCtx(), testHash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("malformed hash", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Verify(testCtx(), "0x123")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestBatchVerify(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	missing := "0x1111111111111111111111111111111111111111111111111111111111111111"

	t.Run("results in input order", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		issueTestCredential(t, mock, testHash, future)

		results, err := svc.BatchVerify(testCtx(), []string{missing, testHash})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, VerdictNotFound, results[0].Verdict)
		assert.Equal(t, VerdictVerified, results[1].Verdict)
	})

	t.Run("handles large batches with bounded concurrency", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		mock.Latency = time.Millisecond
		issueTestCredential(t, mock, testHash, future)

		hashes := make([]string, 50)
		for i := range hashes {
			hashes[i] = missing
		}
		hashes[25] = testHash

		results, err := svc.BatchVerify(context.Background(), hashes)
		require.NoError(t, err)
		require.Len(t, results, 50)
		assert.Equal(t, VerdictVerified, results[25].Verdict)
		assert.Equal(t, VerdictNotFound, results[0].Verdict)
	})

	t.Run("per-hash outage degrades to unavailable", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		mock.Unavailable = true

		results, err := svc.BatchVerify(testCtx(), []string{testHash})
		require.NoError(t, err)
		assert.Equal(t, VerdictUnavailable, results[0].Verdict)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.BatchVerify(testCtx(), nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
