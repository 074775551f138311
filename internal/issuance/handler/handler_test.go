package handler

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credstore "dhruva/internal/credential/store"
	"dhruva/internal/issuance"
	"dhruva/internal/issuance/service"
	"dhruva/internal/issuance/store"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/registry"
	"dhruva/internal/uploads"
	"dhruva/pkg/testutil"
)

var testMetrics = metrics.New()

const (
	ownerAddress    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	contractAddress = "0xcccc000000000000000000000000000000000003"
	holderAddress   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func newTestRouter(t *testing.T) (chi.Router, *registry.Mock) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	mock := registry.NewMock(ownerAddress, contractAddress)
	svc := service.New(store.NewMemory(), credstore.NewMemory(), mock, nil, nil, testMetrics, logger)
	uploadStore, err := uploads.New(t.TempDir())
	require.NoError(t, err)
	h := New(svc, uploadStore, logger)

	r := chi.NewRouter()
	r.Route("/api/issuance", h.Routes)
	return r, mock
}

func issueRequest(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "degree.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 degree document"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/issuance", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	return map[string]string{
		"documentType":     "degree",
		"credentialName":   "BSc Computer Science",
		"description":      "First class honours",
		"holder":           holderAddress,
		"recipientName":    "Alice",
		"issuer":           ownerAddress,
		"fromOrganisation": "Dhruva University",
		"expiryDate":       strconv.FormatInt(expiry, 10),
	}
}

func TestIssueEndpoint(t *testing.T) {
	t.Run("issues credential end to end", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rr := testutil.DoRequest(router, issueRequest(t, validFields(), true))
		require.Equal(t, http.StatusCreated, rr.Code)

		var result service.Result
		testutil.DecodeJSON(t, rr, &result)
		assert.Len(t, result.Hash, 66)
		assert.Equal(t, issuance.StateComplete, result.Intent.State)
		assert.Contains(t, result.Intent.Record.FileURL, "/uploads/")
	})

	t.Run("missing file", func(t *testing.T) {
		router, _ := newTestRouter(t)
		rr := testutil.DoRequest(router, issueRequest(t, validFields(), false))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("past expiry", func(t *testing.T) {
		router, _ := newTestRouter(t)
		fields := validFields()
		fields["expiryDate"] = "1577836800000" // 2020-01-01
		rr := testutil.DoRequest(router, issueRequest(t, fields, true))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("registry outage returns accepted", func(t *testing.T) {
		router, mock := newTestRouter(t)
		mock.Unavailable = true

		rr := testutil.DoRequest(router, issueRequest(t, validFields(), true))
		require.Equal(t, http.StatusAccepted, rr.Code)

		var result service.Result
		testutil.DecodeJSON(t, rr, &result)
		assert.Equal(t, issuance.StatePending, result.Intent.State)
	})
}

func TestRejectedIssueKeepsNoFile(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	mock := registry.NewMock(ownerAddress, contractAddress)
	svc := service.New(store.NewMemory(), credstore.NewMemory(), mock, nil, nil, testMetrics, logger)
	dir := t.TempDir()
	uploadStore, err := uploads.New(dir)
	require.NoError(t, err)
	h := New(svc, uploadStore, logger)
	r := chi.NewRouter()
	r.Route("/api/issuance", h.Routes)

	// Pinned request time makes both requests hash identically.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rr := testutil.DoRequest(r, testutil.WithTime(issueRequest(t, validFields(), true), now))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = testutil.DoRequest(r, testutil.WithTime(issueRequest(t, validFields(), true), now))
	require.Equal(t, http.StatusConflict, rr.Code)

	// Only the accepted issuance's document survives on disk.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIntentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, issueRequest(t, validFields(), true))
	require.Equal(t, http.StatusCreated, rr.Code)
	var result service.Result
	testutil.DecodeJSON(t, rr, &result)

	t.Run("found", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/issuance/intents/"+result.Intent.ID))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/issuance/intents/does-not-exist"))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRevokeEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)

	rr := testutil.DoRequest(router, issueRequest(t, validFields(), true))
	require.Equal(t, http.StatusCreated, rr.Code)
	var result service.Result
	testutil.DecodeJSON(t, rr, &result)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost,
		"/api/issuance/"+result.Hash+"/revoke"))
	require.Equal(t, http.StatusOK, rr.Code)

	fact, err := mock.Verify(context.Background(), result.Hash)
	require.NoError(t, err)
	assert.True(t, fact.Revoked)
}
