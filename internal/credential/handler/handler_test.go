package handler

import (
	"bytes"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhruva/internal/credential"
	"dhruva/internal/credential/service"
	"dhruva/internal/credential/store"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/transport/http/shared"
	"dhruva/internal/uploads"
	"dhruva/pkg/testutil"
)

var testMetrics = metrics.New()

const (
	testHash   = "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
	testIssuer = "0xaaaa000000000000000000000000000000000001"
	testHolder = "0xbbbb000000000000000000000000000000000002"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	uploadStore, err := uploads.New(t.TempDir())
	require.NoError(t, err)
	svc := service.New(store.NewMemory(), nil, testMetrics, logger, "http://localhost:5173")
	h := New(svc, uploadStore, logger)

	r := chi.NewRouter()
	r.Route("/api/credentials", h.Routes)
	return r
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, fileBody []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/credentials", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"hash":           testHash,
		"issuer":         testIssuer,
		"holder":         testHolder,
		"credentialName": "BSc Computer Science",
		"expiryDate":     "1893456000000",
	}
}

func TestCreateCredential(t *testing.T) {
	t.Run("stores record from multipart form", func(t *testing.T) {
		router := newTestRouter(t)

		fields := validFields()
		fields["credentialSubject"] = `{"degreeName":"BSc","graduationYear":"2026"}`
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		req := testutil.WithTime(multipartRequest(t, fields, "degree.pdf", []byte("%PDF-1.4")), now)
		rr := testutil.DoRequest(router, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var rec credential.Record
		testutil.DecodeJSON(t, rr, &rec)
		assert.Equal(t, testHash, rec.Hash)
		assert.Equal(t, testIssuer, rec.Issuer)
		require.NotNil(t, rec.Subject)
		assert.Equal(t, "BSc", rec.Subject.DegreeName)
		assert.Contains(t, rec.FileURL, "/uploads/")
		assert.True(t, rec.IssuedAt.Equal(now))
	})

	t.Run("missing required field", func(t *testing.T) {
		router := newTestRouter(t)

		fields := validFields()
		delete(fields, "holder")
		rr := testutil.DoRequest(router, multipartRequest(t, fields, "", nil))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var resp shared.ErrorResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Contains(t, resp.Message, "missing required fields")
	})

	t.Run("malformed credentialSubject JSON", func(t *testing.T) {
		router := newTestRouter(t)

		fields := validFields()
		fields["credentialSubject"] = "{not json"
		rr := testutil.DoRequest(router, multipartRequest(t, fields, "", nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("past expiry is still accepted", func(t *testing.T) {
		// The metadata store does not validate expiry; only the
		// orchestrated issuance path rejects past dates.
		router := newTestRouter(t)

		fields := validFields()
		fields["expiryDate"] = "1577836800000" // 2020-01-01
		rr := testutil.DoRequest(router, multipartRequest(t, fields, "", nil))
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("duplicate hash conflicts", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
		require.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestGetByHash(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("found", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/credentials/hash/"+testHash))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		missing := "0x1111111111111111111111111111111111111111111111111111111111111111"
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/credentials/hash/"+missing))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListEndpoints(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("holder list is case insensitive", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/credentials/holder/0xBBBB000000000000000000000000000000000002"))
		require.Equal(t, http.StatusOK, rr.Code)
		var recs []credential.Record
		testutil.DecodeJSON(t, rr, &recs)
		assert.Len(t, recs, 1)
	})

	t.Run("unknown issuer returns empty array", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/credentials/issuer/0x9999000000000000000000000000000000000009"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})
}

func TestVerifyEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("found", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/credentials/verify/"+testHash))
		require.Equal(t, http.StatusOK, rr.Code)

		var result service.VerifyResult
		testutil.DecodeJSON(t, rr, &result)
		assert.True(t, result.Valid)
		assert.Equal(t, "http://localhost:5173/verify?hash="+testHash, result.VerificationURL)
	})

	t.Run("missing", func(t *testing.T) {
		missing := "0x1111111111111111111111111111111111111111111111111111111111111111"
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/credentials/verify/"+missing))
		require.Equal(t, http.StatusNotFound, rr.Code)

		var result service.VerifyResult
		testutil.DecodeJSON(t, rr, &result)
		assert.False(t, result.Valid)
	})
}

func TestBatchVerify(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, multipartRequest(t, validFields(), "", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("mixed results in input order", func(t *testing.T) {
		missing := "0x1111111111111111111111111111111111111111111111111111111111111111"
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/credentials/batch-verify",
			map[string]any{"hashes": []string{missing, testHash}})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Results []credential.BatchResult `json:"results"`
		}
		testutil.DecodeJSON(t, rr, &resp)
		require.Len(t, resp.Results, 2)
		assert.False(t, resp.Results[0].Found)
		assert.True(t, resp.Results[1].Found)
	})

	t.Run("empty hashes rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/credentials/batch-verify",
			map[string]any{"hashes": []string{}})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
