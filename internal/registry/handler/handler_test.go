package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhruva/internal/registry"
	"dhruva/pkg/testutil"
)

const (
	ownerAddress    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	contractAddress = "0xcccc000000000000000000000000000000000003"
	issuerAddress   = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	docHash         = "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
)

func newTestRouter(t *testing.T) (chi.Router, *registry.Mock) {
	t.Helper()
	mock := registry.NewMock(ownerAddress, contractAddress)
	h := New(mock)

	r := chi.NewRouter()
	r.Route("/api/registry", h.Routes)
	return r, mock
}

func TestIssuerStatusEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)
	require.NoError(t, mock.AuthorizeIssuer(context.Background(), issuerAddress))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/registry/issuers/"+issuerAddress))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Address    string `json:"address"`
		Authorized bool   `json:"authorized"`
		Owner      string `json:"owner"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	assert.True(t, resp.Authorized)
	assert.Equal(t, ownerAddress, resp.Owner)
}

func TestIssuerAuthorizationEndpoints(t *testing.T) {
	router, mock := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost,
		"/api/registry/issuers/"+issuerAddress+"/authorize"))
	require.Equal(t, http.StatusOK, rr.Code)

	ok, err := mock.IsAuthorizedIssuer(context.Background(), issuerAddress)
	require.NoError(t, err)
	assert.True(t, ok)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost,
		"/api/registry/issuers/"+issuerAddress+"/revoke"))
	require.Equal(t, http.StatusOK, rr.Code)

	ok, err = mock.IsAuthorizedIssuer(context.Background(), issuerAddress)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDIDEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("no DID registered", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/registry/did/"+ownerAddress))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("register and resolve", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/registry/did",
			map[string]any{"did": "did:ethr:" + ownerAddress})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/registry/did/"+ownerAddress))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("empty did rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/registry/did",
			map[string]any{"did": ""})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDocumentEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("not registered", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/registry/documents/"+docHash))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"registered":false`)
	})

	t.Run("register and check", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/registry/documents",
			map[string]any{
				"Hash":             docHash,
				"ValidFrom":        time.Now().Unix(),
				"ValidTo":          time.Now().Add(24 * time.Hour).Unix(),
				"OrganizationName": "Dhruva University",
			})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/registry/documents/"+docHash))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"registered":true`)
	})

	t.Run("malformed hash rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/registry/documents",
			map[string]any{"Hash": "0x123"})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCredentialListEndpoints(t *testing.T) {
	router, mock := newTestRouter(t)
	require.NoError(t, mock.Issue(context.Background(), registry.IssueParams{
		Holder:     issuerAddress,
		Hash:       docHash,
		ExpiryDate: time.Now().Add(24 * time.Hour).Unix(),
		Name:       "BSc Computer Science",
	}))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/registry/holders/"+issuerAddress+"/credentials"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), docHash)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/registry/issuers/"+ownerAddress+"/credentials"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), docHash)
}

func TestUnavailableRegistry(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.Unavailable = true

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/registry/issuers/"+issuerAddress))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
