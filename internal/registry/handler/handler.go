package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dhruva/internal/registry"
	"dhruva/internal/transport/http/shared"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/platform/sentinel"
)

// Handler exposes the raw contract surface: issuer authorization, DID
// bindings, document anchors and per-address credential hash lists. Verdict
// merging lives in the verify package; everything here is a pass-through.
type Handler struct {
	registry registry.Registry
}

func New(reg registry.Registry) *Handler {
	return &Handler{registry: reg}
}

// Routes mounts the registry endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/issuers/{address}", h.issuerStatus)
	r.Post("/issuers/{address}/authorize", h.authorizeIssuer)
	r.Post("/issuers/{address}/revoke", h.revokeIssuer)

	r.Post("/did", h.registerDID)
	r.Get("/did/{address}", h.didOf)

	r.Post("/documents", h.registerDocument)
	r.Get("/documents/{hash}", h.documentStatus)

	r.Get("/holders/{address}/credentials", h.holderCredentials)
	r.Get("/issuers/{address}/credentials", h.issuerCredentials)
}

func (h *Handler) issuerStatus(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	authorized, err := h.registry.IsAuthorizedIssuer(r.Context(), address)
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	owner, err := h.registry.Owner(r.Context())
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"address":    address,
		"authorized": authorized,
		"owner":      owner,
	})
}

func (h *Handler) authorizeIssuer(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.AuthorizeIssuer(r.Context(), chi.URLParam(r, "address")); err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"authorized": true})
}

func (h *Handler) revokeIssuer(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.RevokeIssuer(r.Context(), chi.URLParam(r, "address")); err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"authorized": false})
}

func (h *Handler) registerDID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DID string `json:"did"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "did is required"))
		return
	}
	if err := h.registry.RegisterDID(r.Context(), req.DID); err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"did": req.DID})
}

func (h *Handler) didOf(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	did, err := h.registry.DIDOf(r.Context(), address)
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	if did == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no DID registered for this address"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"address": address, "did": did})
}

func (h *Handler) registerDocument(w http.ResponseWriter, r *http.Request) {
	var params registry.DocumentParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if _, err := registry.ParseHash(params.Hash); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document hash"))
		return
	}
	if err := h.registry.RegisterDocument(r.Context(), params); err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"hash": params.Hash, "registered": true})
}

func (h *Handler) documentStatus(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	registered, err := h.registry.IsDocumentRegistered(r.Context(), hash)
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"hash": hash, "registered": registered})
}

func (h *Handler) holderCredentials(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.registry.HolderCredentials(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	if hashes == nil {
		hashes = []string{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"hashes": hashes})
}

func (h *Handler) issuerCredentials(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.registry.IssuerCredentials(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, translate(err))
		return
	}
	if hashes == nil {
		hashes = []string{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"hashes": hashes})
}

// translate maps gateway errors onto the response codes: unreachable RPC is
// 503, everything else surfaces as a contract rejection.
func translate(err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.New(dErrors.CodeUnavailable, "registry unavailable")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "not found on chain")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "contract call rejected")
}
