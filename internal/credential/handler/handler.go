package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dhruva/internal/credential"
	"dhruva/internal/credential/service"
	"dhruva/internal/transport/http/shared"
	"dhruva/internal/uploads"
	dErrors "dhruva/pkg/domain-errors"
)

const maxUploadBytes = 10 << 20 // matches the original 10MB multer limit

// Handler exposes the off-chain credential API.
type Handler struct {
	service *service.Service
	uploads *uploads.Store
	logger  *slog.Logger
}

func New(svc *service.Service, uploadStore *uploads.Store, logger *slog.Logger) *Handler {
	return &Handler{service: svc, uploads: uploadStore, logger: logger}
}

// Routes mounts the credential endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/holder/{address}", h.listByHolder)
	r.Get("/issuer/{address}", h.listByIssuer)
	r.Get("/hash/{hash}", h.getByHash)
	r.Get("/verify/{hash}", h.verify)
	r.Post("/batch-verify", h.batchVerify)
}

// create accepts multipart form data: scalar fields plus optional JSON
// blobs (credentialSubject, metadata) and an optional document file.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	rec := &credential.Record{
		Hash:             r.FormValue("hash"),
		Issuer:           r.FormValue("issuer"),
		Holder:           r.FormValue("holder"),
		CredentialName:   r.FormValue("credentialName"),
		Description:      r.FormValue("description"),
		DocumentType:     r.FormValue("documentType"),
		FromOrganisation: r.FormValue("fromOrganisation"),
		HolderDID:        r.FormValue("holderDID"),
		IssuerDID:        r.FormValue("issuerDID"),
	}

	if v := r.FormValue("expiryDate"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expiryDate must be epoch milliseconds"))
			return
		}
		rec.ExpiryDate = ms
	}

	if raw := r.FormValue("credentialSubject"); raw != "" {
		var subject credential.Subject
		if err := json.Unmarshal([]byte(raw), &subject); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "credentialSubject must be valid JSON"))
			return
		}
		rec.Subject = &subject
	}

	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "metadata must be valid JSON"))
			return
		}
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		name, saveErr := h.uploads.Save(file, header.Filename)
		if saveErr != nil {
			h.logger.ErrorContext(r.Context(), "failed to save uploaded file", "error", saveErr)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to save uploaded file"))
			return
		}
		rec.FileURL = uploads.URLFor(baseURL(r), name)
	}

	stored, err := h.service.Create(r.Context(), rec)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, stored)
}

func (h *Handler) listByHolder(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListByHolder(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []*credential.Record{}
	}
	shared.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler) listByIssuer(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListByIssuer(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []*credential.Record{}
	}
	shared.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler) getByHash(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.VerifyOffChain(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusNotFound
	}
	shared.WriteJSON(w, status, result)
}

func (h *Handler) batchVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hashes []string `json:"hashes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	results, err := h.service.BatchVerify(r.Context(), req.Hashes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
