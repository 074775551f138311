package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dhruva/internal/credential"
	"dhruva/internal/issuance"
	"dhruva/internal/issuance/service"
	"dhruva/internal/transport/http/shared"
	"dhruva/internal/uploads"
	dErrors "dhruva/pkg/domain-errors"
)

const maxUploadBytes = 10 << 20

// Handler exposes the orchestrated issuance API.
type Handler struct {
	service *service.Service
	uploads *uploads.Store
	logger  *slog.Logger
}

func New(svc *service.Service, uploadStore *uploads.Store, logger *slog.Logger) *Handler {
	return &Handler{service: svc, uploads: uploadStore, logger: logger}
}

// Routes mounts the issuance endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.issue)
	r.Post("/{hash}/revoke", h.revoke)
	r.Get("/intents/{id}", h.getIntent)
}

// issue accepts the same multipart shape as the plain credential POST but
// runs the full orchestration: both hashes are computed server side.
func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	req := service.Request{
		DocumentType:     r.FormValue("documentType"),
		CredentialName:   r.FormValue("credentialName"),
		Description:      r.FormValue("description"),
		Holder:           r.FormValue("holder"),
		RecipientName:    r.FormValue("recipientName"),
		Issuer:           r.FormValue("issuer"),
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
		req.ExpiryDate = ms
	}

	if raw := r.FormValue("credentialSubject"); raw != "" {
		var subject credential.Subject
		if err := json.Unmarshal([]byte(raw), &subject); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "credentialSubject must be valid JSON"))
			return
		}
		req.Subject = &subject
	}

	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "metadata must be valid JSON"))
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "credential document file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to read uploaded file"))
		return
	}
	if len(data) > maxUploadBytes {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "uploaded file exceeds 10MB limit"))
		return
	}
	req.File = data

	name, err := h.uploads.Save(bytes.NewReader(data), header.Filename)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save uploaded file", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to save uploaded file"))
		return
	}
	req.FileURL = uploads.URLFor(baseURL(r), name)

	result, err := h.service.Issue(r.Context(), req)
	if err != nil {
		// The document belongs to no record; don't leave it on disk.
		if rmErr := h.uploads.Remove(name); rmErr != nil {
			h.logger.WarnContext(r.Context(), "failed to remove orphaned upload", "file", name, "error", rmErr)
		}
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Intent.State != issuance.StateComplete {
		// Queued behind a registry outage or a partial write.
		status = http.StatusAccepted
	}
	shared.WriteJSON(w, status, result)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "hash")); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func (h *Handler) getIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := h.service.GetIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, intent)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
