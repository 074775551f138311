package verify

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dhruva/internal/transport/http/shared"
	dErrors "dhruva/pkg/domain-errors"
)

// Handler exposes the verification API.
type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

// Routes mounts the verification endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{hash}", h.verify)
	r.Post("/batch", h.batchVerify)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Verify(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

// batchVerify accepts either a JSON array of hashes or a single
// comma-separated string, matching what wallet clients actually send.
func (h *Handler) batchVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hashes json.RawMessage `json:"hashes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	hashes, err := decodeHashes(req.Hashes)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "hashes must be an array or a comma-separated string"))
		return
	}

	results, err := h.service.BatchVerify(r.Context(), hashes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func decodeHashes(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, err
	}
	var out []string
	for _, h := range strings.Split(joined, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}
