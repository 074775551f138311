package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dhruva/internal/platform/middleware"
	"dhruva/internal/transport/http/shared"
	"dhruva/internal/user"
	"dhruva/internal/user/service"
	dErrors "dhruva/pkg/domain-errors"
)

// Handler exposes the account API.
type Handler struct {
	service   *service.Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(svc *service.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: svc, validator: validator, logger: logger}
}

// Routes mounts the user endpoints. Profile updates require a session
// token whose wallet the service checks against the target address.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/auth", h.auth)
	r.Post("/link-wallet", h.linkWallet)
	r.Get("/{walletAddress}", h.getProfile)
	r.With(middleware.RequireAuth(h.validator, h.logger)).Put("/{walletAddress}", h.updateProfile)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var params service.SignupParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	session, err := h.service.Signup(r.Context(), params)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) auth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	session, err := h.service.Auth(r.Context(), req.WalletAddress)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) linkWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username      string `json:"username"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := h.service.LinkWallet(r.Context(), req.Username, req.WalletAddress)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetByWallet(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update user.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "walletAddress"), update)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}
