package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"callerlens/internal/httpx"
	"callerlens/internal/server/middleware"
	"callerlens/internal/user/domain"
	"callerlens/internal/user/service"
)

// HTTP serves registration, login, and profile endpoints.
type HTTP struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewHTTP returns the user HTTP handler.
func NewHTTP(auth *service.AuthService, logger *zap.Logger) *HTTP {
	return &HTTP{auth: auth, logger: logger}
}

// PublicRoutes mounts the unauthenticated endpoints.
func (h *HTTP) PublicRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// ProtectedRoutes mounts the endpoints that require a bearer token.
func (h *HTTP) ProtectedRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Put("/profile", h.updateProfile)
	r.Put("/password", h.changePassword)
}

type userPayload struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       *string    `json:"email"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toUserPayload(u *domain.User) userPayload {
	p := userPayload{
		ID:          u.ID,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.Email != "" {
		email := u.Email
		p.Email = &email
	}
	return p
}

func (h *HTTP) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.auth.Register(r.Context(), req.Name, req.PhoneNumber, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	httpx.Created(w, "User registered successfully", map[string]any{
		"user":  toUserPayload(res.User),
		"token": res.Token,
	})
}

func (h *HTTP) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.auth.Login(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	httpx.OKMessage(w, "Login successful", map[string]any{
		"user":  toUserPayload(res.User),
		"token": res.Token,
	})
}

func (h *HTTP) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	u, err := h.auth.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"user": toUserPayload(u)})
}

func (h *HTTP) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.auth.UpdateProfile(r.Context(), userID, req.Name, req.Email)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	httpx.OKMessage(w, "Profile updated successfully", map[string]any{"user": toUserPayload(u)})
}

func (h *HTTP) changePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeAuthError(w, err)
		return
	}
	httpx.OKMessage(w, "Password changed successfully", nil)
}

func (h *HTTP) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountDisabled):
		httpx.Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPhoneAlreadyRegistered), errors.Is(err, service.ErrEmailAlreadyRegistered):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("auth request failed", zap.Error(err))
		httpx.Fail(w, http.StatusInternalServerError, "internal server error")
	}
}
