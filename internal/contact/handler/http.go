package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"callerlens/internal/contact/service"
	"callerlens/internal/httpx"
	"callerlens/internal/server/middleware"
	"callerlens/internal/spam/scoring"
)

// HTTP serves the per-user contact book endpoints.
type HTTP struct {
	contacts *service.Service
	logger   *zap.Logger
}

// NewHTTP returns the contact HTTP handler.
func NewHTTP(contacts *service.Service, logger *zap.Logger) *HTTP {
	return &HTTP{contacts: contacts, logger: logger}
}

// Routes mounts the contact endpoints; all require authentication.
func (h *HTTP) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type contactPayload struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	Name             string            `json:"name"`
	PhoneNumber      string            `json:"phoneNumber"`
	Email            *string           `json:"email"`
	IsRegisteredUser bool              `json:"isRegisteredUser"`
	RegisteredUserID *string           `json:"registeredUserId"`
	SpamLikelihood   int               `json:"spamLikelihood"`
	RiskLevel        scoring.RiskLevel `json:"riskLevel"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func toContactPayload(c *service.ContactWithScore) contactPayload {
	p := contactPayload{
		ID:               c.ID,
		UserID:           c.UserID,
		Name:             c.Name,
		PhoneNumber:      c.PhoneNumber,
		IsRegisteredUser: c.IsRegisteredUser,
		SpamLikelihood:   c.SpamLikelihood,
		RiskLevel:        c.RiskLevel,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.Email != "" {
		email := c.Email
		p.Email = &email
	}
	if c.RegisteredUserID != "" {
		id := c.RegisteredUserID
		p.RegisteredUserID = &id
	}
	return p
}

type contactRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	page, limit := pagination(r)

	contacts, total, err := h.contacts.List(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]contactPayload, 0, len(contacts))
	for i := range contacts {
		payload = append(payload, toContactPayload(&contacts[i]))
	}
	httpx.OK(w, map[string]any{
		"contacts":   payload,
		"pagination": paginationPayload(page, limit, total),
	})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.contacts.Create(r.Context(), userID, req.Name, req.PhoneNumber, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.Created(w, "Contact added successfully", map[string]any{"contact": toContactPayload(c)})
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	c, err := h.contacts.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"contact": toContactPayload(c)})
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.contacts.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Name, req.PhoneNumber, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OKMessage(w, "Contact updated successfully", map[string]any{"contact": toContactPayload(c)})
}

func (h *HTTP) remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	if err := h.contacts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OKMessage(w, "Contact deleted successfully", nil)
}

func (h *HTTP) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrContactNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateContact):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("contact request failed", zap.Error(err))
		httpx.Fail(w, http.StatusInternalServerError, "internal server error")
	}
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paginationPayload(page, limit, total int) map[string]any {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return map[string]any{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	}
}
