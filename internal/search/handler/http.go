package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"callerlens/internal/httpx"
	"callerlens/internal/search/service"
	"callerlens/internal/server/middleware"
	"callerlens/internal/spam/scoring"
)

// HTTP serves the people-search endpoints.
type HTTP struct {
	search *service.Service
	logger *zap.Logger
}

// NewHTTP returns the search HTTP handler.
func NewHTTP(search *service.Service, logger *zap.Logger) *HTTP {
	return &HTTP{search: search, logger: logger}
}

// Routes mounts the search endpoints; all require authentication.
func (h *HTTP) Routes(r chi.Router) {
	r.Get("/", h.query)
	r.Get("/details/{phoneNumber}", h.details)
}

type resultPayload struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	PhoneNumber      string            `json:"phoneNumber"`
	Email            *string           `json:"email"`
	IsRegisteredUser bool              `json:"isRegisteredUser"`
	SpamLikelihood   int               `json:"spamLikelihood"`
	RiskLevel        scoring.RiskLevel `json:"riskLevel"`
	Source           service.Source    `json:"source"`
}

func toResultPayload(r service.Result) resultPayload {
	p := resultPayload{
		ID:               r.ID,
		Name:             r.Name,
		PhoneNumber:      r.PhoneNumber,
		IsRegisteredUser: r.IsRegistered,
		SpamLikelihood:   r.SpamLikelihood,
		RiskLevel:        r.RiskLevel,
		Source:           r.Source,
	}
	if r.Email != "" {
		email := r.Email
		p.Email = &email
	}
	return p
}

func (h *HTTP) query(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	q := r.URL.Query().Get("q")
	searchType := r.URL.Query().Get("type")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	var (
		results []service.Result
		err     error
	)
	if searchType == "phone" {
		results, err = h.search.ByPhone(r.Context(), userID, q)
	} else {
		results, err = h.search.ByName(r.Context(), userID, q, limit)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := make([]resultPayload, 0, len(results))
	for _, res := range results {
		payload = append(payload, toResultPayload(res))
	}
	httpx.OK(w, map[string]any{
		"results": payload,
		"pagination": map[string]any{
			"page":  page,
			"limit": limit,
			"total": len(payload),
		},
	})
}

func (h *HTTP) details(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	d, err := h.search.Details(r.Context(), userID, chi.URLParam(r, "phoneNumber"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	savedNames := make([]map[string]any, 0, len(d.SavedNames))
	for _, sn := range d.SavedNames {
		savedNames = append(savedNames, map[string]any{
			"name":    sn.Name,
			"addedBy": sn.AddedBy,
		})
	}

	byReason := make([]map[string]any, 0, len(d.Stats.ReportsByReason))
	for _, rc := range d.Stats.ReportsByReason {
		byReason = append(byReason, map[string]any{
			"reason": rc.Reason,
			"count":  rc.Count,
		})
	}

	var email *string
	if d.Email != "" {
		email = &d.Email
	}
	data := map[string]any{
		"phoneNumber":      d.PhoneNumber,
		"isRegisteredUser": d.IsRegistered,
		"email":            email,
		"spamStats": map[string]any{
			"totalReports":    d.Stats.TotalReports,
			"reportsByReason": byReason,
			"spamLikelihood":  d.Stats.SpamLikelihood,
		},
		"riskLevel": d.RiskLevel,
		"contacts":  savedNames,
	}
	if d.IsRegistered {
		data["registeredUser"] = map[string]any{
			"name":  d.Name,
			"email": email,
		}
	}
	httpx.OK(w, data)
}

func (h *HTTP) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("search request failed", zap.Error(err))
	httpx.Fail(w, http.StatusInternalServerError, "internal server error")
}
