package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"callerlens/internal/httpx"
	"callerlens/internal/server/middleware"
	"callerlens/internal/spam/domain"
	"callerlens/internal/spam/scoring"
	"callerlens/internal/spam/service"
)

// HTTP serves the spam report ledger endpoints.
type HTTP struct {
	spam   *service.Service
	logger *zap.Logger
}

// NewHTTP returns the spam HTTP handler.
func NewHTTP(spam *service.Service, logger *zap.Logger) *HTTP {
	return &HTTP{spam: spam, logger: logger}
}

// Routes mounts the spam endpoints; all require authentication.
func (h *HTTP) Routes(r chi.Router) {
	r.Post("/report", h.report)
	r.Get("/stats/{phoneNumber}", h.stats)
	r.Get("/reports", h.listReports)
	r.Delete("/reports/{id}", h.deleteReport)
	r.Post("/reports/{id}/resolve", h.resolveReport)
	r.Get("/check/{phoneNumber}", h.check)
	r.Get("/trending", h.trending)
}

type reportPayload struct {
	ID          string        `json:"id"`
	PhoneNumber string        `json:"phoneNumber"`
	ReportedBy  string        `json:"reportedBy"`
	Reason      domain.Reason `json:"reason"`
	Description *string       `json:"description"`
	IsResolved  bool          `json:"isResolved"`
	ResolvedAt  *time.Time    `json:"resolvedAt"`
	ResolvedBy  *string       `json:"resolvedBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toReportPayload(rep *domain.Report) reportPayload {
	p := reportPayload{
		ID:          rep.ID,
		PhoneNumber: rep.PhoneNumber,
		ReportedBy:  rep.ReportedBy,
		Reason:      rep.Reason,
		IsResolved:  rep.IsResolved,
		ResolvedAt:  rep.ResolvedAt,
		CreatedAt:   rep.CreatedAt,
		UpdatedAt:   rep.UpdatedAt,
	}
	if rep.Description != "" {
		desc := rep.Description
		p.Description = &desc
	}
	if rep.ResolvedBy != "" {
		by := rep.ResolvedBy
		p.ResolvedBy = &by
	}
	return p
}

type statsPayload struct {
	TotalReports    int                  `json:"totalReports"`
	ReportsByReason []reasonCountPayload `json:"reportsByReason"`
	SpamLikelihood  int                  `json:"spamLikelihood"`
}

type reasonCountPayload struct {
	Reason domain.Reason `json:"reason"`
	Count  int           `json:"count"`
}

func toStatsPayload(s *service.Stats) statsPayload {
	byReason := make([]reasonCountPayload, 0, len(s.ReportsByReason))
	for _, rc := range s.ReportsByReason {
		byReason = append(byReason, reasonCountPayload{Reason: rc.Reason, Count: rc.Count})
	}
	return statsPayload{
		TotalReports:    s.TotalReports,
		ReportsByReason: byReason,
		SpamLikelihood:  s.SpamLikelihood,
	}
}

func (h *HTTP) report(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	var req struct {
		PhoneNumber string        `json:"phoneNumber"`
		Reason      domain.Reason `json:"reason"`
		Description string        `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep, err := h.spam.Report(r.Context(), userID, req.PhoneNumber, req.Reason, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.Created(w, "Spam report submitted successfully", map[string]any{"report": toReportPayload(rep)})
}

func (h *HTTP) stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	phoneNumber := chi.URLParam(r, "phoneNumber")

	stats, err := h.spam.Stats(r.Context(), phoneNumber)
	if err != nil {
		h.writeError(w, err)
		return
	}
	own, err := h.spam.ReportFor(r.Context(), userID, phoneNumber)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data := map[string]any{
		"phoneNumber":  phoneNumber,
		"spamStats":    toStatsPayload(stats),
		"userReported": own != nil,
	}
	if own != nil {
		data["userReport"] = toReportPayload(own)
	} else {
		data["userReport"] = nil
	}
	httpx.OK(w, data)
}

func (h *HTTP) listReports(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	page, limit := pagination(r)

	reports, total, err := h.spam.ListReports(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]reportPayload, 0, len(reports))
	for _, rep := range reports {
		payload = append(payload, toReportPayload(rep))
	}
	httpx.OK(w, map[string]any{
		"reports":    payload,
		"pagination": paginationPayload(page, limit, total),
	})
}

func (h *HTTP) deleteReport(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	if err := h.spam.DeleteReport(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OKMessage(w, "Spam report deleted successfully", nil)
}

func (h *HTTP) resolveReport(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	rep, err := h.spam.ResolveReport(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OKMessage(w, "Spam report resolved successfully", map[string]any{"report": toReportPayload(rep)})
}

func (h *HTTP) check(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	res, err := h.spam.Check(r.Context(), userID, chi.URLParam(r, "phoneNumber"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.OK(w, map[string]any{
		"phoneNumber":    res.PhoneNumber,
		"spamLikelihood": res.SpamLikelihood,
		"isSpam":         res.IsSpam,
		"recentReports":  res.RecentReports,
		"userReported":   res.UserReported,
		"riskLevel":      res.RiskLevel,
	})
}

type trendingPayload struct {
	PhoneNumber    string            `json:"phoneNumber"`
	ReportCount    int               `json:"reportCount"`
	SpamLikelihood int               `json:"spamLikelihood"`
	RiskLevel      scoring.RiskLevel `json:"riskLevel"`
}

func (h *HTTP) trending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.spam.Trending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]trendingPayload, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, trendingPayload{
			PhoneNumber:    e.PhoneNumber,
			ReportCount:    e.ReportCount,
			SpamLikelihood: e.SpamLikelihood,
			RiskLevel:      e.RiskLevel,
		})
	}
	httpx.OK(w, map[string]any{
		"trending": payload,
		"period":   "7_days",
	})
}

func (h *HTTP) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrReportNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyReported):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("spam request failed", zap.Error(err))
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
