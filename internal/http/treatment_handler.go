package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"wisefido-therapy/internal/client"
	"wisefido-therapy/internal/models"
	"wisefido-therapy/internal/service"
	"wisefido-therapy/internal/timeline"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TreatmentHandler 治疗数据 API
// 兜底策略在 service 层已经应用完毕，这里只做参数解析和包装；
// 唯一向上穿透的失败是重新认证信号（60401 + HTTP 401）
type TreatmentHandler struct {
	svc    *service.TreatmentService
	logger *zap.Logger
}

func NewTreatmentHandler(svc *service.TreatmentService, logger *zap.Logger) *TreatmentHandler {
	return &TreatmentHandler{svc: svc, logger: logger}
}

// GetTimeline GET /therapy/api/v1/treatment/timeline?user_id&date&scope&session_id&set_id
func (h *TreatmentHandler) GetTimeline(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	userID, date := q.Get("user_id"), q.Get("date")
	if userID == "" || date == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id and date are required"))
		return
	}
	scope := timeline.Scope(q.Get("scope"))
	switch scope {
	case timeline.ScopeSet, timeline.ScopeSession, timeline.ScopeDay:
	case "":
		scope = timeline.ScopeDay
	default:
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unknown scope %q", scope)))
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	samples, err := h.svc.Timeline(req.Context(), requestID, userID, date, scope, q.Get("session_id"), q.Get("set_id"))
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if samples == nil {
		samples = []models.PressureSample{}
	}
	writeJSON(w, http.StatusOK, Ok(samples))
}

// GetBreaths GET /therapy/api/v1/treatment/breaths?user_id&date&session_id&set_id
func (h *TreatmentHandler) GetBreaths(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	userID, date := q.Get("user_id"), q.Get("date")
	if userID == "" || date == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id and date are required"))
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	breaths, err := h.svc.Breaths(req.Context(), requestID, userID, date, q.Get("session_id"), q.Get("set_id"))
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if breaths == nil {
		breaths = []models.BreathSummary{}
	}
	writeJSON(w, http.StatusOK, Ok(breaths))
}

// GetCompliance GET /therapy/api/v1/compliance?user_id&from&to&compare_from&compare_to
func (h *TreatmentHandler) GetCompliance(w http.ResponseWriter, req *http.Request) {
	report, _, _ := h.complianceReport(w, req)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// ExportCompliance GET /therapy/api/v1/compliance/export?user_id&from&to
func (h *TreatmentHandler) ExportCompliance(w http.ResponseWriter, req *http.Request) {
	report, requestID, _ := h.complianceReport(w, req)
	if report == nil {
		return
	}

	data, err := GenerateComplianceExport(report)
	if err != nil {
		h.logger.Error("failed to generate compliance export",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("compliance_%s_%s_%s.xlsx", report.UserID, report.From, report.To)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// complianceReport 两个依从性端点共用的取数逻辑；出错时已写好响应并返回 nil
func (h *TreatmentHandler) complianceReport(w http.ResponseWriter, req *http.Request) (*service.ComplianceReport, string, error) {
	q := req.URL.Query()
	userID, from, to := q.Get("user_id"), q.Get("from"), q.Get("to")
	if userID == "" || from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id, from and to are required"))
		return nil, "", nil
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	report, err := h.svc.Compliance(req.Context(), requestID, userID, from, to, q.Get("compare_from"), q.Get("compare_to"))
	if err != nil {
		h.writeError(w, requestID, err)
		return nil, requestID, err
	}
	return report, requestID, nil
}

// GetParticipant GET /therapy/api/v1/participant?user_id
func (h *TreatmentHandler) GetParticipant(w http.ResponseWriter, req *http.Request) {
	userID := req.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id is required"))
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	p, err := h.svc.Participant(req.Context(), requestID, userID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *TreatmentHandler) writeError(w http.ResponseWriter, requestID string, err error) {
	if errors.Is(err, client.ErrReauthRequired) {
		writeJSON(w, http.StatusUnauthorized, TokenExpired())
		return
	}
	h.logger.Warn("request failed",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
}
