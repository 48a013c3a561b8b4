package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/http/response"
	"github.com/yungbote/papaya-ledger/internal/platform/ctxutil"
	"github.com/yungbote/papaya-ledger/internal/services"
)

type ReportHandler struct {
	salary services.SalaryService
}

func NewReportHandler(salary services.SalaryService) *ReportHandler {
	return &ReportHandler{salary: salary}
}

// GET /api/reports/salary/today
func (h *ReportHandler) SalaryToday(c *gin.Context) {
	rep, err := h.salary.Today(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// GET /api/reports/salary?day=YYYY-MM-DD
func (h *ReportHandler) SalaryForDay(c *gin.Context) {
	rep, err := h.salary.ForDay(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), c.Query("day"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rep)
}

type rangeRequest struct {
	From string `json:"fromISO"`
	To   string `json:"toISO"`
}

// POST /api/reports/range
func (h *ReportHandler) Range(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	rows, err := h.salary.Range(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), req.From, req.To)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": rows})
}
