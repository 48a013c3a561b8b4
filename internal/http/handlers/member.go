package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/http/response"
	"github.com/yungbote/papaya-ledger/internal/platform/ctxutil"
	"github.com/yungbote/papaya-ledger/internal/services"
)

type MemberHandler struct {
	members services.MemberService
}

func NewMemberHandler(members services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// GET /api/members
func (h *MemberHandler) List(c *gin.Context) {
	rows, err := h.members.List(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if rows == nil {
		rows = []*domain.Member{}
	}
	response.RespondOK(c, gin.H{"members": rows})
}

type createMemberRequest struct {
	Owner             string           `json:"owner"`
	Name              string           `json:"name"`
	WorkID            string           `json:"workId"`
	Group             string           `json:"group"`
	Opening           decimal.Decimal  `json:"opening"`
	BonusRateOverride *decimal.Decimal `json:"bonusRateOverride"`
}

// POST /api/members
func (h *MemberHandler) Create(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	m, err := h.members.Create(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), services.CreateMemberInput{
		Owner:             req.Owner,
		Name:              req.Name,
		WorkID:            req.WorkID,
		Group:             req.Group,
		Opening:           req.Opening,
		BonusRateOverride: req.BonusRateOverride,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"member": m})
}

// GET /api/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", err)
		return
	}
	m, err := h.members.Get(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"member": m})
}

type updateMemberRequest struct {
	Owner             *string          `json:"owner"`
	Name              *string          `json:"name"`
	WorkID            *string          `json:"workId"`
	Group             *string          `json:"group"`
	Opening           *decimal.Decimal `json:"opening"`
	BonusRateOverride json.RawMessage  `json:"bonusRateOverride"`
}

// PATCH /api/members/:id
// Employees editing their own members cannot change owner or bonusRateOverride.
func (h *MemberHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", err)
		return
	}
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	in := services.UpdateMemberInput{
		MemberID: id,
		Owner:    req.Owner,
		Name:     req.Name,
		WorkID:   req.WorkID,
		Group:    req.Group,
		Opening:  req.Opening,
	}
	if in.BonusRateOverride, err = optionalField[decimal.Decimal](req.BonusRateOverride); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	m, err := h.members.Update(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"member": m})
}
