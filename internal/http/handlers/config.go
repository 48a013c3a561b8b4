package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/http/response"
	"github.com/yungbote/papaya-ledger/internal/platform/ctxutil"
	"github.com/yungbote/papaya-ledger/internal/services"
)

type ConfigHandler struct {
	config services.ConfigService
}

func NewConfigHandler(config services.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

// GET /api/config
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.config.Get(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": cfg})
}

type saveConfigRequest struct {
	CurrencyCode string           `json:"currencyCode"`
	BonusRate    *decimal.Decimal `json:"bonusRate"`
	FixedPerTask *decimal.Decimal `json:"fixedPerTask"`
}

// PUT /api/config
func (h *ConfigHandler) Save(c *gin.Context) {
	var req saveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	cfg, err := h.config.Save(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), services.ConfigPatch{
		CurrencyCode: req.CurrencyCode,
		BonusRate:    req.BonusRate,
		FixedPerTask: req.FixedPerTask,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": cfg})
}
