package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
	"github.com/yungbote/papaya-ledger/internal/http/response"
	"github.com/yungbote/papaya-ledger/internal/platform/ctxutil"
	"github.com/yungbote/papaya-ledger/internal/services"
)

const dayLayout = "2006-01-02"

type TransactionHandler struct {
	txns services.TransactionService
}

func NewTransactionHandler(txns services.TransactionService) *TransactionHandler {
	return &TransactionHandler{txns: txns}
}

// GET /api/transactions?q=&type=&owner=&member=&from=&to=&limit=
func (h *TransactionHandler) List(c *gin.Context) {
	filter := domain.TransactionFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		Type:   domain.TransactionType(strings.TrimSpace(c.Query("type"))),
		Owner:  strings.TrimSpace(c.Query("owner")),
		Member: strings.TrimSpace(c.Query("member")),
	}
	var err error
	if filter.From, err = parseBound(c.Query("from"), false); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	if filter.To, err = parseBound(c.Query("to"), true); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), errors.New("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	rows, err := h.txns.List(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), filter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if rows == nil {
		rows = []*domain.Transaction{}
	}
	response.RespondOK(c, gin.H{"transactions": rows})
}

type createTransactionRequest struct {
	MemberID      uuid.UUID        `json:"memberId"`
	Type          string           `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	Fee           decimal.Decimal  `json:"fee"`
	Note          string           `json:"note"`
	BonusRate     *decimal.Decimal `json:"bonusRate"`
	CryptoAddress *string          `json:"cryptoAddress"`
	BankDetails   *string          `json:"bankDetails"`
	OccurredAt    *time.Time       `json:"occurredAt"`
}

// POST /api/transactions
// A replay of an Idempotency-Key answers 200 with the original transaction.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	res, err := h.txns.Create(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), domainagg.CreateTransactionInput{
		MemberID:       req.MemberID,
		Type:           req.Type,
		Amount:         req.Amount,
		Fee:            req.Fee,
		Note:           req.Note,
		BonusRate:      req.BonusRate,
		CryptoAddress:  req.CryptoAddress,
		BankDetails:    req.BankDetails,
		OccurredAt:     req.OccurredAt,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	body := gin.H{"transaction": res.Transaction, "member": res.Member, "replayed": res.Replayed}
	if res.Replayed {
		response.RespondOK(c, body)
		return
	}
	response.RespondCreated(c, body)
}

// updateTransactionRequest keeps the nullable fields raw so that an absent key leaves the
// value alone while an explicit null clears it.
type updateTransactionRequest struct {
	MemberID      *uuid.UUID       `json:"memberId"`
	Type          *string          `json:"type"`
	Amount        *decimal.Decimal `json:"amount"`
	Fee           *decimal.Decimal `json:"fee"`
	Note          *string          `json:"note"`
	OccurredAt    *time.Time       `json:"occurredAt"`
	BonusRate     json.RawMessage  `json:"bonusRate"`
	CryptoAddress json.RawMessage  `json:"cryptoAddress"`
	BankDetails   json.RawMessage  `json:"bankDetails"`
}

// PATCH /api/transactions/:id
func (h *TransactionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_transaction_id", err)
		return
	}
	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	in := domainagg.UpdateTransactionInput{
		TransactionID: id,
		MemberID:      req.MemberID,
		Type:          req.Type,
		Amount:        req.Amount,
		Fee:           req.Fee,
		Note:          req.Note,
		OccurredAt:    req.OccurredAt,
	}
	if in.BonusRate, err = optionalField[decimal.Decimal](req.BonusRate); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	if in.CryptoAddress, err = optionalField[string](req.CryptoAddress); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	if in.BankDetails, err = optionalField[string](req.BankDetails); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}

	res, err := h.txns.Update(c.Request.Context(), ctxutil.GetCaller(c.Request.Context()), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	body := gin.H{"transaction": res.Transaction, "member": res.OriginalMember}
	if res.TargetMember != nil {
		body["targetMember"] = res.TargetMember
	}
	response.RespondOK(c, body)
}

func optionalField[T any](raw json.RawMessage) (ledger.Optional[T], error) {
	if len(raw) == 0 {
		return ledger.Optional[T]{}, nil
	}
	if string(raw) == "null" {
		return ledger.Clear[T](), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return ledger.Optional[T]{}, err
	}
	return ledger.Some(v), nil
}

// parseBound accepts RFC3339 or a bare day. A bare upper bound covers the whole day.
func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return nil, errors.New("invalid date " + strconv.Quote(raw))
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
