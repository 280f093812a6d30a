package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/httputil"
	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/limits"
	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	appmw "github.com/Clemergorges/globalsecure-sub002/internal/middleware"
	"github.com/Clemergorges/globalsecure-sub002/internal/models"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/quote"
	"github.com/Clemergorges/globalsecure-sub002/internal/settlement"
	"github.com/Clemergorges/globalsecure-sub002/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Core is the settlement orchestrator the transfer endpoints drive. Wired once
// at startup from cmd/server.
var Core *settlement.Orchestrator

func Init(o *settlement.Orchestrator) {
	Core = o
}

type QuoteRequest struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type QuoteResponse struct {
	ID                string    `json:"id"`
	SourceAmount      string    `json:"source_amount"`
	SourceCurrency    string    `json:"source_currency"`
	TargetCurrency    string    `json:"target_currency"`
	FeeAmount         string    `json:"fee_amount"`
	FeePercent        string    `json:"fee_percent"`
	ExchangeRate      string    `json:"exchange_rate"`
	EstimatedReceived string    `json:"estimated_received"`
	ExpiresAt         time.Time `json:"expires_at"`
}

func quoteResponse(q *quote.Quote) QuoteResponse {
	return QuoteResponse{
		ID:                q.ID.String(),
		SourceAmount:      q.SourceAmount.Amount.String(),
		SourceCurrency:    string(q.SourceAmount.Currency),
		TargetCurrency:    string(q.TargetCurrency),
		FeeAmount:         q.FeeAmount.Amount.String(),
		FeePercent:        q.FeePercent.String(),
		ExchangeRate:      q.ExchangeRate.String(),
		EstimatedReceived: q.EstimatedReceived.Amount.String(),
		ExpiresAt:         q.ExpiresAt,
	}
}

func QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := money.FromString(req.Amount, money.Currency(req.From))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	q, err := Core.Quote(amount, money.Currency(req.To))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, quoteResponse(q))
}

type TransferRequest struct {
	QuoteID            string `json:"quote_id"`
	SenderAccountID    uint64 `json:"sender_account_id"`
	RecipientAccountID uint64 `json:"recipient_account_id"`
}

type TransferResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Quote       *QuoteResponse `json:"quote,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

func TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := appmw.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quoteID, err := uuid.Parse(req.QuoteID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	// Only the sender's owner may settle against the account.
	var sender models.Account
	if err := store.DB.First(&sender, req.SenderAccountID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sender account not found")
		return
	}
	if sender.UserID != userID {
		httputil.WriteError(w, http.StatusForbidden, "sender account does not belong to user")
		return
	}

	t, err := Core.Settle(r.Context(), quoteID, req.SenderAccountID, req.RecipientAccountID)
	if err != nil {
		if errors.Is(err, settlement.ErrLedgerCommit) {
			logger.Log.Error("settlement failed after admission",
				zap.String("transfer_id", t.ID.String()), zap.Error(err))
		}
		writeCoreError(w, err)
		return
	}

	resp := TransferResponse{
		ID:          t.ID.String(),
		Status:      string(t.Status),
		CompletedAt: t.CompletedAt,
	}
	if t.Quote != nil {
		q := quoteResponse(t.Quote)
		resp.Quote = &q
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// writeCoreError maps the core's typed rejections onto HTTP statuses without
// losing the reason code or, for limit rejections, the kind and threshold.
func writeCoreError(w http.ResponseWriter, err error) {
	var limitErr *limits.Error
	if errors.As(err, &limitErr) {
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{
			Error:     limitErr.Error(),
			Code:      "LIMIT_EXCEEDED",
			LimitKind: string(limitErr.Kind),
			Threshold: limitErr.Threshold.String(),
		})
		return
	}

	switch {
	case errors.Is(err, quote.ErrInvalidAmount),
		errors.Is(err, money.ErrPrecision),
		errors.Is(err, money.ErrUnknownCurrency):
		httputil.WriteErrorResponse(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Code: "INVALID_AMOUNT"})
	case errors.Is(err, quote.ErrUnsupportedPair):
		httputil.WriteErrorResponse(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Code: "UNSUPPORTED_CURRENCY_PAIR"})
	case errors.Is(err, settlement.ErrQuoteExpired):
		httputil.WriteErrorResponse(w, http.StatusGone, httputil.ErrorResponse{Error: err.Error(), Code: "QUOTE_EXPIRED"})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: err.Error(), Code: "INSUFFICIENT_FUNDS"})
	case errors.Is(err, ledger.ErrUnknownAccount):
		httputil.WriteErrorResponse(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error(), Code: "UNKNOWN_ACCOUNT"})
	case errors.Is(err, ledger.ErrUnsupportedCurrency):
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: err.Error(), Code: "UNSUPPORTED_CURRENCY"})
	case errors.Is(err, settlement.ErrLedgerCommit):
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error(), Code: "LEDGER_COMMIT_FAILURE"})
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
