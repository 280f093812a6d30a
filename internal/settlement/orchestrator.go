package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/limits"
	"github.com/Clemergorges/globalsecure-sub002/internal/metrics"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/quote"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Status string

const (
	StatusQuoted       Status = "QUOTED"
	StatusLimitChecked Status = "LIMIT_CHECKED"
	StatusCommitted    Status = "COMMITTED"
	StatusRejected     Status = "REJECTED"
	StatusFailed       Status = "FAILED"
)

var (
	ErrQuoteExpired = errors.New("quote expired")
	// ErrLedgerCommit marks a ledger mutation failure after admission. The
	// ledger guarantees no partial balance change persisted; the caller may
	// resubmit with a fresh quote.
	ErrLedgerCommit = errors.New("ledger commit failure")
)

// Transfer is one settlement attempt in a terminal state.
type Transfer struct {
	ID                 uuid.UUID
	QuoteID            uuid.UUID
	SenderAccountID    uint64
	RecipientAccountID uint64
	Quote              *quote.Quote
	Status             Status
	Reason             string
	CompletedAt        time.Time
}

// TierSource supplies an account's current KYC tier.
type TierSource interface {
	Tier(ctx context.Context, accountID uint64) (limits.Tier, error)
}

// Recorder persists terminal transfer outcomes.
type Recorder interface {
	Record(ctx context.Context, t *Transfer) error
}

// Deps wires the orchestrator. Clock is injected for determinism.
type Deps struct {
	Quoter      *quote.Quoter
	Quotes      *quote.Store
	Checker     *limits.Checker
	Ledger      ledger.AccountLedger
	Tiers       TierSource
	Recorder    Recorder
	RefCurrency money.Currency
	Clock       func() time.Time
	Log         *zap.Logger
}

// Orchestrator runs the admission-and-commit protocol for one transfer:
// quote lookup and expiry, tier limit check, then the atomic ledger mutation.
// Nothing is retried; every outcome is terminal.
type Orchestrator struct {
	deps    Deps
	senders *accountLocks
}

func New(deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Orchestrator{deps: deps, senders: newAccountLocks()}
}

// Quote prices a conversion and registers the result for later settlement.
func (o *Orchestrator) Quote(amount money.Money, to money.Currency) (*quote.Quote, error) {
	q, err := o.deps.Quoter.Price(amount, to, o.deps.Clock())
	if err != nil {
		metrics.QuotesPriced.WithLabelValues("rejected").Inc()
		return nil, err
	}
	o.deps.Quotes.Put(q)
	metrics.QuotesPriced.WithLabelValues("priced").Inc()
	return q, nil
}

// Settle drives one transfer to a terminal state. The returned Transfer is
// always non-nil; err carries the typed rejection when the status is REJECTED
// or FAILED.
func (o *Orchestrator) Settle(ctx context.Context, quoteID uuid.UUID, senderID, recipientID uint64) (*Transfer, error) {
	timer := time.Now()
	defer func() { metrics.SettlementDuration.Observe(time.Since(timer).Seconds()) }()

	t := &Transfer{
		ID:                 uuid.New(),
		QuoteID:            quoteID,
		SenderAccountID:    senderID,
		RecipientAccountID: recipientID,
		Status:             StatusQuoted,
	}

	q, ok := o.deps.Quotes.Get(quoteID)
	if !ok {
		// Unknown, already consumed, or swept: fail closed as expired.
		return o.reject(ctx, t, ErrQuoteExpired)
	}
	t.Quote = q

	now := o.deps.Clock()
	if q.Expired(now) {
		return o.reject(ctx, t, ErrQuoteExpired)
	}

	tier, err := o.deps.Tiers.Tier(ctx, senderID)
	if err != nil {
		return o.reject(ctx, t, err)
	}

	refAmount, err := o.deps.Quoter.ToReference(q.SourceAmount, o.deps.RefCurrency)
	if err != nil {
		return o.reject(ctx, t, err)
	}
	refReceived, err := o.deps.Quoter.ToReference(q.EstimatedReceived, o.deps.RefCurrency)
	if err != nil {
		return o.reject(ctx, t, err)
	}

	// The sender lock spans the limit check and the commit that appends the
	// movement records, closing the check-then-act window.
	unlock := o.senders.lock(senderID)
	defer unlock()

	if err := o.deps.Checker.Check(ctx, senderID, tier, refAmount, now); err != nil {
		return o.reject(ctx, t, err)
	}
	t.Status = StatusLimitChecked

	// Single-use gate: only one settlement may carry this quote to the ledger.
	if _, ok := o.deps.Quotes.Consume(quoteID); !ok {
		return o.reject(ctx, t, ErrQuoteExpired)
	}

	debit := ledger.Leg{AccountID: senderID, Amount: q.SourceAmount, RefAmount: refAmount}
	credit := ledger.Leg{AccountID: recipientID, Amount: q.EstimatedReceived, RefAmount: refReceived}
	if err := o.deps.Ledger.AtomicTransfer(ctx, t.ID, debit, credit, now); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) ||
			errors.Is(err, ledger.ErrUnknownAccount) ||
			errors.Is(err, ledger.ErrUnsupportedCurrency) {
			return o.reject(ctx, t, err)
		}
		return o.fail(ctx, t, err)
	}

	t.Status = StatusCommitted
	t.CompletedAt = now
	o.record(ctx, t)
	metrics.SettlementsTotal.WithLabelValues(string(StatusCommitted)).Inc()
	o.deps.Log.Info("transfer committed",
		zap.String("transfer_id", t.ID.String()),
		zap.Uint64("sender", senderID),
		zap.Uint64("recipient", recipientID),
		zap.String("debit", q.SourceAmount.String()),
		zap.String("credit", q.EstimatedReceived.String()))
	return t, nil
}

func (o *Orchestrator) reject(ctx context.Context, t *Transfer, cause error) (*Transfer, error) {
	t.Status = StatusRejected
	t.Reason = cause.Error()
	t.CompletedAt = o.deps.Clock()
	o.record(ctx, t)
	metrics.SettlementsTotal.WithLabelValues(string(StatusRejected)).Inc()
	o.deps.Log.Info("transfer rejected",
		zap.String("transfer_id", t.ID.String()),
		zap.Uint64("sender", t.SenderAccountID),
		zap.String("reason", t.Reason))
	return t, cause
}

func (o *Orchestrator) fail(ctx context.Context, t *Transfer, cause error) (*Transfer, error) {
	t.Status = StatusFailed
	t.Reason = cause.Error()
	t.CompletedAt = o.deps.Clock()
	o.record(ctx, t)
	metrics.SettlementsTotal.WithLabelValues(string(StatusFailed)).Inc()
	o.deps.Log.Error("ledger commit failed",
		zap.String("transfer_id", t.ID.String()),
		zap.Uint64("sender", t.SenderAccountID),
		zap.Error(cause))
	return t, fmt.Errorf("%w: %v", ErrLedgerCommit, cause)
}

func (o *Orchestrator) record(ctx context.Context, t *Transfer) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Record(ctx, t); err != nil {
		o.deps.Log.Error("recording transfer outcome",
			zap.String("transfer_id", t.ID.String()), zap.Error(err))
	}
}
