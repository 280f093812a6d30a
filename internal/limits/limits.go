package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
)

// Tier is the KYC verification level an account holds. Tiers are assigned
// outside the core and read-only here.
type Tier int

const (
	Tier0Unverified Tier = iota
	Tier1Verified
	Tier2Premium
)

func (t Tier) String() string {
	switch t {
	case Tier0Unverified:
		return "TIER_0_UNVERIFIED"
	case Tier1Verified:
		return "TIER_1_VERIFIED"
	case Tier2Premium:
		return "TIER_2_PREMIUM"
	}
	return fmt.Sprintf("TIER_%d", int(t))
}

type Kind string

const (
	KindSingle  Kind = "single"
	KindDaily   Kind = "daily"
	KindMonthly Kind = "monthly"
)

// Limits is one tier's spending ceilings, all in the reference currency.
type Limits struct {
	Single  money.Money
	Daily   money.Money
	Monthly money.Money
}

// Table maps each tier to its limits. Loaded once from configuration and
// immutable for the process lifetime.
type Table map[Tier]Limits

// Error is a typed limit rejection carrying the exact kind and threshold that
// was exceeded, so callers can render the reason without re-deriving it.
type Error struct {
	Tier      Tier
	Kind      Kind
	Threshold money.Money
}

func (e *Error) Error() string {
	return fmt.Sprintf("exceeds KYC level %d %s limit", int(e.Tier), e.Kind)
}

// Checker validates proposed amounts against a tier's rolling usage. It reads
// movement history and mutates nothing; appending the resulting movement is
// the settlement's job, under the same per-sender critical section.
type Checker struct {
	table     Table
	loc       *time.Location
	movements ledger.MovementLog
}

func NewChecker(table Table, loc *time.Location, movements ledger.MovementLog) *Checker {
	return &Checker{table: table, loc: loc, movements: movements}
}

// Check admits or rejects a proposed amount (reference currency) for the
// account. Violations are reported in priority order: single, then daily, then
// monthly. Limits are inclusive: an amount exactly at the ceiling is admitted.
func (c *Checker) Check(ctx context.Context, accountID uint64, tier Tier, proposed money.Money, now time.Time) error {
	lim, ok := c.table[tier]
	if !ok {
		return fmt.Errorf("no limit table for tier %s", tier)
	}

	if cmp, err := proposed.Cmp(lim.Single); err != nil {
		return err
	} else if cmp > 0 {
		return &Error{Tier: tier, Kind: KindSingle, Threshold: lim.Single}
	}

	local := now.In(c.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.loc)

	// Movements since the start of the month cover both windows in one read.
	records, err := c.movements.MovementsBetween(ctx, accountID, monthStart, now)
	if err != nil {
		return fmt.Errorf("reading movement history: %w", err)
	}

	daily := proposed
	monthly := proposed
	for _, r := range records {
		if r.Direction != ledger.Debit {
			continue
		}
		monthly, err = monthly.Add(r.RefAmount)
		if err != nil {
			return fmt.Errorf("movement %s: %w", r.TransferID, err)
		}
		if !r.OccurredAt.Before(dayStart) {
			daily, err = daily.Add(r.RefAmount)
			if err != nil {
				return fmt.Errorf("movement %s: %w", r.TransferID, err)
			}
		}
	}

	if cmp, err := daily.Cmp(lim.Daily); err != nil {
		return err
	} else if cmp > 0 {
		return &Error{Tier: tier, Kind: KindDaily, Threshold: lim.Daily}
	}
	if cmp, err := monthly.Cmp(lim.Monthly); err != nil {
		return err
	} else if cmp > 0 {
		return &Error{Tier: tier, Kind: KindMonthly, Threshold: lim.Monthly}
	}
	return nil
}
