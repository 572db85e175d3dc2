/*
advance.go - staff salary advances

Advances follow the same ledger shape as khata: immutable issued /
recovered facts, with the outstanding balance computed from history.
There is no cached column here; volumes per staff member are small
enough to sum on read.
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

type AdvanceType string

const (
	AdvanceIssued    AdvanceType = "issued"
	AdvanceRecovered AdvanceType = "recovered"
)

// Advance is one immutable advance fact.
type Advance struct {
	ID        string
	StaffID   string
	Type      AdvanceType
	Amount    ledger.Amount
	Note      string
	CreatedAt time.Time
}

// AdvanceBalance summarizes a staff member's advance ledger.
type AdvanceBalance struct {
	StaffID        string        `json:"staff_id"`
	TotalIssued    ledger.Amount `json:"total_issued"`
	TotalRecovered ledger.Amount `json:"total_recovered"`
	Outstanding    ledger.Amount `json:"outstanding"`
}

// RecordAdvance appends an issued or recovered advance for a staff
// member. A recovery larger than the outstanding balance is rejected.
func (a *Aggregator) RecordAdvance(ctx context.Context, staffID string, typ AdvanceType, amount ledger.Amount, note string) (*Advance, error) {
	if typ != AdvanceIssued && typ != AdvanceRecovered {
		return nil, fmt.Errorf("%w: unknown advance type %q", ledger.ErrInvalidInput, typ)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidInput)
	}

	staff, err := a.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, fmt.Errorf("%w: staff %s", ledger.ErrNotFound, staffID)
	}

	if typ == AdvanceRecovered {
		bal, err := a.Balance(ctx, staffID)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(bal.Outstanding) {
			return nil, fmt.Errorf("%w: recovery %s exceeds outstanding %s",
				ledger.ErrInvalidInput, amount, bal.Outstanding)
		}
	}

	adv := &Advance{
		ID:        uuid.NewString(),
		StaffID:   staffID,
		Type:      typ,
		Amount:    amount,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.InsertAdvance(ctx, adv); err != nil {
		return nil, fmt.Errorf("record advance: %w", err)
	}
	return adv, nil
}

// Balance sums the staff member's advance history.
func (a *Aggregator) Balance(ctx context.Context, staffID string) (*AdvanceBalance, error) {
	advances, err := a.store.AdvancesForStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("advance balance: %w", err)
	}

	bal := &AdvanceBalance{
		StaffID:        staffID,
		TotalIssued:    ledger.Zero,
		TotalRecovered: ledger.Zero,
	}
	for _, adv := range advances {
		switch adv.Type {
		case AdvanceIssued:
			bal.TotalIssued = bal.TotalIssued.Add(adv.Amount)
		case AdvanceRecovered:
			bal.TotalRecovered = bal.TotalRecovered.Add(adv.Amount)
		}
	}
	bal.Outstanding = bal.TotalIssued.Sub(bal.TotalRecovered)
	return bal, nil
}
