package emission

import (
	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
)

// Ledger is the currency collaborator the scheduler draws on. The treasury
// account backs clamped emission; everything else is new issuance.
type Ledger interface {
	BalanceOf(account string) uint64
	SetBalance(account string, amount uint64)
	Deposit(account string, amount uint64)
	TreasuryAccount() string
	MinimumBalance() uint64
}

// halvingCeiling: past 32 halvings (~128 years at 4-year periods) the curve
// is effectively zero and only the configured minimum is paid.
const halvingCeiling = 32

type Scheduler struct {
	ledger Ledger
}

func NewScheduler(ledger Ledger) *Scheduler {
	return &Scheduler{ledger: ledger}
}

// Spendable is the treasury balance above its minimum floor.
func (s *Scheduler) Spendable() uint64 {
	balance := s.ledger.BalanceOf(s.ledger.TreasuryAccount())
	minimum := s.ledger.MinimumBalance()
	if balance <= minimum {
		return 0
	}
	return balance - minimum
}

// DailyBudget computes today's total emission from the halving curve, bounded
// below by the configured minimum and above by what the treasury actually
// holds. Whenever a clamped branch fires, the treasury is set to exactly
// minimum_balance + (spendable - budget) so it never goes net negative
// relative to its floor.
func (s *Scheduler) DailyBudget(height uint64, p params.Params) (uint64, error) {
	spendable := s.Spendable()

	denominator := 36_525 * params.HalvingYears * p.EpochLength
	if denominator == 0 {
		return 0, entities.ErrZeroBaseline
	}
	high, ok := checkedMul(100, height)
	if !ok {
		return 0, entities.ErrOverflow
	}
	e := high / denominator

	if e > halvingCeiling {
		budget := p.PerDayMinReward
		if budget > spendable {
			budget = spendable
		}
		s.topUp(spendable, budget)
		return budget, nil
	}

	budget := params.FirstYearDailyReward >> e
	if budget < p.PerDayMinReward {
		budget = p.PerDayMinReward
		s.topUp(spendable, budget)
	}
	if budget > spendable {
		budget = spendable
		s.topUp(spendable, budget)
	}

	return budget, nil
}

func (s *Scheduler) topUp(spendable, budget uint64) {
	remaining := uint64(0)
	if spendable > budget {
		remaining = spendable - budget
	}
	s.ledger.SetBalance(s.ledger.TreasuryAccount(), remaining+s.ledger.MinimumBalance())
}

func checkedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	prod := a * b
	return prod, prod/b == a
}
