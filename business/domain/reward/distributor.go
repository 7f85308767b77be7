package reward

import (
	"fmt"

	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
	"lukechampine.com/uint128"
)

// ratioScale is the fixed-point scale of the workforce ratio: a ratio equal
// to the scale means the submission matches the whole baseline.
const ratioScale uint64 = 10_000_000_000

// WorkforceRatio weighs the amount- and count-scores against the rolling
// baseline. The weights sum to one; the result carries ratioScale precision.
func WorkforceRatio(amountScore, countScore uint64, b entities.Baseline, amountWeight params.Permill) (uint64, error) {
	if b.AmountScore == 0 || b.CountScore == 0 {
		return 0, entities.ErrZeroBaseline
	}
	countWeight := amountWeight.Complement()

	amountTerm := uint128.From64(amountWeight.Mul(amountScore)).Mul64(ratioScale).Div64(b.AmountScore)
	countTerm := uint128.From64(countWeight.Mul(countScore)).Mul64(ratioScale).Div64(b.CountScore)

	sum := amountTerm.Add(countTerm)
	if sum.Hi != 0 {
		return 0, entities.ErrOverflow
	}
	return sum.Lo, nil
}

// SubmissionReward is the submission's slice of today's budget.
func SubmissionReward(budget, ratio uint64) uint64 {
	return uint128.From64(budget).Mul64(ratio).Div64(ratioScale).Lo
}

// Split is the four-way payout of one submission's reward. The parts always
// sum exactly to the input total: each is deducted from a running remainder,
// never computed independently.
type Split struct {
	Participant uint64
	Upline      uint64
	UpUpline    uint64
	Founders    uint64
}

func (s Split) Total() uint64 {
	return s.Participant + s.Upline + s.UpUpline + s.Founders
}

// Distribute splits total across the participant, their referral tree and
// the founders pool. Founders take their fixed share only when founder
// accounts are configured; upline shares are paid only when the referrer
// exists. A zero portion denominator is a fatal precondition, not a silent
// zero score.
func Distribute(total uint64, hasUpline, hasUpUpline bool, foundersConfigured bool, p params.Params) (Split, error) {
	totalPortion := p.TotalPortion()
	if totalPortion == 0 {
		return Split{}, fmt.Errorf("share portion denominator: %w", entities.ErrZeroBaseline)
	}

	var out Split
	if foundersConfigured {
		out.Founders = p.FoundersShare.Mul(total)
	}

	remainder := total - out.Founders
	base := remainder

	if hasUpline {
		out.Upline = uint128.From64(base).Mul64(uint64(p.UplinePortion)).Div64(totalPortion).Lo
		remainder -= out.Upline
	}
	if hasUpUpline {
		out.UpUpline = uint128.From64(base).Mul64(uint64(p.UpUplinePortion)).Div64(totalPortion).Lo
		remainder -= out.UpUpline
	}

	out.Participant = remainder
	return out, nil
}
