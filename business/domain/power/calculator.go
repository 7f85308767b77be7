package power

import (
	"fmt"
	"math"

	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
	"lukechampine.com/uint128"
)

// maxScoreMultiple is the sanity ceiling for the score-to-average multiple.
// A submission this far above the network average signals abuse and is
// rejected outright.
const maxScoreMultiple = 10_000

// flattenDivisor caps the decay: above 100x the average the score is divided
// by n and by this constant.
const flattenDivisor = 100

// Input is everything the calculator needs about one submission. Today's
// accumulated scores are the submitting participant's current-epoch totals
// across all assets.
type Input struct {
	Asset            entities.Asset
	Origin           entities.OriginTag
	UsdValue         uint64 // integer cents
	HasUpline        bool
	HasUpUpline      bool
	TodayAmountScore uint64
	TodayCountScore  uint64
}

// Config is the slice of governance parameters the calculator consumes.
type Config struct {
	ClientRatio       params.Permill
	UplineInflation   params.Permill
	UpUplineInflation params.Permill
	DeclineExp        uint64
	SingleTxAmountCap uint64 // MLA for the submission's asset
}

// Score computes the capped, decayed (amount-score, count-score) pair for one
// submission. Pure: no state is read or written here.
func Score(in Input, baseline entities.Baseline, cfg Config) (amountScore, countScore uint64, err error) {
	usd := in.UsdValue
	if in.Asset == entities.AssetECAP {
		// ECAP counts double per USD of value.
		usd *= 2
	}

	amountScore, err = dimensionScore(in, usd, cfg.SingleTxAmountCap,
		baseline.AmountScore, baseline.AmountParticipants, in.TodayAmountScore, cfg)
	if err != nil {
		return 0, 0, fmt.Errorf("amount score: %w", err)
	}

	countScore, err = dimensionScore(in, 1, 0,
		baseline.CountScore, baseline.CountParticipants, in.TodayCountScore, cfg)
	if err != nil {
		return 0, 0, fmt.Errorf("count score: %w", err)
	}

	return amountScore, countScore, nil
}

// dimensionScore runs one dimension (amount or count) through scaling,
// referral inflation, the origin split, the single-transaction clamp and the
// decay curve. txCap == 0 means no clamp (the count dimension).
func dimensionScore(in Input, raw, txCap, baseScore, baseParticipants, todayTotal uint64, cfg Config) (uint64, error) {
	if baseScore == 0 || baseParticipants == 0 {
		return 0, entities.ErrZeroBaseline
	}

	v, ok := checkedMul(raw, params.Multiple)
	if !ok {
		return 0, entities.ErrOverflow
	}

	v, err := inflate(v, in.HasUpline, in.HasUpUpline, cfg)
	if err != nil {
		return 0, err
	}

	v = originShare(v, in.Origin, cfg.ClientRatio)

	if txCap > 0 && v > txCap {
		v = txCap
	}

	average := baseScore / baseParticipants
	if average == 0 {
		return 0, entities.ErrZeroBaseline
	}

	accumulated, ok := checkedAdd(todayTotal, v)
	if !ok {
		return 0, entities.ErrOverflow
	}
	n := accumulated / average
	if accumulated%average != 0 {
		n++
	}

	return decay(v, n, cfg.DeclineExp)
}

// inflate adds the referral bonuses: both are additive and independent.
func inflate(v uint64, hasUpline, hasUpUpline bool, cfg Config) (uint64, error) {
	out := v
	var ok bool
	if hasUpline {
		out, ok = checkedAdd(out, cfg.UplineInflation.Mul(v))
		if !ok {
			return 0, entities.ErrOverflow
		}
	}
	if hasUpUpline {
		out, ok = checkedAdd(out, cfg.UpUplineInflation.Mul(v))
		if !ok {
			return 0, entities.ErrOverflow
		}
	}
	return out, nil
}

// originShare splits one transfer's power between the two origins: CLIENT
// keeps clientRatio of it, WALLET the complement.
func originShare(v uint64, origin entities.OriginTag, clientRatio params.Permill) uint64 {
	client := clientRatio.Mul(v)
	if origin == entities.OriginClient {
		return client
	}
	return v - client
}

// decayPath selects the curve branch for 2 <= n <= 99.
type decayPath uint8

const (
	pathExact decayPath = iota
	pathApprox
)

// choosePath is the single decision point between the exact 128-bit power
// computation and the floating-point approximation.
func choosePath(n, exp uint64) decayPath {
	if _, ok := pow128(exp, n); ok {
		return pathExact
	}
	return pathApprox
}

// decay applies the diminishing-returns curve. n is the multiple of the
// baseline average the participant's accumulated score reaches with this
// submission.
func decay(v, n, exp uint64) (uint64, error) {
	if n > maxScoreMultiple {
		return 0, fmt.Errorf("multiple [%d]: %w", n, entities.ErrScoreTooLarge)
	}
	if n <= 1 {
		return v, nil
	}
	if n >= flattenDivisor {
		return v / n / flattenDivisor, nil
	}

	switch choosePath(n, exp) {
	case pathExact:
		return decayExact(v, n, exp), nil
	default:
		return decayApprox(v, n, exp), nil
	}
}

// decayExact computes v * 10^n / n / exp^n in 128-bit integers. If the
// scaled numerator does not fit, the result is already flattened beyond
// the heavy branch and is computed as such.
func decayExact(v, n, exp uint64) uint64 {
	tenPow, ok := pow128(10, n)
	if !ok {
		return v / n / flattenDivisor
	}
	numerator, ok := mul128(uint128.From64(v), tenPow)
	if !ok {
		return v / n / flattenDivisor
	}
	expPow, _ := pow128(exp, n)
	return numerator.Div64(n).Div(expPow).Lo
}

// decayApprox approximates (exp/10)^n in float64 when exp^n overflows 128
// bits. An approximation past 100x flattening falls back to the heavy branch.
func decayApprox(v, n, exp uint64) uint64 {
	approx := math.Pow(float64(exp)/10, float64(n))
	if approx > float64(flattenDivisor) {
		return v / n / flattenDivisor
	}
	e := uint64(approx) / 10
	if uint64(approx)%10 != 0 {
		e++
	}
	return v / n / e / 10
}

func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

func checkedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	prod := a * b
	return prod, prod/b == a
}

// pow128 returns base^n, reporting whether it fits in 128 bits.
func pow128(base, n uint64) (uint128.Uint128, bool) {
	out := uint128.From64(1)
	b := uint128.From64(base)
	for i := uint64(0); i < n; i++ {
		var ok bool
		out, ok = mul128(out, b)
		if !ok {
			return uint128.Zero, false
		}
	}
	return out, true
}

func mul128(a, b uint128.Uint128) (uint128.Uint128, bool) {
	if a.IsZero() || b.IsZero() {
		return uint128.Zero, true
	}
	if b.Cmp(uint128.Max.Div(a)) > 0 {
		return uint128.Zero, false
	}
	return a.Mul(b), true
}
