package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
)

// testBaseline has an average amount score of 10_000 and an average count
// score of 10_000 across 100 participants.
var testBaseline = entities.Baseline{
	AmountScore:        1_000_000,
	AmountParticipants: 100,
	CountScore:         1_000_000,
	CountParticipants:  100,
}

// fullClientConfig removes the origin split and referral inflation so the
// decay curve can be checked in isolation.
func fullClientConfig() Config {
	return Config{
		ClientRatio: params.FromPercent(100),
		DeclineExp:  12,
	}
}

func TestScore_WithinAverage_Unchanged(t *testing.T) {
	amountScore, countScore, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 1, // scales to exactly the average
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000), amountScore)
	assert.Equal(t, uint64(10_000), countScore)
}

func TestScore_HeavyAccumulation_Flattened(t *testing.T) {
	// Accumulated amount reaches 100x the average: score drops to v/n/100.
	amountScore, countScore, err := Score(Input{
		Asset:            entities.AssetBTC,
		Origin:           entities.OriginClient,
		UsdValue:         1,
		TodayAmountScore: 990_000,
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), amountScore) // 10_000 / 100 / 100
	assert.Equal(t, uint64(10_000), countScore)
}

func TestScore_ExactDecayBranch(t *testing.T) {
	// Second multiple of the average: v * 10^2 / 2 / 12^2.
	amountScore, _, err := Score(Input{
		Asset:            entities.AssetBTC,
		Origin:           entities.OriginClient,
		UsdValue:         1,
		TodayAmountScore: 10_000,
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(3_472), amountScore) // 1_000_000 / 2 / 144
}

func TestScore_HundredfoldSubmission_Flattened(t *testing.T) {
	// A single submission worth 100x the average: 1_000_000 / 100 / 100.
	amountScore, _, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 100,
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(100), amountScore)
}

func TestScore_MultipleAboveCeiling_Rejected(t *testing.T) {
	_, _, err := Score(Input{
		Asset:            entities.AssetBTC,
		Origin:           entities.OriginClient,
		UsdValue:         1,
		TodayAmountScore: 100_000_001,
	}, testBaseline, fullClientConfig())

	assert.ErrorIs(t, err, entities.ErrArithmetic)
	assert.ErrorIs(t, err, entities.ErrScoreTooLarge)
}

func TestScore_ZeroBaseline_Rejected(t *testing.T) {
	_, _, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 1,
	}, entities.Baseline{}, fullClientConfig())

	assert.ErrorIs(t, err, entities.ErrZeroBaseline)
}

func TestScore_OriginSplit(t *testing.T) {
	cfg := fullClientConfig()
	cfg.ClientRatio = params.FromPercent(70)

	clientAmount, _, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 1,
	}, testBaseline, cfg)
	require.NoError(t, err)

	walletAmount, _, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginWallet,
		UsdValue: 1,
	}, testBaseline, cfg)
	require.NoError(t, err)

	assert.Equal(t, uint64(7_000), clientAmount)
	assert.Equal(t, uint64(3_000), walletAmount)
	assert.Equal(t, uint64(10_000), clientAmount+walletAmount)
}

func TestScore_ReferralInflation(t *testing.T) {
	cfg := fullClientConfig()
	cfg.UplineInflation = params.FromPercent(10)
	cfg.UpUplineInflation = params.FromPercent(5)

	amountScore, _, err := Score(Input{
		Asset:       entities.AssetBTC,
		Origin:      entities.OriginClient,
		UsdValue:    1,
		HasUpline:   true,
		HasUpUpline: true,
	}, testBaseline, cfg)
	require.NoError(t, err)

	// Both bonuses apply to the base value independently.
	assert.Equal(t, uint64(11_500), amountScore)
}

func TestScore_SingleTxCap(t *testing.T) {
	cfg := fullClientConfig()
	cfg.SingleTxAmountCap = 5_000

	amountScore, countScore, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 100,
	}, testBaseline, cfg)
	require.NoError(t, err)

	// The clamp applies to the amount dimension only.
	assert.Equal(t, uint64(5_000), amountScore)
	assert.Equal(t, uint64(10_000), countScore)
}

func TestScore_ECAPCountsDouble(t *testing.T) {
	btcAmount, _, err := Score(Input{
		Asset:    entities.AssetBTC,
		Origin:   entities.OriginClient,
		UsdValue: 1,
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	ecapAmount, _, err := Score(Input{
		Asset:    entities.AssetECAP,
		Origin:   entities.OriginClient,
		UsdValue: 1,
	}, testBaseline, fullClientConfig())
	require.NoError(t, err)

	assert.Equal(t, 2*btcAmount, ecapAmount)
}

func TestChoosePath(t *testing.T) {
	// 12^35 fits in 128 bits, 12^36 does not.
	assert.Equal(t, pathExact, choosePath(2, 12))
	assert.Equal(t, pathExact, choosePath(35, 12))
	assert.Equal(t, pathApprox, choosePath(36, 12))
	assert.Equal(t, pathApprox, choosePath(99, 20))
}

func TestDecay(t *testing.T) {
	testData := []struct {
		name     string
		v        uint64
		n        uint64
		exp      uint64
		expected uint64
	}{
		{name: "first multiple unchanged", v: 10_000, n: 1, exp: 12, expected: 10_000},
		{name: "zero multiple unchanged", v: 10_000, n: 0, exp: 12, expected: 10_000},
		{name: "second multiple exact", v: 10_000, n: 2, exp: 12, expected: 3_472},
		{name: "third multiple exact", v: 10_000, n: 3, exp: 12, expected: 1_929}, // 10^7 / 3 / 1728
		{name: "hundredth multiple flattened", v: 10_000, n: 100, exp: 12, expected: 1},
		{name: "deep flattening", v: 1_000_000, n: 500, exp: 12, expected: 20},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			out, err := decay(testRun.v, testRun.n, testRun.exp)
			require.NoError(t, err)
			assert.Equal(t, testRun.expected, out)
		})
	}
}

func TestDecay_AboveCeiling(t *testing.T) {
	_, err := decay(10_000, 10_001, 12)
	assert.ErrorIs(t, err, entities.ErrScoreTooLarge)
}

func TestDecayApprox_FlattensLargeMultiples(t *testing.T) {
	// (12/10)^40 is well above 100, so the approximation falls back to the
	// heavy branch.
	assert.Equal(t, uint64(100_000)/40/100, decayApprox(100_000, 40, 12))
}
