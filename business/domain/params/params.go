package params

import (
	"fmt"

	"github.com/transx/mining-ledger/entities"
	"lukechampine.com/uint128"
)

// Fixed-point constants shared by the scoring pipeline. Scores carry a
// Multiple factor over raw amounts/counts; USD values are integer cents.
const (
	Multiple    uint64 = 10_000
	UsdDecimals uint64 = 100

	// Dollars is one whole reward token in base units.
	Dollars uint64 = 100_000_000

	// HalvingYears is the emission halving period.
	HalvingYears uint64 = 4

	// FirstYearDailyReward follows the 21M cap: half of the supply is paid
	// out over the first halving period. The integer division order matters
	// and is kept as-is.
	FirstYearDailyReward uint64 = 21_000_000 * Dollars / 2 / HalvingYears / 36525 * 100
)

// Permill is a ratio in parts per million.
type Permill uint32

func FromPercent(p uint32) Permill {
	return Permill(p * 10_000)
}

// Mul applies the ratio to v, rounding down. Widened to 128 bits so scaled
// scores near the uint64 ceiling don't wrap.
func (p Permill) Mul(v uint64) uint64 {
	return uint128.From64(v).Mul64(uint64(p)).Div64(1_000_000).Lo
}

func (p Permill) Complement() Permill {
	return Permill(1_000_000) - p
}

// Params holds every governance-settable cap and ratio. The zero value is
// unusable; start from Default().
type Params struct {
	// EpochLength is the archive boundary in blocks.
	EpochLength     uint64
	RetentionEpochs uint64

	// AmountRewardWeight weights the amount-score term of the workforce
	// ratio; the count term gets the complement.
	AmountRewardWeight Permill

	// ClientRatio is the CLIENT origin's share of a transfer's power; WALLET
	// submissions keep the complement.
	ClientRatio Permill

	UplineInflation   Permill
	UpUplineInflation Permill
	FoundersShare     Permill

	// Share portions, not percentages: a participant at 100 with an upline
	// at 50 gives the upline 50/(100+50) of the remainder.
	ParticipantPortion uint32
	UplinePortion      uint32
	UpUplinePortion    uint32

	// DeclineExp drives the decay curve; operator-tunable within [11, 20].
	DeclineExp uint64

	PerDayMinReward uint64

	MaxDailySubmissions     uint64
	MinSubmissionUsd        uint64
	MaxPendingVerifications int

	BaselineMinParticipants uint64
	BaselineMinAmountScore  uint64
	BaselineMinCountScore   uint64

	// Per-asset hard caps, all in score units (×Multiple).
	SingleTxAmountCap    map[entities.Asset]uint64 // per transaction
	ParticipantAmountCap map[entities.Asset]uint64 // per participant per epoch
	ParticipantCountCap  map[entities.Asset]uint64
	AssetAmountCap       map[entities.Asset]uint64 // per asset per epoch, network wide
	AssetCountCap        map[entities.Asset]uint64
	AssetMaxShare        map[entities.Asset]Permill // share of total network power
}

func Default() Params {
	return Params{
		EpochLength:     14_400, // one day of 6s blocks
		RetentionEpochs: 7,

		AmountRewardWeight: FromPercent(50),
		ClientRatio:        FromPercent(70),
		UplineInflation:    FromPercent(10),
		UpUplineInflation:  FromPercent(5),
		FoundersShare:      FromPercent(20),

		ParticipantPortion: 100,
		UplinePortion:      50,
		UpUplinePortion:    25,

		DeclineExp: 12,

		PerDayMinReward: 100 * Dollars,

		MaxDailySubmissions:     10_000,
		MinSubmissionUsd:        5 * UsdDecimals,
		MaxPendingVerifications: 10_000,

		BaselineMinParticipants: 10,
		BaselineMinAmountScore:  100 * UsdDecimals * Multiple,
		BaselineMinCountScore:   1 * Multiple,

		SingleTxAmountCap: map[entities.Asset]uint64{
			entities.AssetBTC:  100_000 * UsdDecimals * Multiple,
			entities.AssetETH:  40_000 * UsdDecimals * Multiple,
			entities.AssetEOS:  10_000 * UsdDecimals * Multiple,
			entities.AssetUSDT: 5_000 * UsdDecimals * Multiple,
			entities.AssetECAP: 10_000 * UsdDecimals * Multiple,
		},
		ParticipantAmountCap: uniformCaps(10_000_000_000 * Multiple),
		ParticipantCountCap:  uniformCaps(1_000_000 * Multiple),
		AssetAmountCap:       uniformCaps(10_000 * 100 * UsdDecimals * Multiple),
		AssetCountCap:        uniformCaps(10_000 * Multiple),
		AssetMaxShare: map[entities.Asset]Permill{
			entities.AssetBTC:  FromPercent(70),
			entities.AssetETH:  FromPercent(10),
			entities.AssetEOS:  FromPercent(8),
			entities.AssetUSDT: FromPercent(50),
			entities.AssetECAP: FromPercent(50),
		},
	}
}

func uniformCaps(v uint64) map[entities.Asset]uint64 {
	caps := make(map[entities.Asset]uint64, len(entities.Assets()))
	for _, a := range entities.Assets() {
		caps[a] = v
	}
	return caps
}

// TotalPortion is the referral-split denominator.
func (p Params) TotalPortion() uint64 {
	return uint64(p.ParticipantPortion) + uint64(p.UplinePortion) + uint64(p.UpUplinePortion)
}

func (p Params) validate() error {
	if p.EpochLength == 0 {
		return fmt.Errorf("epoch length: %w", entities.ErrParamOutOfBounds)
	}
	if p.DeclineExp < 11 || p.DeclineExp > 20 {
		return fmt.Errorf("decline exponent [%d] outside [11, 20]: %w", p.DeclineExp, entities.ErrParamOutOfBounds)
	}
	if p.TotalPortion() == 0 {
		return fmt.Errorf("share portions all zero: %w", entities.ErrParamOutOfBounds)
	}
	return nil
}
