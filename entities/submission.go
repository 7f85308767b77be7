package entities

// MiningSubmission is one attested transfer as handed in by a mining client
// or wallet. It is never persisted as such; an accepted submission becomes a
// SubmissionRecord.
type MiningSubmission struct {
	TxID        string
	Origin      OriginTag
	FromAddress string
	ToAddress   string
	Symbol      string
	Amount      string // raw asset amount, integer digits; value = Amount / 10^Decimals
	Protocol    string
	Decimals    uint32
	UsdValue    uint64 // pre-priced USD equivalent, integer cents
	Chain       string
	Memo        string
}

// SubmissionRecord is the persisted outcome of one accepted submission.
// Immutable once written except for the verification status code; consumed
// read-only by the dispute subsystem and deleted only by the retention sweep.
type SubmissionRecord struct {
	TxID        string
	Origin      OriginTag
	Participant string
	FromAddress string
	ToAddress   string
	Asset       Asset
	Chain       string
	Amount      string
	Decimals    uint32
	Protocol    string
	Memo        string
	UsdValue    uint64

	AmountScore uint64
	CountScore  uint64

	ParticipantReward uint64
	UplineReward      uint64
	UpUplineReward    uint64
	FoundersReward    uint64

	// MineCount is 1 for the first origin claiming the transfer, 2 when the
	// opposite origin already holds a record for the same transaction.
	MineCount uint16

	// VerifyStatus starts at 1000; the low three digits count pass, fail and
	// abnormal verification outcomes (hundreds, tens, units).
	VerifyStatus uint64

	Timestamp   int64
	BlockHeight uint64
}

// TotalReward is the full emission share this submission earned. By
// construction the four payouts always sum to it exactly.
func (r *SubmissionRecord) TotalReward() uint64 {
	return r.ParticipantReward + r.UplineReward + r.UpUplineReward + r.FoundersReward
}

// RecordKey uniquely identifies a submission record.
type RecordKey struct {
	TxID   string
	Origin OriginTag
}

// PowerTally is one epoch's accumulated power for a scope (whole network,
// one asset, or one participant's aggregate or per-asset slice).
type PowerTally struct {
	TotalScore  uint64 // accumulated workforce ratio
	TotalCount  uint64
	CountScore  uint64
	TotalUsd    uint64
	AmountScore uint64
	LastBlock   uint64
}

// Baseline is the prior epoch's average-score divisor used by the decay
// curve, floored so early epochs never divide by a near-zero average.
type Baseline struct {
	AmountScore        uint64
	AmountParticipants uint64
	CountScore         uint64
	CountParticipants  uint64
}

// CommissionEntry tracks lifetime rewards paid to one account.
type CommissionEntry struct {
	Total      uint64
	Last       uint64
	LastPaidAt int64
}

// EpochReward is one archived epoch's total emission.
type EpochReward struct {
	Epoch uint64
	Total uint64
}

// EpochArchive is the frozen view of one epoch, indexed for downstream
// analytics when the epoch rotates.
type EpochArchive struct {
	Epoch       uint64                `json:"epoch"`
	BlockHeight uint64                `json:"blockHeight"`
	TotalReward uint64                `json:"totalReward"`
	Network     PowerTally            `json:"network"`
	Assets      map[string]PowerTally `json:"assets"`
	Baseline    Baseline              `json:"baseline"`
}
