package mining

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/business/domain/aggregate"
	"github.com/transx/mining-ledger/business/domain/emission"
	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/business/domain/power"
	"github.com/transx/mining-ledger/business/domain/reward"
	"github.com/transx/mining-ledger/entities"
	"github.com/transx/mining-ledger/metrics"
	"go.uber.org/zap"
)

// Registry is the participant registry collaborator. Referrals come back as
// account ids; empty string means the level does not exist.
type Registry interface {
	IsRegistered(id string) bool
	ReferralOf(id string) (upline string, upUpline string)
	OwnsActiveAddress(id string, asset entities.Asset, address string) bool
}

// Disputes gates submissions from participants currently under dispute.
// Reporting back into the dispute subsystem happens over the event stream,
// not through this interface.
type Disputes interface {
	IsFlagged(id string) bool
}

// Store persists submission records, the per-participant day index used by
// the retention sweep, the commission ledger and the emission history.
type Store interface {
	GetRecord(tx string, origin entities.OriginTag) (*entities.SubmissionRecord, error)
	PutRecord(record *entities.SubmissionRecord) error
	DeleteRecord(tx string, origin entities.OriginTag) error
	AddEpochRecord(participant string, epoch uint64, key entities.RecordKey) error
	EpochRecords(participant string, epoch uint64) ([]entities.RecordKey, error)
	RemoveEpochIndex(participant string, epoch uint64) error
	ParticipantEpochs(participant string) ([]uint64, error)
	AddCommission(account string, amount uint64, paidAt int64) error
	SaveEpochReward(r entities.EpochReward) error
	SetLastHeight(height uint64) error
	GetLastHeight() (uint64, error)
}

// Publisher pushes events to the outbound stream.
type Publisher interface {
	Publish(ctx context.Context, events []entities.Event) error
}

// Archiver indexes frozen epoch aggregates for downstream analytics.
type Archiver interface {
	IndexEpoch(ctx context.Context, archive entities.EpochArchive) error
}

// EmissionState tracks what has been paid out so far.
type EmissionState struct {
	EpochTotal   uint64
	AllTimeTotal uint64
	TodayBudget  uint64
}

// Status is the processor's externally visible position.
type Status struct {
	Height               uint64            `json:"height"`
	Epoch                uint64            `json:"epoch"`
	Baseline             entities.Baseline `json:"baseline"`
	TodayBudget          uint64            `json:"todayBudget"`
	EpochReward          uint64            `json:"epochReward"`
	AllTimeReward        uint64            `json:"allTimeReward"`
	PendingVerifications int               `json:"pendingVerifications"`
}

// Processor is the deterministic reward-accounting core. Each submission is
// one atomic state transition: every precondition and cap is checked and
// every score computed before the first mutation, so a rejection leaves no
// partial state. The mutex serializes callers; within one block the core is
// single-writer by construction.
type Processor struct {
	mu sync.Mutex

	params    *params.Store
	agg       *aggregate.Store
	store     Store
	registry  Registry
	disputes  Disputes
	ledger    emission.Ledger
	scheduler *emission.Scheduler
	publisher Publisher
	archiver  Archiver
	metrics   *metrics.ProcessingMetrics
	logger    *zap.SugaredLogger
	now       func() time.Time

	height               uint64
	pendingVerifications int
	dailyCounts          map[string]uint64
	emission             EmissionState
}

func NewProcessor(
	paramStore *params.Store,
	agg *aggregate.Store,
	store Store,
	registry Registry,
	disputes Disputes,
	ledger emission.Ledger,
	publisher Publisher,
	archiver Archiver,
	m *metrics.ProcessingMetrics,
	logger *zap.SugaredLogger,
) *Processor {
	return &Processor{
		params:      paramStore,
		agg:         agg,
		store:       store,
		registry:    registry,
		disputes:    disputes,
		ledger:      ledger,
		scheduler:   emission.NewScheduler(ledger),
		publisher:   publisher,
		archiver:    archiver,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
		dailyCounts: make(map[string]uint64),
	}
}

// Submit processes one mining submission end to end: cap enforcement,
// scoring, emission budget, reward split, aggregation and persistence.
func (p *Processor) Submit(ctx context.Context, participant string, sub entities.MiningSubmission) (*entities.SubmissionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.process(ctx, participant, sub)
	if err != nil {
		p.metrics.IncRejected(errorClass(err))
		return nil, err
	}
	p.metrics.IncAccepted()
	return record, nil
}

func (p *Processor) process(ctx context.Context, participant string, sub entities.MiningSubmission) (*entities.SubmissionRecord, error) {
	cfg := p.params.Current()
	height := p.height

	asset, err := p.validate(participant, sub, cfg)
	if err != nil {
		return nil, err
	}

	if err := p.enforceCaps(participant, asset, height, cfg); err != nil {
		return nil, err
	}

	upline, upUpline := p.registry.ReferralOf(participant)
	baseline := p.agg.Baseline()
	mine := p.agg.Participant(participant)

	amountScore, countScore, err := power.Score(power.Input{
		Asset:            asset,
		Origin:           sub.Origin,
		UsdValue:         sub.UsdValue,
		HasUpline:        upline != "",
		HasUpUpline:      upUpline != "",
		TodayAmountScore: mine.AmountScore,
		TodayCountScore:  mine.CountScore,
	}, baseline, power.Config{
		ClientRatio:       cfg.ClientRatio,
		UplineInflation:   cfg.UplineInflation,
		UpUplineInflation: cfg.UpUplineInflation,
		DeclineExp:        cfg.DeclineExp,
		SingleTxAmountCap: cfg.SingleTxAmountCap[asset],
	})
	if err != nil {
		return nil, err
	}

	ratio, err := reward.WorkforceRatio(amountScore, countScore, baseline, cfg.AmountRewardWeight)
	if err != nil {
		return nil, err
	}

	budget, err := p.scheduler.DailyBudget(height, cfg)
	if err != nil {
		return nil, err
	}
	p.emission.TodayBudget = budget
	p.metrics.SetDailyBudget(budget)

	total := reward.SubmissionReward(budget, ratio)
	founders := p.params.Founders()

	split, err := reward.Distribute(total, upline != "", upUpline != "", len(founders) != 0, cfg)
	if err != nil {
		return nil, err
	}

	// Everything below mutates; store writes go first so a failed write
	// aborts the transition without touching in-memory state. The retention
	// sweep runs only for accepted submissions so a rejection leaves the
	// store untouched.
	p.sweepExpired(participant, height)

	now := p.now()
	mineCount := uint16(1)
	if p.hasRecord(sub.TxID, sub.Origin.Opposite()) {
		mineCount = 2
	}

	record := &entities.SubmissionRecord{
		TxID:              sub.TxID,
		Origin:            sub.Origin,
		Participant:       participant,
		FromAddress:       sub.FromAddress,
		ToAddress:         sub.ToAddress,
		Asset:             asset,
		Chain:             sub.Chain,
		Amount:            sub.Amount,
		Decimals:          sub.Decimals,
		Protocol:          sub.Protocol,
		Memo:              sub.Memo,
		UsdValue:          sub.UsdValue,
		AmountScore:       amountScore,
		CountScore:        countScore,
		ParticipantReward: split.Participant,
		UplineReward:      split.Upline,
		UpUplineReward:    split.UpUpline,
		FoundersReward:    split.Founders,
		MineCount:         mineCount,
		VerifyStatus:      verifyStatusInitial,
		Timestamp:         now.Unix(),
		BlockHeight:       height,
	}

	if err := p.store.PutRecord(record); err != nil {
		return nil, errors.Wrap(err, "persisting submission record")
	}
	epoch := p.agg.EpochIndex(height)
	key := entities.RecordKey{TxID: sub.TxID, Origin: sub.Origin}
	if err := p.store.AddEpochRecord(participant, epoch, key); err != nil {
		_ = p.store.DeleteRecord(sub.TxID, sub.Origin)
		return nil, errors.Wrap(err, "indexing submission record")
	}

	if err := p.agg.Add(height, participant, asset, aggregate.Delta{
		Score:       ratio,
		Count:       1,
		CountScore:  countScore,
		Usd:         sub.UsdValue,
		AmountScore: amountScore,
	}); err != nil {
		_ = p.store.RemoveEpochIndex(participant, epoch)
		_ = p.store.DeleteRecord(sub.TxID, sub.Origin)
		return nil, errors.Wrap(err, "accumulating power")
	}

	p.payout(participant, upline, upUpline, founders, split, now.Unix())

	p.pendingVerifications++
	p.metrics.SetPendingVerifications(p.pendingVerifications)
	p.dailyCounts[participant]++
	p.emission.EpochTotal += total
	p.emission.AllTimeTotal += total
	p.metrics.AddRewardPaid(total)

	p.publish(ctx, entities.Event{
		Type:        entities.EventTypeSubmissionAccepted,
		BlockHeight: height,
		Epoch:       epoch,
		TxID:        sub.TxID,
		Origin:      sub.Origin.String(),
		Participant: participant,
		Asset:       asset.String(),
		Reward:      total,
	})

	p.logger.Infow("accepted submission",
		"tx", sub.TxID, "origin", sub.Origin.String(), "participant", participant,
		"asset", asset.String(), "usd", sub.UsdValue,
		"amountScore", amountScore, "countScore", countScore, "reward", total)

	return record, nil
}

// validate covers every precondition that needs no aggregate state.
func (p *Processor) validate(participant string, sub entities.MiningSubmission, cfg params.Params) (entities.Asset, error) {
	if p.disputes.IsFlagged(participant) {
		return 0, entities.ErrFlaggedParticipant
	}
	if sub.FromAddress == sub.ToAddress {
		return 0, entities.ErrSelfTransfer
	}
	if sub.UsdValue < cfg.MinSubmissionUsd {
		return 0, entities.ErrAmountTooLow
	}
	if !validAmountString(sub.Amount) {
		return 0, entities.ErrMalformedAmount
	}
	asset, err := entities.ParseAsset(sub.Symbol)
	if err != nil {
		return 0, err
	}
	if !p.registry.IsRegistered(participant) {
		return 0, entities.ErrNotRegistered
	}

	// CLIENT origin credits the receiving address, WALLET the sending one.
	address := sub.ToAddress
	if sub.Origin == entities.OriginWallet {
		address = sub.FromAddress
	}
	if !p.registry.OwnsActiveAddress(participant, asset, address) {
		return 0, entities.ErrAddressNotOwned
	}

	if p.hasRecord(sub.TxID, sub.Origin) {
		return 0, entities.ErrDuplicateSubmission
	}
	return asset, nil
}

// validAmountString accepts plain integer digit strings up to 36 characters.
func validAmountString(amount string) bool {
	if len(amount) == 0 || len(amount) > 36 {
		return false
	}
	for _, c := range amount {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *Processor) hasRecord(tx string, origin entities.OriginTag) bool {
	_, err := p.store.GetRecord(tx, origin)
	return err == nil
}

// payout deposits the split and updates the commission ledger. Deposits
// cannot fail; commission bookkeeping failures are logged, not fatal.
func (p *Processor) payout(participant, upline, upUpline string, founders []string, split reward.Split, paidAt int64) {
	if len(founders) != 0 && split.Founders != 0 {
		perFounder := split.Founders / uint64(len(founders))
		for _, founder := range founders {
			p.ledger.Deposit(founder, perFounder)
			p.addCommission(founder, perFounder, paidAt)
		}
	}
	if upline != "" && split.Upline != 0 {
		p.ledger.Deposit(upline, split.Upline)
		p.addCommission(upline, split.Upline, paidAt)
	}
	if upUpline != "" && split.UpUpline != 0 {
		p.ledger.Deposit(upUpline, split.UpUpline)
		p.addCommission(upUpline, split.UpUpline, paidAt)
	}
	p.ledger.Deposit(participant, split.Participant)
	p.addCommission(participant, split.Participant, paidAt)
}

func (p *Processor) addCommission(account string, amount uint64, paidAt int64) {
	if err := p.store.AddCommission(account, amount, paidAt); err != nil {
		p.logger.Errorw("error updating commission ledger", "account", account, "error", err)
	}
}

func (p *Processor) publish(ctx context.Context, events ...entities.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, events); err != nil {
		p.logger.Errorw("error publishing events", "error", err)
	}
}

// Record looks up what was recorded for one submission key; used by the
// dispute subsystem.
func (p *Processor) Record(tx string, origin entities.OriginTag) (*entities.SubmissionRecord, error) {
	record, err := p.store.GetRecord(tx, origin)
	if err != nil {
		if errors.Is(err, entities.ErrStoreEntityNotFound) {
			return nil, entities.ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// Status reports the processor's current position.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Height:               p.height,
		Epoch:                p.agg.EpochIndex(p.height),
		Baseline:             p.agg.Baseline(),
		TodayBudget:          p.emission.TodayBudget,
		EpochReward:          p.emission.EpochTotal,
		AllTimeReward:        p.emission.AllTimeTotal,
		PendingVerifications: p.pendingVerifications,
	}
}

// errorClass buckets an error into its taxonomy class for metrics.
func errorClass(err error) string {
	switch {
	case errors.Is(err, entities.ErrCapExceeded):
		return "cap"
	case errors.Is(err, entities.ErrArithmetic):
		return "arithmetic"
	case errors.Is(err, entities.ErrPrecondition):
		return "precondition"
	default:
		return "internal"
	}
}
