package mining

import (
	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
)

// enforceCaps checks every daily limit a submission can run into. All checks
// read accumulated state only; nothing here mutates.
func (p *Processor) enforceCaps(participant string, asset entities.Asset, height uint64, cfg params.Params) error {
	if p.dailyCounts[participant] >= cfg.MaxDailySubmissions {
		return errors.Wrapf(entities.ErrTooManySubmissions, "participant [%s]", participant)
	}
	if p.pendingVerifications >= cfg.MaxPendingVerifications {
		return entities.ErrVerifyQueueFull
	}

	mine := p.agg.ParticipantAsset(participant, asset)
	if limit, ok := cfg.ParticipantAmountCap[asset]; ok && mine.AmountScore >= limit {
		return errors.Wrapf(entities.ErrParticipantDailyCap, "asset [%s] amount", asset)
	}
	if limit, ok := cfg.ParticipantCountCap[asset]; ok && mine.CountScore >= limit {
		return errors.Wrapf(entities.ErrParticipantDailyCap, "asset [%s] count", asset)
	}

	assetTally := p.agg.CurrentAsset(height, asset)
	if limit, ok := cfg.AssetAmountCap[asset]; ok && assetTally.AmountScore >= limit {
		return errors.Wrapf(entities.ErrAssetDailyCap, "asset [%s] amount", asset)
	}
	if limit, ok := cfg.AssetCountCap[asset]; ok && assetTally.CountScore >= limit {
		return errors.Wrapf(entities.ErrAssetDailyCap, "asset [%s] count", asset)
	}

	return p.enforceShareCap(asset, assetTally, height, cfg)
}

// enforceShareCap bounds one asset's slice of the whole network's power. The
// basis is the previous epoch's network total, floored by the baseline so a
// quiet first epoch cannot squeeze every asset to zero.
func (p *Processor) enforceShareCap(asset entities.Asset, assetTally entities.PowerTally, height uint64, cfg params.Params) error {
	share, ok := cfg.AssetMaxShare[asset]
	if !ok {
		return nil
	}

	baseline := p.agg.Baseline()
	basis := p.agg.PreviousNetwork(height).AmountScore + p.agg.PreviousNetwork(height).CountScore
	if floor := baseline.AmountScore + baseline.CountScore; basis < floor {
		basis = floor
	}

	if assetTally.AmountScore+assetTally.CountScore >= share.Mul(basis) {
		return errors.Wrapf(entities.ErrAssetShareCap, "asset [%s]", asset)
	}
	return nil
}
