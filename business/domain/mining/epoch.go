package mining

import (
	"context"

	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/business/domain/aggregate"
	"github.com/transx/mining-ledger/entities"
)

// OnBlockFinalize advances the processor to a newly finalized block. At an
// epoch boundary it archives the epoch that just ended; archival failures on
// the side channels (index, stream) are logged and never block the rotation.
func (p *Processor) OnBlockFinalize(ctx context.Context, height uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.height = height
	p.metrics.SetChainPosition(p.agg.EpochIndex(height), height)
	if err := p.store.SetLastHeight(height); err != nil {
		p.logger.Errorw("error persisting last height", "height", height, "error", err)
	}

	if height == 0 || height%p.params.Current().EpochLength != 0 {
		return nil
	}
	return p.archive(ctx, height)
}

func (p *Processor) archive(ctx context.Context, boundaryHeight uint64) error {
	cfg := p.params.Current()

	frozen, err := p.agg.Archive(boundaryHeight, aggregate.BaselineFloors{
		MinParticipants: cfg.BaselineMinParticipants,
		MinAmountScore:  cfg.BaselineMinAmountScore,
		MinCountScore:   cfg.BaselineMinCountScore,
	})
	if err != nil {
		return errors.Wrap(err, "archiving epoch aggregates")
	}

	epochTotal := p.emission.EpochTotal
	p.emission.EpochTotal = 0
	p.dailyCounts = make(map[string]uint64)

	if err := p.store.SaveEpochReward(entities.EpochReward{Epoch: frozen.Epoch, Total: epochTotal}); err != nil {
		p.logger.Errorw("error saving epoch reward", "epoch", frozen.Epoch, "error", err)
	}

	if p.archiver != nil {
		archive := entities.EpochArchive{
			Epoch:       frozen.Epoch,
			BlockHeight: boundaryHeight,
			TotalReward: epochTotal,
			Network:     frozen.Network,
			Assets:      make(map[string]entities.PowerTally, len(frozen.Assets)),
			Baseline:    frozen.Baseline,
		}
		for asset, tally := range frozen.Assets {
			archive.Assets[asset.String()] = tally
		}
		if err := p.archiver.IndexEpoch(ctx, archive); err != nil {
			p.logger.Errorw("error indexing epoch archive", "epoch", frozen.Epoch, "error", err)
		}
	}

	events := []entities.Event{{
		Type:        entities.EventTypeNetworkPowerArchived,
		BlockHeight: boundaryHeight,
		Epoch:       frozen.Epoch,
		Reward:      epochTotal,
	}}
	for asset := range frozen.Assets {
		events = append(events, entities.Event{
			Type:        entities.EventTypeAssetPowerArchived,
			BlockHeight: boundaryHeight,
			Epoch:       frozen.Epoch,
			Asset:       asset.String(),
		})
	}
	events = append(events, entities.Event{
		Type:        entities.EventTypeParticipantPowerArchived,
		BlockHeight: boundaryHeight,
		Epoch:       frozen.Epoch,
	})
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, events); err != nil {
			p.logger.Errorw("error publishing archive events", "epoch", frozen.Epoch, "error", err)
		}
	}

	p.logger.Infow("archived epoch",
		"epoch", frozen.Epoch, "height", boundaryHeight,
		"networkScore", frozen.Network.TotalScore, "epochReward", epochTotal,
		"baselineAmount", frozen.Baseline.AmountScore, "baselineCount", frozen.Baseline.CountScore)

	return nil
}
