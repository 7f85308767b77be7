package mining

// sweepExpired drops the participant's records older than the retention
// window. The sweep runs opportunistically on each submission, so storage for
// an active participant stays bounded without a background job. Sweep errors
// are logged only; a failed delete retries on the next submission.
func (p *Processor) sweepExpired(participant string, height uint64) {
	retention := p.params.Current().RetentionEpochs
	current := p.agg.EpochIndex(height)
	if current <= retention {
		return
	}
	cutoff := current - retention

	epochs, err := p.store.ParticipantEpochs(participant)
	if err != nil {
		p.logger.Errorw("error listing participant epochs", "participant", participant, "error", err)
		return
	}

	for _, epoch := range epochs {
		if epoch >= cutoff {
			continue
		}
		keys, err := p.store.EpochRecords(participant, epoch)
		if err != nil {
			p.logger.Errorw("error listing epoch records", "participant", participant, "epoch", epoch, "error", err)
			continue
		}
		for _, key := range keys {
			if err := p.store.DeleteRecord(key.TxID, key.Origin); err != nil {
				p.logger.Errorw("error deleting expired record", "tx", key.TxID, "error", err)
			}
		}
		if err := p.store.RemoveEpochIndex(participant, epoch); err != nil {
			p.logger.Errorw("error removing epoch index", "participant", participant, "epoch", epoch, "error", err)
		}
		p.logger.Debugw("swept expired records", "participant", participant, "epoch", epoch, "count", len(keys))
	}
}
