package mining

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/entities"
)

// verifyStatusInitial encodes "no outcomes yet": the low three digits count
// pass, fail and abnormal reports in the hundreds, tens and units places.
const verifyStatusInitial uint64 = 1000

// verifyQuorum is the number of matching pass or fail outcomes that
// finalizes a record.
const verifyQuorum uint64 = 2

// verifyAbnormalCeiling finalizes a record flooded with abnormal outcomes.
// Finalization always fires before any digit can reach 10, so a counter can
// never bleed into its neighbor.
const verifyAbnormalCeiling uint64 = 8

// VerifyOutcome is one verifier's verdict on a recorded submission.
type VerifyOutcome uint8

const (
	OutcomePass VerifyOutcome = iota
	OutcomeFail
	OutcomeAbnormal
)

func ParseVerifyOutcome(s string) (VerifyOutcome, error) {
	switch s {
	case "PASS":
		return OutcomePass, nil
	case "FAIL":
		return OutcomeFail, nil
	case "ABNORMAL":
		return OutcomeAbnormal, nil
	}
	return 0, fmt.Errorf("verify outcome [%s]: %w", s, entities.ErrPrecondition)
}

func (o VerifyOutcome) String() string {
	switch o {
	case OutcomePass:
		return "PASS"
	case OutcomeFail:
		return "FAIL"
	default:
		return "ABNORMAL"
	}
}

// verifyCounts unpacks the status digits.
func verifyCounts(status uint64) (pass, fail, abnormal uint64) {
	return status / 100 % 10, status / 10 % 10, status % 10
}

func verifyFinal(status uint64) bool {
	pass, fail, abnormal := verifyCounts(status)
	return pass >= verifyQuorum || fail >= verifyQuorum || abnormal >= verifyAbnormalCeiling
}

// ApplyVerification records one verifier outcome against a submission record.
// A quorum of matching pass or fail verdicts finalizes the record, as does an
// abnormal flood; a fail quorum or abnormal flood additionally reports the
// participant over the event stream so the dispute subsystem can pick it up.
func (p *Processor) ApplyVerification(ctx context.Context, tx string, origin entities.OriginTag, outcome VerifyOutcome) (*entities.SubmissionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.store.GetRecord(tx, origin)
	if err != nil {
		if errors.Is(err, entities.ErrStoreEntityNotFound) {
			return nil, entities.ErrRecordNotFound
		}
		return nil, errors.Wrap(err, "reading submission record")
	}

	if verifyFinal(record.VerifyStatus) {
		return nil, fmt.Errorf("%w: verification already final", entities.ErrPrecondition)
	}

	switch outcome {
	case OutcomePass:
		record.VerifyStatus += 100
	case OutcomeFail:
		record.VerifyStatus += 10
	default:
		record.VerifyStatus++
	}

	if err := p.store.PutRecord(record); err != nil {
		return nil, errors.Wrap(err, "persisting verification status")
	}

	if !verifyFinal(record.VerifyStatus) {
		return record, nil
	}

	if p.pendingVerifications > 0 {
		p.pendingVerifications--
	}
	p.metrics.SetPendingVerifications(p.pendingVerifications)

	_, fail, abnormal := verifyCounts(record.VerifyStatus)
	if fail >= verifyQuorum || abnormal >= verifyAbnormalCeiling {
		reason := "verification fail quorum"
		if fail < verifyQuorum {
			reason = "verification abnormal flood"
		}
		p.publish(ctx, entities.Event{
			Type:        entities.EventTypeDisputeReport,
			BlockHeight: p.height,
			TxID:        record.TxID,
			Origin:      record.Origin.String(),
			Participant: record.Participant,
			Asset:       record.Asset.String(),
			Reason:      reason,
		})
		p.logger.Warnw("submission failed verification",
			"tx", record.TxID, "origin", record.Origin.String(), "participant", record.Participant,
			"reason", reason)
	} else {
		p.logger.Infow("submission verified",
			"tx", record.TxID, "origin", record.Origin.String(), "participant", record.Participant)
	}

	return record, nil
}
