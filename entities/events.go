package entities

// Event types emitted over the outbound event stream. The dispute report is
// an outbound event rather than a call into the dispute subsystem, so the
// subsystems stay decoupled.
const (
	EventTypeSubmissionAccepted       = "submission_accepted"
	EventTypeNetworkPowerArchived     = "network_power_archived"
	EventTypeAssetPowerArchived       = "asset_power_archived"
	EventTypeParticipantPowerArchived = "participant_power_archived"
	EventTypeParameterChanged         = "parameter_changed"
	EventTypeDisputeReport            = "dispute_report"
)

type Event struct {
	Type        string `json:"type"`
	BlockHeight uint64 `json:"blockHeight,omitempty"`
	Epoch       uint64 `json:"epoch,omitempty"`
	TxID        string `json:"txId,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Participant string `json:"participant,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Reward      uint64 `json:"reward,omitempty"`
	Parameter   string `json:"parameter,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
