package aggregate

import (
	"fmt"

	"github.com/transx/mining-ledger/entities"
)

// Slot tags the participant double buffer. SlotNone marks "no prior epoch";
// A and B alternate between today and yesterday on every rotation.
type Slot uint8

const (
	SlotNone Slot = iota
	SlotA
	SlotB
)

func (s Slot) other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// participantTally is one participant's current- or previous-epoch power,
// aggregated and per asset.
type participantTally struct {
	total    entities.PowerTally
	perAsset map[entities.Asset]*entities.PowerTally
}

// Delta is one accepted submission's contribution to every tally it touches.
type Delta struct {
	Score       uint64 // workforce ratio
	Count       uint64
	CountScore  uint64
	Usd         uint64
	AmountScore uint64
}

// Store holds the keyed daily power tables: network and per-asset records
// keyed by epoch index, participants in the double buffer. It is owned by
// the submission processor, which serializes access; epochs already archived
// reject further accumulation.
type Store struct {
	epochLength uint64

	network map[uint64]*entities.PowerTally
	assets  map[uint64]map[entities.Asset]*entities.PowerTally

	buffers  [2]map[string]*participantTally // indexed by slot-1
	current  Slot
	previous Slot

	lastFrozenEpoch uint64

	baseline entities.Baseline
	active   map[string]struct{} // participants seen this epoch
}

// BaselineFloors keeps early or quiet epochs from producing a near-zero
// decay divisor.
type BaselineFloors struct {
	MinParticipants uint64
	MinAmountScore  uint64 // per participant
	MinCountScore   uint64
}

func NewStore(epochLength uint64, floors BaselineFloors) *Store {
	s := &Store{
		epochLength: epochLength,
		network:     make(map[uint64]*entities.PowerTally),
		assets:      make(map[uint64]map[entities.Asset]*entities.PowerTally),
		current:     SlotA,
		previous:    SlotNone,
		active:      make(map[string]struct{}),
	}
	s.buffers[0] = make(map[string]*participantTally)
	s.buffers[1] = make(map[string]*participantTally)

	// Genesis baseline: the floors themselves, so the first epoch has a
	// usable divisor.
	s.baseline = entities.Baseline{
		AmountScore:        floors.MinAmountScore * floors.MinParticipants,
		AmountParticipants: floors.MinParticipants,
		CountScore:         floors.MinCountScore * floors.MinParticipants,
		CountParticipants:  floors.MinParticipants,
	}
	return s
}

// EpochIndex derives the epoch from the block height; index 1 is the first
// epoch. The index is monotonic by construction.
func (s *Store) EpochIndex(height uint64) uint64 {
	return height/s.epochLength + 1
}

func (s *Store) Baseline() entities.Baseline {
	return s.baseline
}

// CurrentNetwork returns a copy of the live network record for the epoch at
// the given height, zeroed if nothing accumulated yet.
func (s *Store) CurrentNetwork(height uint64) entities.PowerTally {
	if t, ok := s.network[s.EpochIndex(height)]; ok {
		return *t
	}
	return entities.PowerTally{}
}

// PreviousNetwork returns the immediately prior epoch's record.
func (s *Store) PreviousNetwork(height uint64) entities.PowerTally {
	if t, ok := s.network[s.EpochIndex(height)-1]; ok {
		return *t
	}
	return entities.PowerTally{}
}

// CurrentAsset returns the live per-asset record for the epoch at height.
func (s *Store) CurrentAsset(height uint64, asset entities.Asset) entities.PowerTally {
	if byAsset, ok := s.assets[s.EpochIndex(height)]; ok {
		if t, ok := byAsset[asset]; ok {
			return *t
		}
	}
	return entities.PowerTally{}
}

// Participant returns the participant's current-epoch aggregate tally.
func (s *Store) Participant(id string) entities.PowerTally {
	if t, ok := s.slotMap(s.current)[id]; ok {
		return t.total
	}
	return entities.PowerTally{}
}

// ParticipantAsset returns the participant's current-epoch tally for one asset.
func (s *Store) ParticipantAsset(id string, asset entities.Asset) entities.PowerTally {
	if t, ok := s.slotMap(s.current)[id]; ok {
		if at, ok := t.perAsset[asset]; ok {
			return *at
		}
	}
	return entities.PowerTally{}
}

// PreviousParticipant returns the participant's prior-epoch aggregate, zero
// when no prior epoch exists yet.
func (s *Store) PreviousParticipant(id string) entities.PowerTally {
	if s.previous == SlotNone {
		return entities.PowerTally{}
	}
	if t, ok := s.slotMap(s.previous)[id]; ok {
		return t.total
	}
	return entities.PowerTally{}
}

// Add accumulates one submission into the network, asset and participant
// tables for the epoch at height.
func (s *Store) Add(height uint64, participant string, asset entities.Asset, d Delta) error {
	epoch := s.EpochIndex(height)
	if epoch <= s.lastFrozenEpoch {
		return fmt.Errorf("epoch [%d]: %w", epoch, entities.ErrFrozenEpoch)
	}

	apply(s.networkTally(epoch), d, height)
	apply(s.assetTally(epoch, asset), d, height)

	pt := s.participantTally(participant)
	apply(&pt.total, d, height)
	apply(pt.assetTally(asset), d, height)

	s.active[participant] = struct{}{}
	return nil
}

// ArchiveResult is the frozen view handed back to the epoch controller.
type ArchiveResult struct {
	Epoch    uint64
	Network  entities.PowerTally
	Assets   map[entities.Asset]entities.PowerTally
	Baseline entities.Baseline
}

// Archive runs at an epoch boundary block and freezes the epoch that just
// ended: its network and asset records stop accepting deltas, a fresh record
// opens lazily for the new index, the participant buffer rotates (the stale
// slot is discarded) and the rolling baseline is recomputed from the
// just-frozen network record.
func (s *Store) Archive(boundaryHeight uint64, floors BaselineFloors) (ArchiveResult, error) {
	if boundaryHeight == 0 || boundaryHeight%s.epochLength != 0 {
		return ArchiveResult{}, fmt.Errorf("height [%d] is not an epoch boundary: %w", boundaryHeight, entities.ErrFrozenEpoch)
	}
	// The epoch covering [boundaryHeight-epochLength, boundaryHeight-1].
	epoch := boundaryHeight / s.epochLength
	height := boundaryHeight

	network := s.networkTally(epoch)
	network.LastBlock = height
	s.lastFrozenEpoch = epoch

	frozen := ArchiveResult{
		Epoch:   epoch,
		Network: *network,
		Assets:  make(map[entities.Asset]entities.PowerTally),
	}
	for asset, t := range s.assets[epoch] {
		t.LastBlock = height
		frozen.Assets[asset] = *t
	}

	s.baseline = recomputeBaseline(s.baseline, *network, uint64(len(s.active)), floors)
	frozen.Baseline = s.baseline
	s.active = make(map[string]struct{})

	// Rotate the double buffer: yesterday's slot goes stale and is cleared
	// for reuse as the new today.
	stale := s.current.other()
	s.previous = s.current
	s.current = stale
	s.buffers[stale-1] = make(map[string]*participantTally)

	// Drop records older than the previous epoch to bound memory.
	delete(s.network, epoch-1)
	delete(s.assets, epoch-1)

	return frozen, nil
}

// recomputeBaseline rebuilds the decay divisor from the frozen epoch. With no
// activity the prior baseline carries over unchanged, so the divisor is never
// reset by an idle epoch.
func recomputeBaseline(prev entities.Baseline, network entities.PowerTally, activeParticipants uint64, floors BaselineFloors) entities.Baseline {
	if activeParticipants == 0 {
		return prev
	}

	avgAmount := network.AmountScore / activeParticipants
	if avgAmount < floors.MinAmountScore {
		avgAmount = floors.MinAmountScore
	}
	avgCount := network.CountScore / activeParticipants
	if avgCount < floors.MinCountScore {
		avgCount = floors.MinCountScore
	}
	count := activeParticipants
	if count < floors.MinParticipants {
		count = floors.MinParticipants
	}

	return entities.Baseline{
		AmountScore:        avgAmount * count,
		AmountParticipants: count,
		CountScore:         avgCount * count,
		CountParticipants:  count,
	}
}

func (s *Store) slotMap(slot Slot) map[string]*participantTally {
	return s.buffers[slot-1]
}

func (s *Store) networkTally(epoch uint64) *entities.PowerTally {
	t, ok := s.network[epoch]
	if !ok {
		t = &entities.PowerTally{}
		s.network[epoch] = t
	}
	return t
}

func (s *Store) assetTally(epoch uint64, asset entities.Asset) *entities.PowerTally {
	byAsset, ok := s.assets[epoch]
	if !ok {
		byAsset = make(map[entities.Asset]*entities.PowerTally)
		s.assets[epoch] = byAsset
	}
	t, ok := byAsset[asset]
	if !ok {
		t = &entities.PowerTally{}
		byAsset[asset] = t
	}
	return t
}

func (s *Store) participantTally(id string) *participantTally {
	m := s.slotMap(s.current)
	t, ok := m[id]
	if !ok {
		t = &participantTally{perAsset: make(map[entities.Asset]*entities.PowerTally)}
		m[id] = t
	}
	return t
}

func (t *participantTally) assetTally(asset entities.Asset) *entities.PowerTally {
	at, ok := t.perAsset[asset]
	if !ok {
		at = &entities.PowerTally{}
		t.perAsset[asset] = at
	}
	return at
}

func apply(t *entities.PowerTally, d Delta, height uint64) {
	t.TotalScore += d.Score
	t.TotalCount += d.Count
	t.CountScore += d.CountScore
	t.TotalUsd += d.Usd
	t.AmountScore += d.AmountScore
	t.LastBlock = height
}
