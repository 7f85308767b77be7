package params

import (
	"fmt"
	"sync"

	"github.com/transx/mining-ledger/entities"
)

// Store is the live parameter set plus the founders list. Setters are the
// governance entry points; authorization happens in the calling collaborator,
// not here. Maps are copied on write so Current() can hand out shallow copies.
type Store struct {
	mu       sync.RWMutex
	p        Params
	founders []string
	onChange func(parameter string)
}

func NewStore(p Params) (*Store, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Store{p: p}, nil
}

// OnChange registers a callback fired after every successful setter, used to
// surface parameter-changed events.
func (s *Store) OnChange(fn func(parameter string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) Current() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

func (s *Store) Founders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.founders))
	copy(out, s.founders)
	return out
}

func (s *Store) SetFounders(who []string) error {
	if len(who) == 0 {
		return fmt.Errorf("founders: %w", entities.ErrEmptyParam)
	}
	s.mu.Lock()
	s.founders = append([]string(nil), who...)
	s.mu.Unlock()
	s.notify("founders")
	return nil
}

func (s *Store) SetDeclineExp(exp uint64) error {
	if exp < 11 || exp > 20 {
		return fmt.Errorf("decline exponent [%d] outside [11, 20]: %w", exp, entities.ErrParamOutOfBounds)
	}
	s.mu.Lock()
	s.p.DeclineExp = exp
	s.mu.Unlock()
	s.notify("decline_exp")
	return nil
}

func (s *Store) SetMaxDailySubmissions(count uint64) error {
	s.mu.Lock()
	s.p.MaxDailySubmissions = count
	s.mu.Unlock()
	s.notify("max_daily_submissions")
	return nil
}

func (s *Store) SetSingleTxAmountCap(asset entities.Asset, v uint64) error {
	return s.setAssetCap("single_tx_amount_cap", asset, v, func(p *Params) *map[entities.Asset]uint64 {
		return &p.SingleTxAmountCap
	})
}

func (s *Store) SetParticipantAmountCap(asset entities.Asset, v uint64) error {
	return s.setAssetCap("participant_amount_cap", asset, v, func(p *Params) *map[entities.Asset]uint64 {
		return &p.ParticipantAmountCap
	})
}

func (s *Store) SetParticipantCountCap(asset entities.Asset, v uint64) error {
	return s.setAssetCap("participant_count_cap", asset, v, func(p *Params) *map[entities.Asset]uint64 {
		return &p.ParticipantCountCap
	})
}

func (s *Store) SetAssetAmountCap(asset entities.Asset, v uint64) error {
	return s.setAssetCap("asset_amount_cap", asset, v, func(p *Params) *map[entities.Asset]uint64 {
		return &p.AssetAmountCap
	})
}

func (s *Store) SetAssetCountCap(asset entities.Asset, v uint64) error {
	return s.setAssetCap("asset_count_cap", asset, v, func(p *Params) *map[entities.Asset]uint64 {
		return &p.AssetCountCap
	})
}

func (s *Store) SetAssetMaxShare(asset entities.Asset, share Permill) error {
	if _, err := entities.ParseAsset(asset.String()); err != nil {
		return err
	}
	s.mu.Lock()
	shares := make(map[entities.Asset]Permill, len(s.p.AssetMaxShare))
	for k, v := range s.p.AssetMaxShare {
		shares[k] = v
	}
	shares[asset] = share
	s.p.AssetMaxShare = shares
	s.mu.Unlock()
	s.notify("asset_max_share")
	return nil
}

func (s *Store) SetSharePortions(participant, upline, upUpline uint32) error {
	if participant+upline+upUpline == 0 {
		return fmt.Errorf("share portions all zero: %w", entities.ErrParamOutOfBounds)
	}
	s.mu.Lock()
	s.p.ParticipantPortion = participant
	s.p.UplinePortion = upline
	s.p.UpUplinePortion = upUpline
	s.mu.Unlock()
	s.notify("share_portions")
	return nil
}

func (s *Store) setAssetCap(name string, asset entities.Asset, v uint64, field func(*Params) *map[entities.Asset]uint64) error {
	if _, err := entities.ParseAsset(asset.String()); err != nil {
		return err
	}
	s.mu.Lock()
	caps := make(map[entities.Asset]uint64, len(*field(&s.p)))
	for k, old := range *field(&s.p) {
		caps[k] = old
	}
	caps[asset] = v
	*field(&s.p) = caps
	s.mu.Unlock()
	s.notify(name)
	return nil
}

func (s *Store) notify(parameter string) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(parameter)
	}
}
