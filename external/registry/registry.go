package registry

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/entities"
)

// Participant is one registered account with its referral chain and the
// addresses it may mine with. Inactive addresses stay on file but earn
// nothing.
type Participant struct {
	ID        string    `json:"id"`
	Upline    string    `json:"upline,omitempty"`
	Addresses []Address `json:"addresses"`
	Flagged   bool      `json:"flagged,omitempty"`
}

type Address struct {
	Asset   string `json:"asset"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// Registry is an in-memory participant directory, optionally seeded from a
// JSON file. It stands in for the identity subsystem; the processor only ever
// reads it.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*Participant
}

func NewRegistry() *Registry {
	return &Registry{participants: make(map[string]*Participant)}
}

// LoadFile seeds the registry from a JSON array of participants.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading registry file")
	}

	var participants []Participant
	if err := json.Unmarshal(data, &participants); err != nil {
		return nil, errors.Wrap(err, "parsing registry file")
	}

	r := NewRegistry()
	for i := range participants {
		r.Register(&participants[i])
	}
	return r, nil
}

func (r *Registry) Register(p *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[p.ID] = p
}

func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.participants[id]
	return ok
}

// ReferralOf walks two levels up the referral chain. A missing level comes
// back empty; a dangling upline id is treated as missing.
func (r *Registry) ReferralOf(id string) (string, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok || p.Upline == "" {
		return "", ""
	}
	upline, ok := r.participants[p.Upline]
	if !ok {
		return "", ""
	}
	if upline.Upline == "" {
		return upline.ID, ""
	}
	if _, ok := r.participants[upline.Upline]; !ok {
		return upline.ID, ""
	}
	return upline.ID, upline.Upline
}

func (r *Registry) OwnsActiveAddress(id string, asset entities.Asset, address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return false
	}
	for _, a := range p.Addresses {
		if a.Address == address && a.Asset == asset.String() && a.Active {
			return true
		}
	}
	return false
}

// IsFlagged satisfies the dispute gate; flags are toggled by the operator or
// by the dispute subsystem consuming the event stream.
func (r *Registry) IsFlagged(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	return ok && p.Flagged
}

func (r *Registry) SetFlagged(id string, flagged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[id]; ok {
		p.Flagged = flagged
	}
}
