package ledger

import "sync"

// treasuryAccount is the well-known account that backs clamped emission.
const treasuryAccount = "treasury"

// Ledger is an in-memory currency ledger standing in for the chain's balance
// module. Deposits mint; only the emission scheduler ever calls SetBalance,
// and only on the treasury.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[string]uint64
	minBalance uint64
}

func NewLedger(treasuryBalance, minBalance uint64) *Ledger {
	return &Ledger{
		balances:   map[string]uint64{treasuryAccount: treasuryBalance},
		minBalance: minBalance,
	}
}

func (l *Ledger) BalanceOf(account string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

func (l *Ledger) SetBalance(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = amount
}

func (l *Ledger) Deposit(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *Ledger) TreasuryAccount() string {
	return treasuryAccount
}

func (l *Ledger) MinimumBalance() uint64 {
	return l.minBalance
}
