package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vistaprop/backoffice/config"
	"github.com/vistaprop/backoffice/model"
)

// ContractStore is an in-memory store for contract aggregates. Persistence
// is owned by an external service in this system; the store stands in for it
// and keeps the API layer honest about what it reads and writes.
type ContractStore struct {
	contracts    map[string]*model.Contract
	mu           sync.RWMutex
	maxContracts int             // Maximum contracts to keep, 0 = unlimited
	onEvict      func(id string) // Called after auto-cleanup removes a contract
}

// NewContractStore creates a store from configuration.
func NewContractStore(cfg *config.StoreConfig) *ContractStore {
	maxContracts := cfg.MaxContracts
	if maxContracts < 0 {
		maxContracts = 0
	}
	slog.Info("contract store initialized", "max_contracts", maxContracts)
	return &ContractStore{
		contracts:    make(map[string]*model.Contract),
		maxContracts: maxContracts,
	}
}

// OnEvict registers a callback fired for every contract the store removes
// during auto-cleanup, so per-contract state held elsewhere (paid-at
// trackers) can be dropped with it.
func (s *ContractStore) OnEvict(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

func (s *ContractStore) Save(contract *model.Contract) {
	s.mu.Lock()

	contract.UpdatedAt = time.Now()
	s.contracts[contract.ID] = contract

	// Cleanup if exceeds max
	evicted := s.cleanupIfNeeded()
	onEvict := s.onEvict
	s.mu.Unlock()

	if onEvict != nil {
		for _, id := range evicted {
			onEvict(id)
		}
	}
}

func (s *ContractStore) Get(id string) *model.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contracts[id]
}

func (s *ContractStore) GetByAgency(agency string) []*model.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Contract
	for _, c := range s.contracts {
		if c.Agency == agency {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *ContractStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contracts, id)
}

// UpdateStatus sets a contract's status.
func (s *ContractStore) UpdateStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Status = status
		c.UpdatedAt = time.Now()
	}
}

// UpdateFinancials replaces the editable money fields and the derived
// commission amount.
func (s *ContractStore) UpdateFinancials(id string, f model.Financials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Amount = f.Amount
		c.Currency = f.Currency
		c.UFValue = f.UFValue
		c.CommissionPercent = f.CommissionPercent
		c.CommissionAmount = f.CommissionAmount()
		c.UpdatedAt = time.Now()
	}
}

// SetPayments replaces a contract's payment ledger.
func (s *ContractStore) SetPayments(id string, payments []model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Payments = payments
		c.UpdatedAt = time.Now()
	}
}

// SetDocuments replaces a contract's document list.
func (s *ContractStore) SetDocuments(id string, docs []model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Documents = docs
		c.UpdatedAt = time.Now()
	}
}

// AppendHistory appends one audit entry. History is append-only; nothing in
// the store ever rewrites or removes an entry.
func (s *ContractStore) AppendHistory(id string, entry model.ChangeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.ChangeHistory = append(c.ChangeHistory, entry)
		c.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest contracts if store exceeds maxContracts,
// returning the removed ids. Must be called with lock held.
func (s *ContractStore) cleanupIfNeeded() []string {
	if s.maxContracts <= 0 {
		return nil // Unlimited
	}

	if len(s.contracts) <= s.maxContracts {
		return nil
	}

	// Sort contracts by creation time
	contracts := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].CreatedAt.Before(contracts[j].CreatedAt)
	})

	// Remove oldest contracts
	removeCount := len(contracts) - s.maxContracts
	evicted := make([]string, 0, removeCount)
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old contract",
			"contract_id", contracts[i].ID,
			"created_at", contracts[i].CreatedAt,
		)
		delete(s.contracts, contracts[i].ID)
		evicted = append(evicted, contracts[i].ID)
	}
	return evicted
}

// Count returns the number of contracts in the store
func (s *ContractStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}
