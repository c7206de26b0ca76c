/*
Package store provides the in-memory ledger.Store implementation, used
by tests and local development. The production store is store/sqlite.

Transactions are simulated with a full snapshot taken before fn runs
and restored if fn fails; writes go straight to the maps, so commit is
a no-op. The store-wide mutex held for the duration of WithTx gives
the same isolation the SQLite store gets from its serialized writes.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/atrium/condo-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	apartments   map[ledger.ApartmentID]ledger.Apartment
	charges      map[ledger.ChargeID]ledger.Charge
	payments     map[ledger.PaymentID]ledger.Payment
	transactions map[ledger.TransactionID]ledger.Transaction
	accounts     map[ledger.AccountID]ledger.BankAccount
	movements    map[ledger.MovementID]ledger.BankMovement
	allocations  map[string]ledger.Allocation
	notes        map[noteKey]ledger.PeriodNote

	// Insertion counters break date ties so the allocator's
	// oldest-first walk is stable across runs.
	seq       uint64
	chargeSeq map[ledger.ChargeID]uint64
	paySeq    map[ledger.PaymentID]uint64
	moveSeq   map[ledger.MovementID]uint64
	acctSeq   map[ledger.AccountID]uint64
}

type noteKey struct {
	Year  int
	Month int
}

func NewMemory() *Memory {
	return &Memory{
		apartments:   make(map[ledger.ApartmentID]ledger.Apartment),
		charges:      make(map[ledger.ChargeID]ledger.Charge),
		payments:     make(map[ledger.PaymentID]ledger.Payment),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		accounts:     make(map[ledger.AccountID]ledger.BankAccount),
		movements:    make(map[ledger.MovementID]ledger.BankMovement),
		allocations:  make(map[string]ledger.Allocation),
		notes:        make(map[noteKey]ledger.PeriodNote),
		chargeSeq:    make(map[ledger.ChargeID]uint64),
		paySeq:       make(map[ledger.PaymentID]uint64),
		moveSeq:      make(map[ledger.MovementID]uint64),
		acctSeq:      make(map[ledger.AccountID]uint64),
	}
}

// =============================================================================
// APARTMENTS
// =============================================================================

func (m *Memory) SaveApartment(_ context.Context, a ledger.Apartment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveApartmentLocked(a)
}

func (m *Memory) saveApartmentLocked(a ledger.Apartment) error {
	m.apartments[a.ID] = a
	return nil
}

func (m *Memory) GetApartment(_ context.Context, id ledger.ApartmentID) (*ledger.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getApartmentLocked(id)
}

func (m *Memory) getApartmentLocked(id ledger.ApartmentID) (*ledger.Apartment, error) {
	a, ok := m.apartments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListApartments(_ context.Context) ([]ledger.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listApartmentsLocked()
}

func (m *Memory) listApartmentsLocked() ([]ledger.Apartment, error) {
	result := make([]ledger.Apartment, 0, len(m.apartments))
	for _, a := range m.apartments {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Unit != result[j].Unit {
			return result[i].Unit < result[j].Unit
		}
		return result[i].Role < result[j].Role
	})
	return result, nil
}

func (m *Memory) DeleteApartment(_ context.Context, id ledger.ApartmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteApartmentLocked(id)
}

// deleteApartmentLocked orphans the apartment's records (clears the
// reference, keeps them for historical reporting) before removing it.
func (m *Memory) deleteApartmentLocked(id ledger.ApartmentID) error {
	for cid, c := range m.charges {
		if c.ApartmentID == id {
			c.ApartmentID = ""
			m.charges[cid] = c
		}
	}
	for pid, p := range m.payments {
		if p.ApartmentID == id {
			p.ApartmentID = ""
			m.payments[pid] = p
		}
	}
	for tid, t := range m.transactions {
		if t.ApartmentID == id {
			t.ApartmentID = ""
			m.transactions[tid] = t
		}
	}
	delete(m.apartments, id)
	return nil
}

// =============================================================================
// CHARGES
// =============================================================================

func (m *Memory) SaveCharge(_ context.Context, c ledger.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveChargeLocked(c)
}

func (m *Memory) saveChargeLocked(c ledger.Charge) error {
	if _, ok := m.chargeSeq[c.ID]; !ok {
		m.seq++
		m.chargeSeq[c.ID] = m.seq
	}
	m.charges[c.ID] = c
	return nil
}

func (m *Memory) GetCharge(_ context.Context, id ledger.ChargeID) (*ledger.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getChargeLocked(id)
}

func (m *Memory) getChargeLocked(id ledger.ChargeID) (*ledger.Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) DeleteCharge(_ context.Context, id ledger.ChargeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteChargeLocked(id)
}

func (m *Memory) deleteChargeLocked(id ledger.ChargeID) error {
	delete(m.charges, id)
	delete(m.chargeSeq, id)
	return nil
}

func (m *Memory) ChargesByApartment(_ context.Context, id ledger.ApartmentID) ([]ledger.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chargesByApartmentLocked(id)
}

func (m *Memory) chargesByApartmentLocked(id ledger.ApartmentID) ([]ledger.Charge, error) {
	var result []ledger.Charge
	for _, c := range m.charges {
		if c.ApartmentID == id {
			result = append(result, c)
		}
	}
	// Oldest-date-first, ties by creation order: the ordering the
	// allocator's walk depends on.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.chargeSeq[result[i].ID] < m.chargeSeq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) ChargesInRange(_ context.Context, from, to ledger.Date) ([]ledger.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chargesInRangeLocked(from, to)
}

func (m *Memory) chargesInRangeLocked(from, to ledger.Date) ([]ledger.Charge, error) {
	var result []ledger.Charge
	for _, c := range m.charges {
		if from.BeforeOrEqual(c.Date) && c.Date.BeforeOrEqual(to) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.chargeSeq[result[i].ID] < m.chargeSeq[result[j].ID]
	})
	return result, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) SavePayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePaymentLocked(p)
}

func (m *Memory) savePaymentLocked(p ledger.Payment) error {
	if _, ok := m.paySeq[p.ID]; !ok {
		m.seq++
		m.paySeq[p.ID] = m.seq
	}
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id)
}

func (m *Memory) getPaymentLocked(id ledger.PaymentID) (*ledger.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) DeletePayment(_ context.Context, id ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletePaymentLocked(id)
}

func (m *Memory) deletePaymentLocked(id ledger.PaymentID) error {
	delete(m.payments, id)
	delete(m.paySeq, id)
	return nil
}

func (m *Memory) PaymentsByApartment(_ context.Context, id ledger.ApartmentID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsByApartmentLocked(id)
}

func (m *Memory) paymentsByApartmentLocked(id ledger.ApartmentID) ([]ledger.Payment, error) {
	var result []ledger.Payment
	for _, p := range m.payments {
		if p.ApartmentID == id {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.paySeq[result[i].ID] < m.paySeq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) PaymentsInRange(_ context.Context, from, to ledger.Date) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsInRangeLocked(from, to)
}

func (m *Memory) paymentsInRangeLocked(from, to ledger.Date) ([]ledger.Payment, error) {
	var result []ledger.Payment
	for _, p := range m.payments {
		if from.BeforeOrEqual(p.Date) && p.Date.BeforeOrEqual(to) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.paySeq[result[i].ID] < m.paySeq[result[j].ID]
	})
	return result, nil
}

// =============================================================================
// GENERIC TRANSACTIONS
// =============================================================================

func (m *Memory) SaveTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTransactionLocked(t)
}

func (m *Memory) saveTransactionLocked(t ledger.Transaction) error {
	m.transactions[t.ID] = t
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransactionLocked(id)
}

func (m *Memory) getTransactionLocked(id ledger.TransactionID) (*ledger.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTransactionLocked(id)
}

func (m *Memory) deleteTransactionLocked(id ledger.TransactionID) error {
	delete(m.transactions, id)
	return nil
}

func (m *Memory) TransactionsInRange(_ context.Context, from, to ledger.Date) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsInRangeLocked(from, to)
}

func (m *Memory) transactionsInRangeLocked(from, to ledger.Date) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	for _, t := range m.transactions {
		if from.BeforeOrEqual(t.Date) && t.Date.BeforeOrEqual(to) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// =============================================================================
// BANK ACCOUNTS
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, a ledger.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAccountLocked(a)
}

func (m *Memory) saveAccountLocked(a ledger.BankAccount) error {
	if _, ok := m.acctSeq[a.ID]; !ok {
		m.seq++
		m.acctSeq[a.ID] = m.seq
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id ledger.AccountID) (*ledger.BankAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked()
}

func (m *Memory) listAccountsLocked() ([]ledger.BankAccount, error) {
	result := make([]ledger.BankAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return m.acctSeq[result[i].ID] < m.acctSeq[result[j].ID]
	})
	return result, nil
}

// =============================================================================
// BANK MOVEMENTS
// =============================================================================

func (m *Memory) SaveMovement(_ context.Context, mv ledger.BankMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveMovementLocked(mv)
}

func (m *Memory) saveMovementLocked(mv ledger.BankMovement) error {
	if _, ok := m.moveSeq[mv.ID]; !ok {
		m.seq++
		m.moveSeq[mv.ID] = m.seq
	}
	m.movements[mv.ID] = mv
	return nil
}

func (m *Memory) GetMovement(_ context.Context, id ledger.MovementID) (*ledger.BankMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getMovementLocked(id)
}

func (m *Memory) getMovementLocked(id ledger.MovementID) (*ledger.BankMovement, error) {
	mv, ok := m.movements[id]
	if !ok {
		return nil, nil
	}
	return &mv, nil
}

func (m *Memory) DeleteMovement(_ context.Context, id ledger.MovementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteMovementLocked(id)
}

func (m *Memory) deleteMovementLocked(id ledger.MovementID) error {
	delete(m.movements, id)
	delete(m.moveSeq, id)
	return nil
}

func (m *Memory) MovementsByAccount(_ context.Context, id ledger.AccountID) ([]ledger.BankMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.movementsByAccountLocked(id)
}

func (m *Memory) movementsByAccountLocked(id ledger.AccountID) ([]ledger.BankMovement, error) {
	var result []ledger.BankMovement
	for _, mv := range m.movements {
		if mv.AccountID == id {
			result = append(result, mv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.moveSeq[result[i].ID] < m.moveSeq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) MovementsInRange(_ context.Context, from, to ledger.Date) ([]ledger.BankMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.movementsInRangeLocked(from, to)
}

func (m *Memory) movementsInRangeLocked(from, to ledger.Date) ([]ledger.BankMovement, error) {
	var result []ledger.BankMovement
	for _, mv := range m.movements {
		if from.BeforeOrEqual(mv.Date) && mv.Date.BeforeOrEqual(to) {
			result = append(result, mv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return m.moveSeq[result[i].ID] < m.moveSeq[result[j].ID]
	})
	return result, nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (m *Memory) SaveAllocation(_ context.Context, a ledger.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAllocationLocked(a)
}

func (m *Memory) saveAllocationLocked(a ledger.Allocation) error {
	m.allocations[a.ID] = a
	return nil
}

func (m *Memory) AllocationsByPayment(_ context.Context, id ledger.PaymentID) ([]ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocationsByPaymentLocked(id)
}

func (m *Memory) allocationsByPaymentLocked(id ledger.PaymentID) ([]ledger.Allocation, error) {
	var result []ledger.Allocation
	for _, a := range m.allocations {
		if a.PaymentID == id {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (m *Memory) AllocationsByCharge(_ context.Context, id ledger.ChargeID) ([]ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocationsByChargeLocked(id)
}

func (m *Memory) allocationsByChargeLocked(id ledger.ChargeID) ([]ledger.Allocation, error) {
	var result []ledger.Allocation
	for _, a := range m.allocations {
		if a.ChargeID == id {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (m *Memory) DeleteAllocationsByPayment(_ context.Context, id ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAllocationsByPaymentLocked(id)
}

func (m *Memory) deleteAllocationsByPaymentLocked(id ledger.PaymentID) error {
	for aid, a := range m.allocations {
		if a.PaymentID == id {
			delete(m.allocations, aid)
		}
	}
	return nil
}

// =============================================================================
// PERIOD NOTES
// =============================================================================

func (m *Memory) SavePeriodNote(_ context.Context, n ledger.PeriodNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePeriodNoteLocked(n)
}

func (m *Memory) savePeriodNoteLocked(n ledger.PeriodNote) error {
	m.notes[noteKey{Year: n.Year, Month: int(n.Month)}] = n
	return nil
}

func (m *Memory) GetPeriodNote(_ context.Context, year int, month int) (*ledger.PeriodNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPeriodNoteLocked(year, month)
}

func (m *Memory) getPeriodNoteLocked(year, month int) (*ledger.PeriodNote, error) {
	n, ok := m.notes[noteKey{Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// Reset wipes everything. Demo/dev tooling only.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apartments = make(map[ledger.ApartmentID]ledger.Apartment)
	m.charges = make(map[ledger.ChargeID]ledger.Charge)
	m.payments = make(map[ledger.PaymentID]ledger.Payment)
	m.transactions = make(map[ledger.TransactionID]ledger.Transaction)
	m.accounts = make(map[ledger.AccountID]ledger.BankAccount)
	m.movements = make(map[ledger.MovementID]ledger.BankMovement)
	m.allocations = make(map[string]ledger.Allocation)
	m.notes = make(map[noteKey]ledger.PeriodNote)
	m.seq = 0
	m.chargeSeq = make(map[ledger.ChargeID]uint64)
	m.paySeq = make(map[ledger.PaymentID]uint64)
	m.moveSeq = make(map[ledger.MovementID]uint64)
	m.acctSeq = make(map[ledger.AccountID]uint64)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction, simulated with a snapshot
// taken up front and restored if fn fails.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	apartments   map[ledger.ApartmentID]ledger.Apartment
	charges      map[ledger.ChargeID]ledger.Charge
	payments     map[ledger.PaymentID]ledger.Payment
	transactions map[ledger.TransactionID]ledger.Transaction
	accounts     map[ledger.AccountID]ledger.BankAccount
	movements    map[ledger.MovementID]ledger.BankMovement
	allocations  map[string]ledger.Allocation
	notes        map[noteKey]ledger.PeriodNote

	seq       uint64
	chargeSeq map[ledger.ChargeID]uint64
	paySeq    map[ledger.PaymentID]uint64
	moveSeq   map[ledger.MovementID]uint64
	acctSeq   map[ledger.AccountID]uint64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	return memorySnapshot{
		apartments:   copyMap(tm.apartments),
		charges:      copyMap(tm.charges),
		payments:     copyMap(tm.payments),
		transactions: copyMap(tm.transactions),
		accounts:     copyMap(tm.accounts),
		movements:    copyMap(tm.movements),
		allocations:  copyMap(tm.allocations),
		notes:        copyMap(tm.notes),
		seq:          tm.seq,
		chargeSeq:    copyMap(tm.chargeSeq),
		paySeq:       copyMap(tm.paySeq),
		moveSeq:      copyMap(tm.moveSeq),
		acctSeq:      copyMap(tm.acctSeq),
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.apartments = s.apartments
	tm.charges = s.charges
	tm.payments = s.payments
	tm.transactions = s.transactions
	tm.accounts = s.accounts
	tm.movements = s.movements
	tm.allocations = s.allocations
	tm.notes = s.notes
	tm.seq = s.seq
	tm.chargeSeq = s.chargeSeq
	tm.paySeq = s.paySeq
	tm.moveSeq = s.moveSeq
	tm.acctSeq = s.acctSeq
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// txMemoryView routes calls to the parent's locked variants; the parent
// mutex is already held for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) SaveApartment(_ context.Context, a ledger.Apartment) error {
	return tv.parent.saveApartmentLocked(a)
}
func (tv *txMemoryView) GetApartment(_ context.Context, id ledger.ApartmentID) (*ledger.Apartment, error) {
	return tv.parent.getApartmentLocked(id)
}
func (tv *txMemoryView) ListApartments(_ context.Context) ([]ledger.Apartment, error) {
	return tv.parent.listApartmentsLocked()
}
func (tv *txMemoryView) DeleteApartment(_ context.Context, id ledger.ApartmentID) error {
	return tv.parent.deleteApartmentLocked(id)
}

func (tv *txMemoryView) SaveCharge(_ context.Context, c ledger.Charge) error {
	return tv.parent.saveChargeLocked(c)
}
func (tv *txMemoryView) GetCharge(_ context.Context, id ledger.ChargeID) (*ledger.Charge, error) {
	return tv.parent.getChargeLocked(id)
}
func (tv *txMemoryView) DeleteCharge(_ context.Context, id ledger.ChargeID) error {
	return tv.parent.deleteChargeLocked(id)
}
func (tv *txMemoryView) ChargesByApartment(_ context.Context, id ledger.ApartmentID) ([]ledger.Charge, error) {
	return tv.parent.chargesByApartmentLocked(id)
}
func (tv *txMemoryView) ChargesInRange(_ context.Context, from, to ledger.Date) ([]ledger.Charge, error) {
	return tv.parent.chargesInRangeLocked(from, to)
}

func (tv *txMemoryView) SavePayment(_ context.Context, p ledger.Payment) error {
	return tv.parent.savePaymentLocked(p)
}
func (tv *txMemoryView) GetPayment(_ context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	return tv.parent.getPaymentLocked(id)
}
func (tv *txMemoryView) DeletePayment(_ context.Context, id ledger.PaymentID) error {
	return tv.parent.deletePaymentLocked(id)
}
func (tv *txMemoryView) PaymentsByApartment(_ context.Context, id ledger.ApartmentID) ([]ledger.Payment, error) {
	return tv.parent.paymentsByApartmentLocked(id)
}
func (tv *txMemoryView) PaymentsInRange(_ context.Context, from, to ledger.Date) ([]ledger.Payment, error) {
	return tv.parent.paymentsInRangeLocked(from, to)
}

func (tv *txMemoryView) SaveTransaction(_ context.Context, t ledger.Transaction) error {
	return tv.parent.saveTransactionLocked(t)
}
func (tv *txMemoryView) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return tv.parent.getTransactionLocked(id)
}
func (tv *txMemoryView) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	return tv.parent.deleteTransactionLocked(id)
}
func (tv *txMemoryView) TransactionsInRange(_ context.Context, from, to ledger.Date) ([]ledger.Transaction, error) {
	return tv.parent.transactionsInRangeLocked(from, to)
}

func (tv *txMemoryView) SaveAccount(_ context.Context, a ledger.BankAccount) error {
	return tv.parent.saveAccountLocked(a)
}
func (tv *txMemoryView) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.BankAccount, error) {
	return tv.parent.getAccountLocked(id)
}
func (tv *txMemoryView) ListAccounts(_ context.Context) ([]ledger.BankAccount, error) {
	return tv.parent.listAccountsLocked()
}

func (tv *txMemoryView) SaveMovement(_ context.Context, mv ledger.BankMovement) error {
	return tv.parent.saveMovementLocked(mv)
}
func (tv *txMemoryView) GetMovement(_ context.Context, id ledger.MovementID) (*ledger.BankMovement, error) {
	return tv.parent.getMovementLocked(id)
}
func (tv *txMemoryView) DeleteMovement(_ context.Context, id ledger.MovementID) error {
	return tv.parent.deleteMovementLocked(id)
}
func (tv *txMemoryView) MovementsByAccount(_ context.Context, id ledger.AccountID) ([]ledger.BankMovement, error) {
	return tv.parent.movementsByAccountLocked(id)
}
func (tv *txMemoryView) MovementsInRange(_ context.Context, from, to ledger.Date) ([]ledger.BankMovement, error) {
	return tv.parent.movementsInRangeLocked(from, to)
}

func (tv *txMemoryView) SaveAllocation(_ context.Context, a ledger.Allocation) error {
	return tv.parent.saveAllocationLocked(a)
}
func (tv *txMemoryView) AllocationsByPayment(_ context.Context, id ledger.PaymentID) ([]ledger.Allocation, error) {
	return tv.parent.allocationsByPaymentLocked(id)
}
func (tv *txMemoryView) AllocationsByCharge(_ context.Context, id ledger.ChargeID) ([]ledger.Allocation, error) {
	return tv.parent.allocationsByChargeLocked(id)
}
func (tv *txMemoryView) DeleteAllocationsByPayment(_ context.Context, id ledger.PaymentID) error {
	return tv.parent.deleteAllocationsByPaymentLocked(id)
}

func (tv *txMemoryView) SavePeriodNote(_ context.Context, n ledger.PeriodNote) error {
	return tv.parent.savePeriodNoteLocked(n)
}
func (tv *txMemoryView) GetPeriodNote(_ context.Context, year int, month int) (*ledger.PeriodNote, error) {
	return tv.parent.getPeriodNoteLocked(year, month)
}
