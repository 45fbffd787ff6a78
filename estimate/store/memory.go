// Package store provides in-memory estimate.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	estimates map[string]estimate.Estimate
	payments  map[string]estimate.PaymentRecord
	schedules map[string][]estimate.ScheduleRecord
}

func NewMemory() *Memory {
	return &Memory{
		estimates: make(map[string]estimate.Estimate),
		payments:  make(map[string]estimate.PaymentRecord),
		schedules: make(map[string][]estimate.ScheduleRecord),
	}
}

func (m *Memory) SaveEstimate(_ context.Context, e estimate.Estimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEstimateLocked(e)
}

func (m *Memory) saveEstimateLocked(e estimate.Estimate) error {
	for id, existing := range m.estimates {
		if id != e.ID && existing.TaxpayerID == e.TaxpayerID && existing.FinancialYear == e.FinancialYear {
			return advancetax.ErrDuplicateEstimate
		}
	}
	m.estimates[e.ID] = e
	return nil
}

func (m *Memory) GetEstimate(_ context.Context, id string) (*estimate.Estimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEstimateLocked(id)
}

func (m *Memory) getEstimateLocked(id string) (*estimate.Estimate, error) {
	e, ok := m.estimates[id]
	if !ok {
		return nil, fmt.Errorf("estimate %s: %w", id, advancetax.ErrEstimateNotFound)
	}
	return &e, nil
}

func (m *Memory) FindEstimate(_ context.Context, taxpayerID string, fy advancetax.FinancialYear) (*estimate.Estimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.estimates {
		if e.TaxpayerID == taxpayerID && e.FinancialYear == fy {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListEstimates(_ context.Context) ([]estimate.Estimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEstimatesLocked(), nil
}

func (m *Memory) listEstimatesLocked() []estimate.Estimate {
	result := make([]estimate.Estimate, 0, len(m.estimates))
	for _, e := range m.estimates {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FinancialYear != result[j].FinancialYear {
			return result[i].FinancialYear < result[j].FinancialYear
		}
		return result[i].TaxpayerID < result[j].TaxpayerID
	})
	return result
}

func (m *Memory) DeleteEstimate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEstimateLocked(id)
}

func (m *Memory) deleteEstimateLocked(id string) error {
	if _, ok := m.estimates[id]; !ok {
		return fmt.Errorf("estimate %s: %w", id, advancetax.ErrEstimateNotFound)
	}
	delete(m.estimates, id)
	delete(m.schedules, id)
	for pid, p := range m.payments {
		if p.EstimateID == id {
			delete(m.payments, pid)
		}
	}
	return nil
}

func (m *Memory) SavePayment(_ context.Context, p estimate.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePaymentLocked(p)
}

func (m *Memory) savePaymentLocked(p estimate.PaymentRecord) error {
	if _, ok := m.estimates[p.EstimateID]; !ok {
		return fmt.Errorf("estimate %s: %w", p.EstimateID, advancetax.ErrEstimateNotFound)
	}
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id string) (*estimate.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id)
}

func (m *Memory) getPaymentLocked(id string) (*estimate.PaymentRecord, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, advancetax.ErrPaymentNotFound)
	}
	return &p, nil
}

func (m *Memory) ListPayments(_ context.Context, estimateID string) ([]estimate.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPaymentsLocked(estimateID), nil
}

func (m *Memory) listPaymentsLocked(estimateID string) []estimate.PaymentRecord {
	var result []estimate.PaymentRecord
	for _, p := range m.payments {
		if p.EstimateID == estimateID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PaidOn.Equal(result[j].PaidOn) {
			return result[i].PaidOn.Before(result[j].PaidOn)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) DeletePayment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletePaymentLocked(id)
}

func (m *Memory) deletePaymentLocked(id string) error {
	if _, ok := m.payments[id]; !ok {
		return fmt.Errorf("payment %s: %w", id, advancetax.ErrPaymentNotFound)
	}
	delete(m.payments, id)
	return nil
}

func (m *Memory) SaveSchedule(_ context.Context, estimateID string, rows []estimate.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[estimateID] = append([]estimate.ScheduleRecord(nil), rows...)
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, estimateID string) ([]estimate.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]estimate.ScheduleRecord(nil), m.schedules[estimateID]...), nil
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

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(estimate.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	estimates map[string]estimate.Estimate
	payments  map[string]estimate.PaymentRecord
	schedules map[string][]estimate.ScheduleRecord
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		estimates: make(map[string]estimate.Estimate, len(tm.estimates)),
		payments:  make(map[string]estimate.PaymentRecord, len(tm.payments)),
		schedules: make(map[string][]estimate.ScheduleRecord, len(tm.schedules)),
	}
	for k, v := range tm.estimates {
		s.estimates[k] = v
	}
	for k, v := range tm.payments {
		s.payments[k] = v
	}
	for k, v := range tm.schedules {
		s.schedules[k] = append([]estimate.ScheduleRecord(nil), v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.estimates = s.estimates
	tm.payments = s.payments
	tm.schedules = s.schedules
}

// txMemoryView runs against the parent maps without taking its lock, which
// WithTx already holds.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveEstimate(_ context.Context, e estimate.Estimate) error {
	return tv.parent.saveEstimateLocked(e)
}

func (tv *txMemoryView) GetEstimate(_ context.Context, id string) (*estimate.Estimate, error) {
	return tv.parent.getEstimateLocked(id)
}

func (tv *txMemoryView) FindEstimate(_ context.Context, taxpayerID string, fy advancetax.FinancialYear) (*estimate.Estimate, error) {
	for _, e := range tv.parent.estimates {
		if e.TaxpayerID == taxpayerID && e.FinancialYear == fy {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (tv *txMemoryView) ListEstimates(_ context.Context) ([]estimate.Estimate, error) {
	return tv.parent.listEstimatesLocked(), nil
}

func (tv *txMemoryView) DeleteEstimate(_ context.Context, id string) error {
	return tv.parent.deleteEstimateLocked(id)
}

func (tv *txMemoryView) SavePayment(_ context.Context, p estimate.PaymentRecord) error {
	return tv.parent.savePaymentLocked(p)
}

func (tv *txMemoryView) GetPayment(_ context.Context, id string) (*estimate.PaymentRecord, error) {
	return tv.parent.getPaymentLocked(id)
}

func (tv *txMemoryView) ListPayments(_ context.Context, estimateID string) ([]estimate.PaymentRecord, error) {
	return tv.parent.listPaymentsLocked(estimateID), nil
}

func (tv *txMemoryView) DeletePayment(_ context.Context, id string) error {
	return tv.parent.deletePaymentLocked(id)
}

func (tv *txMemoryView) SaveSchedule(_ context.Context, estimateID string, rows []estimate.ScheduleRecord) error {
	tv.parent.schedules[estimateID] = append([]estimate.ScheduleRecord(nil), rows...)
	return nil
}

func (tv *txMemoryView) GetSchedule(_ context.Context, estimateID string) ([]estimate.ScheduleRecord, error) {
	return append([]estimate.ScheduleRecord(nil), tv.parent.schedules[estimateID]...), nil
}

// Compile-time checks
var (
	_ estimate.TxStore = (*TxMemory)(nil)
	_ estimate.Store   = (*txMemoryView)(nil)
)
