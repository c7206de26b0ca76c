/*
engine.go - Facade over the ledger components

PURPOSE:
  Single entry point the API layer talks to. Wires the allocator,
  linkage manager, balance calculator, report builder and charge
  generator over one shared store, and owns the couple of operations
  that span components (apply-payment-with-account, reverse-payment).
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the condominium ledger.
type Engine struct {
	store     TxStore
	allocator *Allocator
	linkage   *Linkage
	balances  *Balances
	reports   *Reports
	generator *Generator
}

func NewEngine(store TxStore) *Engine {
	alloc := NewAllocator(store)
	bal := NewBalances(store)
	return &Engine{
		store:     store,
		allocator: alloc,
		linkage:   NewLinkage(store, alloc),
		balances:  bal,
		reports:   NewReports(store, bal),
		generator: NewGenerator(store, alloc),
	}
}

// Store exposes the underlying store for plain record CRUD.
func (e *Engine) Store() TxStore { return e.store }

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentRequest carries the inputs for registering a payment.
// AccountID is optional; when set, a mirroring IN movement is created
// on that account and linked to the payment.
type PaymentRequest struct {
	ApartmentID ApartmentID
	Amount      Money
	Date        Date
	Category    Category
	Description string
	AccountID   AccountID
}

// ApplyPayment registers a payment, allocates it against the
// apartment's outstanding charges, and (when an account is given)
// creates the linked bank movement. One transaction.
func (e *Engine) ApplyPayment(ctx context.Context, req PaymentRequest) (ApplyResult, error) {
	if !req.Amount.IsPositive() {
		return ApplyResult{}, &InvalidAmountError{Amount: req.Amount}
	}
	if req.Date.IsZero() {
		req.Date = Today()
	}
	if req.Category == "" {
		req.Category = CategoryMixed
	}

	p := Payment{
		ID:          PaymentID(uuid.NewString()),
		ApartmentID: req.ApartmentID,
		Amount:      req.Amount,
		Date:        req.Date,
		Category:    req.Category,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	unlock := e.allocator.locks.lock(req.ApartmentID)
	defer unlock()

	var res ApplyResult
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		res, err = e.allocator.applyIn(ctx, s, p)
		if err != nil {
			return err
		}

		if req.AccountID == "" {
			return nil
		}
		mv := BankMovement{
			ID:          MovementID(uuid.NewString()),
			AccountID:   req.AccountID,
			Direction:   In,
			Amount:      p.Amount,
			Date:        p.Date,
			Description: p.Description,
			Category:    p.Category,
			CreatedAt:   time.Now().UTC(),
		}
		if err := e.linkage.checkAccount(ctx, s, req.AccountID); err != nil {
			return err
		}
		if err := s.SaveMovement(ctx, mv); err != nil {
			return err
		}
		if err := e.linkage.linkIn(ctx, s, &mv, LinkedRecord{Type: RecordPayment, ID: string(p.ID)}); err != nil {
			return err
		}
		res.Payment.MovementID = mv.ID
		return nil
	})
	return res, err
}

// ReversePayment un-applies the payment's allocation, unlinks and
// removes its bank movement if one exists, and deletes the payment.
func (e *Engine) ReversePayment(ctx context.Context, id PaymentID) error {
	p, err := e.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return &NotFoundError{Kind: "payment", ID: string(id)}
	}

	unlock := e.allocator.locks.lock(p.ApartmentID)
	defer unlock()

	return e.store.WithTx(ctx, func(s Store) error {
		if _, err := e.allocator.reverseIn(ctx, s, id); err != nil {
			return err
		}
		p, err := s.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "payment", ID: string(id)}
		}
		if p.MovementID != "" {
			if err := s.DeleteMovement(ctx, p.MovementID); err != nil {
				return err
			}
		}
		return s.DeletePayment(ctx, id)
	})
}

// =============================================================================
// CHARGES
// =============================================================================

// DeleteCharge removes a manually created charge. Refuses when payment
// allocations reference it; unlinks its bank movement when one exists.
func (e *Engine) DeleteCharge(ctx context.Context, id ChargeID) error {
	return e.store.WithTx(ctx, func(s Store) error {
		c, err := s.GetCharge(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return &NotFoundError{Kind: "charge", ID: string(id)}
		}

		allocs, err := s.AllocationsByCharge(ctx, id)
		if err != nil {
			return err
		}
		if len(allocs) > 0 {
			return ErrChargeReferenced
		}

		if c.MovementID != "" {
			mv, err := s.GetMovement(ctx, c.MovementID)
			if err != nil {
				return err
			}
			if mv != nil {
				mv.LinkedType = ""
				mv.LinkedID = ""
				if err := s.SaveMovement(ctx, *mv); err != nil {
					return err
				}
			}
		}
		return s.DeleteCharge(ctx, id)
	})
}

// =============================================================================
// DELEGATIONS
// =============================================================================

func (e *Engine) Link(ctx context.Context, movementID MovementID, rec LinkedRecord) error {
	return e.linkage.Link(ctx, movementID, rec)
}

func (e *Engine) CreateLinkedMovement(ctx context.Context, mv BankMovement, rec LinkedRecord) (BankMovement, error) {
	return e.linkage.CreateLinkedMovement(ctx, mv, rec)
}

func (e *Engine) UpdateMovement(ctx context.Context, id MovementID, upd MovementUpdate) error {
	return e.linkage.UpdateMovement(ctx, id, upd)
}

func (e *Engine) DeleteMovement(ctx context.Context, id MovementID) (DeleteResult, error) {
	return e.linkage.DeleteMovement(ctx, id)
}

func (e *Engine) MatchPayment(ctx context.Context, paymentID PaymentID, accountID AccountID) (BankMovement, error) {
	return e.linkage.MatchPayment(ctx, paymentID, accountID)
}

func (e *Engine) ApartmentBalance(ctx context.Context, id ApartmentID, asOf Date) (Money, error) {
	return e.balances.ApartmentBalance(ctx, id, asOf)
}

func (e *Engine) AccountBalance(ctx context.Context, id AccountID, asOf Date) (Money, error) {
	return e.balances.AccountBalance(ctx, id, asOf)
}

func (e *Engine) TreasuryBalance(ctx context.Context, asOf Date) (Money, error) {
	return e.balances.TreasuryBalance(ctx, asOf)
}

func (e *Engine) MonthlyReport(ctx context.Context, year int, month time.Month) (MonthlyStatement, error) {
	return e.reports.Monthly(ctx, year, month)
}

func (e *Engine) AccumulatedReport(ctx context.Context, from, to Date) (AccumulatedStatement, error) {
	return e.reports.Accumulated(ctx, from, to)
}

func (e *Engine) CombinedReport(ctx context.Context, year int, month time.Month) (CombinedStatement, error) {
	return e.reports.Combined(ctx, year, month)
}

func (e *Engine) GenerateMonthly(ctx context.Context, year int, month time.Month) (GenerateResult, error) {
	return e.generator.GenerateMonthly(ctx, year, month)
}
