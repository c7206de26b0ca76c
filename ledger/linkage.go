/*
linkage.go - 1:1 pairing of bank movements with accounting records

PURPOSE:
  Owns the relationship between a bank movement and the charge, payment
  or generic transaction it documents, across the full write lifecycle:
  link, create-linked, update, delete, match.

INVARIANT (referential symmetry):
  A movement links to at most one record and a record to at most one
  movement. Both pointers are always written together in one store
  transaction, so at no point does a movement's linked-record pointer
  disagree with that record's linked-movement pointer. The SQLite store
  backs this with unique indexes as a last line of defense.

CASCADES:
  Editing a linked movement's amount re-runs the payment's allocation
  (Reverse under the old amount, Apply under the new one), because the
  apartment's charge paid-states depend on the payment amount. Deleting
  a linked movement removes the linked payment or transaction with it;
  the result reports what was removed and whether an apartment was
  recalculated, so the caller can present a confirmation before the
  irreversible delete. A linked charge is only unlinked, never deleted:
  the debt it records is not erased by removing a bank entry.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LINKAGE MANAGER
// =============================================================================

// Linkage maintains the movement <-> record pairing.
type Linkage struct {
	store TxStore
	alloc *Allocator
}

func NewLinkage(store TxStore, alloc *Allocator) *Linkage {
	return &Linkage{store: store, alloc: alloc}
}

// MovementUpdate carries the editable fields of a bank movement.
// An empty AccountID keeps the current account.
type MovementUpdate struct {
	Amount      Money
	Date        Date
	Description string
	Category    Category
	AccountID   AccountID
}

// DeleteResult tells the caller what a cascading delete removed.
// DeletedRecordType is empty when the movement was unlinked (or linked
// to a charge, which is kept and merely unlinked).
type DeleteResult struct {
	DeletedRecordType RecordType
	Amount            Money
	ApartmentID       ApartmentID
	Recalculated      bool // true when an allocation was reversed
}

// Link pairs an existing movement with an existing record.
// Fails with ErrAlreadyLinked if either side already has a partner.
func (l *Linkage) Link(ctx context.Context, movementID MovementID, rec LinkedRecord) error {
	return l.store.WithTx(ctx, func(s Store) error {
		mv, err := s.GetMovement(ctx, movementID)
		if err != nil {
			return err
		}
		if mv == nil {
			return &NotFoundError{Kind: "movement", ID: string(movementID)}
		}
		return l.linkIn(ctx, s, mv, rec)
	})
}

// CreateLinkedMovement atomically creates a movement and links it to the
// record. Used when registering a payment with an associated account.
func (l *Linkage) CreateLinkedMovement(ctx context.Context, mv BankMovement, rec LinkedRecord) (BankMovement, error) {
	if mv.ID == "" {
		mv.ID = MovementID(uuid.NewString())
	}
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = time.Now().UTC()
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		if err := l.checkAccount(ctx, s, mv.AccountID); err != nil {
			return err
		}
		if err := s.SaveMovement(ctx, mv); err != nil {
			return err
		}
		return l.linkIn(ctx, s, &mv, rec)
	})
	return mv, err
}

// UpdateMovement edits a movement and propagates the edit to its linked
// record. For a linked payment the description and date are re-derived
// from the movement (they are not independently editable), and an amount
// change reverses and re-applies the payment's allocation.
func (l *Linkage) UpdateMovement(ctx context.Context, id MovementID, upd MovementUpdate) error {
	if !upd.Amount.IsPositive() {
		return &InvalidAmountError{Amount: upd.Amount}
	}

	mv, err := l.store.GetMovement(ctx, id)
	if err != nil {
		return err
	}
	if mv == nil {
		return &NotFoundError{Kind: "movement", ID: string(id)}
	}

	// Serialize against allocations for the affected apartment.
	if mv.LinkedType == RecordPayment {
		p, err := l.store.GetPayment(ctx, PaymentID(mv.LinkedID))
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "payment", ID: mv.LinkedID}
		}
		unlock := l.alloc.locks.lock(p.ApartmentID)
		defer unlock()
	}

	return l.store.WithTx(ctx, func(s Store) error {
		mv, err := s.GetMovement(ctx, id)
		if err != nil {
			return err
		}
		if mv == nil {
			return &NotFoundError{Kind: "movement", ID: string(id)}
		}

		amountChanged := !upd.Amount.Equal(mv.Amount)

		mv.Amount = upd.Amount
		mv.Date = upd.Date
		mv.Description = upd.Description
		mv.Category = upd.Category
		if upd.AccountID != "" {
			if err := l.checkAccount(ctx, s, upd.AccountID); err != nil {
				return err
			}
			mv.AccountID = upd.AccountID
		}
		if err := s.SaveMovement(ctx, *mv); err != nil {
			return err
		}

		switch mv.LinkedType {
		case RecordPayment:
			return l.propagateToPayment(ctx, s, mv, amountChanged)
		case RecordCharge:
			return l.propagateToCharge(ctx, s, mv)
		case RecordTransaction:
			return l.propagateToTransaction(ctx, s, mv)
		}
		return nil
	})
}

// DeleteMovement removes a movement and cascades to its linked record.
func (l *Linkage) DeleteMovement(ctx context.Context, id MovementID) (DeleteResult, error) {
	mv, err := l.store.GetMovement(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if mv == nil {
		return DeleteResult{}, &NotFoundError{Kind: "movement", ID: string(id)}
	}

	if mv.LinkedType == RecordPayment {
		p, err := l.store.GetPayment(ctx, PaymentID(mv.LinkedID))
		if err != nil {
			return DeleteResult{}, err
		}
		if p == nil {
			return DeleteResult{}, &NotFoundError{Kind: "payment", ID: mv.LinkedID}
		}
		unlock := l.alloc.locks.lock(p.ApartmentID)
		defer unlock()
	}

	var res DeleteResult
	err = l.store.WithTx(ctx, func(s Store) error {
		mv, err := s.GetMovement(ctx, id)
		if err != nil {
			return err
		}
		if mv == nil {
			return &NotFoundError{Kind: "movement", ID: string(id)}
		}
		res.Amount = mv.Amount

		switch mv.LinkedType {
		case RecordPayment:
			p, err := s.GetPayment(ctx, PaymentID(mv.LinkedID))
			if err != nil {
				return err
			}
			if p == nil {
				return &NotFoundError{Kind: "payment", ID: mv.LinkedID}
			}
			reversed, err := l.alloc.reverseIn(ctx, s, p.ID)
			if err != nil {
				return err
			}
			if err := s.DeletePayment(ctx, p.ID); err != nil {
				return err
			}
			res.DeletedRecordType = RecordPayment
			res.Amount = p.Amount
			res.ApartmentID = p.ApartmentID
			res.Recalculated = reversed > 0

		case RecordTransaction:
			tx, err := s.GetTransaction(ctx, TransactionID(mv.LinkedID))
			if err != nil {
				return err
			}
			if tx != nil {
				if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
					return err
				}
				res.DeletedRecordType = RecordTransaction
				res.Amount = tx.Amount
			}

		case RecordCharge:
			// Keep the charge; only clear its movement reference.
			c, err := s.GetCharge(ctx, ChargeID(mv.LinkedID))
			if err != nil {
				return err
			}
			if c != nil {
				c.MovementID = ""
				if err := s.SaveCharge(ctx, *c); err != nil {
					return err
				}
				res.ApartmentID = c.ApartmentID
			}
		}

		return s.DeleteMovement(ctx, id)
	})
	return res, err
}

// MatchPayment creates an IN movement on the account mirroring the
// payment's amount, date and description, and links the two.
func (l *Linkage) MatchPayment(ctx context.Context, paymentID PaymentID, accountID AccountID) (BankMovement, error) {
	var mv BankMovement
	err := l.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "payment", ID: string(paymentID)}
		}
		if p.MovementID != "" {
			return &AlreadyLinkedError{RecordType: RecordPayment, RecordID: string(paymentID), Side: "record"}
		}
		if err := l.checkAccount(ctx, s, accountID); err != nil {
			return err
		}

		mv = BankMovement{
			ID:          MovementID(uuid.NewString()),
			AccountID:   accountID,
			Direction:   In,
			Amount:      p.Amount,
			Date:        p.Date,
			Description: p.Description,
			Category:    p.Category,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.SaveMovement(ctx, mv); err != nil {
			return err
		}
		return l.linkIn(ctx, s, &mv, LinkedRecord{Type: RecordPayment, ID: string(paymentID)})
	})
	return mv, err
}

// =============================================================================
// TRANSACTIONAL INTERNALS
// =============================================================================

// linkIn sets both sides of the pairing, refusing if either is taken.
func (l *Linkage) linkIn(ctx context.Context, s Store, mv *BankMovement, rec LinkedRecord) error {
	if mv.Linked() {
		return &AlreadyLinkedError{MovementID: mv.ID, RecordType: mv.LinkedType, RecordID: mv.LinkedID, Side: "movement"}
	}

	switch rec.Type {
	case RecordPayment:
		p, err := s.GetPayment(ctx, PaymentID(rec.ID))
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "payment", ID: rec.ID}
		}
		if p.MovementID != "" {
			return &AlreadyLinkedError{RecordType: rec.Type, RecordID: rec.ID, Side: "record"}
		}
		p.MovementID = mv.ID
		if err := s.SavePayment(ctx, *p); err != nil {
			return err
		}

	case RecordCharge:
		c, err := s.GetCharge(ctx, ChargeID(rec.ID))
		if err != nil {
			return err
		}
		if c == nil {
			return &NotFoundError{Kind: "charge", ID: rec.ID}
		}
		if c.MovementID != "" {
			return &AlreadyLinkedError{RecordType: rec.Type, RecordID: rec.ID, Side: "record"}
		}
		c.MovementID = mv.ID
		if err := s.SaveCharge(ctx, *c); err != nil {
			return err
		}

	case RecordTransaction:
		tx, err := s.GetTransaction(ctx, TransactionID(rec.ID))
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Kind: "transaction", ID: rec.ID}
		}
		if tx.MovementID != "" {
			return &AlreadyLinkedError{RecordType: rec.Type, RecordID: rec.ID, Side: "record"}
		}
		tx.MovementID = mv.ID
		if err := s.SaveTransaction(ctx, *tx); err != nil {
			return err
		}

	default:
		return &NotFoundError{Kind: "record", ID: rec.ID}
	}

	mv.LinkedType = rec.Type
	mv.LinkedID = rec.ID
	return s.SaveMovement(ctx, *mv)
}

func (l *Linkage) propagateToPayment(ctx context.Context, s Store, mv *BankMovement, amountChanged bool) error {
	p, err := s.GetPayment(ctx, PaymentID(mv.LinkedID))
	if err != nil {
		return err
	}
	if p == nil {
		return &NotFoundError{Kind: "payment", ID: mv.LinkedID}
	}

	// Derived fields: the payment mirrors the movement.
	p.Description = mv.Description
	p.Date = mv.Date

	if !amountChanged {
		return s.SavePayment(ctx, *p)
	}

	// The charge paid-states depend on the payment amount: un-apply
	// under the old amount, then re-apply under the new one.
	if _, err := l.alloc.reverseIn(ctx, s, p.ID); err != nil {
		return err
	}
	p.Amount = mv.Amount
	_, err = l.alloc.applyIn(ctx, s, *p)
	return err
}

func (l *Linkage) propagateToCharge(ctx context.Context, s Store, mv *BankMovement) error {
	c, err := s.GetCharge(ctx, ChargeID(mv.LinkedID))
	if err != nil {
		return err
	}
	if c == nil {
		return &NotFoundError{Kind: "charge", ID: mv.LinkedID}
	}
	if c.AmountPaid.GreaterThan(mv.Amount) {
		// Shrinking below what was already allocated is a caller error.
		return &InvalidAmountError{Amount: mv.Amount}
	}
	c.Amount = mv.Amount
	c.Date = mv.Date
	c.Description = mv.Description
	c.PaidState = PaidStateFor(c.AmountPaid, c.Amount)
	return s.SaveCharge(ctx, *c)
}

func (l *Linkage) propagateToTransaction(ctx context.Context, s Store, mv *BankMovement) error {
	tx, err := s.GetTransaction(ctx, TransactionID(mv.LinkedID))
	if err != nil {
		return err
	}
	if tx == nil {
		return &NotFoundError{Kind: "transaction", ID: mv.LinkedID}
	}
	tx.Amount = mv.Amount
	tx.Date = mv.Date
	tx.Description = mv.Description
	if mv.Category != "" {
		tx.Category = mv.Category
	}
	return s.SaveTransaction(ctx, *tx)
}

func (l *Linkage) checkAccount(ctx context.Context, s Store, id AccountID) error {
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if acc == nil {
		return &NotFoundError{Kind: "account", ID: string(id)}
	}
	return nil
}
