/*
allocate.go - Payment allocation against outstanding charges

PURPOSE:
  Applies a payment's amount to an apartment's unpaid charges and
  reverses that application when the payment is edited or removed.
  This is the only code that mutates AmountPaid/PaidState on a charge.

ORDERING:
  Apply walks charges oldest-date-first (ties by creation order) so the
  apartment's oldest obligations clear first - the order arrears are
  communicated to residents. Reverse walks the payment's recorded
  allocations most-recent-first. The asymmetry is deliberate: it keeps
  Reverse an exact inverse of Apply when charges were only partially
  covered. Do not collapse the two orderings into one.

OVER-PAYMENT:
  Any amount left after all charges are exhausted stays on the payment
  as a credit (Amount minus the sum of its allocations). The apartment's
  balance goes negative through the balance calculator, and the monthly
  charge generator offsets the credit against the charges it creates.

CONCURRENCY:
  At most one in-flight allocation per apartment. Two simultaneous
  payments against the same apartment serialize on a per-apartment
  mutex; without it the oldest-first walk can double-apply. All writes
  run inside a single store transaction, so a failure mid-walk leaves
  no partial state behind.

SEE ALSO:
  - linkage.go:  reverses+re-applies when a linked movement's amount changes
  - generate.go: applies outstanding credit to freshly generated charges
*/
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocator applies payments to charges and reverses those applications.
type Allocator struct {
	store TxStore
	locks lockTable
}

func NewAllocator(store TxStore) *Allocator {
	return &Allocator{store: store}
}

// ApplyResult reports what an Apply did.
type ApplyResult struct {
	Payment Payment
	Applied Money      // portion consumed by charges
	Credit  Money      // portion left unapplied (over-payment)
	Charges []ChargeID // charges touched, in walk order
}

// Apply persists the payment and allocates its amount against the
// apartment's outstanding charges, oldest first. The whole operation is
// one store transaction; on error nothing is persisted.
func (a *Allocator) Apply(ctx context.Context, p Payment) (ApplyResult, error) {
	if !p.Amount.IsPositive() {
		return ApplyResult{}, &InvalidAmountError{Amount: p.Amount}
	}

	unlock := a.locks.lock(p.ApartmentID)
	defer unlock()

	var res ApplyResult
	err := a.store.WithTx(ctx, func(s Store) error {
		var err error
		res, err = a.applyIn(ctx, s, p)
		return err
	})
	return res, err
}

// Reverse un-applies the payment's allocations, returning every touched
// charge's AmountPaid to its pre-Apply value, and removes the
// allocation records. The payment itself is left in place.
func (a *Allocator) Reverse(ctx context.Context, id PaymentID) error {
	p, err := a.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return &NotFoundError{Kind: "payment", ID: string(id)}
	}

	unlock := a.locks.lock(p.ApartmentID)
	defer unlock()

	return a.store.WithTx(ctx, func(s Store) error {
		_, err := a.reverseIn(ctx, s, id)
		return err
	})
}

// ApplyCredit offsets the apartment's unapplied payment remainders
// against its outstanding charges, oldest payment first. Returns the
// total amount newly applied.
func (a *Allocator) ApplyCredit(ctx context.Context, id ApartmentID) (Money, error) {
	unlock := a.locks.lock(id)
	defer unlock()

	var applied Money
	err := a.store.WithTx(ctx, func(s Store) error {
		var err error
		applied, err = a.applyCreditIn(ctx, s, id)
		return err
	})
	return applied, err
}

// =============================================================================
// TRANSACTIONAL INTERNALS
// =============================================================================
// The *In variants run against an in-transaction Store so the linkage
// manager and generator can compose them with their own writes. Callers
// hold the apartment lock.

func (a *Allocator) applyIn(ctx context.Context, s Store, p Payment) (ApplyResult, error) {
	apt, err := s.GetApartment(ctx, p.ApartmentID)
	if err != nil {
		return ApplyResult{}, err
	}
	if apt == nil {
		return ApplyResult{}, &NotFoundError{Kind: "apartment", ID: string(p.ApartmentID)}
	}

	if err := s.SavePayment(ctx, p); err != nil {
		return ApplyResult{}, err
	}

	existing, err := s.AllocationsByPayment(ctx, p.ID)
	if err != nil {
		return ApplyResult{}, err
	}

	applied, touched, err := a.allocateIn(ctx, s, p, p.Amount, len(existing))
	if err != nil {
		return ApplyResult{}, err
	}

	return ApplyResult{
		Payment: p,
		Applied: applied,
		Credit:  p.Amount.Sub(applied),
		Charges: touched,
	}, nil
}

// allocateIn walks the apartment's unpaid charges oldest-first and
// consumes up to remaining, recording one allocation per touched charge.
func (a *Allocator) allocateIn(ctx context.Context, s Store, p Payment, remaining Money, seq int) (Money, []ChargeID, error) {
	charges, err := s.ChargesByApartment(ctx, p.ApartmentID)
	if err != nil {
		return Money{}, nil, err
	}

	applied := ZeroMoney()
	var touched []ChargeID

	for _, c := range charges {
		if !remaining.IsPositive() {
			break
		}
		if c.PaidState == Paid {
			continue
		}

		take := remaining.Min(c.Due())
		if !take.IsPositive() {
			continue
		}

		c.AmountPaid = c.AmountPaid.Add(take)
		if c.AmountPaid.IsNegative() || c.AmountPaid.GreaterThan(c.Amount) {
			return Money{}, nil, &InconsistentStateError{ChargeID: c.ID, AmountPaid: c.AmountPaid, Amount: c.Amount}
		}
		c.PaidState = PaidStateFor(c.AmountPaid, c.Amount)

		if err := s.SaveCharge(ctx, c); err != nil {
			return Money{}, nil, err
		}
		if err := s.SaveAllocation(ctx, Allocation{
			ID:        uuid.NewString(),
			PaymentID: p.ID,
			ChargeID:  c.ID,
			Amount:    take,
			Seq:       seq,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return Money{}, nil, err
		}

		seq++
		remaining = remaining.Sub(take)
		applied = applied.Add(take)
		touched = append(touched, c.ID)
	}

	return applied, touched, nil
}

// reverseIn subtracts the payment's allocations back out of the charges,
// most recent allocation first, and deletes the allocation records.
// Returns how many charges were touched.
func (a *Allocator) reverseIn(ctx context.Context, s Store, id PaymentID) (int, error) {
	p, err := s.GetPayment(ctx, id)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, &NotFoundError{Kind: "payment", ID: string(id)}
	}

	allocs, err := s.AllocationsByPayment(ctx, id)
	if err != nil {
		return 0, err
	}

	for i := len(allocs) - 1; i >= 0; i-- {
		al := allocs[i]
		c, err := s.GetCharge(ctx, al.ChargeID)
		if err != nil {
			return 0, err
		}
		if c == nil {
			return 0, &NotFoundError{Kind: "charge", ID: string(al.ChargeID)}
		}

		c.AmountPaid = c.AmountPaid.Sub(al.Amount)
		if c.AmountPaid.IsNegative() || c.AmountPaid.GreaterThan(c.Amount) {
			return 0, &InconsistentStateError{ChargeID: c.ID, AmountPaid: c.AmountPaid, Amount: c.Amount}
		}
		c.PaidState = PaidStateFor(c.AmountPaid, c.Amount)

		if err := s.SaveCharge(ctx, *c); err != nil {
			return 0, err
		}
	}

	if err := s.DeleteAllocationsByPayment(ctx, id); err != nil {
		return 0, err
	}
	return len(allocs), nil
}

func (a *Allocator) applyCreditIn(ctx context.Context, s Store, id ApartmentID) (Money, error) {
	payments, err := s.PaymentsByApartment(ctx, id)
	if err != nil {
		return Money{}, err
	}

	total := ZeroMoney()
	for _, p := range payments {
		allocs, err := s.AllocationsByPayment(ctx, p.ID)
		if err != nil {
			return Money{}, err
		}
		allocated := ZeroMoney()
		for _, al := range allocs {
			allocated = allocated.Add(al.Amount)
		}

		remainder := p.Amount.Sub(allocated)
		if !remainder.IsPositive() {
			continue
		}

		applied, _, err := a.allocateIn(ctx, s, p, remainder, len(allocs))
		if err != nil {
			return Money{}, err
		}
		total = total.Add(applied)
	}
	return total, nil
}

// =============================================================================
// PER-APARTMENT LOCKING
// =============================================================================

// lockTable hands out one mutex per apartment so allocation walks
// against the same apartment never interleave.
type lockTable struct {
	mu    sync.Mutex
	locks map[ApartmentID]*sync.Mutex
}

func (t *lockTable) lock(id ApartmentID) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[ApartmentID]*sync.Mutex)
	}
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
