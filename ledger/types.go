/*
Package ledger is the condominium accounting engine.

PURPOSE:
  This package contains the types and algorithms behind the apartment
  ledger: debt tracking from charges and payments, payment allocation
  against outstanding charges, the 1:1 pairing of bank movements with
  accounting records, and the point-in-time / period balance reports
  the administration tool renders.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount rounded to the currency's minor unit
  - Apartment / Charge / Payment / Transaction: the accounting records
  - BankAccount / BankMovement: the bank side of the ledger
  - Allocation: what a payment contributed to a specific charge

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float arithmetic
  2. Raw amounts are the source of truth: amountPaid/paidState are a
     cache of allocation order, never an input to balance math
  3. Type safety: distinct ID types so an ApartmentID can't be passed
     where a PaymentID belongs

SEE ALSO:
  - allocate.go: payment allocation and reversal
  - linkage.go:  bank movement <-> record pairing
  - balance.go:  point-in-time balance math
  - report.go:   monthly and accumulated statements
  - store.go:    persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with minor-unit precision
// =============================================================================

// Money is a currency amount. Constructors round to two decimal places;
// arithmetic preserves exactness so sums of rounded inputs stay exact.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value).Round(2)}
}

func MoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d.Round(2)}, nil
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool      { return m.Value.LessThan(o.Value) }
func (m Money) Min(o Money) Money          { if m.LessThan(o) { return m }; return o }
func (m Money) String() string             { return m.Value.StringFixed(2) }

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ApartmentID string
type ChargeID string
type PaymentID string
type TransactionID string
type AccountID string
type MovementID string
type ProviderID string

// =============================================================================
// CATEGORIES & PAID STATE
// =============================================================================

// Category classifies charges, payments and generic transactions for
// reporting. CommonExpense and ReserveFund are the two apartment-scoped
// categories; anything else is a free-form expense/income category.
type Category string

const (
	CategoryCommonExpense Category = "common_expense"
	CategoryReserveFund   Category = "reserve_fund"
	CategoryMixed         Category = "mixed"
)

// PaidState is a pure function of amountPaid/amount on a Charge.
type PaidState string

const (
	Unpaid  PaidState = "unpaid"
	Partial PaidState = "partial"
	Paid    PaidState = "paid"
)

// PaidStateFor derives the paid state from the paid/total pair.
func PaidStateFor(amountPaid, amount Money) PaidState {
	switch {
	case amountPaid.IsZero():
		return Unpaid
	case amountPaid.Equal(amount):
		return Paid
	default:
		return Partial
	}
}

// =============================================================================
// APARTMENT - Unit record with configured monthly amounts
// =============================================================================

// OccupantRole distinguishes the owner record from the tenant record.
// A unit may have one of each; they are separate ledger parties sharing
// a unit number.
type OccupantRole string

const (
	RoleOwner  OccupantRole = "owner"
	RoleTenant OccupantRole = "tenant"
)

type Apartment struct {
	ID       ApartmentID
	Unit     string
	Occupant string
	Role     OccupantRole

	// Configured monthly amounts used by the charge generator.
	// Zero means "no standard charge of that category".
	CommonExpense Money
	ReserveFund   Money

	CreatedAt time.Time
}

// =============================================================================
// CHARGE - Debt entry against one apartment
// =============================================================================

type Charge struct {
	ID          ChargeID
	ApartmentID ApartmentID // empty when the apartment was deleted (orphaned)
	Category    Category
	Amount      Money
	Date        Date
	Description string

	// Allocation cache, mutated only by the Allocator.
	// Invariant: 0 <= AmountPaid <= Amount; PaidState = PaidStateFor(...).
	AmountPaid Money
	PaidState  PaidState

	MovementID MovementID // optional linked bank movement
	CreatedAt  time.Time
}

// Due returns the outstanding portion of the charge.
func (c Charge) Due() Money { return c.Amount.Sub(c.AmountPaid) }

// =============================================================================
// PAYMENT - Credit entry against one apartment
// =============================================================================

type Payment struct {
	ID          PaymentID
	ApartmentID ApartmentID // empty when the apartment was deleted (orphaned)
	Amount      Money
	Date        Date
	Category    Category // reporting classification; CategoryMixed when unsplit
	Description string

	MovementID MovementID // optional linked bank movement
	CreatedAt  time.Time
}

// =============================================================================
// GENERIC TRANSACTION - Income/expense outside the apartment ledger
// =============================================================================

// Transaction is a non-apartment-scoped accounting record, e.g. a
// contractor invoice. It never participates in allocation; only in
// balance sums and the "spent" side of reports.
type Transaction struct {
	ID          TransactionID
	Amount      Money
	Date        Date
	Category    Category
	Description string
	ApartmentID ApartmentID // optional back-reference
	MovementID  MovementID  // optional linked bank movement
	CreatedAt   time.Time
}

// =============================================================================
// BANK SIDE - Accounts and movements
// =============================================================================

type BankAccount struct {
	ID             AccountID
	Name           string
	OpeningBalance Money
	Active         bool
	Default        bool
	CreatedAt      time.Time
}

// Direction of a bank movement.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// RecordType identifies which kind of accounting record a movement links to.
type RecordType string

const (
	RecordPayment     RecordType = "payment"
	RecordCharge      RecordType = "charge"
	RecordTransaction RecordType = "transaction"
)

// BankMovement is a ledger entry on a bank account. A movement links to
// at most one accounting record, and that record points back at the
// movement (referential symmetry, owned by the Linkage manager).
type BankMovement struct {
	ID          MovementID
	AccountID   AccountID
	Direction   Direction
	Amount      Money
	Date        Date
	Description string
	Category    Category // optional

	LinkedType RecordType // empty when unlinked
	LinkedID   string

	ProviderID ProviderID // optional service-provider reference
	CreatedAt  time.Time
}

// Linked reports whether the movement has a partner record.
func (m BankMovement) Linked() bool { return m.LinkedType != "" }

// LinkedRecord names one side of a movement linkage.
type LinkedRecord struct {
	Type RecordType
	ID   string
}

// =============================================================================
// ALLOCATION - What a payment contributed to a charge
// =============================================================================

// Allocation records one step of an Apply walk: payment -> charge ->
// amount, in walk order (Seq). Reverse replays these newest-first, which
// makes it the exact inverse of Apply even for partially covered charges.
type Allocation struct {
	ID        string
	PaymentID PaymentID
	ChargeID  ChargeID
	Amount    Money
	Seq       int
	CreatedAt time.Time
}

// =============================================================================
// PERIOD NOTE - Free-form report annotations
// =============================================================================

// PeriodNote carries the notice and footer text attached to a monthly
// statement. No computational role.
type PeriodNote struct {
	Year   int
	Month  time.Month
	Notice string
	Footer string
}
