/*
store.go - Persistence interface for the ledger

PURPOSE:
  Defines the interface between the engine and the database. The engine
  owns the invariants; the store owns durability. Different
  implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   CRUD plus the range queries the components need
  TxStore: Store plus WithTx for atomic multi-record writes

LOOKUP CONTRACT:
  Get* methods return (nil, nil) when the record is absent. The engine
  components translate that into NotFoundError with record context;
  the store never invents domain errors.

ORDERING CONTRACT:
  ChargesByApartment returns charges oldest-date-first, ties broken by
  creation order. The allocator's oldest-first walk and its reversal
  both depend on this ordering being stable.

ATOMICITY:
  Every mutating engine operation runs inside WithTx. If fn returns an
  error nothing is persisted; no partial allocation or half-linked
  movement is ever observable.

IMPLEMENTATIONS:
  - store/sqlite:        production SQLite store
  - ledger/store/memory: in-memory store for tests and dev
*/
package ledger

import "context"

// Store is the durable record of the condominium ledger.
type Store interface {
	// Apartments
	SaveApartment(ctx context.Context, a Apartment) error
	GetApartment(ctx context.Context, id ApartmentID) (*Apartment, error)
	ListApartments(ctx context.Context) ([]Apartment, error)
	// DeleteApartment clears the apartment reference on its charges and
	// payments (orphaned-but-valid for historical reporting) before
	// removing the apartment itself.
	DeleteApartment(ctx context.Context, id ApartmentID) error

	// Charges
	SaveCharge(ctx context.Context, c Charge) error
	GetCharge(ctx context.Context, id ChargeID) (*Charge, error)
	DeleteCharge(ctx context.Context, id ChargeID) error
	ChargesByApartment(ctx context.Context, id ApartmentID) ([]Charge, error)
	ChargesInRange(ctx context.Context, from, to Date) ([]Charge, error)

	// Payments
	SavePayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)
	DeletePayment(ctx context.Context, id PaymentID) error
	PaymentsByApartment(ctx context.Context, id ApartmentID) ([]Payment, error)
	PaymentsInRange(ctx context.Context, from, to Date) ([]Payment, error)

	// Generic transactions
	SaveTransaction(ctx context.Context, t Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id TransactionID) error
	TransactionsInRange(ctx context.Context, from, to Date) ([]Transaction, error)

	// Bank accounts
	SaveAccount(ctx context.Context, a BankAccount) error
	GetAccount(ctx context.Context, id AccountID) (*BankAccount, error)
	ListAccounts(ctx context.Context) ([]BankAccount, error)

	// Bank movements
	SaveMovement(ctx context.Context, m BankMovement) error
	GetMovement(ctx context.Context, id MovementID) (*BankMovement, error)
	DeleteMovement(ctx context.Context, id MovementID) error
	MovementsByAccount(ctx context.Context, id AccountID) ([]BankMovement, error)
	MovementsInRange(ctx context.Context, from, to Date) ([]BankMovement, error)

	// Allocations (ordered by Seq within a payment)
	SaveAllocation(ctx context.Context, a Allocation) error
	AllocationsByPayment(ctx context.Context, id PaymentID) ([]Allocation, error)
	AllocationsByCharge(ctx context.Context, id ChargeID) ([]Allocation, error)
	DeleteAllocationsByPayment(ctx context.Context, id PaymentID) error

	// Period notes
	SavePeriodNote(ctx context.Context, n PeriodNote) error
	GetPeriodNote(ctx context.Context, year int, month int) (*PeriodNote, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error

	// Reset wipes every table. Demo/dev tooling only.
	Reset(ctx context.Context) error
}
