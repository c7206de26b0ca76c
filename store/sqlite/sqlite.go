/*
Package sqlite provides the SQLite-backed implementation of
ledger.TxStore.

PURPOSE:
  Production persistence for the condominium ledger. The same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  apartments:   Unit records with configured monthly amounts
  charges:      Debt entries (with the allocation cache columns)
  payments:     Credit entries
  txrecords:    Non-apartment income/expense
  accounts:     Bank accounts
  movements:    Bank movements (linked_type/linked_id pairing columns)
  allocations:  Payment-to-charge allocation steps
  period_notes: Report annotations

LINKAGE ENFORCEMENT:
  The 1:1 movement/record invariant is owned by the ledger.Linkage
  manager, but the schema backs it with unique partial indexes on
  movements(linked_type, linked_id) and on each record table's
  movement_id column as a last line of defense. A violation surfaces
  as ledger.ErrAlreadyLinked.

ORDERING:
  Charge and payment queries order by date ASC, rowid ASC. The rowid
  tie-break gives the allocator the stable creation-order walk its
  reversal depends on. SQLite keeps the rowid across upserts.

CONCURRENCY:
  A store-wide mutex serializes writes; WithTx holds it for the whole
  transaction. The per-record helpers take a dbtx (either *sql.DB or
  the open *sql.Tx) and never touch the mutex themselves, so the
  transactional view can run queries without re-locking.

WAL MODE:
  Opened with WAL so readers don't block behind the writer.

USAGE:
  st, err := sqlite.New("./data/condo.db")   // ":memory:" for tests
  ...
  defer st.Close()
  engine := ledger.NewEngine(st)

SEE ALSO:
  - ledger/store.go:        interface definitions and contracts
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atrium/condo-engine/ledger"
)

// Store implements ledger.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS apartments (
		id TEXT PRIMARY KEY,
		unit TEXT NOT NULL,
		occupant TEXT NOT NULL,
		role TEXT NOT NULL,
		common_expense TEXT NOT NULL,
		reserve_fund TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT,
		amount_paid TEXT NOT NULL,
		paid_state TEXT NOT NULL,
		movement_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_charges_apartment_date
		ON charges(apartment_id, date);

	-- Last line of defense for the 1:1 linkage invariant.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_charges_movement
		ON charges(movement_id) WHERE movement_id != '';

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		movement_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_apartment_date
		ON payments(apartment_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_movement
		ON payments(movement_id) WHERE movement_id != '';

	CREATE TABLE IF NOT EXISTS txrecords (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		apartment_id TEXT NOT NULL DEFAULT '',
		movement_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_txrecords_date
		ON txrecords(date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_txrecords_movement
		ON txrecords(movement_id) WHERE movement_id != '';

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL DEFAULT '',
		linked_type TEXT NOT NULL DEFAULT '',
		linked_id TEXT NOT NULL DEFAULT '',
		provider_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_account_date
		ON movements(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_movements_date
		ON movements(date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_movements_linked
		ON movements(linked_type, linked_id) WHERE linked_type != '';

	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		charge_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_payment
		ON allocations(payment_id, seq);
	CREATE INDEX IF NOT EXISTS idx_allocations_charge
		ON allocations(charge_id);

	CREATE TABLE IF NOT EXISTS period_notes (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		notice TEXT,
		footer TEXT,
		PRIMARY KEY (year, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx; the per-record helpers
// run against whichever the caller is using.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// APARTMENTS
// =============================================================================

func (s *Store) SaveApartment(ctx context.Context, a ledger.Apartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveApartment(ctx, s.db, a)
}

func saveApartment(ctx context.Context, db dbtx, a ledger.Apartment) error {
	query := `
		INSERT INTO apartments (id, unit, occupant, role, common_expense, reserve_fund, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unit = excluded.unit,
			occupant = excluded.occupant,
			role = excluded.role,
			common_expense = excluded.common_expense,
			reserve_fund = excluded.reserve_fund
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.Unit, a.Occupant, a.Role,
		a.CommonExpense.String(), a.ReserveFund.String(),
		timestamp(a.CreatedAt),
	)
	return err
}

func (s *Store) GetApartment(ctx context.Context, id ledger.ApartmentID) (*ledger.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getApartment(ctx, s.db, id)
}

func getApartment(ctx context.Context, db dbtx, id ledger.ApartmentID) (*ledger.Apartment, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, unit, occupant, role, common_expense, reserve_fund, created_at FROM apartments WHERE id = ?",
		id,
	)
	a, err := scanApartment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListApartments(ctx context.Context) ([]ledger.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listApartments(ctx, s.db)
}

func listApartments(ctx context.Context, db dbtx) ([]ledger.Apartment, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, unit, occupant, role, common_expense, reserve_fund, created_at FROM apartments ORDER BY unit, role",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) DeleteApartment(ctx context.Context, id ledger.ApartmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteApartment(ctx, s.db, id)
}

// deleteApartment orphans the apartment's records before removing it;
// history stays reportable after the apartment is gone.
func deleteApartment(ctx context.Context, db dbtx, id ledger.ApartmentID) error {
	for _, table := range []string{"charges", "payments", "txrecords"} {
		if _, err := db.ExecContext(ctx,
			"UPDATE "+table+" SET apartment_id = '' WHERE apartment_id = ?", id); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, "DELETE FROM apartments WHERE id = ?", id)
	return err
}

func scanApartment(row scanner) (ledger.Apartment, error) {
	var (
		a                          ledger.Apartment
		commonExpense, reserveFund string
		createdAt                  string
	)
	if err := row.Scan(&a.ID, &a.Unit, &a.Occupant, &a.Role, &commonExpense, &reserveFund, &createdAt); err != nil {
		return a, err
	}
	var err error
	if a.CommonExpense, err = ledger.MoneyFromString(commonExpense); err != nil {
		return a, fmt.Errorf("apartment %s: bad common_expense: %w", a.ID, err)
	}
	if a.ReserveFund, err = ledger.MoneyFromString(reserveFund); err != nil {
		return a, fmt.Errorf("apartment %s: bad reserve_fund: %w", a.ID, err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

// =============================================================================
// CHARGES
// =============================================================================

func (s *Store) SaveCharge(ctx context.Context, c ledger.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCharge(ctx, s.db, c)
}

func saveCharge(ctx context.Context, db dbtx, c ledger.Charge) error {
	query := `
		INSERT INTO charges (id, apartment_id, category, amount, date, description, amount_paid, paid_state, movement_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			apartment_id = excluded.apartment_id,
			category = excluded.category,
			amount = excluded.amount,
			date = excluded.date,
			description = excluded.description,
			amount_paid = excluded.amount_paid,
			paid_state = excluded.paid_state,
			movement_id = excluded.movement_id
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.ApartmentID, c.Category,
		c.Amount.String(), c.Date.String(), c.Description,
		c.AmountPaid.String(), c.PaidState, c.MovementID,
		timestamp(c.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrAlreadyLinked
	}
	return err
}

func (s *Store) GetCharge(ctx context.Context, id ledger.ChargeID) (*ledger.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCharge(ctx, s.db, id)
}

func getCharge(ctx context.Context, db dbtx, id ledger.ChargeID) (*ledger.Charge, error) {
	row := db.QueryRowContext(ctx,
		chargeColumns+" FROM charges WHERE id = ?", id,
	)
	c, err := scanCharge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCharge(ctx context.Context, id ledger.ChargeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCharge(ctx, s.db, id)
}

func deleteCharge(ctx context.Context, db dbtx, id ledger.ChargeID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM charges WHERE id = ?", id)
	return err
}

func (s *Store) ChargesByApartment(ctx context.Context, id ledger.ApartmentID) ([]ledger.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chargesByApartment(ctx, s.db, id)
}

func chargesByApartment(ctx context.Context, db dbtx, id ledger.ApartmentID) ([]ledger.Charge, error) {
	// date ASC, rowid ASC: the allocator's walk order.
	return queryCharges(ctx, db,
		chargeColumns+" FROM charges WHERE apartment_id = ? ORDER BY date ASC, rowid ASC", id)
}

func (s *Store) ChargesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chargesInRange(ctx, s.db, from, to)
}

func chargesInRange(ctx context.Context, db dbtx, from, to ledger.Date) ([]ledger.Charge, error) {
	return queryCharges(ctx, db,
		chargeColumns+" FROM charges WHERE date >= ? AND date <= ? ORDER BY date ASC, rowid ASC",
		from.String(), to.String())
}

const chargeColumns = "SELECT id, apartment_id, category, amount, date, description, amount_paid, paid_state, movement_id, created_at"

func queryCharges(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Charge, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanCharge(row scanner) (ledger.Charge, error) {
	var (
		c                        ledger.Charge
		amount, date, amountPaid string
		description              sql.NullString
		createdAt                string
	)
	if err := row.Scan(&c.ID, &c.ApartmentID, &c.Category, &amount, &date,
		&description, &amountPaid, &c.PaidState, &c.MovementID, &createdAt); err != nil {
		return c, err
	}
	var err error
	if c.Amount, err = ledger.MoneyFromString(amount); err != nil {
		return c, fmt.Errorf("charge %s: bad amount: %w", c.ID, err)
	}
	if c.AmountPaid, err = ledger.MoneyFromString(amountPaid); err != nil {
		return c, fmt.Errorf("charge %s: bad amount_paid: %w", c.ID, err)
	}
	if c.Date, err = ledger.ParseDate(date); err != nil {
		return c, fmt.Errorf("charge %s: bad date: %w", c.ID, err)
	}
	c.Description = description.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePayment(ctx, s.db, p)
}

func savePayment(ctx context.Context, db dbtx, p ledger.Payment) error {
	query := `
		INSERT INTO payments (id, apartment_id, amount, date, category, description, movement_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			apartment_id = excluded.apartment_id,
			amount = excluded.amount,
			date = excluded.date,
			category = excluded.category,
			description = excluded.description,
			movement_id = excluded.movement_id
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.ApartmentID, p.Amount.String(), p.Date.String(),
		p.Category, p.Description, p.MovementID,
		timestamp(p.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrAlreadyLinked
	}
	return err
}

func (s *Store) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayment(ctx, s.db, id)
}

func getPayment(ctx context.Context, db dbtx, id ledger.PaymentID) (*ledger.Payment, error) {
	row := db.QueryRowContext(ctx,
		paymentColumns+" FROM payments WHERE id = ?", id,
	)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePayment(ctx, s.db, id)
}

func deletePayment(ctx context.Context, db dbtx, id ledger.PaymentID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	return err
}

func (s *Store) PaymentsByApartment(ctx context.Context, id ledger.ApartmentID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByApartment(ctx, s.db, id)
}

func paymentsByApartment(ctx context.Context, db dbtx, id ledger.ApartmentID) ([]ledger.Payment, error) {
	return queryPayments(ctx, db,
		paymentColumns+" FROM payments WHERE apartment_id = ? ORDER BY date ASC, rowid ASC", id)
}

func (s *Store) PaymentsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsInRange(ctx, s.db, from, to)
}

func paymentsInRange(ctx context.Context, db dbtx, from, to ledger.Date) ([]ledger.Payment, error) {
	return queryPayments(ctx, db,
		paymentColumns+" FROM payments WHERE date >= ? AND date <= ? ORDER BY date ASC, rowid ASC",
		from.String(), to.String())
}

const paymentColumns = "SELECT id, apartment_id, amount, date, category, description, movement_id, created_at"

func queryPayments(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Payment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPayment(row scanner) (ledger.Payment, error) {
	var (
		p            ledger.Payment
		amount, date string
		description  sql.NullString
		createdAt    string
	)
	if err := row.Scan(&p.ID, &p.ApartmentID, &amount, &date,
		&p.Category, &description, &p.MovementID, &createdAt); err != nil {
		return p, err
	}
	var err error
	if p.Amount, err = ledger.MoneyFromString(amount); err != nil {
		return p, fmt.Errorf("payment %s: bad amount: %w", p.ID, err)
	}
	if p.Date, err = ledger.ParseDate(date); err != nil {
		return p, fmt.Errorf("payment %s: bad date: %w", p.ID, err)
	}
	p.Description = description.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// =============================================================================
// GENERIC TRANSACTIONS
// =============================================================================

func (s *Store) SaveTransaction(ctx context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTransaction(ctx, s.db, t)
}

func saveTransaction(ctx context.Context, db dbtx, t ledger.Transaction) error {
	query := `
		INSERT INTO txrecords (id, amount, date, category, description, apartment_id, movement_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			date = excluded.date,
			category = excluded.category,
			description = excluded.description,
			apartment_id = excluded.apartment_id,
			movement_id = excluded.movement_id
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.Amount.String(), t.Date.String(), t.Category,
		t.Description, t.ApartmentID, t.MovementID,
		timestamp(t.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrAlreadyLinked
	}
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := db.QueryRowContext(ctx,
		txColumns+" FROM txrecords WHERE id = ?", id,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func deleteTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM txrecords WHERE id = ?", id)
	return err
}

func (s *Store) TransactionsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsInRange(ctx, s.db, from, to)
}

func transactionsInRange(ctx context.Context, db dbtx, from, to ledger.Date) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		txColumns+" FROM txrecords WHERE date >= ? AND date <= ? ORDER BY date ASC, rowid ASC",
		from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

const txColumns = "SELECT id, amount, date, category, description, apartment_id, movement_id, created_at"

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		t            ledger.Transaction
		amount, date string
		description  sql.NullString
		createdAt    string
	)
	if err := row.Scan(&t.ID, &amount, &date, &t.Category,
		&description, &t.ApartmentID, &t.MovementID, &createdAt); err != nil {
		return t, err
	}
	var err error
	if t.Amount, err = ledger.MoneyFromString(amount); err != nil {
		return t, fmt.Errorf("transaction %s: bad amount: %w", t.ID, err)
	}
	if t.Date, err = ledger.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %s: bad date: %w", t.ID, err)
	}
	t.Description = description.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}

// =============================================================================
// BANK ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a ledger.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, a)
}

func saveAccount(ctx context.Context, db dbtx, a ledger.BankAccount) error {
	query := `
		INSERT INTO accounts (id, name, opening_balance, active, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			opening_balance = excluded.opening_balance,
			active = excluded.active,
			is_default = excluded.is_default
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.Name, a.OpeningBalance.String(), a.Active, a.Default,
		timestamp(a.CreatedAt),
	)
	return err
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db dbtx, id ledger.AccountID) (*ledger.BankAccount, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, name, opening_balance, active, is_default, created_at FROM accounts WHERE id = ?",
		id,
	)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, db dbtx) ([]ledger.BankAccount, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, opening_balance, active, is_default, created_at FROM accounts ORDER BY rowid ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAccount(row scanner) (ledger.BankAccount, error) {
	var (
		a              ledger.BankAccount
		openingBalance string
		createdAt      string
	)
	if err := row.Scan(&a.ID, &a.Name, &openingBalance, &a.Active, &a.Default, &createdAt); err != nil {
		return a, err
	}
	var err error
	if a.OpeningBalance, err = ledger.MoneyFromString(openingBalance); err != nil {
		return a, fmt.Errorf("account %s: bad opening_balance: %w", a.ID, err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

// =============================================================================
// BANK MOVEMENTS
// =============================================================================

func (s *Store) SaveMovement(ctx context.Context, m ledger.BankMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveMovement(ctx, s.db, m)
}

func saveMovement(ctx context.Context, db dbtx, m ledger.BankMovement) error {
	query := `
		INSERT INTO movements (id, account_id, direction, amount, date, description, category, linked_type, linked_id, provider_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			direction = excluded.direction,
			amount = excluded.amount,
			date = excluded.date,
			description = excluded.description,
			category = excluded.category,
			linked_type = excluded.linked_type,
			linked_id = excluded.linked_id,
			provider_id = excluded.provider_id
	`
	_, err := db.ExecContext(ctx, query,
		m.ID, m.AccountID, m.Direction, m.Amount.String(), m.Date.String(),
		m.Description, m.Category, m.LinkedType, m.LinkedID, m.ProviderID,
		timestamp(m.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrAlreadyLinked
	}
	return err
}

func (s *Store) GetMovement(ctx context.Context, id ledger.MovementID) (*ledger.BankMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMovement(ctx, s.db, id)
}

func getMovement(ctx context.Context, db dbtx, id ledger.MovementID) (*ledger.BankMovement, error) {
	row := db.QueryRowContext(ctx,
		movementColumns+" FROM movements WHERE id = ?", id,
	)
	m, err := scanMovement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) DeleteMovement(ctx context.Context, id ledger.MovementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteMovement(ctx, s.db, id)
}

func deleteMovement(ctx context.Context, db dbtx, id ledger.MovementID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM movements WHERE id = ?", id)
	return err
}

func (s *Store) MovementsByAccount(ctx context.Context, id ledger.AccountID) ([]ledger.BankMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movementsByAccount(ctx, s.db, id)
}

func movementsByAccount(ctx context.Context, db dbtx, id ledger.AccountID) ([]ledger.BankMovement, error) {
	return queryMovements(ctx, db,
		movementColumns+" FROM movements WHERE account_id = ? ORDER BY date ASC, rowid ASC", id)
}

func (s *Store) MovementsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.BankMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movementsInRange(ctx, s.db, from, to)
}

func movementsInRange(ctx context.Context, db dbtx, from, to ledger.Date) ([]ledger.BankMovement, error) {
	return queryMovements(ctx, db,
		movementColumns+" FROM movements WHERE date >= ? AND date <= ? ORDER BY date ASC, rowid ASC",
		from.String(), to.String())
}

const movementColumns = "SELECT id, account_id, direction, amount, date, description, category, linked_type, linked_id, provider_id, created_at"

func queryMovements(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.BankMovement, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.BankMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanMovement(row scanner) (ledger.BankMovement, error) {
	var (
		m            ledger.BankMovement
		amount, date string
		description  sql.NullString
		createdAt    string
	)
	if err := row.Scan(&m.ID, &m.AccountID, &m.Direction, &amount, &date,
		&description, &m.Category, &m.LinkedType, &m.LinkedID, &m.ProviderID, &createdAt); err != nil {
		return m, err
	}
	var err error
	if m.Amount, err = ledger.MoneyFromString(amount); err != nil {
		return m, fmt.Errorf("movement %s: bad amount: %w", m.ID, err)
	}
	if m.Date, err = ledger.ParseDate(date); err != nil {
		return m, fmt.Errorf("movement %s: bad date: %w", m.ID, err)
	}
	m.Description = description.String
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return m, nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (s *Store) SaveAllocation(ctx context.Context, a ledger.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAllocation(ctx, s.db, a)
}

func saveAllocation(ctx context.Context, db dbtx, a ledger.Allocation) error {
	query := `
		INSERT INTO allocations (id, payment_id, charge_id, amount, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.PaymentID, a.ChargeID, a.Amount.String(), a.Seq,
		timestamp(a.CreatedAt),
	)
	return err
}

func (s *Store) AllocationsByPayment(ctx context.Context, id ledger.PaymentID) ([]ledger.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return allocationsByPayment(ctx, s.db, id)
}

func allocationsByPayment(ctx context.Context, db dbtx, id ledger.PaymentID) ([]ledger.Allocation, error) {
	return queryAllocations(ctx, db,
		"SELECT id, payment_id, charge_id, amount, seq, created_at FROM allocations WHERE payment_id = ? ORDER BY seq ASC", id)
}

func (s *Store) AllocationsByCharge(ctx context.Context, id ledger.ChargeID) ([]ledger.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return allocationsByCharge(ctx, s.db, id)
}

func allocationsByCharge(ctx context.Context, db dbtx, id ledger.ChargeID) ([]ledger.Allocation, error) {
	return queryAllocations(ctx, db,
		"SELECT id, payment_id, charge_id, amount, seq, created_at FROM allocations WHERE charge_id = ? ORDER BY seq ASC", id)
}

func (s *Store) DeleteAllocationsByPayment(ctx context.Context, id ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAllocationsByPayment(ctx, s.db, id)
}

func deleteAllocationsByPayment(ctx context.Context, db dbtx, id ledger.PaymentID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM allocations WHERE payment_id = ?", id)
	return err
}

func queryAllocations(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Allocation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Allocation
	for rows.Next() {
		var (
			a         ledger.Allocation
			amount    string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.ChargeID, &amount, &a.Seq, &createdAt); err != nil {
			return nil, err
		}
		if a.Amount, err = ledger.MoneyFromString(amount); err != nil {
			return nil, fmt.Errorf("allocation %s: bad amount: %w", a.ID, err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, a)
	}
	return result, rows.Err()
}

// =============================================================================
// PERIOD NOTES
// =============================================================================

func (s *Store) SavePeriodNote(ctx context.Context, n ledger.PeriodNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePeriodNote(ctx, s.db, n)
}

func savePeriodNote(ctx context.Context, db dbtx, n ledger.PeriodNote) error {
	query := `
		INSERT INTO period_notes (year, month, notice, footer)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			notice = excluded.notice,
			footer = excluded.footer
	`
	_, err := db.ExecContext(ctx, query, n.Year, int(n.Month), n.Notice, n.Footer)
	return err
}

func (s *Store) GetPeriodNote(ctx context.Context, year int, month int) (*ledger.PeriodNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPeriodNote(ctx, s.db, year, month)
}

func getPeriodNote(ctx context.Context, db dbtx, year, month int) (*ledger.PeriodNote, error) {
	var n ledger.PeriodNote
	var m int
	var notice, footer sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT year, month, notice, footer FROM period_notes WHERE year = ? AND month = ?",
		year, month,
	).Scan(&n.Year, &m, &notice, &footer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.Month = time.Month(m)
	n.Notice = notice.String
	n.Footer = footer.String
	return &n, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store mutex is
// held for the duration; the view below runs against the open *sql.Tx
// and never re-locks.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveApartment(ctx context.Context, a ledger.Apartment) error {
	return saveApartment(ctx, ts.tx, a)
}
func (ts *txStore) GetApartment(ctx context.Context, id ledger.ApartmentID) (*ledger.Apartment, error) {
	return getApartment(ctx, ts.tx, id)
}
func (ts *txStore) ListApartments(ctx context.Context) ([]ledger.Apartment, error) {
	return listApartments(ctx, ts.tx)
}
func (ts *txStore) DeleteApartment(ctx context.Context, id ledger.ApartmentID) error {
	return deleteApartment(ctx, ts.tx, id)
}

func (ts *txStore) SaveCharge(ctx context.Context, c ledger.Charge) error {
	return saveCharge(ctx, ts.tx, c)
}
func (ts *txStore) GetCharge(ctx context.Context, id ledger.ChargeID) (*ledger.Charge, error) {
	return getCharge(ctx, ts.tx, id)
}
func (ts *txStore) DeleteCharge(ctx context.Context, id ledger.ChargeID) error {
	return deleteCharge(ctx, ts.tx, id)
}
func (ts *txStore) ChargesByApartment(ctx context.Context, id ledger.ApartmentID) ([]ledger.Charge, error) {
	return chargesByApartment(ctx, ts.tx, id)
}
func (ts *txStore) ChargesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Charge, error) {
	return chargesInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) SavePayment(ctx context.Context, p ledger.Payment) error {
	return savePayment(ctx, ts.tx, p)
}
func (ts *txStore) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	return getPayment(ctx, ts.tx, id)
}
func (ts *txStore) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	return deletePayment(ctx, ts.tx, id)
}
func (ts *txStore) PaymentsByApartment(ctx context.Context, id ledger.ApartmentID) ([]ledger.Payment, error) {
	return paymentsByApartment(ctx, ts.tx, id)
}
func (ts *txStore) PaymentsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Payment, error) {
	return paymentsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) SaveTransaction(ctx context.Context, t ledger.Transaction) error {
	return saveTransaction(ctx, ts.tx, t)
}
func (ts *txStore) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}
func (ts *txStore) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	return deleteTransaction(ctx, ts.tx, id)
}
func (ts *txStore) TransactionsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Transaction, error) {
	return transactionsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) SaveAccount(ctx context.Context, a ledger.BankAccount) error {
	return saveAccount(ctx, ts.tx, a)
}
func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.BankAccount, error) {
	return getAccount(ctx, ts.tx, id)
}
func (ts *txStore) ListAccounts(ctx context.Context) ([]ledger.BankAccount, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) SaveMovement(ctx context.Context, m ledger.BankMovement) error {
	return saveMovement(ctx, ts.tx, m)
}
func (ts *txStore) GetMovement(ctx context.Context, id ledger.MovementID) (*ledger.BankMovement, error) {
	return getMovement(ctx, ts.tx, id)
}
func (ts *txStore) DeleteMovement(ctx context.Context, id ledger.MovementID) error {
	return deleteMovement(ctx, ts.tx, id)
}
func (ts *txStore) MovementsByAccount(ctx context.Context, id ledger.AccountID) ([]ledger.BankMovement, error) {
	return movementsByAccount(ctx, ts.tx, id)
}
func (ts *txStore) MovementsInRange(ctx context.Context, from, to ledger.Date) ([]ledger.BankMovement, error) {
	return movementsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) SaveAllocation(ctx context.Context, a ledger.Allocation) error {
	return saveAllocation(ctx, ts.tx, a)
}
func (ts *txStore) AllocationsByPayment(ctx context.Context, id ledger.PaymentID) ([]ledger.Allocation, error) {
	return allocationsByPayment(ctx, ts.tx, id)
}
func (ts *txStore) AllocationsByCharge(ctx context.Context, id ledger.ChargeID) ([]ledger.Allocation, error) {
	return allocationsByCharge(ctx, ts.tx, id)
}
func (ts *txStore) DeleteAllocationsByPayment(ctx context.Context, id ledger.PaymentID) error {
	return deleteAllocationsByPayment(ctx, ts.tx, id)
}

func (ts *txStore) SavePeriodNote(ctx context.Context, n ledger.PeriodNote) error {
	return savePeriodNote(ctx, ts.tx, n)
}
func (ts *txStore) GetPeriodNote(ctx context.Context, year int, month int) (*ledger.PeriodNote, error) {
	return getPeriodNote(ctx, ts.tx, year, month)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"allocations", "movements", "charges", "payments", "txrecords", "accounts", "apartments", "period_notes"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
