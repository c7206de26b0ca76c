package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/condo-engine/ledger"
	"github.com/atrium/condo-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func money(t *testing.T, s string) ledger.Money {
	t.Helper()
	m, err := ledger.MoneyFromString(s)
	require.NoError(t, err)
	return m
}

func date(t *testing.T, s string) ledger.Date {
	t.Helper()
	d, err := ledger.ParseDate(s)
	require.NoError(t, err)
	return d
}

func testApartment(t *testing.T, id, unit string) ledger.Apartment {
	t.Helper()
	return ledger.Apartment{
		ID:            ledger.ApartmentID(id),
		Unit:          unit,
		Occupant:      "Occupant " + unit,
		Role:          ledger.RoleOwner,
		CommonExpense: money(t, "100.00"),
		ReserveFund:   money(t, "50.00"),
		CreatedAt:     time.Now().UTC(),
	}
}

func testCharge(t *testing.T, id, apartmentID, amount, dateStr string) ledger.Charge {
	t.Helper()
	return ledger.Charge{
		ID:          ledger.ChargeID(id),
		ApartmentID: ledger.ApartmentID(apartmentID),
		Category:    ledger.CategoryCommonExpense,
		Amount:      money(t, amount),
		Date:        date(t, dateStr),
		AmountPaid:  ledger.ZeroMoney(),
		PaidState:   ledger.Unpaid,
		CreatedAt:   time.Now().UTC(),
	}
}

func testMovement(t *testing.T, id, accountID, amount, dateStr string) ledger.BankMovement {
	t.Helper()
	return ledger.BankMovement{
		ID:        ledger.MovementID(id),
		AccountID: ledger.AccountID(accountID),
		Direction: ledger.In,
		Amount:    money(t, amount),
		Date:      date(t, dateStr),
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// ROUND-TRIP AND LOOKUP CONTRACT TESTS
// =============================================================================

func TestSQLite_ApartmentRoundTrip(t *testing.T) {
	// GIVEN: A saved apartment
	// WHEN: It is read back
	// THEN: Every field survives, including the decimal amounts

	store := newTestStore(t)
	ctx := context.Background()

	a := testApartment(t, "apt-1", "101")
	require.NoError(t, store.SaveApartment(ctx, a))

	got, err := store.GetApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.Unit, got.Unit)
	assert.Equal(t, a.Occupant, got.Occupant)
	assert.Equal(t, a.Role, got.Role)
	assert.Equal(t, "100.00", got.CommonExpense.String())
	assert.Equal(t, "50.00", got.ReserveFund.String())
}

func TestSQLite_GetAbsent_ReturnsNilNil(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Looking up records that do not exist
	// THEN: (nil, nil) - absence is not an error at this layer

	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.GetApartment(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, a)

	c, err := store.GetCharge(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, c)

	mv, err := store.GetMovement(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, mv)
}

func TestSQLite_SaveIsUpsert(t *testing.T) {
	// GIVEN: A saved charge
	// WHEN: It is saved again with a new paid state
	// THEN: The row is updated, not duplicated

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))
	c := testCharge(t, "chg-1", "apt-1", "100.00", "2025-01-01")
	require.NoError(t, store.SaveCharge(ctx, c))

	c.AmountPaid = money(t, "40.00")
	c.PaidState = ledger.Partial
	require.NoError(t, store.SaveCharge(ctx, c))

	charges, err := store.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "40.00", charges[0].AmountPaid.String())
	assert.Equal(t, ledger.Partial, charges[0].PaidState)
}

// =============================================================================
// ORDERING CONTRACT TESTS
// =============================================================================

func TestSQLite_ChargesOrderedByDateThenInsertion(t *testing.T) {
	// GIVEN: Charges inserted out of date order, with one date tie
	// WHEN: Listing by apartment
	// THEN: Date ascending, ties in insertion order

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))
	require.NoError(t, store.SaveCharge(ctx, testCharge(t, "chg-mar", "apt-1", "100.00", "2025-03-01")))
	require.NoError(t, store.SaveCharge(ctx, testCharge(t, "chg-jan-a", "apt-1", "100.00", "2025-01-01")))
	require.NoError(t, store.SaveCharge(ctx, testCharge(t, "chg-jan-b", "apt-1", "50.00", "2025-01-01")))

	charges, err := store.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 3)
	assert.Equal(t, ledger.ChargeID("chg-jan-a"), charges[0].ID)
	assert.Equal(t, ledger.ChargeID("chg-jan-b"), charges[1].ID)
	assert.Equal(t, ledger.ChargeID("chg-mar"), charges[2].ID)
}

// =============================================================================
// LINKAGE ENFORCEMENT TESTS
// =============================================================================

func TestSQLite_UniqueIndexRejectsDoubleLink(t *testing.T) {
	// GIVEN: Two movements both claiming the same linked record
	// WHEN: The second one is saved
	// THEN: The unique index fires as ErrAlreadyLinked

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, ledger.BankAccount{
		ID: "acct-1", Name: "Checking", OpeningBalance: ledger.ZeroMoney(),
		Active: true, CreatedAt: time.Now().UTC(),
	}))

	mv1 := testMovement(t, "mov-1", "acct-1", "100.00", "2025-01-05")
	mv1.LinkedType = ledger.RecordPayment
	mv1.LinkedID = "pay-1"
	require.NoError(t, store.SaveMovement(ctx, mv1))

	mv2 := testMovement(t, "mov-2", "acct-1", "100.00", "2025-01-06")
	mv2.LinkedType = ledger.RecordPayment
	mv2.LinkedID = "pay-1"
	err := store.SaveMovement(ctx, mv2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAlreadyLinked)
}

func TestSQLite_UniqueIndexAllowsManyUnlinked(t *testing.T) {
	// GIVEN: Several movements with no link
	// WHEN: They are all saved
	// THEN: The partial index ignores the empty linked columns

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, ledger.BankAccount{
		ID: "acct-1", Name: "Checking", OpeningBalance: ledger.ZeroMoney(),
		Active: true, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.SaveMovement(ctx, testMovement(t, "mov-1", "acct-1", "10.00", "2025-01-01")))
	require.NoError(t, store.SaveMovement(ctx, testMovement(t, "mov-2", "acct-1", "20.00", "2025-01-02")))
	require.NoError(t, store.SaveMovement(ctx, testMovement(t, "mov-3", "acct-1", "30.00", "2025-01-03")))

	movements, err := store.MovementsByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, movements, 3)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that writes a charge and then fails
	// WHEN: WithTx returns
	// THEN: The charge is not persisted

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveCharge(ctx, testCharge(t, "chg-1", "apt-1", "100.00", "2025-01-01")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := store.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	// GIVEN: A transaction writing two records
	// WHEN: It completes without error
	// THEN: Both are visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveApartment(ctx, testApartment(t, "apt-1", "101")); err != nil {
			return err
		}
		return s.SaveCharge(ctx, testCharge(t, "chg-1", "apt-1", "100.00", "2025-01-01"))
	})
	require.NoError(t, err)

	c, err := store.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

// =============================================================================
// DELETE SEMANTICS TESTS
// =============================================================================

func TestSQLite_DeleteApartment_OrphansRecords(t *testing.T) {
	// GIVEN: An apartment with a charge and a payment
	// WHEN: The apartment is deleted
	// THEN: The records survive with their apartment reference cleared

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))
	require.NoError(t, store.SaveCharge(ctx, testCharge(t, "chg-1", "apt-1", "100.00", "2025-01-01")))
	require.NoError(t, store.SavePayment(ctx, ledger.Payment{
		ID:          "pay-1",
		ApartmentID: "apt-1",
		Amount:      money(t, "100.00"),
		Date:        date(t, "2025-01-05"),
		Category:    ledger.CategoryMixed,
		CreatedAt:   time.Now().UTC(),
	}))

	require.NoError(t, store.DeleteApartment(ctx, "apt-1"))

	a, err := store.GetApartment(ctx, "apt-1")
	require.NoError(t, err)
	assert.Nil(t, a)

	c, err := store.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.ApartmentID)

	p, err := store.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Empty(t, p.ApartmentID)
}

func TestSQLite_Reset_ClearsEverything(t *testing.T) {
	// GIVEN: A populated store
	// WHEN: Reset runs
	// THEN: All tables are empty

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))
	require.NoError(t, store.SaveCharge(ctx, testCharge(t, "chg-1", "apt-1", "100.00", "2025-01-01")))

	require.NoError(t, store.Reset(ctx))

	apartments, err := store.ListApartments(ctx)
	require.NoError(t, err)
	assert.Empty(t, apartments)

	c, err := store.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

// =============================================================================
// ENGINE-OVER-SQLITE SMOKE TEST
// =============================================================================

func TestSQLite_EngineEndToEnd(t *testing.T) {
	// GIVEN: The full engine running on SQLite
	// WHEN: Charges are generated and a bank-linked payment applied
	// THEN: Allocation, linkage and balances all hold

	store := newTestStore(t)
	e := ledger.NewEngine(store)
	ctx := context.Background()

	require.NoError(t, store.SaveApartment(ctx, testApartment(t, "apt-1", "101")))
	require.NoError(t, store.SaveAccount(ctx, ledger.BankAccount{
		ID: "acct-1", Name: "Checking", OpeningBalance: money(t, "500.00"),
		Active: true, CreatedAt: time.Now().UTC(),
	}))

	gen, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	require.Equal(t, 2, gen.Created)

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "150.00"),
		Date:        date(t, "2025-03-05"),
		AccountID:   "acct-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", res.Applied.String())
	require.NotEmpty(t, res.Payment.MovementID)

	bal, err := e.ApartmentBalance(ctx, "apt-1", date(t, "2025-03-31"))
	require.NoError(t, err)
	assert.Equal(t, "0.00", bal.String())

	bank, err := e.AccountBalance(ctx, "acct-1", date(t, "2025-03-31"))
	require.NoError(t, err)
	assert.Equal(t, "650.00", bank.String())
}
