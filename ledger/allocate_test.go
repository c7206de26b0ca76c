package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/condo-engine/ledger"
	"github.com/atrium/condo-engine/ledger/store"
)

// =============================================================================
// TEST SETUP - Shared helpers for the ledger package tests
// =============================================================================

func newTestStore() *store.TxMemory {
	return store.NewTxMemory()
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

func seedApartment(t *testing.T, s ledger.Store, id, unit string, common, reserve string) ledger.Apartment {
	t.Helper()
	a := ledger.Apartment{
		ID:            ledger.ApartmentID(id),
		Unit:          unit,
		Occupant:      "Test Occupant",
		Role:          ledger.RoleOwner,
		CommonExpense: money(t, common),
		ReserveFund:   money(t, reserve),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.SaveApartment(context.Background(), a))
	return a
}

func seedCharge(t *testing.T, s ledger.Store, id, apartmentID, amount, dateStr string, cat ledger.Category) ledger.Charge {
	t.Helper()
	c := ledger.Charge{
		ID:          ledger.ChargeID(id),
		ApartmentID: ledger.ApartmentID(apartmentID),
		Category:    cat,
		Amount:      money(t, amount),
		Date:        date(t, dateStr),
		AmountPaid:  ledger.ZeroMoney(),
		PaidState:   ledger.Unpaid,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveCharge(context.Background(), c))
	return c
}

func seedAccount(t *testing.T, s ledger.Store, id, opening string) ledger.BankAccount {
	t.Helper()
	a := ledger.BankAccount{
		ID:             ledger.AccountID(id),
		Name:           "Account " + id,
		OpeningBalance: money(t, opening),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.SaveAccount(context.Background(), a))
	return a
}

func payment(t *testing.T, id, apartmentID, amount, dateStr string) ledger.Payment {
	t.Helper()
	return ledger.Payment{
		ID:          ledger.PaymentID(id),
		ApartmentID: ledger.ApartmentID(apartmentID),
		Amount:      money(t, amount),
		Date:        date(t, dateStr),
		Category:    ledger.CategoryMixed,
		CreatedAt:   time.Now().UTC(),
	}
}

func getCharge(t *testing.T, s ledger.Store, id string) ledger.Charge {
	t.Helper()
	c, err := s.GetCharge(context.Background(), ledger.ChargeID(id))
	require.NoError(t, err)
	require.NotNil(t, c)
	return *c
}

// =============================================================================
// OLDEST-FIRST ALLOCATION TESTS
// =============================================================================

func TestApply_OldestFirst_SplitAcrossCharges(t *testing.T) {
	// GIVEN: Two charges, January 100 and February 100
	// WHEN: A payment of 150 arrives
	// THEN: January is fully paid, February is partially paid with 50

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-jan", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)
	seedCharge(t, s, "chg-feb", "apt-1", "100.00", "2024-02-01", ledger.CategoryCommonExpense)

	res, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "150.00", "2024-02-15"))
	require.NoError(t, err)

	assert.Equal(t, "150.00", res.Applied.String())
	assert.Equal(t, "0.00", res.Credit.String())
	require.Equal(t, []ledger.ChargeID{"chg-jan", "chg-feb"}, res.Charges)

	jan := getCharge(t, s, "chg-jan")
	assert.Equal(t, ledger.Paid, jan.PaidState)
	assert.Equal(t, "100.00", jan.AmountPaid.String())

	feb := getCharge(t, s, "chg-feb")
	assert.Equal(t, ledger.Partial, feb.PaidState)
	assert.Equal(t, "50.00", feb.AmountPaid.String())
}

func TestApply_DateTie_BrokenByCreationOrder(t *testing.T) {
	// GIVEN: Two charges with the same date, created in a known order
	// WHEN: A payment covers only one of them
	// THEN: The earlier-created charge is consumed first

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-first", "apt-1", "100.00", "2024-03-01", ledger.CategoryCommonExpense)
	seedCharge(t, s, "chg-second", "apt-1", "50.00", "2024-03-01", ledger.CategoryReserveFund)

	res, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "100.00", "2024-03-10"))
	require.NoError(t, err)

	require.Equal(t, []ledger.ChargeID{"chg-first"}, res.Charges)
	assert.Equal(t, ledger.Paid, getCharge(t, s, "chg-first").PaidState)
	assert.Equal(t, ledger.Unpaid, getCharge(t, s, "chg-second").PaidState)
}

func TestApply_Overpayment_RemainderStaysAsCredit(t *testing.T) {
	// GIVEN: A single outstanding charge of 100
	// WHEN: A payment of 150 arrives
	// THEN: 100 is applied, 50 remains on the payment as credit

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)

	res, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "150.00", "2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, "100.00", res.Applied.String())
	assert.Equal(t, "50.00", res.Credit.String())
}

func TestApply_NoOutstandingCharges_AllCredit(t *testing.T) {
	// GIVEN: An apartment with no charges
	// WHEN: A payment arrives
	// THEN: Nothing is allocated; the full amount is credit

	s := newTestStore()
	alloc := ledger.NewAllocator(s)

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")

	res, err := alloc.Apply(context.Background(), payment(t, "pay-1", "apt-1", "75.00", "2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, "0.00", res.Applied.String())
	assert.Equal(t, "75.00", res.Credit.String())
	assert.Empty(t, res.Charges)
}

func TestApply_NonPositiveAmount_Rejected(t *testing.T) {
	// GIVEN: A payment of zero
	// WHEN: Applying it
	// THEN: InvalidAmountError, nothing persisted

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")

	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "0.00", "2024-01-05"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	p, err := s.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestApply_UnknownApartment_NotFound(t *testing.T) {
	// GIVEN: No apartment with the given ID
	// WHEN: Applying a payment to it
	// THEN: NotFoundError

	s := newTestStore()
	alloc := ledger.NewAllocator(s)

	_, err := alloc.Apply(context.Background(), payment(t, "pay-1", "apt-missing", "50.00", "2024-01-05"))
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// REVERSAL TESTS
// =============================================================================

func TestReverse_RestoresChargesExactly(t *testing.T) {
	// GIVEN: A payment split across two charges
	// WHEN: The payment is reversed
	// THEN: Both charges return to their pre-payment state and the
	//       allocation records are gone

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-jan", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)
	seedCharge(t, s, "chg-feb", "apt-1", "100.00", "2024-02-01", ledger.CategoryCommonExpense)

	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "150.00", "2024-02-15"))
	require.NoError(t, err)

	require.NoError(t, alloc.Reverse(ctx, "pay-1"))

	jan := getCharge(t, s, "chg-jan")
	assert.Equal(t, ledger.Unpaid, jan.PaidState)
	assert.Equal(t, "0.00", jan.AmountPaid.String())

	feb := getCharge(t, s, "chg-feb")
	assert.Equal(t, ledger.Unpaid, feb.PaidState)
	assert.Equal(t, "0.00", feb.AmountPaid.String())

	allocs, err := s.AllocationsByPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Empty(t, allocs)

	// The payment record itself stays; removal is the engine's call.
	p, err := s.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestReverse_OnlyTouchesOwnAllocations(t *testing.T) {
	// GIVEN: Two payments both applied against the same charge
	// WHEN: The first payment is reversed
	// THEN: The second payment's allocation survives

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)

	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "40.00", "2024-01-05"))
	require.NoError(t, err)
	_, err = alloc.Apply(ctx, payment(t, "pay-2", "apt-1", "30.00", "2024-01-06"))
	require.NoError(t, err)

	require.NoError(t, alloc.Reverse(ctx, "pay-1"))

	c := getCharge(t, s, "chg-1")
	assert.Equal(t, "30.00", c.AmountPaid.String())
	assert.Equal(t, ledger.Partial, c.PaidState)
}

func TestReverse_MissingPayment_NotFound(t *testing.T) {
	// GIVEN: No payment with the given ID
	// WHEN: Reversing it
	// THEN: NotFoundError

	s := newTestStore()
	alloc := ledger.NewAllocator(s)

	err := alloc.Reverse(context.Background(), "pay-missing")
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// CREDIT TESTS
// =============================================================================

func TestApplyCredit_ConsumesEarlierOverpayment(t *testing.T) {
	// GIVEN: An over-payment left 50 of credit, then a new charge appears
	// WHEN: ApplyCredit runs for the apartment
	// THEN: The 50 is allocated against the new charge

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-jan", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)

	res, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "150.00", "2024-01-05"))
	require.NoError(t, err)
	require.Equal(t, "50.00", res.Credit.String())

	seedCharge(t, s, "chg-feb", "apt-1", "100.00", "2024-02-01", ledger.CategoryCommonExpense)

	applied, err := alloc.ApplyCredit(ctx, "apt-1")
	require.NoError(t, err)
	assert.Equal(t, "50.00", applied.String())

	feb := getCharge(t, s, "chg-feb")
	assert.Equal(t, ledger.Partial, feb.PaidState)
	assert.Equal(t, "50.00", feb.AmountPaid.String())
}

func TestApplyCredit_NoCredit_NoChange(t *testing.T) {
	// GIVEN: A fully allocated payment
	// WHEN: ApplyCredit runs
	// THEN: Zero applied

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)

	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "100.00", "2024-01-05"))
	require.NoError(t, err)

	applied, err := alloc.ApplyCredit(ctx, "apt-1")
	require.NoError(t, err)
	assert.True(t, applied.IsZero())
}
