package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/condo-engine/ledger"
)

// =============================================================================
// MONTHLY GENERATION TESTS
// =============================================================================

func TestGenerateMonthly_CreatesBothCategories(t *testing.T) {
	// GIVEN: Two apartments with configured common and reserve amounts
	// WHEN: Generating March 2025
	// THEN: Four charges dated at month start, with period descriptions

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedApartment(t, s, "apt-2", "102", "120.00", "60.00")

	res, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 2)
	for _, c := range charges {
		assert.Equal(t, "2025-03-01", c.Date.String())
		assert.Equal(t, ledger.Unpaid, c.PaidState)
	}
	assert.Equal(t, "Common expenses 2025-03", charges[0].Description)
	assert.Equal(t, "Reserve fund 2025-03", charges[1].Description)
}

func TestGenerateMonthly_SecondRunCreatesNothing(t *testing.T) {
	// GIVEN: March already generated
	// WHEN: Generating March again
	// THEN: Zero created, no error, no duplicate charges

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")

	first, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	second, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	assert.Len(t, charges, 2)
}

func TestGenerateMonthly_FillsOnlyMissingCategory(t *testing.T) {
	// GIVEN: A manually created common-expense charge for March
	// WHEN: Generating March
	// THEN: Only the reserve-fund charge is added

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	seedCharge(t, s, "chg-manual", "apt-1", "100.00", "2025-03-15", ledger.CategoryCommonExpense)

	res, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 2)
}

func TestGenerateMonthly_SkipsZeroConfiguredAmounts(t *testing.T) {
	// GIVEN: An apartment with no reserve-fund contribution configured
	// WHEN: Generating a month
	// THEN: Only the common-expense charge is created

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")

	res, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, ledger.CategoryCommonExpense, charges[0].Category)
}

func TestGenerateMonthly_NoApartments_Fails(t *testing.T) {
	// GIVEN: An empty building
	// WHEN: Generating a month
	// THEN: ErrNoApartments - misconfiguration, not a quiet no-op

	s := newTestStore()
	e := ledger.NewEngine(s)

	_, err := e.GenerateMonthly(context.Background(), 2025, time.March)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNoApartments)
}

func TestGenerateMonthly_AppliesStandingCredit(t *testing.T) {
	// GIVEN: An over-payment left 150 of credit last month
	// WHEN: This month's charges (100 + 50) are generated
	// THEN: The credit fully covers them

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "150.00"),
		Date:        date(t, "2025-02-10"),
	})
	require.NoError(t, err)
	require.Equal(t, "150.00", res.Credit.String())

	gen, err := e.GenerateMonthly(ctx, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Created)
	assert.Equal(t, "150.00", gen.CreditApplied.String())

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 2)
	for _, c := range charges {
		assert.Equal(t, ledger.Paid, c.PaidState)
	}
}
