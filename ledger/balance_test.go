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
// APARTMENT BALANCE TESTS
// =============================================================================

func TestApartmentBalance_PointInTime(t *testing.T) {
	// GIVEN: A January charge of 100, a payment of 80 on Jan 10, and a
	//        February charge of 100
	// WHEN: The balance is asked for at three different dates
	// THEN: Each answer reflects only the records dated up to that day

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	balances := ledger.NewBalances(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedCharge(t, s, "chg-jan", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)
	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "80.00", "2024-01-10"))
	require.NoError(t, err)
	seedCharge(t, s, "chg-feb", "apt-1", "100.00", "2024-02-01", ledger.CategoryCommonExpense)

	bal, err := balances.ApartmentBalance(ctx, "apt-1", date(t, "2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "100.00", bal.String(), "before the payment only the charge counts")

	bal, err = balances.ApartmentBalance(ctx, "apt-1", date(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "20.00", bal.String())

	bal, err = balances.ApartmentBalance(ctx, "apt-1", date(t, "2024-02-28"))
	require.NoError(t, err)
	assert.Equal(t, "120.00", bal.String())
}

func TestApartmentBalance_OverpaymentGoesNegative(t *testing.T) {
	// GIVEN: A 100 charge and a 150 payment
	// WHEN: The balance is computed after both
	// THEN: -50, the apartment is in credit

	s := newTestStore()
	alloc := ledger.NewAllocator(s)
	balances := ledger.NewBalances(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2024-01-01", ledger.CategoryCommonExpense)
	_, err := alloc.Apply(ctx, payment(t, "pay-1", "apt-1", "150.00", "2024-01-10"))
	require.NoError(t, err)

	bal, err := balances.ApartmentBalance(ctx, "apt-1", date(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "-50.00", bal.String())
}

func TestApartmentBalance_UnknownApartment_NotFound(t *testing.T) {
	// GIVEN: No apartment with the given ID
	// WHEN: Asking for its balance
	// THEN: NotFoundError, not a silent zero

	s := newTestStore()
	balances := ledger.NewBalances(s)

	_, err := balances.ApartmentBalance(context.Background(), "apt-missing", date(t, "2024-01-31"))
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// ACCOUNT & TREASURY BALANCE TESTS
// =============================================================================

func TestAccountBalance_OpeningPlusMovements(t *testing.T) {
	// GIVEN: Opening balance 1000, an IN of 150 and an OUT of 80
	// WHEN: The balance is computed before and after the movements
	// THEN: 1000.00 then 1070.00

	s := newTestStore()
	balances := ledger.NewBalances(s)
	ctx := context.Background()

	seedAccount(t, s, "acct-1", "1000.00")
	seedMovement(t, s, "mov-in", "acct-1", ledger.In, "150.00", "2024-01-05")
	seedMovement(t, s, "mov-out", "acct-1", ledger.Out, "80.00", "2024-01-10")

	bal, err := balances.AccountBalance(ctx, "acct-1", date(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, "1000.00", bal.String())

	bal, err = balances.AccountBalance(ctx, "acct-1", date(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "1070.00", bal.String())
}

func TestAccountBalance_UnknownAccount_NotFound(t *testing.T) {
	// GIVEN: No account with the given ID
	// WHEN: Asking for its balance
	// THEN: NotFoundError

	s := newTestStore()
	balances := ledger.NewBalances(s)

	_, err := balances.AccountBalance(context.Background(), "acct-missing", date(t, "2024-01-31"))
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestTreasuryBalance_SumsActiveAccountsOnly(t *testing.T) {
	// GIVEN: An active account at 1000 and an inactive one at 500
	// WHEN: The treasury balance is computed
	// THEN: Only the active account counts

	s := newTestStore()
	balances := ledger.NewBalances(s)
	ctx := context.Background()

	seedAccount(t, s, "acct-active", "1000.00")
	require.NoError(t, s.SaveAccount(ctx, ledger.BankAccount{
		ID:             "acct-closed",
		Name:           "Closed savings",
		OpeningBalance: money(t, "500.00"),
		Active:         false,
		CreatedAt:      time.Now().UTC(),
	}))

	bal, err := balances.TreasuryBalance(ctx, date(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "1000.00", bal.String())
}
