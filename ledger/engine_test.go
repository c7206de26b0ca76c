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
// ENGINE END-TO-END TESTS
// =============================================================================

func TestEngine_ApplyPaymentWithAccount_CreatesLinkedMovement(t *testing.T) {
	// GIVEN: An apartment owing 100 and a bank account
	// WHEN: A 100 payment is registered with the account
	// THEN: Charge paid, and a linked IN movement mirrors the payment

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedAccount(t, s, "acct-1", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2025-01-01", ledger.CategoryCommonExpense)

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "100.00"),
		Date:        date(t, "2025-01-05"),
		Description: "January dues",
		AccountID:   "acct-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Payment.MovementID)

	mv, err := s.GetMovement(ctx, res.Payment.MovementID)
	require.NoError(t, err)
	require.NotNil(t, mv)
	assert.Equal(t, ledger.In, mv.Direction)
	assert.Equal(t, "100.00", mv.Amount.String())
	assert.Equal(t, ledger.RecordPayment, mv.LinkedType)
	assert.Equal(t, string(res.Payment.ID), mv.LinkedID)

	assert.Equal(t, ledger.Paid, getCharge(t, s, "chg-1").PaidState)
}

func TestEngine_ApplyPayment_UnknownAccount_NothingPersisted(t *testing.T) {
	// GIVEN: A valid apartment but a bogus account ID
	// WHEN: Registering a payment with that account
	// THEN: The whole operation rolls back - no payment, no movement

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2025-01-01", ledger.CategoryCommonExpense)

	_, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "100.00"),
		Date:        date(t, "2025-01-05"),
		AccountID:   "acct-missing",
	})
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))

	payments, err := s.PaymentsByApartment(ctx, "apt-1")
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Equal(t, ledger.Unpaid, getCharge(t, s, "chg-1").PaidState)
}

func TestEngine_ReversePayment_RemovesPaymentAndMovement(t *testing.T) {
	// GIVEN: A bank-linked payment covering a charge
	// WHEN: The payment is reversed
	// THEN: Payment and movement are gone and the charge is unpaid again

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedAccount(t, s, "acct-1", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2025-01-01", ledger.CategoryCommonExpense)

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "100.00"),
		Date:        date(t, "2025-01-05"),
		AccountID:   "acct-1",
	})
	require.NoError(t, err)

	require.NoError(t, e.ReversePayment(ctx, res.Payment.ID))

	p, err := s.GetPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Nil(t, p)

	mv, err := s.GetMovement(ctx, res.Payment.MovementID)
	require.NoError(t, err)
	assert.Nil(t, mv)

	assert.Equal(t, ledger.Unpaid, getCharge(t, s, "chg-1").PaidState)
}

func TestEngine_DeleteCharge_RefusedWhileAllocated(t *testing.T) {
	// GIVEN: A charge partially covered by a payment
	// WHEN: Deleting the charge
	// THEN: ErrChargeReferenced; after reversing the payment it works

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2025-01-01", ledger.CategoryCommonExpense)

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "60.00"),
		Date:        date(t, "2025-01-05"),
	})
	require.NoError(t, err)

	err = e.DeleteCharge(ctx, "chg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrChargeReferenced)

	require.NoError(t, e.ReversePayment(ctx, res.Payment.ID))
	require.NoError(t, e.DeleteCharge(ctx, "chg-1"))

	c, err := s.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestEngine_DeleteCharge_UnlinksMovement(t *testing.T) {
	// GIVEN: An unallocated charge linked to an OUT movement
	// WHEN: The charge is deleted
	// THEN: The movement survives with its link cleared

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "0.00")
	seedAccount(t, s, "acct-1", "0.00")
	seedCharge(t, s, "chg-1", "apt-1", "100.00", "2025-01-01", ledger.CategoryCommonExpense)
	seedMovement(t, s, "mov-1", "acct-1", ledger.Out, "100.00", "2025-01-01")
	require.NoError(t, e.Link(ctx, "mov-1", ledger.LinkedRecord{Type: ledger.RecordCharge, ID: "chg-1"}))

	require.NoError(t, e.DeleteCharge(ctx, "chg-1"))

	mv, err := s.GetMovement(ctx, "mov-1")
	require.NoError(t, err)
	require.NotNil(t, mv)
	assert.False(t, mv.Linked())
}

func TestEngine_ArrearsCatchUpScenario(t *testing.T) {
	// GIVEN: Three generated months (150 each) with nothing paid
	// WHEN: A 200 catch-up payment arrives
	// THEN: January's pair is fully paid, February's common expense is
	//       half covered, the rest is untouched, and 250 remains owed

	s := newTestStore()
	e := ledger.NewEngine(s)
	ctx := context.Background()

	seedApartment(t, s, "apt-1", "101", "100.00", "50.00")
	for _, m := range []time.Month{time.January, time.February, time.March} {
		_, err := e.GenerateMonthly(ctx, 2025, m)
		require.NoError(t, err)
	}

	res, err := e.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-1",
		Amount:      money(t, "200.00"),
		Date:        date(t, "2025-03-20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "200.00", res.Applied.String())

	charges, err := s.ChargesByApartment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, charges, 6)

	assert.Equal(t, ledger.Paid, charges[0].PaidState)
	assert.Equal(t, ledger.Paid, charges[1].PaidState)
	assert.Equal(t, ledger.Partial, charges[2].PaidState)
	assert.Equal(t, "50.00", charges[2].AmountPaid.String())
	assert.Equal(t, ledger.Unpaid, charges[3].PaidState)
	assert.Equal(t, ledger.Unpaid, charges[4].PaidState)
	assert.Equal(t, ledger.Unpaid, charges[5].PaidState)

	bal, err := e.ApartmentBalance(ctx, "apt-1", date(t, "2025-03-31"))
	require.NoError(t, err)
	assert.Equal(t, "250.00", bal.String())
}
