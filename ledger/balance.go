/*
balance.go - Point-in-time balance math

PURPOSE:
  Answers "what does this apartment owe as of date D" and "how much
  money is on this account as of date D". Pure reads; no balance is
  ever stored.

SOURCE OF TRUTH:
  Balances sum raw charge and payment amounts dated on or before the
  cutoff. The allocation cache (AmountPaid/PaidState) is an ordering
  artifact and never enters balance math; a bug in allocation order can
  therefore never corrupt a balance.

SIGN CONVENTION:
  Apartment balance is debt: positive means the apartment owes,
  negative means it holds a credit from over-payment.
*/
package ledger

import "context"

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// Balances computes point-in-time apartment and account balances.
type Balances struct {
	store Store
}

func NewBalances(store Store) *Balances {
	return &Balances{store: store}
}

// ApartmentBalance returns charges minus payments dated on or before
// asOf. Positive = owes, negative = credit.
func (b *Balances) ApartmentBalance(ctx context.Context, id ApartmentID, asOf Date) (Money, error) {
	apt, err := b.store.GetApartment(ctx, id)
	if err != nil {
		return Money{}, err
	}
	if apt == nil {
		return Money{}, &NotFoundError{Kind: "apartment", ID: string(id)}
	}

	charges, err := b.store.ChargesByApartment(ctx, id)
	if err != nil {
		return Money{}, err
	}
	payments, err := b.store.PaymentsByApartment(ctx, id)
	if err != nil {
		return Money{}, err
	}

	bal := ZeroMoney()
	for _, c := range charges {
		if c.Date.BeforeOrEqual(asOf) {
			bal = bal.Add(c.Amount)
		}
	}
	for _, p := range payments {
		if p.Date.BeforeOrEqual(asOf) {
			bal = bal.Sub(p.Amount)
		}
	}
	return bal, nil
}

// AccountBalance returns the account's opening balance plus IN
// movements minus OUT movements dated on or before asOf.
func (b *Balances) AccountBalance(ctx context.Context, id AccountID, asOf Date) (Money, error) {
	acc, err := b.store.GetAccount(ctx, id)
	if err != nil {
		return Money{}, err
	}
	if acc == nil {
		return Money{}, &NotFoundError{Kind: "account", ID: string(id)}
	}
	return b.accountBalance(ctx, *acc, asOf)
}

// TreasuryBalance returns the sum of all active account balances as of
// the given date.
func (b *Balances) TreasuryBalance(ctx context.Context, asOf Date) (Money, error) {
	accounts, err := b.store.ListAccounts(ctx)
	if err != nil {
		return Money{}, err
	}

	total := ZeroMoney()
	for _, acc := range accounts {
		if !acc.Active {
			continue
		}
		bal, err := b.accountBalance(ctx, acc, asOf)
		if err != nil {
			return Money{}, err
		}
		total = total.Add(bal)
	}
	return total, nil
}

func (b *Balances) accountBalance(ctx context.Context, acc BankAccount, asOf Date) (Money, error) {
	movements, err := b.store.MovementsByAccount(ctx, acc.ID)
	if err != nil {
		return Money{}, err
	}

	bal := acc.OpeningBalance
	for _, m := range movements {
		if m.Date.After(asOf) {
			continue
		}
		switch m.Direction {
		case In:
			bal = bal.Add(m.Amount)
		case Out:
			bal = bal.Sub(m.Amount)
		}
	}
	return bal, nil
}
