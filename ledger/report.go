/*
report.go - Monthly and accumulated period statements

PURPOSE:
  Composes the balance calculator and the allocation cache into the
  statements the administration renders: the per-apartment monthly
  breakdown, the bank-side collected/spent summary, and date-range
  accumulated totals.

CATEGORY SPLIT:
  A payment does not always carry a per-category breakdown, so the
  monthly "collected" figures distribute each bank-linked payment
  across common-expense and reserve-fund in proportion to that
  apartment's cumulative allocated amount per category at reporting
  time. Historical statements were produced with exactly this
  ratio-based approximation; changing the formula changes published
  numbers. When the apartment has nothing allocated in either category
  the ratio is undefined and the payment contributes zero - never a
  50/50 guess.

FAILURE MODE:
  Reports fail closed. Any store error aborts the whole statement
  rather than rendering partial figures.
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STATEMENT STRUCTURES
// =============================================================================

// ApartmentLine is one apartment's row in a monthly statement.
type ApartmentLine struct {
	ApartmentID ApartmentID
	Unit        string
	Occupant    string
	Role        OccupantRole

	PriorBalance  Money // debt carried into the month
	Payments      Money // payments dated within the month
	CommonExpense Money // charges of that category within the month
	ReserveFund   Money

	// PriorBalance + CommonExpense + ReserveFund - Payments.
	CurrentBalance Money
}

// CategoryLine pairs the collected and spent totals for one category.
type CategoryLine struct {
	Collected Money
	Spent     Money
	Net       Money // Collected - Spent
}

// MonthlyStatement is the full report for one calendar month.
type MonthlyStatement struct {
	Year  int
	Month time.Month

	Apartments []ApartmentLine

	// Bank-side summary: proportionally split collected amounts and
	// OUT movements grouped by their linked transaction's category.
	Collected map[Category]Money
	Spent     map[Category]Money

	Treasury Money // treasury balance at the last day of the month

	Notice string
	Footer string
}

// AccumulatedStatement sums collected and spent per category over an
// arbitrary date range, independent of apartment.
type AccumulatedStatement struct {
	From Date
	To   Date

	Categories map[Category]CategoryLine

	TotalCollected Money
	TotalSpent     Money
	Net            Money
}

// CombinedStatement pairs a month with the one before it, for the
// two-month comparison layout.
type CombinedStatement struct {
	Current  MonthlyStatement
	Previous MonthlyStatement
}

// =============================================================================
// REPORT BUILDER
// =============================================================================

// Reports builds period statements. Read-only.
type Reports struct {
	store    Store
	balances *Balances
}

func NewReports(store Store, balances *Balances) *Reports {
	return &Reports{store: store, balances: balances}
}

// Monthly builds the statement for one calendar month.
func (r *Reports) Monthly(ctx context.Context, year int, month time.Month) (MonthlyStatement, error) {
	st := MonthlyStatement{
		Year:      year,
		Month:     month,
		Collected: map[Category]Money{CategoryCommonExpense: ZeroMoney(), CategoryReserveFund: ZeroMoney()},
		Spent:     map[Category]Money{},
	}

	start := MonthStart(year, month)
	end := MonthEnd(year, month)
	priorCutoff := start.AddDays(-1)

	apartments, err := r.store.ListApartments(ctx)
	if err != nil {
		return MonthlyStatement{}, err
	}

	for _, apt := range apartments {
		line, err := r.apartmentLine(ctx, apt, year, month, priorCutoff)
		if err != nil {
			return MonthlyStatement{}, err
		}
		st.Apartments = append(st.Apartments, line)

		if err := r.addCollected(ctx, apt, year, month, st.Collected); err != nil {
			return MonthlyStatement{}, err
		}
	}

	if err := r.addSpent(ctx, start, end, st.Spent); err != nil {
		return MonthlyStatement{}, err
	}

	st.Treasury, err = r.balances.TreasuryBalance(ctx, end)
	if err != nil {
		return MonthlyStatement{}, err
	}

	note, err := r.store.GetPeriodNote(ctx, year, int(month))
	if err != nil {
		return MonthlyStatement{}, err
	}
	if note != nil {
		st.Notice = note.Notice
		st.Footer = note.Footer
	}

	return st, nil
}

// Accumulated sums collected and spent per category over [from, to].
func (r *Reports) Accumulated(ctx context.Context, from, to Date) (AccumulatedStatement, error) {
	st := AccumulatedStatement{
		From:       from,
		To:         to,
		Categories: map[Category]CategoryLine{},
	}

	payments, err := r.store.PaymentsInRange(ctx, from, to)
	if err != nil {
		return AccumulatedStatement{}, err
	}
	for _, p := range payments {
		line := st.Categories[p.Category]
		line.Collected = line.Collected.Add(p.Amount)
		st.Categories[p.Category] = line
		st.TotalCollected = st.TotalCollected.Add(p.Amount)
	}

	movements, err := r.store.MovementsInRange(ctx, from, to)
	if err != nil {
		return AccumulatedStatement{}, err
	}
	for _, m := range movements {
		if m.Direction != Out {
			continue
		}
		cat, err := r.movementCategory(ctx, m)
		if err != nil {
			return AccumulatedStatement{}, err
		}
		line := st.Categories[cat]
		line.Spent = line.Spent.Add(m.Amount)
		st.Categories[cat] = line
		st.TotalSpent = st.TotalSpent.Add(m.Amount)
	}

	for cat, line := range st.Categories {
		line.Net = line.Collected.Sub(line.Spent)
		st.Categories[cat] = line
	}
	st.Net = st.TotalCollected.Sub(st.TotalSpent)

	return st, nil
}

// Combined pairs the given month's statement with the previous month's.
func (r *Reports) Combined(ctx context.Context, year int, month time.Month) (CombinedStatement, error) {
	current, err := r.Monthly(ctx, year, month)
	if err != nil {
		return CombinedStatement{}, err
	}
	prevYear, prevMonth := PreviousMonth(year, month)
	previous, err := r.Monthly(ctx, prevYear, prevMonth)
	if err != nil {
		return CombinedStatement{}, err
	}
	return CombinedStatement{Current: current, Previous: previous}, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (r *Reports) apartmentLine(ctx context.Context, apt Apartment, year int, month time.Month, priorCutoff Date) (ApartmentLine, error) {
	line := ApartmentLine{
		ApartmentID: apt.ID,
		Unit:        apt.Unit,
		Occupant:    apt.Occupant,
		Role:        apt.Role,
	}

	prior, err := r.balances.ApartmentBalance(ctx, apt.ID, priorCutoff)
	if err != nil {
		return ApartmentLine{}, err
	}
	line.PriorBalance = prior

	charges, err := r.store.ChargesByApartment(ctx, apt.ID)
	if err != nil {
		return ApartmentLine{}, err
	}
	for _, c := range charges {
		if !c.Date.InMonth(year, month) {
			continue
		}
		switch c.Category {
		case CategoryCommonExpense:
			line.CommonExpense = line.CommonExpense.Add(c.Amount)
		case CategoryReserveFund:
			line.ReserveFund = line.ReserveFund.Add(c.Amount)
		}
	}

	payments, err := r.store.PaymentsByApartment(ctx, apt.ID)
	if err != nil {
		return ApartmentLine{}, err
	}
	for _, p := range payments {
		if p.Date.InMonth(year, month) {
			line.Payments = line.Payments.Add(p.Amount)
		}
	}

	line.CurrentBalance = line.PriorBalance.
		Add(line.CommonExpense).
		Add(line.ReserveFund).
		Sub(line.Payments)

	return line, nil
}

// addCollected distributes the apartment's bank-linked payments of the
// month across the two categories in proportion to its cumulative
// allocated amount per category.
func (r *Reports) addCollected(ctx context.Context, apt Apartment, year int, month time.Month, collected map[Category]Money) error {
	charges, err := r.store.ChargesByApartment(ctx, apt.ID)
	if err != nil {
		return err
	}

	paidCommon := ZeroMoney()
	paidReserve := ZeroMoney()
	for _, c := range charges {
		switch c.Category {
		case CategoryCommonExpense:
			paidCommon = paidCommon.Add(c.AmountPaid)
		case CategoryReserveFund:
			paidReserve = paidReserve.Add(c.AmountPaid)
		}
	}
	paidTotal := paidCommon.Add(paidReserve)
	if !paidTotal.IsPositive() {
		// Nothing allocated in either category: the ratio is undefined
		// and the payments contribute zero.
		return nil
	}

	payments, err := r.store.PaymentsByApartment(ctx, apt.ID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if !p.Date.InMonth(year, month) || p.MovementID == "" {
			continue
		}
		commonShare := Money{Value: p.Amount.Value.Mul(paidCommon.Value).Div(paidTotal.Value).Round(2)}
		reserveShare := Money{Value: p.Amount.Value.Mul(paidReserve.Value).Div(paidTotal.Value).Round(2)}
		collected[CategoryCommonExpense] = collected[CategoryCommonExpense].Add(commonShare)
		collected[CategoryReserveFund] = collected[CategoryReserveFund].Add(reserveShare)
	}
	return nil
}

// addSpent groups the month's OUT movements by their linked
// transaction's category.
func (r *Reports) addSpent(ctx context.Context, from, to Date, spent map[Category]Money) error {
	movements, err := r.store.MovementsInRange(ctx, from, to)
	if err != nil {
		return err
	}
	for _, m := range movements {
		if m.Direction != Out {
			continue
		}
		cat, err := r.movementCategory(ctx, m)
		if err != nil {
			return err
		}
		spent[cat] = spent[cat].Add(m.Amount)
	}
	return nil
}

// movementCategory resolves an OUT movement's reporting category: the
// linked transaction's category when one exists, else the movement's own.
func (r *Reports) movementCategory(ctx context.Context, m BankMovement) (Category, error) {
	if m.LinkedType == RecordTransaction {
		tx, err := r.store.GetTransaction(ctx, TransactionID(m.LinkedID))
		if err != nil {
			return "", err
		}
		if tx != nil && tx.Category != "" {
			return tx.Category, nil
		}
	}
	return m.Category, nil
}
