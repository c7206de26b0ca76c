/*
generate.go - Idempotent monthly charge generation

PURPOSE:
  Creates the period's standard charges (common expense, reserve fund)
  for every apartment with a configured amount, exactly once per
  apartment per category per month. Safe to retry: the pre-check runs
  inside the same transaction as the inserts, so a second run in the
  same month creates nothing and reports zero.

CREDIT:
  After creating the period's charges, any unapplied payment remainders
  on the affected apartments are offset against them (oldest payment
  first), so an over-payment from last month shows up as this month's
  charges being partly or fully paid.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MONTHLY CHARGE GENERATOR
// =============================================================================

// Generator creates the standard monthly charges.
type Generator struct {
	store TxStore
	alloc *Allocator
}

func NewGenerator(store TxStore, alloc *Allocator) *Generator {
	return &Generator{store: store, alloc: alloc}
}

// GenerateResult reports what a generation run did. Created == 0 is a
// valid outcome (every apartment already had its charges).
type GenerateResult struct {
	Created       int
	CreditApplied Money
}

// GenerateMonthly creates the month's missing standard charges.
// Fails with ErrNoApartments when none are configured; creating zero
// charges because they already exist is not an error.
func (g *Generator) GenerateMonthly(ctx context.Context, year int, month time.Month) (GenerateResult, error) {
	var res GenerateResult
	err := g.store.WithTx(ctx, func(s Store) error {
		apartments, err := s.ListApartments(ctx)
		if err != nil {
			return err
		}
		if len(apartments) == 0 {
			return ErrNoApartments
		}

		date := MonthStart(year, month)
		var touched []ApartmentID

		for _, apt := range apartments {
			charges, err := s.ChargesByApartment(ctx, apt.ID)
			if err != nil {
				return err
			}
			hasCommon, hasReserve := false, false
			for _, c := range charges {
				if !c.Date.InMonth(year, month) {
					continue
				}
				switch c.Category {
				case CategoryCommonExpense:
					hasCommon = true
				case CategoryReserveFund:
					hasReserve = true
				}
			}

			created := 0
			if apt.CommonExpense.IsPositive() && !hasCommon {
				if err := g.createIn(ctx, s, apt, CategoryCommonExpense, apt.CommonExpense, date); err != nil {
					return err
				}
				created++
			}
			if apt.ReserveFund.IsPositive() && !hasReserve {
				if err := g.createIn(ctx, s, apt, CategoryReserveFund, apt.ReserveFund, date); err != nil {
					return err
				}
				created++
			}

			if created > 0 {
				res.Created += created
				touched = append(touched, apt.ID)
			}
		}

		// Offset outstanding payment credit against the new charges.
		for _, id := range touched {
			applied, err := g.alloc.applyCreditIn(ctx, s, id)
			if err != nil {
				return err
			}
			res.CreditApplied = res.CreditApplied.Add(applied)
		}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return res, nil
}

func (g *Generator) createIn(ctx context.Context, s Store, apt Apartment, cat Category, amount Money, date Date) error {
	return s.SaveCharge(ctx, Charge{
		ID:          ChargeID(uuid.NewString()),
		ApartmentID: apt.ID,
		Category:    cat,
		Amount:      amount,
		Date:        date,
		Description: monthlyDescription(cat, date),
		AmountPaid:  ZeroMoney(),
		PaidState:   Unpaid,
		CreatedAt:   time.Now().UTC(),
	})
}

func monthlyDescription(cat Category, date Date) string {
	label := "Common expenses"
	if cat == CategoryReserveFund {
		label = "Reserve fund"
	}
	return fmt.Sprintf("%s %04d-%02d", label, date.Year(), int(date.Month()))
}
