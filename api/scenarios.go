/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with
	realistic condominium data for testing and demos. Each scenario
	creates apartments, accounts, charges, payments, and movements that
	demonstrate specific features.

AVAILABLE SCENARIOS:

	small-building:  Three apartments, generated charges, full payments
	arrears:         An apartment several months behind, partial payment
	reconciliation:  Bank movements linked to payments and expenses

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create apartments and bank accounts
 3. Generate the months' standard charges
 4. Apply payments / record expenses per scenario

USAGE VIA API:

	POST /api/scenarios/{name}

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shares the Handler and its engine
  - ledger/generate.go: Monthly charge generation used by the loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atrium/condo-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "small-building",
		Name:        "Small Building",
		Description: "Three apartments, two months of generated charges, everyone paid up",
	},
	{
		ID:          "arrears",
		Name:        "Arrears",
		Description: "One apartment three months behind with a partial catch-up payment",
	},
	{
		ID:          "reconciliation",
		Name:        "Bank Reconciliation",
		Description: "Payments matched to bank movements plus linked building expenses",
	},
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario reports which scenario was last loaded.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario": h.currentScenario})
}

// LoadScenario resets the database and loads the named scenario.
// POST /api/scenarios/{name}
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch name {
	case "small-building":
		err = h.loadSmallBuildingScenario(ctx)
	case "arrears":
		err = h.loadArrearsScenario(ctx)
	case "reconciliation":
		err = h.loadReconciliationScenario(ctx)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", name), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = name
	writeJSON(w, http.StatusOK, map[string]string{"loaded": name})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSmallBuildingScenario(ctx context.Context) error {
	if err := h.seedBuilding(ctx); err != nil {
		return err
	}

	// Two months of standard charges.
	for _, m := range []time.Month{time.January, time.February} {
		if _, err := h.Engine.GenerateMonthly(ctx, 2025, m); err != nil {
			return err
		}
	}

	// Everyone pays in full each month, through the bank.
	for _, apt := range []string{"apt-101", "apt-102", "apt-201"} {
		for _, date := range []string{"2025-01-05", "2025-02-05"} {
			d, _ := ledger.ParseDate(date)
			_, err := h.Engine.ApplyPayment(ctx, ledger.PaymentRequest{
				ApartmentID: ledger.ApartmentID(apt),
				Amount:      mustMoney("150.00"),
				Date:        d,
				Description: "Monthly dues",
				AccountID:   "acct-checking",
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadArrearsScenario(ctx context.Context) error {
	if err := h.seedBuilding(ctx); err != nil {
		return err
	}

	for _, m := range []time.Month{time.January, time.February, time.March} {
		if _, err := h.Engine.GenerateMonthly(ctx, 2025, m); err != nil {
			return err
		}
	}

	// 101 and 102 stay current; 201 misses everything and then makes a
	// partial catch-up payment that covers January and part of February.
	for _, apt := range []string{"apt-101", "apt-102"} {
		for _, date := range []string{"2025-01-05", "2025-02-05", "2025-03-05"} {
			d, _ := ledger.ParseDate(date)
			_, err := h.Engine.ApplyPayment(ctx, ledger.PaymentRequest{
				ApartmentID: ledger.ApartmentID(apt),
				Amount:      mustMoney("150.00"),
				Date:        d,
				Description: "Monthly dues",
				AccountID:   "acct-checking",
			})
			if err != nil {
				return err
			}
		}
	}

	d, _ := ledger.ParseDate("2025-03-20")
	_, err := h.Engine.ApplyPayment(ctx, ledger.PaymentRequest{
		ApartmentID: "apt-201",
		Amount:      mustMoney("200.00"),
		Date:        d,
		Description: "Partial catch-up",
		AccountID:   "acct-checking",
	})
	return err
}

func (h *Handler) loadReconciliationScenario(ctx context.Context) error {
	if err := h.loadSmallBuildingScenario(ctx); err != nil {
		return err
	}

	// Building expenses recorded as transactions linked to OUT
	// movements.
	expenses := []struct {
		amount, date, desc string
		category           ledger.Category
	}{
		{"80.00", "2025-01-15", "Stairwell lighting repair", ledger.CategoryCommonExpense},
		{"45.50", "2025-02-10", "Cleaning supplies", ledger.CategoryCommonExpense},
		{"300.00", "2025-02-20", "Roof inspection", ledger.CategoryReserveFund},
	}
	for i, e := range expenses {
		d, _ := ledger.ParseDate(e.date)
		t := ledger.Transaction{
			ID:          ledger.TransactionID(fmt.Sprintf("txr-exp-%d", i+1)),
			Amount:      mustMoney(e.amount),
			Date:        d,
			Category:    e.category,
			Description: e.desc,
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.Store.SaveTransaction(ctx, t); err != nil {
			return err
		}
		_, err := h.Engine.CreateLinkedMovement(ctx, ledger.BankMovement{
			AccountID:   "acct-checking",
			Direction:   ledger.Out,
			Amount:      t.Amount,
			Date:        t.Date,
			Description: t.Description,
			Category:    t.Category,
		}, ledger.LinkedRecord{Type: ledger.RecordTransaction, ID: string(t.ID)})
		if err != nil {
			return err
		}
	}

	// One unmatched movement left for the reconciliation UI to link.
	d, _ := ledger.ParseDate("2025-02-28")
	return h.Store.SaveMovement(ctx, ledger.BankMovement{
		ID:          "mov-unmatched",
		AccountID:   "acct-checking",
		Direction:   ledger.In,
		Amount:      mustMoney("150.00"),
		Date:        d,
		Description: "Transfer ref 88412",
		CreatedAt:   time.Now().UTC(),
	})
}

// seedBuilding creates the shared apartments and bank account.
func (h *Handler) seedBuilding(ctx context.Context) error {
	apartments := []ledger.Apartment{
		{
			ID:            "apt-101",
			Unit:          "101",
			Occupant:      "Elena Vargas",
			Role:          ledger.RoleOwner,
			CommonExpense: mustMoney("100.00"),
			ReserveFund:   mustMoney("50.00"),
			CreatedAt:     time.Now().UTC(),
		},
		{
			ID:            "apt-102",
			Unit:          "102",
			Occupant:      "Marcus Webb",
			Role:          ledger.RoleTenant,
			CommonExpense: mustMoney("100.00"),
			ReserveFund:   mustMoney("50.00"),
			CreatedAt:     time.Now().UTC(),
		},
		{
			ID:            "apt-201",
			Unit:          "201",
			Occupant:      "Priya Nair",
			Role:          ledger.RoleOwner,
			CommonExpense: mustMoney("100.00"),
			ReserveFund:   mustMoney("50.00"),
			CreatedAt:     time.Now().UTC(),
		},
	}
	for _, a := range apartments {
		if err := h.Store.SaveApartment(ctx, a); err != nil {
			return err
		}
	}

	return h.Store.SaveAccount(ctx, ledger.BankAccount{
		ID:             "acct-checking",
		Name:           "Building checking",
		OpeningBalance: mustMoney("1000.00"),
		Active:         true,
		Default:        true,
		CreatedAt:      time.Now().UTC(),
	})
}

// mustMoney parses scenario constants; the literals are fixed, so a
// parse failure is a programming error.
func mustMoney(s string) ledger.Money {
	m, err := ledger.MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}
