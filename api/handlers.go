/*
handlers.go - HTTP API handlers for the condominium ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Apartments:
    GET    /api/apartments                 List apartments
    POST   /api/apartments                 Create apartment
    GET    /api/apartments/{id}            Get apartment
    DELETE /api/apartments/{id}            Delete (orphans its records)
    GET    /api/apartments/{id}/balance    Balance as of a date
    GET    /api/apartments/{id}/charges    Charge history
    GET    /api/apartments/{id}/payments   Payment history

  Payments:
    POST   /api/payments                   Apply a payment (allocates)
    DELETE /api/payments/{id}              Reverse and remove
    POST   /api/payments/{id}/match        Create the mirroring movement

  Charges:
    POST   /api/charges                    Create a manual charge
    DELETE /api/charges/{id}               Delete (refused if allocated)

  Bank:
    GET    /api/accounts                   List accounts
    POST   /api/accounts                   Create account
    GET    /api/accounts/{id}/balance      Account balance as of a date
    GET    /api/accounts/{id}/movements    Movement history
    GET    /api/treasury                   Active accounts total
    POST   /api/movements                  Create movement (optionally linked)
    PUT    /api/movements/{id}             Edit (propagates to linked record)
    DELETE /api/movements/{id}             Delete (cascades, reports result)
    POST   /api/movements/{id}/link        Link to an existing record

  Reports:
    GET    /api/reports/monthly            ?year=&month=
    GET    /api/reports/accumulated        ?from=&to=
    GET    /api/reports/combined           ?year=&month=
    PUT    /api/reports/notes              Set period notice/footer

  Generation:
    POST   /api/generate                   Generate the month's charges

ERROR HANDLING:
  Domain errors map to HTTP status via statusFor:
  - 400: invalid amounts, malformed input
  - 404: missing records
  - 409: linkage conflicts, referenced charges
  - 500: inconsistent state (engine bug) and store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo data loader
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atrium/condo-engine/ledger"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Store  ledger.TxStore

	// Track currently loaded scenario (demo tooling).
	currentScenario string
}

// NewHandler creates a handler over the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Engine: ledger.NewEngine(store),
		Store:  store,
	}
}

// =============================================================================
// APARTMENT ENDPOINTS
// =============================================================================

// ListApartments returns all apartments.
// GET /api/apartments
func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := h.Store.ListApartments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list apartments", err)
		return
	}

	dtos := make([]ApartmentDTO, 0, len(apartments))
	for _, a := range apartments {
		dtos = append(dtos, toApartmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateApartment creates an apartment record.
// POST /api/apartments
func (h *Handler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req CreateApartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Unit == "" {
		writeError(w, http.StatusBadRequest, "unit is required", nil)
		return
	}

	common, err := parseMoney(req.CommonExpense)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid common_expense", err)
		return
	}
	reserve, err := parseMoney(req.ReserveFund)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reserve_fund", err)
		return
	}

	a := ledger.Apartment{
		ID:            ledger.ApartmentID(req.ID),
		Unit:          req.Unit,
		Occupant:      req.Occupant,
		Role:          ledger.OccupantRole(req.Role),
		CommonExpense: common,
		ReserveFund:   reserve,
		CreatedAt:     time.Now().UTC(),
	}
	if a.ID == "" {
		a.ID = ledger.ApartmentID(uuid.NewString())
	}
	if a.Role == "" {
		a.Role = ledger.RoleOwner
	}

	if err := h.Store.SaveApartment(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create apartment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toApartmentDTO(a))
}

// GetApartment returns one apartment.
// GET /api/apartments/{id}
func (h *Handler) GetApartment(w http.ResponseWriter, r *http.Request) {
	id := ledger.ApartmentID(chi.URLParam(r, "id"))
	a, err := h.Store.GetApartment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get apartment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Apartment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toApartmentDTO(*a))
}

// DeleteApartment removes an apartment; its charges and payments stay
// behind with the reference cleared.
// DELETE /api/apartments/{id}
func (h *Handler) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id := ledger.ApartmentID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteApartment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete apartment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// GetApartmentBalance returns the apartment's debt as of a date
// (default today).
// GET /api/apartments/{id}/balance?as_of=2025-03-31
func (h *Handler) GetApartmentBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.ApartmentID(chi.URLParam(r, "id"))
	asOf, err := parseDateOrToday(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	bal, err := h.Engine.ApartmentBalance(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: asOf.String(), Balance: bal.String()})
}

// ListApartmentCharges returns the apartment's charges oldest-first.
// GET /api/apartments/{id}/charges
func (h *Handler) ListApartmentCharges(w http.ResponseWriter, r *http.Request) {
	id := ledger.ApartmentID(chi.URLParam(r, "id"))
	charges, err := h.Store.ChargesByApartment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list charges", err)
		return
	}

	dtos := make([]ChargeDTO, 0, len(charges))
	for _, c := range charges {
		dtos = append(dtos, toChargeDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListApartmentPayments returns the apartment's payments oldest-first.
// GET /api/apartments/{id}/payments
func (h *Handler) ListApartmentPayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.ApartmentID(chi.URLParam(r, "id"))
	payments, err := h.Store.PaymentsByApartment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// ApplyPayment registers a payment and allocates it against the
// apartment's outstanding charges.
// POST /api/payments
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Engine.ApplyPayment(r.Context(), ledger.PaymentRequest{
		ApartmentID: ledger.ApartmentID(req.ApartmentID),
		Amount:      amount,
		Date:        date,
		Category:    ledger.Category(req.Category),
		Description: req.Description,
		AccountID:   ledger.AccountID(req.AccountID),
	})
	if err != nil {
		writeDomainError(w, "Failed to apply payment", err)
		return
	}

	charges := make([]string, 0, len(res.Charges))
	for _, id := range res.Charges {
		charges = append(charges, string(id))
	}
	writeJSON(w, http.StatusCreated, ApplyPaymentResponse{
		Payment: toPaymentDTO(res.Payment),
		Applied: res.Applied.String(),
		Credit:  res.Credit.String(),
		Charges: charges,
	})
}

// ReversePayment un-applies and removes a payment (and its movement).
// DELETE /api/payments/{id}
func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.PaymentID(chi.URLParam(r, "id"))
	if err := h.Engine.ReversePayment(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to reverse payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reversed": string(id)})
}

// MatchPayment creates the mirroring IN movement for an unlinked
// payment on the given account.
// POST /api/payments/{id}/match
func (h *Handler) MatchPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.PaymentID(chi.URLParam(r, "id"))

	var req MatchPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mv, err := h.Engine.MatchPayment(r.Context(), id, ledger.AccountID(req.AccountID))
	if err != nil {
		writeDomainError(w, "Failed to match payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(mv))
}

// =============================================================================
// CHARGE ENDPOINTS
// =============================================================================

// CreateCharge creates a manual (non-generated) charge.
// POST /api/charges
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	ctx := r.Context()
	apt, err := h.Store.GetApartment(ctx, ledger.ApartmentID(req.ApartmentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up apartment", err)
		return
	}
	if apt == nil {
		writeError(w, http.StatusNotFound, "Apartment not found", nil)
		return
	}

	c := ledger.Charge{
		ID:          ledger.ChargeID(uuid.NewString()),
		ApartmentID: apt.ID,
		Category:    ledger.Category(req.Category),
		Amount:      amount,
		Date:        date,
		Description: req.Description,
		AmountPaid:  ledger.ZeroMoney(),
		PaidState:   ledger.Unpaid,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveCharge(ctx, c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create charge", err)
		return
	}
	writeJSON(w, http.StatusCreated, toChargeDTO(c))
}

// DeleteCharge removes a charge; refused when allocations reference it.
// DELETE /api/charges/{id}
func (h *Handler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	id := ledger.ChargeID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteCharge(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete charge", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// TRANSACTION ENDPOINTS
// =============================================================================

// CreateTransaction records a non-apartment income/expense.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	t := ledger.Transaction{
		ID:          ledger.TransactionID(uuid.NewString()),
		Amount:      amount,
		Date:        date,
		Category:    ledger.Category(req.Category),
		Description: req.Description,
		ApartmentID: ledger.ApartmentID(req.ApartmentID),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveTransaction(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

// =============================================================================
// BANK ENDPOINTS
// =============================================================================

// ListAccounts returns all bank accounts.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a bank account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	opening, err := parseMoney(req.OpeningBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening_balance", err)
		return
	}

	a := ledger.BankAccount{
		ID:             ledger.AccountID(req.ID),
		Name:           req.Name,
		OpeningBalance: opening,
		Active:         req.Active,
		Default:        req.Default,
		CreatedAt:      time.Now().UTC(),
	}
	if a.ID == "" {
		a.ID = ledger.AccountID(uuid.NewString())
	}

	if err := h.Store.SaveAccount(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

// GetAccountBalance returns an account's balance as of a date.
// GET /api/accounts/{id}/balance?as_of=2025-03-31
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	asOf, err := parseDateOrToday(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	bal, err := h.Engine.AccountBalance(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: asOf.String(), Balance: bal.String()})
}

// ListAccountMovements returns an account's movements, oldest first.
// GET /api/accounts/{id}/movements
func (h *Handler) ListAccountMovements(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	movements, err := h.Store.MovementsByAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}

	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, toMovementDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTreasuryBalance sums all active account balances.
// GET /api/treasury?as_of=2025-03-31
func (h *Handler) GetTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateOrToday(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	bal, err := h.Engine.TreasuryBalance(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute treasury balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: asOf.String(), Balance: bal.String()})
}

// CreateMovement records a bank movement, optionally linked to an
// existing record in the same transaction.
// POST /api/movements
func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	if req.Direction != string(ledger.In) && req.Direction != string(ledger.Out) {
		writeError(w, http.StatusBadRequest, "direction must be \"in\" or \"out\"", nil)
		return
	}

	mv := ledger.BankMovement{
		AccountID:   ledger.AccountID(req.AccountID),
		Direction:   ledger.Direction(req.Direction),
		Amount:      amount,
		Date:        date,
		Description: req.Description,
		Category:    ledger.Category(req.Category),
		ProviderID:  ledger.ProviderID(req.ProviderID),
	}

	ctx := r.Context()
	if req.LinkedType != "" {
		mv, err = h.Engine.CreateLinkedMovement(ctx, mv, ledger.LinkedRecord{
			Type: ledger.RecordType(req.LinkedType),
			ID:   req.LinkedID,
		})
	} else {
		mv.ID = ledger.MovementID(uuid.NewString())
		mv.CreatedAt = time.Now().UTC()
		if acc, accErr := h.Store.GetAccount(ctx, mv.AccountID); accErr != nil {
			err = accErr
		} else if acc == nil {
			err = &ledger.NotFoundError{Kind: "account", ID: req.AccountID}
		} else {
			err = h.Store.SaveMovement(ctx, mv)
		}
	}
	if err != nil {
		writeDomainError(w, "Failed to create movement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(mv))
}

// UpdateMovement edits a movement; edits propagate to the linked
// record, re-running allocation when a linked payment's amount changes.
// PUT /api/movements/{id}
func (h *Handler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	id := ledger.MovementID(chi.URLParam(r, "id"))

	var req UpdateMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	err = h.Engine.UpdateMovement(r.Context(), id, ledger.MovementUpdate{
		Amount:      amount,
		Date:        date,
		Description: req.Description,
		Category:    ledger.Category(req.Category),
		AccountID:   ledger.AccountID(req.AccountID),
	})
	if err != nil {
		writeDomainError(w, "Failed to update movement", err)
		return
	}

	mv, err := h.Store.GetMovement(r.Context(), id)
	if err != nil || mv == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload movement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(*mv))
}

// DeleteMovement removes a movement, cascading to its linked record,
// and reports what was removed.
// DELETE /api/movements/{id}
func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	id := ledger.MovementID(chi.URLParam(r, "id"))
	res, err := h.Engine.DeleteMovement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to delete movement", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteMovementResponse{
		DeletedRecordType: string(res.DeletedRecordType),
		Amount:            res.Amount.String(),
		ApartmentID:       string(res.ApartmentID),
		Recalculated:      res.Recalculated,
	})
}

// LinkMovement pairs a movement with an existing record.
// POST /api/movements/{id}/link
func (h *Handler) LinkMovement(w http.ResponseWriter, r *http.Request) {
	id := ledger.MovementID(chi.URLParam(r, "id"))

	var req LinkMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Engine.Link(r.Context(), id, ledger.LinkedRecord{
		Type: ledger.RecordType(req.RecordType),
		ID:   req.RecordID,
	})
	if err != nil {
		writeDomainError(w, "Failed to link movement", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked": string(id)})
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetMonthlyReport builds the statement for one month.
// GET /api/reports/monthly?year=2025&month=3
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	st, err := h.Engine.MonthlyReport(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyReportDTO(st))
}

// GetAccumulatedReport sums collected/spent per category over a range.
// GET /api/reports/accumulated?from=2025-01-01&to=2025-06-30
func (h *Handler) GetAccumulatedReport(w http.ResponseWriter, r *http.Request) {
	from, err := ledger.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := ledger.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	st, err := h.Engine.AccumulatedReport(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccumulatedReportDTO(st))
}

// GetCombinedReport pairs the month's statement with the previous one.
// GET /api/reports/combined?year=2025&month=3
func (h *Handler) GetCombinedReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	st, err := h.Engine.CombinedReport(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, CombinedReportDTO{
		Current:  toMonthlyReportDTO(st.Current),
		Previous: toMonthlyReportDTO(st.Previous),
	})
}

// SavePeriodNote sets the notice/footer text for a period.
// PUT /api/reports/notes
func (h *Handler) SavePeriodNote(w http.ResponseWriter, r *http.Request) {
	var req PeriodNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12", nil)
		return
	}

	err := h.Store.SavePeriodNote(r.Context(), ledger.PeriodNote{
		Year:   req.Year,
		Month:  time.Month(req.Month),
		Notice: req.Notice,
		Footer: req.Footer,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save note", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// =============================================================================
// GENERATION ENDPOINT
// =============================================================================

// GenerateCharges creates the month's standard charges (idempotent).
// POST /api/generate
func (h *Handler) GenerateCharges(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12", nil)
		return
	}

	res, err := h.Engine.GenerateMonthly(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		if errors.Is(err, ledger.ErrNoApartments) {
			writeError(w, http.StatusConflict, "No apartments configured", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate charges", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Created:       res.Created,
		CreditApplied: res.CreditApplied.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyLinked), errors.Is(err, ledger.ErrChargeReferenced):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseMoney(s string) (ledger.Money, error) {
	if s == "" {
		return ledger.ZeroMoney(), nil
	}
	return ledger.MoneyFromString(s)
}

func parseDateOrToday(s string) (ledger.Date, error) {
	if s == "" {
		return ledger.Today(), nil
	}
	return ledger.ParseDate(s)
}

func parseYearMonth(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, errors.New("month out of range")
	}
	return year, time.Month(month), nil
}
