/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers. Money amounts cross the wire as strings ("123.45") so no
  float precision is lost in transit.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/atrium/condo-engine/ledger"
)

// =============================================================================
// APARTMENTS
// =============================================================================

type ApartmentDTO struct {
	ID            string `json:"id"`
	Unit          string `json:"unit"`
	Occupant      string `json:"occupant"`
	Role          string `json:"role"`
	CommonExpense string `json:"common_expense"`
	ReserveFund   string `json:"reserve_fund"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type CreateApartmentRequest struct {
	ID            string `json:"id"`
	Unit          string `json:"unit"`
	Occupant      string `json:"occupant"`
	Role          string `json:"role"`
	CommonExpense string `json:"common_expense"`
	ReserveFund   string `json:"reserve_fund"`
}

type BalanceDTO struct {
	AsOf    string `json:"as_of"`
	Balance string `json:"balance"`
}

// =============================================================================
// CHARGES & PAYMENTS
// =============================================================================

type ChargeDTO struct {
	ID          string `json:"id"`
	ApartmentID string `json:"apartment_id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	AmountPaid  string `json:"amount_paid"`
	PaidState   string `json:"paid_state"`
	MovementID  string `json:"movement_id,omitempty"`
}

type CreateChargeRequest struct {
	ApartmentID string `json:"apartment_id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type PaymentDTO struct {
	ID          string `json:"id"`
	ApartmentID string `json:"apartment_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	MovementID  string `json:"movement_id,omitempty"`
}

type ApplyPaymentRequest struct {
	ApartmentID string `json:"apartment_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	AccountID   string `json:"account_id,omitempty"`
}

// ApplyPaymentResponse reports the allocation outcome alongside the
// created payment.
type ApplyPaymentResponse struct {
	Payment PaymentDTO `json:"payment"`
	Applied string     `json:"applied"`
	Credit  string     `json:"credit"`
	Charges []string   `json:"charges"`
}

type MatchPaymentRequest struct {
	AccountID string `json:"account_id"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	ApartmentID string `json:"apartment_id,omitempty"`
	MovementID  string `json:"movement_id,omitempty"`
}

type CreateTransactionRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ApartmentID string `json:"apartment_id,omitempty"`
}

// =============================================================================
// BANK SIDE
// =============================================================================

type AccountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
	Active         bool   `json:"active"`
	Default        bool   `json:"default"`
}

type CreateAccountRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
	Active         bool   `json:"active"`
	Default        bool   `json:"default"`
}

type MovementDTO struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	LinkedType  string `json:"linked_type,omitempty"`
	LinkedID    string `json:"linked_id,omitempty"`
	ProviderID  string `json:"provider_id,omitempty"`
}

type CreateMovementRequest struct {
	AccountID   string `json:"account_id"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	ProviderID  string `json:"provider_id,omitempty"`

	// Optional record to link atomically on creation.
	LinkedType string `json:"linked_type,omitempty"`
	LinkedID   string `json:"linked_id,omitempty"`
}

type UpdateMovementRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
}

type LinkMovementRequest struct {
	RecordType string `json:"record_type"`
	RecordID   string `json:"record_id"`
}

// DeleteMovementResponse tells the client what the cascade removed.
type DeleteMovementResponse struct {
	DeletedRecordType string `json:"deleted_record_type,omitempty"`
	Amount            string `json:"amount"`
	ApartmentID       string `json:"apartment_id,omitempty"`
	Recalculated      bool   `json:"recalculated"`
}

// =============================================================================
// REPORTS & GENERATION
// =============================================================================

type ApartmentLineDTO struct {
	ApartmentID    string `json:"apartment_id"`
	Unit           string `json:"unit"`
	Occupant       string `json:"occupant"`
	Role           string `json:"role"`
	PriorBalance   string `json:"prior_balance"`
	Payments       string `json:"payments"`
	CommonExpense  string `json:"common_expense"`
	ReserveFund    string `json:"reserve_fund"`
	CurrentBalance string `json:"current_balance"`
}

type MonthlyReportDTO struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Apartments []ApartmentLineDTO `json:"apartments"`
	Collected  map[string]string  `json:"collected"`
	Spent      map[string]string  `json:"spent"`
	Treasury   string             `json:"treasury"`
	Notice     string             `json:"notice,omitempty"`
	Footer     string             `json:"footer,omitempty"`
}

type CategoryLineDTO struct {
	Collected string `json:"collected"`
	Spent     string `json:"spent"`
	Net       string `json:"net"`
}

type AccumulatedReportDTO struct {
	From           string                     `json:"from"`
	To             string                     `json:"to"`
	Categories     map[string]CategoryLineDTO `json:"categories"`
	TotalCollected string                     `json:"total_collected"`
	TotalSpent     string                     `json:"total_spent"`
	Net            string                     `json:"net"`
}

type CombinedReportDTO struct {
	Current  MonthlyReportDTO `json:"current"`
	Previous MonthlyReportDTO `json:"previous"`
}

type GenerateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type GenerateResponse struct {
	Created       int    `json:"created"`
	CreditApplied string `json:"credit_applied"`
}

type PeriodNoteRequest struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Notice string `json:"notice"`
	Footer string `json:"footer"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toApartmentDTO(a ledger.Apartment) ApartmentDTO {
	return ApartmentDTO{
		ID:            string(a.ID),
		Unit:          a.Unit,
		Occupant:      a.Occupant,
		Role:          string(a.Role),
		CommonExpense: a.CommonExpense.String(),
		ReserveFund:   a.ReserveFund.String(),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func toChargeDTO(c ledger.Charge) ChargeDTO {
	return ChargeDTO{
		ID:          string(c.ID),
		ApartmentID: string(c.ApartmentID),
		Category:    string(c.Category),
		Amount:      c.Amount.String(),
		Date:        c.Date.String(),
		Description: c.Description,
		AmountPaid:  c.AmountPaid.String(),
		PaidState:   string(c.PaidState),
		MovementID:  string(c.MovementID),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          string(p.ID),
		ApartmentID: string(p.ApartmentID),
		Amount:      p.Amount.String(),
		Date:        p.Date.String(),
		Category:    string(p.Category),
		Description: p.Description,
		MovementID:  string(p.MovementID),
	}
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(t.ID),
		Amount:      t.Amount.String(),
		Date:        t.Date.String(),
		Category:    string(t.Category),
		Description: t.Description,
		ApartmentID: string(t.ApartmentID),
		MovementID:  string(t.MovementID),
	}
}

func toAccountDTO(a ledger.BankAccount) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		OpeningBalance: a.OpeningBalance.String(),
		Active:         a.Active,
		Default:        a.Default,
	}
}

func toMovementDTO(m ledger.BankMovement) MovementDTO {
	return MovementDTO{
		ID:          string(m.ID),
		AccountID:   string(m.AccountID),
		Direction:   string(m.Direction),
		Amount:      m.Amount.String(),
		Date:        m.Date.String(),
		Description: m.Description,
		Category:    string(m.Category),
		LinkedType:  string(m.LinkedType),
		LinkedID:    m.LinkedID,
		ProviderID:  string(m.ProviderID),
	}
}

func toMonthlyReportDTO(st ledger.MonthlyStatement) MonthlyReportDTO {
	dto := MonthlyReportDTO{
		Year:      st.Year,
		Month:     int(st.Month),
		Collected: map[string]string{},
		Spent:     map[string]string{},
		Treasury:  st.Treasury.String(),
		Notice:    st.Notice,
		Footer:    st.Footer,
	}
	for _, line := range st.Apartments {
		dto.Apartments = append(dto.Apartments, ApartmentLineDTO{
			ApartmentID:    string(line.ApartmentID),
			Unit:           line.Unit,
			Occupant:       line.Occupant,
			Role:           string(line.Role),
			PriorBalance:   line.PriorBalance.String(),
			Payments:       line.Payments.String(),
			CommonExpense:  line.CommonExpense.String(),
			ReserveFund:    line.ReserveFund.String(),
			CurrentBalance: line.CurrentBalance.String(),
		})
	}
	for cat, amount := range st.Collected {
		dto.Collected[string(cat)] = amount.String()
	}
	for cat, amount := range st.Spent {
		dto.Spent[string(cat)] = amount.String()
	}
	return dto
}

func toAccumulatedReportDTO(st ledger.AccumulatedStatement) AccumulatedReportDTO {
	dto := AccumulatedReportDTO{
		From:           st.From.String(),
		To:             st.To.String(),
		Categories:     map[string]CategoryLineDTO{},
		TotalCollected: st.TotalCollected.String(),
		TotalSpent:     st.TotalSpent.String(),
		Net:            st.Net.String(),
	}
	for cat, line := range st.Categories {
		dto.Categories[string(cat)] = CategoryLineDTO{
			Collected: line.Collected.String(),
			Spent:     line.Spent.String(),
			Net:       line.Net.String(),
		}
	}
	return dto
}
