package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jmpark86/condo-billing/backend/models"
	"github.com/jmpark86/condo-billing/backend/services"
)

type BillingHandler struct {
	db             *sql.DB
	billingService *services.BillingService
	renderer       *services.StatementRenderer
	currency       string
}

func NewBillingHandler(db *sql.DB, billingService *services.BillingService, renderer *services.StatementRenderer, currency string) *BillingHandler {
	return &BillingHandler{
		db:             db,
		billingService: billingService,
		renderer:       renderer,
		currency:       currency,
	}
}

func (h *BillingHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	var b models.MonthlyBill
	err := h.db.QueryRow(`
		SELECT year, month, total_electricity_cost, total_water_cost, total_management_cost
		FROM monthly_bills WHERE year = ? AND month = ?
	`, year, month).Scan(&b.Year, &b.Month,
		&b.TotalElectricityCost, &b.TotalWaterCost, &b.TotalManagementCost)

	if err == sql.ErrNoRows {
		http.Error(w, "No bill for period", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error getting monthly bill: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

// Calculate validates the period totals, checks the at-least-one-reading
// precondition and runs the allocation engine. The engine itself treats
// missing data as zero contribution; an empty period is rejected here so
// no empty MonthlyBill record gets written.
func (h *BillingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var bill models.MonthlyBill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if bill.Year <= 0 || bill.Month < 1 || bill.Month > 12 {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}
	if bill.TotalElectricityCost < 0 || bill.TotalWaterCost < 0 || bill.TotalManagementCost < 0 {
		http.Error(w, "Costs must be non-negative", http.StatusBadRequest)
		return
	}

	count, err := h.billingService.ReadingCount(bill.Year, bill.Month)
	if err != nil {
		log.Printf("Error counting readings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if count == 0 {
		http.Error(w, fmt.Sprintf("No readings recorded for %d-%02d", bill.Year, bill.Month), http.StatusBadRequest)
		return
	}

	unitBills, err := h.billingService.Calculate(bill)
	if err != nil {
		log.Printf("Error calculating bills: %v", err)
		http.Error(w, "Failed to calculate bills", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(unitBills)
}

func (h *BillingHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	statements, err := h.billingService.Statements(year, month, h.currency)
	if err != nil {
		log.Printf("Error loading statements: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statements)
}

func (h *BillingHandler) StatementPDF(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	unitID := vars["unitID"]

	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	statement, err := h.billingService.Statement(unitID, year, month, h.currency)
	if err == sql.ErrNoRows {
		http.Error(w, "No bill for unit and period", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error loading statement: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	data, err := h.renderer.RenderPDF(statement)
	if err != nil {
		log.Printf("Error rendering PDF: %v", err)
		http.Error(w, "Failed to render statement", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("statement-%s-%d%02d.pdf", unitID, year, month)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

func (h *BillingHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	statements, err := h.billingService.Statements(year, month, h.currency)
	if err != nil {
		log.Printf("Error loading statements for export: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if len(statements) == 0 {
		http.Error(w, fmt.Sprintf("No bills for %d-%02d", year, month), http.StatusNotFound)
		return
	}

	data, err := services.RenderXLSX(statements, year, month, h.currency)
	if err != nil {
		log.Printf("Error rendering XLSX: %v", err)
		http.Error(w, "Failed to render export", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("unit-bills-%d%02d.xlsx", year, month)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}
