package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jmpark86/condo-billing/backend/models"
	"github.com/jmpark86/condo-billing/backend/services"
)

type ReadingHandler struct {
	db             *sql.DB
	billingService *services.BillingService
}

func NewReadingHandler(db *sql.DB, billingService *services.BillingService) *ReadingHandler {
	return &ReadingHandler{db: db, billingService: billingService}
}

// parsePeriod pulls year/month query params and validates the month range.
func parsePeriod(r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	rows, err := h.db.Query(`
		SELECT unit_id, year, month, electricity_reading, water_reading, created_at, updated_at
		FROM meter_readings
		WHERE year = ? AND month = ?
		ORDER BY unit_id
	`, year, month)
	if err != nil {
		log.Printf("Error listing readings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	readings := []models.MeterReading{}
	for rows.Next() {
		var m models.MeterReading
		err := rows.Scan(&m.UnitID, &m.Year, &m.Month,
			&m.ElectricityReading, &m.WaterReading, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			log.Printf("Error scanning reading: %v", err)
			continue
		}
		readings = append(readings, m)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error reading meter readings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

// Save upserts one cumulative reading. Readings are whole records, never
// partially updated.
func (h *ReadingHandler) Save(w http.ResponseWriter, r *http.Request) {
	var m models.MeterReading
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if m.UnitID == "" {
		http.Error(w, "Unit id is required", http.StatusBadRequest)
		return
	}
	if m.Year <= 0 || m.Month < 1 || m.Month > 12 {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}
	if m.ElectricityReading < 0 || m.WaterReading < 0 {
		http.Error(w, "Readings must be non-negative", http.StatusBadRequest)
		return
	}

	// Reject readings for unknown units up front: the foreign key would
	// catch it anyway, but this gives the operator a clearer message.
	var exists int
	if err := h.db.QueryRow("SELECT COUNT(*) FROM units WHERE id = ?", m.UnitID).Scan(&exists); err != nil {
		log.Printf("Error checking unit %s: %v", m.UnitID, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if exists == 0 {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}

	_, err := h.db.Exec(`
		INSERT INTO meter_readings (unit_id, year, month, electricity_reading, water_reading)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(unit_id, year, month) DO UPDATE SET
			electricity_reading = excluded.electricity_reading,
			water_reading = excluded.water_reading,
			updated_at = CURRENT_TIMESTAMP
	`, m.UnitID, m.Year, m.Month, m.ElectricityReading, m.WaterReading)
	if err != nil {
		log.Printf("Error saving reading: %v", err)
		http.Error(w, "Failed to save reading", http.StatusInternalServerError)
		return
	}

	log.Printf("Saved reading for unit %s %d-%02d: elec %.2f, water %.2f",
		m.UnitID, m.Year, m.Month, m.ElectricityReading, m.WaterReading)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func (h *ReadingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	unitID := vars["unitID"]
	year, err1 := strconv.Atoi(vars["year"])
	month, err2 := strconv.Atoi(vars["month"])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		DELETE FROM meter_readings WHERE unit_id = ? AND year = ? AND month = ?
	`, unitID, year, month)
	if err != nil {
		log.Printf("Error deleting reading: %v", err)
		http.Error(w, "Failed to delete reading", http.StatusInternalServerError)
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Usage returns the derived consumption breakdown for one unit and
// period, for display next to the entry form.
func (h *ReadingHandler) Usage(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		http.Error(w, "unit_id is required", http.StatusBadRequest)
		return
	}
	year, month, ok := parsePeriod(r)
	if !ok {
		http.Error(w, "Invalid year/month", http.StatusBadRequest)
		return
	}

	detail, err := h.billingService.UsageDetail(unitID, year, month)
	if err != nil {
		log.Printf("Error deriving usage for %s %d-%02d: %v", unitID, year, month, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}
