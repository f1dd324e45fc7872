package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/jmpark86/condo-billing/backend/models"
)

type DashboardHandler struct {
	db *sql.DB
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var summary models.DashboardSummary

	if err := h.db.QueryRow("SELECT COUNT(*) FROM units").Scan(&summary.TotalUnits); err != nil {
		log.Printf("Error counting units: %v", err)
	}
	if err := h.db.QueryRow("SELECT COUNT(*) FROM meter_readings").Scan(&summary.TotalReadings); err != nil {
		log.Printf("Error counting readings: %v", err)
	}
	if err := h.db.QueryRow("SELECT COUNT(*) FROM monthly_bills").Scan(&summary.BilledPeriods); err != nil {
		log.Printf("Error counting billed periods: %v", err)
	}

	err := h.db.QueryRow(`
		SELECT year, month,
		       total_electricity_cost + total_water_cost + total_management_cost
		FROM monthly_bills
		ORDER BY year DESC, month DESC
		LIMIT 1
	`).Scan(&summary.LatestYear, &summary.LatestMonth, &summary.LatestTotalCost)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("Error getting latest period: %v", err)
	}

	if summary.LatestYear > 0 {
		err := h.db.QueryRow(`
			SELECT COUNT(*) FROM unit_bills WHERE year = ? AND month = ?
		`, summary.LatestYear, summary.LatestMonth).Scan(&summary.LatestUnitCount)
		if err != nil {
			log.Printf("Error counting latest unit bills: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
