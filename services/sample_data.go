package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmpark86/condo-billing/backend/models"
)

// LoadSampleData seeds a small demo dataset: three units, two months of
// readings and one calculated billing period. Existing rows with the
// same keys are overwritten so the button can be pressed repeatedly.
func LoadSampleData(db *sql.DB, bs *BillingService) error {
	units := []models.Unit{
		{ID: "101", Name: "Unit 101", Area: 60},
		{ID: "102", Name: "Unit 102", Area: 120},
		{ID: "201", Name: "Unit 201", Area: 84.5},
	}

	for _, u := range units {
		_, err := db.Exec(`
			INSERT INTO units (id, name, area) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				area = excluded.area,
				updated_at = CURRENT_TIMESTAMP
		`, u.ID, u.Name, u.Area)
		if err != nil {
			return fmt.Errorf("failed to seed unit %s: %v", u.ID, err)
		}
	}

	readings := []models.MeterReading{
		{UnitID: "101", Year: 2026, Month: 6, ElectricityReading: 1923, WaterReading: 89.7},
		{UnitID: "102", Year: 2026, Month: 6, ElectricityReading: 30635, WaterReading: 89.7},
		{UnitID: "201", Year: 2026, Month: 6, ElectricityReading: 5512, WaterReading: 120.4},
		{UnitID: "101", Year: 2026, Month: 7, ElectricityReading: 2123, WaterReading: 93.36},
		{UnitID: "102", Year: 2026, Month: 7, ElectricityReading: 30734, WaterReading: 93.36},
		{UnitID: "201", Year: 2026, Month: 7, ElectricityReading: 5683, WaterReading: 124.9},
	}

	for _, r := range readings {
		_, err := db.Exec(`
			INSERT INTO meter_readings (unit_id, year, month, electricity_reading, water_reading)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(unit_id, year, month) DO UPDATE SET
				electricity_reading = excluded.electricity_reading,
				water_reading = excluded.water_reading,
				updated_at = CURRENT_TIMESTAMP
		`, r.UnitID, r.Year, r.Month, r.ElectricityReading, r.WaterReading)
		if err != nil {
			return fmt.Errorf("failed to seed reading %s %d-%02d: %v", r.UnitID, r.Year, r.Month, err)
		}
	}

	_, err := bs.Calculate(models.MonthlyBill{
		Year:                 2026,
		Month:                7,
		TotalElectricityCost: 47440,
		TotalWaterCost:       17440,
		TotalManagementCost:  223630,
	})
	if err != nil {
		return fmt.Errorf("failed to calculate sample period: %v", err)
	}

	log.Println("Sample data loaded: 3 units, 2 months of readings, 1 billed period")
	return nil
}
