package models

import "time"

type Unit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Area      float64   `json:"area"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MeterReading struct {
	UnitID             string    `json:"unit_id"`
	Year               int       `json:"year"`
	Month              int       `json:"month"`
	ElectricityReading float64   `json:"electricity_reading"`
	WaterReading       float64   `json:"water_reading"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// MonthlyBill holds the building-wide totals for one period,
// entered by the administrator.
type MonthlyBill struct {
	Year                 int     `json:"year"`
	Month                int     `json:"month"`
	TotalElectricityCost float64 `json:"total_electricity_cost"`
	TotalWaterCost       float64 `json:"total_water_cost"`
	TotalManagementCost  float64 `json:"total_management_cost"`
}

// UnitBill is the computed per-unit share for one period. Cost components
// are stored already rounded to whole currency units.
type UnitBill struct {
	UnitID          string  `json:"unit_id"`
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	ElectricityCost float64 `json:"electricity_cost"`
	WaterCost       float64 `json:"water_cost"`
	ManagementCost  float64 `json:"management_cost"`
	TotalCost       float64 `json:"total_cost"`
}

// UsageDetail is the re-derived consumption breakdown used for display.
// It must match what the allocation engine billed, so both go through
// the same delta/clamping code.
type UsageDetail struct {
	UnitID              string  `json:"unit_id"`
	Year                int     `json:"year"`
	Month               int     `json:"month"`
	CurrentElectricity  float64 `json:"current_electricity"`
	PreviousElectricity float64 `json:"previous_electricity"`
	ElectricityUsage    float64 `json:"electricity_usage"`
	CurrentWater        float64 `json:"current_water"`
	PreviousWater       float64 `json:"previous_water"`
	WaterUsage          float64 `json:"water_usage"`
}

// Statement is one unit's printable bill for a period: identity, usage
// and cost breakdown together.
type Statement struct {
	Unit     Unit        `json:"unit"`
	Usage    UsageDetail `json:"usage"`
	Bill     UnitBill    `json:"bill"`
	Currency string      `json:"currency"`
}

type DashboardSummary struct {
	TotalUnits      int     `json:"total_units"`
	TotalReadings   int     `json:"total_readings"`
	BilledPeriods   int     `json:"billed_periods"`
	LatestYear      int     `json:"latest_year"`
	LatestMonth     int     `json:"latest_month"`
	LatestTotalCost float64 `json:"latest_total_cost"`
	LatestUnitCount int     `json:"latest_unit_count"`
}
