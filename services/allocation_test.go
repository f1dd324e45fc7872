package services

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/jmpark86/condo-billing/backend/database"
	"github.com/jmpark86/condo-billing/backend/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return db
}

func insertUnit(t *testing.T, db *sql.DB, id, name string, area float64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO units (id, name, area) VALUES (?, ?, ?)`, id, name, area); err != nil {
		t.Fatalf("insert unit %s: %v", id, err)
	}
}

func insertReading(t *testing.T, db *sql.DB, unitID string, year, month int, elec, water float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO meter_readings (unit_id, year, month, electricity_reading, water_reading)
		VALUES (?, ?, ?, ?, ?)
	`, unitID, year, month, elec, water)
	if err != nil {
		t.Fatalf("insert reading %s %d-%02d: %v", unitID, year, month, err)
	}
}

func loadUnitBills(t *testing.T, db *sql.DB, year, month int) map[string]models.UnitBill {
	t.Helper()
	rows, err := db.Query(`
		SELECT unit_id, electricity_cost, water_cost, management_cost, total_cost
		FROM unit_bills WHERE year = ? AND month = ?
	`, year, month)
	if err != nil {
		t.Fatalf("query unit_bills: %v", err)
	}
	defer rows.Close()

	bills := map[string]models.UnitBill{}
	for rows.Next() {
		var b models.UnitBill
		b.Year, b.Month = year, month
		if err := rows.Scan(&b.UnitID, &b.ElectricityCost, &b.WaterCost, &b.ManagementCost, &b.TotalCost); err != nil {
			t.Fatalf("scan unit_bill: %v", err)
		}
		bills[b.UnitID] = b
	}
	return bills
}

func TestCalculateProportionalSplit(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 60)
	insertUnit(t, db, "B", "Unit B", 120)

	insertReading(t, db, "A", 2026, 6, 1923, 89.7)
	insertReading(t, db, "B", 2026, 6, 30635, 89.7)
	insertReading(t, db, "A", 2026, 7, 2123, 93.36)
	insertReading(t, db, "B", 2026, 7, 30734, 93.36)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 7,
		TotalElectricityCost: 47440,
		TotalWaterCost:       17440,
		TotalManagementCost:  223630,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("got %d bills, want 2", len(bills))
	}

	// Usage: A 200 kWh / 3.66 m3, B 99 kWh / 3.66 m3.
	// Electricity split 200:99, water 50/50, management by area 1:2.
	cases := []struct {
		unitID                   string
		elec, water, mgmt, total float64
	}{
		{"A", math.Round(200.0 / 299.0 * 47440), 8720, 74543, 0},
		{"B", math.Round(99.0 / 299.0 * 47440), 8720, 149087, 0},
	}
	for i := range cases {
		cases[i].total = cases[i].elec + cases[i].water + cases[i].mgmt
	}

	byID := map[string]models.UnitBill{}
	for _, b := range bills {
		byID[b.UnitID] = b
	}

	for _, tc := range cases {
		got, ok := byID[tc.unitID]
		if !ok {
			t.Fatalf("no bill for unit %s", tc.unitID)
		}
		if got.ElectricityCost != tc.elec {
			t.Errorf("unit %s electricity = %.0f, want %.0f", tc.unitID, got.ElectricityCost, tc.elec)
		}
		if got.WaterCost != tc.water {
			t.Errorf("unit %s water = %.0f, want %.0f", tc.unitID, got.WaterCost, tc.water)
		}
		if got.ManagementCost != tc.mgmt {
			t.Errorf("unit %s management = %.0f, want %.0f", tc.unitID, got.ManagementCost, tc.mgmt)
		}
		if got.TotalCost != tc.total {
			t.Errorf("unit %s total = %.0f, want %.0f", tc.unitID, got.TotalCost, tc.total)
		}
	}

	// Rounded utility shares must reconcile with the entered totals here
	// because the pre-rounding shares sum exactly and the halves cancel.
	if sum := byID["A"].ElectricityCost + byID["B"].ElectricityCost; sum != 47440 {
		t.Errorf("electricity sum = %.0f, want 47440", sum)
	}
	if sum := byID["A"].WaterCost + byID["B"].WaterCost; sum != 17440 {
		t.Errorf("water sum = %.0f, want 17440", sum)
	}
	if sum := byID["A"].ManagementCost + byID["B"].ManagementCost; sum != 223630 {
		t.Errorf("management sum = %.0f, want 223630", sum)
	}

	// Monthly bill record is persisted alongside
	var elec float64
	err = db.QueryRow(`
		SELECT total_electricity_cost FROM monthly_bills WHERE year = 2026 AND month = 7
	`).Scan(&elec)
	if err != nil || elec != 47440 {
		t.Errorf("monthly bill not persisted correctly: %v (elec %.0f)", err, elec)
	}
}

func TestNegativeDeltaClampedToZero(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 50)
	insertUnit(t, db, "B", "Unit B", 50)

	// Unit A's counter was replaced and reset below last month's value
	insertReading(t, db, "A", 2026, 3, 5000, 100)
	insertReading(t, db, "B", 2026, 3, 1000, 50)
	insertReading(t, db, "A", 2026, 4, 12, 100.5)
	insertReading(t, db, "B", 2026, 4, 1100, 51)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 4,
		TotalElectricityCost: 30000,
		TotalWaterCost:       6000,
		TotalManagementCost:  0,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	for _, b := range bills {
		if b.ElectricityCost < 0 || b.WaterCost < 0 {
			t.Errorf("unit %s has negative cost: %+v", b.UnitID, b)
		}
	}

	byID := map[string]models.UnitBill{}
	for _, b := range bills {
		byID[b.UnitID] = b
	}
	// All electricity usage belongs to B after clamping A to zero
	if byID["A"].ElectricityCost != 0 {
		t.Errorf("unit A electricity = %.0f, want 0 after counter reset", byID["A"].ElectricityCost)
	}
	if byID["B"].ElectricityCost != 30000 {
		t.Errorf("unit B electricity = %.0f, want 30000", byID["B"].ElectricityCost)
	}
}

func TestFirstPeriodUnitBilledManagementOnly(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "OLD", "Old Unit", 100)
	insertUnit(t, db, "NEW", "New Unit", 100)

	insertReading(t, db, "OLD", 2026, 1, 500, 20)
	insertReading(t, db, "OLD", 2026, 2, 600, 25)
	// NEW has its first reading in February: no previous, so no consumption billed
	insertReading(t, db, "NEW", 2026, 2, 123, 4)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 2,
		TotalElectricityCost: 10000,
		TotalWaterCost:       5000,
		TotalManagementCost:  80000,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("got %d bills, want 2", len(bills))
	}

	byID := map[string]models.UnitBill{}
	for _, b := range bills {
		byID[b.UnitID] = b
	}

	if byID["NEW"].ElectricityCost != 0 || byID["NEW"].WaterCost != 0 {
		t.Errorf("first-period unit should have zero utility costs, got %+v", byID["NEW"])
	}
	if byID["NEW"].ManagementCost != 40000 {
		t.Errorf("first-period unit management = %.0f, want 40000", byID["NEW"].ManagementCost)
	}
	if byID["OLD"].ElectricityCost != 10000 {
		t.Errorf("unit OLD electricity = %.0f, want 10000", byID["OLD"].ElectricityCost)
	}
}

func TestUnitWithoutCurrentReadingSkipped(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 60)
	insertUnit(t, db, "GHOST", "No Reading", 940)

	insertReading(t, db, "A", 2026, 5, 100, 10)
	insertReading(t, db, "A", 2026, 6, 150, 12)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 6,
		TotalElectricityCost: 1000,
		TotalWaterCost:       500,
		TotalManagementCost:  90000,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if len(bills) != 1 || bills[0].UnitID != "A" {
		t.Fatalf("expected only unit A billed, got %+v", bills)
	}
	// The skipped unit's area must not dilute the management split
	if bills[0].ManagementCost != 90000 {
		t.Errorf("unit A management = %.0f, want 90000", bills[0].ManagementCost)
	}

	persisted := loadUnitBills(t, db, 2026, 6)
	if _, ok := persisted["GHOST"]; ok {
		t.Error("unit without a current reading must not get a bill row")
	}
}

func TestZeroTotalUsageAvoidsDivideByZero(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 30)
	insertUnit(t, db, "B", "Unit B", 70)

	// First recorded period for both units: all usage is zero
	insertReading(t, db, "A", 2026, 1, 100, 5)
	insertReading(t, db, "B", 2026, 1, 200, 8)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 1,
		TotalElectricityCost: 12345,
		TotalWaterCost:       6789,
		TotalManagementCost:  100000,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	for _, b := range bills {
		if math.IsNaN(b.ElectricityCost) || math.IsNaN(b.WaterCost) || math.IsNaN(b.TotalCost) {
			t.Fatalf("NaN in bill for unit %s: %+v", b.UnitID, b)
		}
		if b.ElectricityCost != 0 || b.WaterCost != 0 {
			t.Errorf("unit %s should have zero utility cost with zero total usage: %+v", b.UnitID, b)
		}
	}

	byID := map[string]models.UnitBill{}
	for _, b := range bills {
		byID[b.UnitID] = b
	}
	if byID["A"].ManagementCost != 30000 || byID["B"].ManagementCost != 70000 {
		t.Errorf("management split by area wrong: A %.0f, B %.0f",
			byID["A"].ManagementCost, byID["B"].ManagementCost)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 55.5)
	insertUnit(t, db, "B", "Unit B", 80)

	insertReading(t, db, "A", 2026, 9, 1000, 40)
	insertReading(t, db, "B", 2026, 9, 2000, 60)
	insertReading(t, db, "A", 2026, 10, 1120.5, 43.2)
	insertReading(t, db, "B", 2026, 10, 2210, 64.8)

	bill := models.MonthlyBill{
		Year: 2026, Month: 10,
		TotalElectricityCost: 54321,
		TotalWaterCost:       9876,
		TotalManagementCost:  150000,
	}

	if _, err := bs.Calculate(bill); err != nil {
		t.Fatalf("first Calculate: %v", err)
	}
	first := loadUnitBills(t, db, 2026, 10)

	if _, err := bs.Calculate(bill); err != nil {
		t.Fatalf("second Calculate: %v", err)
	}
	second := loadUnitBills(t, db, 2026, 10)

	if len(first) != len(second) {
		t.Fatalf("row count drifted: %d -> %d", len(first), len(second))
	}
	for id, b1 := range first {
		if b2 := second[id]; b1 != b2 {
			t.Errorf("unit %s drifted on recalculation: %+v -> %+v", id, b1, b2)
		}
	}
}

func TestManagementCostMonotonicInArea(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	areas := map[string]float64{"U1": 33.3, "U2": 59.8, "U3": 59.8, "U4": 101.2, "U5": 140}
	for id, area := range areas {
		insertUnit(t, db, id, "Unit "+id, area)
		insertReading(t, db, id, 2026, 8, 100, 10)
	}

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 8,
		TotalManagementCost: 777777,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	for _, a := range bills {
		for _, b := range bills {
			if areas[a.UnitID] < areas[b.UnitID] && a.ManagementCost > b.ManagementCost {
				t.Errorf("unit %s (%.1f m2) pays %.0f but larger unit %s (%.1f m2) pays %.0f",
					a.UnitID, areas[a.UnitID], a.ManagementCost,
					b.UnitID, areas[b.UnitID], b.ManagementCost)
			}
		}
	}
}

func TestJanuaryUsesPreviousDecember(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 100)

	insertReading(t, db, "A", 2025, 12, 900, 30)
	insertReading(t, db, "A", 2026, 1, 1000, 33)

	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 1,
		TotalElectricityCost: 5000,
		TotalWaterCost:       1500,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("got %d bills, want 1", len(bills))
	}
	// Sole unit with nonzero usage picks up the full totals, which only
	// happens when December 2025 was found as the previous period
	if bills[0].ElectricityCost != 5000 || bills[0].WaterCost != 1500 {
		t.Errorf("year rollover not applied: %+v", bills[0])
	}

	detail, err := bs.UsageDetail("A", 2026, 1)
	if err != nil {
		t.Fatalf("UsageDetail: %v", err)
	}
	if detail.PreviousElectricity != 900 || detail.ElectricityUsage != 100 {
		t.Errorf("usage detail rollover wrong: %+v", detail)
	}
}

func TestUsageDetailMatchesBilledUsage(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 60)

	insertReading(t, db, "A", 2026, 6, 1923, 89.7)
	insertReading(t, db, "A", 2026, 7, 2123, 93.36)

	detail, err := bs.UsageDetail("A", 2026, 7)
	if err != nil {
		t.Fatalf("UsageDetail: %v", err)
	}

	if detail.ElectricityUsage != 200 {
		t.Errorf("electricity usage = %v, want 200", detail.ElectricityUsage)
	}
	if math.Abs(detail.WaterUsage-3.66) > 1e-9 {
		t.Errorf("water usage = %v, want 3.66", detail.WaterUsage)
	}
	if detail.CurrentElectricity != 2123 || detail.PreviousElectricity != 1923 {
		t.Errorf("raw readings wrong: %+v", detail)
	}
}

func TestUsageDetailClampsAndDefaults(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 60)

	t.Run("no previous reading", func(t *testing.T) {
		insertReading(t, db, "A", 2026, 3, 500, 20)
		detail, err := bs.UsageDetail("A", 2026, 3)
		if err != nil {
			t.Fatalf("UsageDetail: %v", err)
		}
		if detail.ElectricityUsage != 0 || detail.WaterUsage != 0 {
			t.Errorf("first period usage should be zero: %+v", detail)
		}
	})

	t.Run("counter reset", func(t *testing.T) {
		insertReading(t, db, "A", 2026, 4, 10, 25)
		detail, err := bs.UsageDetail("A", 2026, 4)
		if err != nil {
			t.Fatalf("UsageDetail: %v", err)
		}
		if detail.ElectricityUsage != 0 {
			t.Errorf("negative delta not clamped: %+v", detail)
		}
		if detail.WaterUsage != 5 {
			t.Errorf("water usage = %v, want 5", detail.WaterUsage)
		}
	})

	t.Run("no current reading", func(t *testing.T) {
		detail, err := bs.UsageDetail("A", 2026, 9)
		if err != nil {
			t.Fatalf("UsageDetail: %v", err)
		}
		if detail.CurrentElectricity != 0 || detail.ElectricityUsage != 0 || detail.WaterUsage != 0 {
			t.Errorf("missing current month should yield zeros: %+v", detail)
		}
	})
}

func TestPreRoundingSharesSumToTotals(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	// Awkward usage ratios so the shares are not clean fractions
	units := []struct {
		id    string
		area  float64
		prevE float64
		currE float64
	}{
		{"A", 33.3, 1000, 1137.7}, {"B", 47.9, 2000, 2093.1}, {"C", 88.1, 500, 941.3},
	}
	for _, u := range units {
		insertUnit(t, db, u.id, "Unit "+u.id, u.area)
		insertReading(t, db, u.id, 2026, 5, u.prevE, 10)
		insertReading(t, db, u.id, 2026, 6, u.currE, 14.5)
	}

	const totalElec = 98765.0
	bills, err := bs.Calculate(models.MonthlyBill{
		Year: 2026, Month: 6,
		TotalElectricityCost: totalElec,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// Rounded components may drift from the total by at most half a
	// currency unit per billed unit
	var sum float64
	for _, b := range bills {
		sum += b.ElectricityCost
	}
	if math.Abs(sum-totalElec) > float64(len(bills))*0.5 {
		t.Errorf("electricity costs sum %.2f too far from total %.2f", sum, totalElec)
	}
}

func TestDeleteUnitCascades(t *testing.T) {
	db := newTestDB(t)
	bs := NewBillingService(db)

	insertUnit(t, db, "A", "Unit A", 60)
	insertReading(t, db, "A", 2026, 5, 100, 10)
	insertReading(t, db, "A", 2026, 6, 150, 12)

	if _, err := bs.Calculate(models.MonthlyBill{Year: 2026, Month: 6, TotalElectricityCost: 1000}); err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if _, err := db.Exec("DELETE FROM units WHERE id = 'A'"); err != nil {
		t.Fatalf("delete unit: %v", err)
	}

	var readings, unitBills int
	db.QueryRow("SELECT COUNT(*) FROM meter_readings WHERE unit_id = 'A'").Scan(&readings)
	db.QueryRow("SELECT COUNT(*) FROM unit_bills WHERE unit_id = 'A'").Scan(&unitBills)
	if readings != 0 || unitBills != 0 {
		t.Errorf("stale rows after unit delete: %d readings, %d bills", readings, unitBills)
	}
}
