package services

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/jmpark86/condo-billing/backend/models"
)

type BillingService struct {
	db *sql.DB
}

func NewBillingService(db *sql.DB) *BillingService {
	return &BillingService{db: db}
}

// previousPeriod returns the immediately preceding calendar month,
// rolling over to December of the previous year.
func previousPeriod(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// usageDelta derives consumption from two cumulative counter values.
// No previous reading means the unit's first recorded period, which is
// not billed for consumption. Negative deltas (counter reset, entry
// error) are clamped to zero.
func usageDelta(current, previous float64, hasPrevious bool) float64 {
	if !hasPrevious {
		return 0
	}
	delta := current - previous
	if delta < 0 {
		return 0
	}
	return delta
}

type periodReading struct {
	Electricity float64
	Water       float64
}

func (bs *BillingService) readingsForPeriod(year, month int) (map[string]periodReading, error) {
	rows, err := bs.db.Query(`
		SELECT unit_id, electricity_reading, water_reading
		FROM meter_readings
		WHERE year = ? AND month = ?
	`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make(map[string]periodReading)
	for rows.Next() {
		var unitID string
		var r periodReading
		if err := rows.Scan(&unitID, &r.Electricity, &r.Water); err != nil {
			return nil, err
		}
		readings[unitID] = r
	}
	return readings, rows.Err()
}

// ReadingCount reports how many readings exist for a period. Callers use
// it as the precondition check before asking for a calculation.
func (bs *BillingService) ReadingCount(year, month int) (int, error) {
	var count int
	err := bs.db.QueryRow(`
		SELECT COUNT(*) FROM meter_readings WHERE year = ? AND month = ?
	`, year, month).Scan(&count)
	return count, err
}

// Calculate splits the period totals across all units that have a reading
// for the target month. Electricity and water are split proportionally to
// usage deltas, the management cost proportionally to floor area. Each
// cost component is rounded to a whole currency unit independently before
// the per-unit total is summed; that per-component rounding is deliberate
// policy because it decides whether the per-unit totals reconcile with the
// period totals.
//
// Results are upserted: recalculating a period with the same inputs
// overwrites the same rows. Units without a target-month reading are
// skipped entirely, emitting no row.
func (bs *BillingService) Calculate(bill models.MonthlyBill) ([]models.UnitBill, error) {
	log.Printf("[ALLOC] Calculating %d-%02d: elec %.0f, water %.0f, mgmt %.0f",
		bill.Year, bill.Month, bill.TotalElectricityCost, bill.TotalWaterCost, bill.TotalManagementCost)

	unitRows, err := bs.db.Query(`SELECT id, area FROM units ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %v", err)
	}
	defer unitRows.Close()

	type unitInfo struct {
		ID   string
		Area float64
	}
	units := []unitInfo{}
	for unitRows.Next() {
		var u unitInfo
		if err := unitRows.Scan(&u.ID, &u.Area); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := unitRows.Err(); err != nil {
		return nil, err
	}

	current, err := bs.readingsForPeriod(bill.Year, bill.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to load current readings: %v", err)
	}
	prevYear, prevMonth := previousPeriod(bill.Year, bill.Month)
	previous, err := bs.readingsForPeriod(prevYear, prevMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous readings: %v", err)
	}

	// First pass: usage deltas and the allocation bases. Only units with
	// a current reading participate, including in the area base, so the
	// allocated shares still sum to the entered totals.
	type unitUsage struct {
		unitInfo
		Electricity float64
		Water       float64
	}
	billed := []unitUsage{}
	totalElecUsage := 0.0
	totalWaterUsage := 0.0
	totalArea := 0.0

	for _, u := range units {
		cur, ok := current[u.ID]
		if !ok {
			continue
		}
		prev, hasPrev := previous[u.ID]

		usage := unitUsage{unitInfo: u}
		usage.Electricity = usageDelta(cur.Electricity, prev.Electricity, hasPrev)
		usage.Water = usageDelta(cur.Water, prev.Water, hasPrev)

		billed = append(billed, usage)
		totalElecUsage += usage.Electricity
		totalWaterUsage += usage.Water
		totalArea += u.Area
	}

	log.Printf("[ALLOC] %d of %d units have readings | usage totals: %.2f kWh, %.2f m3, area %.2f m2",
		len(billed), len(units), totalElecUsage, totalWaterUsage, totalArea)

	// Second pass: proportional shares. A zero denominator means nothing
	// to split, so the share is zero rather than a division error.
	unitBills := []models.UnitBill{}
	for _, u := range billed {
		var elecCost, waterCost, mgmtCost float64
		if totalElecUsage > 0 {
			elecCost = u.Electricity / totalElecUsage * bill.TotalElectricityCost
		}
		if totalWaterUsage > 0 {
			waterCost = u.Water / totalWaterUsage * bill.TotalWaterCost
		}
		if totalArea > 0 {
			mgmtCost = u.Area / totalArea * bill.TotalManagementCost
		}

		ub := models.UnitBill{
			UnitID:          u.ID,
			Year:            bill.Year,
			Month:           bill.Month,
			ElectricityCost: math.Round(elecCost),
			WaterCost:       math.Round(waterCost),
			ManagementCost:  math.Round(mgmtCost),
		}
		ub.TotalCost = ub.ElectricityCost + ub.WaterCost + ub.ManagementCost
		unitBills = append(unitBills, ub)
	}

	sort.Slice(unitBills, func(i, j int) bool { return unitBills[i].UnitID < unitBills[j].UnitID })

	if err := bs.saveResults(bill, unitBills); err != nil {
		return nil, err
	}

	log.Printf("[ALLOC] %d-%02d complete: %d unit bills written", bill.Year, bill.Month, len(unitBills))
	return unitBills, nil
}

func (bs *BillingService) saveResults(bill models.MonthlyBill, unitBills []models.UnitBill) error {
	_, err := bs.db.Exec(`
		INSERT INTO monthly_bills (year, month, total_electricity_cost, total_water_cost, total_management_cost)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			total_electricity_cost = excluded.total_electricity_cost,
			total_water_cost = excluded.total_water_cost,
			total_management_cost = excluded.total_management_cost,
			updated_at = CURRENT_TIMESTAMP
	`, bill.Year, bill.Month, bill.TotalElectricityCost, bill.TotalWaterCost, bill.TotalManagementCost)
	if err != nil {
		return fmt.Errorf("failed to save monthly bill: %v", err)
	}

	for _, ub := range unitBills {
		_, err := bs.db.Exec(`
			INSERT INTO unit_bills (unit_id, year, month, electricity_cost, water_cost, management_cost, total_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(unit_id, year, month) DO UPDATE SET
				electricity_cost = excluded.electricity_cost,
				water_cost = excluded.water_cost,
				management_cost = excluded.management_cost,
				total_cost = excluded.total_cost,
				updated_at = CURRENT_TIMESTAMP
		`, ub.UnitID, ub.Year, ub.Month, ub.ElectricityCost, ub.WaterCost, ub.ManagementCost, ub.TotalCost)
		if err != nil {
			return fmt.Errorf("failed to save unit bill for %s: %v", ub.UnitID, err)
		}
	}

	return nil
}

// UsageDetail re-derives the consumption breakdown for one unit and
// period. It shares usageDelta with Calculate so the displayed usage is
// exactly what was billed.
func (bs *BillingService) UsageDetail(unitID string, year, month int) (models.UsageDetail, error) {
	detail := models.UsageDetail{UnitID: unitID, Year: year, Month: month}

	var curElec, curWater float64
	hasCurrent := true
	err := bs.db.QueryRow(`
		SELECT electricity_reading, water_reading FROM meter_readings
		WHERE unit_id = ? AND year = ? AND month = ?
	`, unitID, year, month).Scan(&curElec, &curWater)
	if err == sql.ErrNoRows {
		hasCurrent = false
	} else if err != nil {
		return detail, err
	}

	prevYear, prevMonth := previousPeriod(year, month)
	var prevElec, prevWater float64
	hasPrevious := true
	err = bs.db.QueryRow(`
		SELECT electricity_reading, water_reading FROM meter_readings
		WHERE unit_id = ? AND year = ? AND month = ?
	`, unitID, prevYear, prevMonth).Scan(&prevElec, &prevWater)
	if err == sql.ErrNoRows {
		hasPrevious = false
	} else if err != nil {
		return detail, err
	}

	detail.PreviousElectricity = prevElec
	detail.PreviousWater = prevWater
	if hasCurrent {
		detail.CurrentElectricity = curElec
		detail.CurrentWater = curWater
		detail.ElectricityUsage = usageDelta(curElec, prevElec, hasPrevious)
		detail.WaterUsage = usageDelta(curWater, prevWater, hasPrevious)
	}

	return detail, nil
}

// Statements assembles the printable view for a period: one entry per
// unit bill, combined with the unit identity and the usage breakdown.
func (bs *BillingService) Statements(year, month int, currency string) ([]models.Statement, error) {
	rows, err := bs.db.Query(`
		SELECT u.id, u.name, u.area, u.created_at, u.updated_at,
		       b.electricity_cost, b.water_cost, b.management_cost, b.total_cost
		FROM unit_bills b
		JOIN units u ON u.id = b.unit_id
		WHERE b.year = ? AND b.month = ?
		ORDER BY u.id
	`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := []models.Statement{}
	for rows.Next() {
		var s models.Statement
		s.Currency = currency
		s.Bill.Year = year
		s.Bill.Month = month
		err := rows.Scan(
			&s.Unit.ID, &s.Unit.Name, &s.Unit.Area, &s.Unit.CreatedAt, &s.Unit.UpdatedAt,
			&s.Bill.ElectricityCost, &s.Bill.WaterCost, &s.Bill.ManagementCost, &s.Bill.TotalCost,
		)
		if err != nil {
			return nil, err
		}
		s.Bill.UnitID = s.Unit.ID
		statements = append(statements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range statements {
		detail, err := bs.UsageDetail(statements[i].Unit.ID, year, month)
		if err != nil {
			return nil, err
		}
		statements[i].Usage = detail
	}

	return statements, nil
}

// Statement returns the printable view for a single unit and period.
func (bs *BillingService) Statement(unitID string, year, month int, currency string) (*models.Statement, error) {
	var s models.Statement
	s.Currency = currency
	err := bs.db.QueryRow(`
		SELECT u.id, u.name, u.area, u.created_at, u.updated_at,
		       b.electricity_cost, b.water_cost, b.management_cost, b.total_cost
		FROM unit_bills b
		JOIN units u ON u.id = b.unit_id
		WHERE b.unit_id = ? AND b.year = ? AND b.month = ?
	`, unitID, year, month).Scan(
		&s.Unit.ID, &s.Unit.Name, &s.Unit.Area, &s.Unit.CreatedAt, &s.Unit.UpdatedAt,
		&s.Bill.ElectricityCost, &s.Bill.WaterCost, &s.Bill.ManagementCost, &s.Bill.TotalCost,
	)
	if err != nil {
		return nil, err
	}
	s.Bill.UnitID = unitID
	s.Bill.Year = year
	s.Bill.Month = month

	detail, err := bs.UsageDetail(unitID, year, month)
	if err != nil {
		return nil, err
	}
	s.Usage = detail

	return &s, nil
}
