package services

import (
	"bytes"
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/jmpark86/condo-billing/backend/models"
)

// RenderXLSX writes all unit bills for a period into a one-sheet
// workbook, one row per unit plus a totals row.
func RenderXLSX(statements []models.Statement, year, month int, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%d-%02d", year, month)
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Unit ID", "Unit Name", "Area (m2)",
		"Elec Prev (kWh)", "Elec Curr (kWh)", "Elec Usage (kWh)",
		"Water Prev (m3)", "Water Curr (m3)", "Water Usage (m3)",
		fmt.Sprintf("Electricity (%s)", currency),
		fmt.Sprintf("Water (%s)", currency),
		fmt.Sprintf("Management (%s)", currency),
		fmt.Sprintf("Total (%s)", currency),
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	var sumElec, sumWater, sumMgmt, sumTotal float64
	for row, s := range statements {
		values := []interface{}{
			s.Unit.ID, s.Unit.Name, s.Unit.Area,
			s.Usage.PreviousElectricity, s.Usage.CurrentElectricity, s.Usage.ElectricityUsage,
			s.Usage.PreviousWater, s.Usage.CurrentWater, s.Usage.WaterUsage,
			s.Bill.ElectricityCost, s.Bill.WaterCost, s.Bill.ManagementCost, s.Bill.TotalCost,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
		sumElec += s.Bill.ElectricityCost
		sumWater += s.Bill.WaterCost
		sumMgmt += s.Bill.ManagementCost
		sumTotal += s.Bill.TotalCost
	}

	totalRow := len(statements) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	f.SetCellValue(sheet, cell, "TOTAL")
	for col, v := range []float64{sumElec, sumWater, sumMgmt, sumTotal} {
		cell, _ := excelize.CoordinatesToCellName(col+10, totalRow)
		f.SetCellValue(sheet, cell, v)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %v", err)
	}

	log.Printf("Rendered XLSX export for %d-%02d: %d units", year, month, len(statements))
	return buf.Bytes(), nil
}
