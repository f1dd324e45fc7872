package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/jmpark86/condo-billing/backend/models"
)

// OfficeInfo identifies the management office on printed statements.
type OfficeInfo struct {
	Name  string
	Phone string
}

// BankingInfo is printed (and QR-encoded) so residents can pay by
// bank transfer.
type BankingInfo struct {
	Name          string
	Account       string
	AccountHolder string
}

type StatementRenderer struct {
	office  OfficeInfo
	banking BankingInfo
}

func NewStatementRenderer(office OfficeInfo, banking BankingInfo) *StatementRenderer {
	return &StatementRenderer{office: office, banking: banking}
}

// RenderPDF produces an A4 statement for one unit and period.
func (sr *StatementRenderer) RenderPDF(s *models.Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 123, 255)
	pdf.Cell(0, 10, "Utility Fee Statement")
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, fmt.Sprintf("Billing period: %d-%02d", s.Bill.Year, s.Bill.Month))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Issued: "+time.Now().Format("02.01.2006"))
	pdf.Ln(10)

	// Office identity
	if sr.office.Name != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 5, sr.office.Name)
		pdf.Ln(4)
		if sr.office.Phone != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.Cell(0, 4, "Tel: "+sr.office.Phone)
			pdf.Ln(4)
		}
		pdf.Ln(4)
	}

	// Unit
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "UNIT")
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 5, fmt.Sprintf("%s  (%s)", s.Unit.Name, s.Unit.ID))
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 4, fmt.Sprintf("Floor area: %.2f m2", s.Unit.Area))
	pdf.Ln(10)

	// Meter readings table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "METER READINGS")
	pdf.Ln(6)

	pdf.SetFillColor(249, 249, 249)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(45, 7, "Meter", "B", 0, "L", true, 0, "")
	pdf.CellFormat(45, 7, "Previous", "B", 0, "R", true, 0, "")
	pdf.CellFormat(45, 7, "Current", "B", 0, "R", true, 0, "")
	pdf.CellFormat(45, 7, "Usage", "B", 0, "R", true, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(45, 6, "Electricity (kWh)", "", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.PreviousElectricity), "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.CurrentElectricity), "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.ElectricityUsage), "", 0, "R", false, 0, "")
	pdf.Ln(6)
	pdf.CellFormat(45, 6, "Water (m3)", "", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.PreviousWater), "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.CurrentWater), "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", s.Usage.WaterUsage), "", 0, "R", false, 0, "")
	pdf.Ln(12)

	// Cost table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "CHARGES")
	pdf.Ln(6)

	pdf.SetFillColor(249, 249, 249)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(130, 7, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(50, 7, "Amount", "B", 0, "R", true, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	sr.costRow(pdf, "Electricity", s.Bill.ElectricityCost, s.Currency)
	sr.costRow(pdf, "Water", s.Bill.WaterCost, s.Currency)
	sr.costRow(pdf, "Shared management fee (by floor area)", s.Bill.ManagementCost, s.Currency)
	pdf.Ln(4)

	pdf.SetFillColor(249, 249, 249)
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 14, fmt.Sprintf("Total: %s %.0f", s.Currency, s.Bill.TotalCost), "", 0, "R", true, 0, "")
	pdf.Ln(22)

	// Payment details + QR
	if sr.banking.Account != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.Cell(0, 6, "PAYMENT DETAILS")
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 4, "Bank: "+sr.banking.Name)
		pdf.Ln(4)
		pdf.Cell(0, 4, "Account: "+sr.banking.Account)
		pdf.Ln(4)
		pdf.Cell(0, 4, "Account Holder: "+sr.banking.AccountHolder)
		pdf.Ln(8)

		qrData := sr.paymentQRData(s)
		tempQR := filepath.Join(os.TempDir(), fmt.Sprintf("stmt_qr_%s_%d%02d.png", s.Unit.ID, s.Bill.Year, s.Bill.Month))
		if err := qrcode.WriteFile(qrData, qrcode.Medium, 256, tempQR); err == nil {
			defer os.Remove(tempQR)
			pdf.ImageOptions(tempQR, 150, pdf.GetY()-28, 35, 35, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		} else {
			log.Printf("Failed to generate payment QR code: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %v", err)
	}

	log.Printf("Rendered statement PDF for unit %s, %d-%02d (%d bytes)",
		s.Unit.ID, s.Bill.Year, s.Bill.Month, buf.Len())
	return buf.Bytes(), nil
}

func (sr *StatementRenderer) costRow(pdf *gofpdf.Fpdf, description string, amount float64, currency string) {
	pdf.CellFormat(130, 6, description, "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, fmt.Sprintf("%s %.0f", currency, amount), "", 0, "R", false, 0, "")
	pdf.Ln(6)
}

// paymentQRData encodes the transfer details in a simple line format
// readable by banking apps and humans alike.
func (sr *StatementRenderer) paymentQRData(s *models.Statement) string {
	return fmt.Sprintf("%s\n%s\n%s\n%s %.0f\n%s %d-%02d",
		sr.banking.Name, sr.banking.Account, sr.banking.AccountHolder,
		s.Currency, s.Bill.TotalCost, s.Unit.ID, s.Bill.Year, s.Bill.Month)
}
