package report

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"trip-expenses/internal/models"
	"trip-expenses/internal/money"
)

// Trip is everything printed in a trip report.
type Trip struct {
	Trip        models.Trip
	Expenses    []models.Expense
	UserTotals  []models.UserTotal
	Total       decimal.Decimal
	GeneratedAt time.Time
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006")
}

// WriteTripPDF renders a one-trip expense report to w.
func WriteTripPDF(w io.Writer, data Trip) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Relatório de despesas - "+data.Trip.Title), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("RBN Viagens - "+data.Trip.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Período: %s a %s", formatDate(data.Trip.StartDate), formatDate(data.Trip.EndDate))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Gerado em "+data.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr("Totais por usuário"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, ut := range data.UserTotals {
		pdf.CellFormat(120, 6, tr(ut.UserName), "B", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", ut.Count), "B", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, money.Format(ut.Total), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Despesas", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	headers := []struct {
		label string
		width float64
	}{{"Data", 25}, {"Usuário", 40}, {"Descrição", 70}, {"Status", 22}, {"Valor", 33}}
	for _, h := range headers {
		pdf.CellFormat(h.width, 7, tr(h.label), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, e := range data.Expenses {
		pdf.CellFormat(25, 6, e.CreatedAt.Format("02/01/2006"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, tr(e.UserName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, tr(e.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, tr(string(e.Status)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(33, 6, money.Format(e.Amount), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(157, 8, "Total (exceto rejeitadas)", "", 0, "R", false, 0, "")
	pdf.CellFormat(33, 8, money.Format(data.Total), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}
