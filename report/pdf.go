/*
Package report renders liability analyses as PDF documents.

PURPOSE:
  The reports page exports the current liability projection together with
  the stress catalog and the Monte Carlo summary as a single A4 document.

LAYOUT:
  1. Title and generation date
  2. Assumption table
  3. Headline liability
  4. Year-by-year projection table
  5. Stress scenarios (when supplied)
  6. Monte Carlo summary (when supplied)

  Only the core PDF fonts are used, so text must stay within Latin-1.

USAGE:
  var buf bytes.Buffer
  err := report.WriteLiabilityPDF(&buf, report.Input{Params: p, Projection: proj})
*/
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/astha/treasury-engine/actuarial"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// DefaultTitle is used when Input.Title is empty.
const DefaultTitle = "Hajj Fund Liability Report"

// Input is everything a liability report shows. Stress and MonteCarlo are
// optional.
type Input struct {
	Title       string
	GeneratedAt time.Time

	Params     actuarial.LiabilityParameters
	Projection actuarial.Projection

	Assets     float64
	Stress     []actuarial.StressResult
	MonteCarlo *actuarial.MonteCarloResult
}

// liabilityReport holds the document being built.
type liabilityReport struct {
	pdf *fpdf.Fpdf
	in  Input
}

// WriteLiabilityPDF renders in as a PDF into w.
func WriteLiabilityPDF(w io.Writer, in Input) error {
	if in.Title == "" {
		in.Title = DefaultTitle
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}

	r := &liabilityReport{
		pdf: fpdf.New("P", "mm", "A4", ""),
		in:  in,
	}
	r.pdf.SetMargins(marginLeft, marginTop, marginRight)
	r.pdf.SetAutoPageBreak(true, marginBottom)
	r.pdf.SetTitle(in.Title, false)
	r.pdf.AliasNbPages("")
	r.pdf.SetFooterFunc(r.footer)

	r.pdf.AddPage()
	r.addTitle()
	r.addAssumptions()
	r.addHeadline()
	r.addProjection()
	if len(in.Stress) > 0 {
		r.addStress()
	}
	if in.MonteCarlo != nil {
		r.addMonteCarlo()
	}

	if err := r.pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (r *liabilityReport) addTitle() {
	r.pdf.SetFont("Arial", "B", 20)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, r.in.Title, "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(contentWidth, 6,
		fmt.Sprintf("Generated: %s", r.in.GeneratedAt.Format("2 January 2006 15:04")),
		"", 1, "C", false, 0, "")
	r.pdf.Ln(6)
}

func (r *liabilityReport) addAssumptions() {
	r.drawSectionHeader("Assumptions")

	p := r.in.Params
	rows := [][2]string{
		{"Waiting pilgrims", fmt.Sprintf("%d", p.TotalPilgrims)},
		{"Base cost per pilgrim", actuarial.FormatRupiah(p.BaseCostPerPilgrim)},
		{"Saudi inflation", actuarial.FormatPercent(p.SaudiInflationRate, 2)},
		{"Rupiah depreciation", actuarial.FormatPercent(p.RupiahDepreciationRate, 2)},
		{"Discount rate", actuarial.FormatPercent(p.DiscountRate, 2)},
		{"USD exchange rate", fmt.Sprintf("Rp %.0f", p.USDExchangeRate)},
		{"Projection horizon", fmt.Sprintf("%d years", p.ProjectionYears)},
	}

	widths := []float64{contentWidth / 2, contentWidth / 2}
	for _, row := range rows {
		r.drawTableRow(row[:], widths, false)
	}
	r.pdf.Ln(6)
}

func (r *liabilityReport) addHeadline() {
	r.pdf.SetFillColor(240, 248, 255)
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12,
		"Total liability (present value): "+actuarial.FormatRupiah(r.in.Projection.TotalLiability),
		"1", 1, "C", true, 0, "")

	for _, c := range r.in.Projection.Cautions {
		r.pdf.SetFont("Arial", "I", 9)
		r.pdf.SetTextColor(150, 80, 0)
		r.pdf.CellFormat(contentWidth, 5, "Caution: "+c, "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(6)
}

func (r *liabilityReport) addProjection() {
	r.drawSectionHeader("Projection")

	headers := []string{"Year", "Cost per pilgrim", "Pilgrims", "Nominal cost", "Present value"}
	widths := []float64{20, 40, 30, 45, 45}
	r.drawTableHeader(headers, widths)

	for _, y := range r.in.Projection.Years {
		r.drawTableRow([]string{
			fmt.Sprintf("%d", y.Year),
			actuarial.FormatRupiah(y.CostPerPilgrimNominal),
			fmt.Sprintf("%.0f", y.PilgrimsThisYear),
			actuarial.FormatRupiah(y.TotalCostNominal),
			actuarial.FormatRupiah(y.PresentValue),
		}, widths, false)
	}
	r.drawTableRow([]string{"Total", "", "", "", actuarial.FormatRupiah(r.in.Projection.TotalLiability)}, widths, true)
	r.pdf.Ln(6)
}

func (r *liabilityReport) addStress() {
	r.drawSectionHeader("Stress Scenarios")

	if r.in.Assets > 0 {
		r.pdf.SetFont("Arial", "", 10)
		r.pdf.SetTextColor(50, 50, 50)
		r.pdf.CellFormat(contentWidth, 6, "Base assets: "+actuarial.FormatRupiah(r.in.Assets), "", 1, "L", false, 0, "")
	}

	headers := []string{"Scenario", "Assets", "Liability", "Ratio", "Status"}
	widths := []float64{55, 35, 35, 25, 30}
	r.drawTableHeader(headers, widths)

	for _, s := range r.in.Stress {
		r.drawTableRow([]string{
			s.Scenario,
			actuarial.FormatRupiah(s.ShockedAssets),
			actuarial.FormatRupiah(s.ShockedLiability),
			fmt.Sprintf("%.2f", s.SolvencyRatio),
			string(s.Status),
		}, widths, false)
	}
	r.pdf.Ln(6)
}

func (r *liabilityReport) addMonteCarlo() {
	r.drawSectionHeader("Monte Carlo Solvency")

	mc := r.in.MonteCarlo
	rows := [][2]string{
		{"Simulations", fmt.Sprintf("%d", len(mc.Samples))},
		{"Mean solvency ratio", fmt.Sprintf("%.3f", mc.Mean)},
		{"Standard deviation", fmt.Sprintf("%.3f", mc.StdDev)},
		{"Probability ratio >= 1.0", actuarial.FormatPercent(mc.ProbabilitySafePercent, 1)},
		{"Worst case", fmt.Sprintf("%.3f", mc.WorstCase)},
		{"Best case", fmt.Sprintf("%.3f", mc.BestCase)},
	}

	widths := []float64{contentWidth / 2, contentWidth / 2}
	for _, row := range rows {
		r.drawTableRow(row[:], widths, false)
	}
}

func (r *liabilityReport) footer() {
	r.pdf.SetY(-15)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.CellFormat(contentWidth, 10,
		fmt.Sprintf("Page %d/{nb}", r.pdf.PageNo()), "", 0, "C", false, 0, "")
}

// =============================================================================
// TABLE HELPERS
// =============================================================================

func (r *liabilityReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 9, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(3)
}

func (r *liabilityReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}

func (r *liabilityReport) drawTableRow(cells []string, widths []float64, isBold bool) {
	r.pdf.SetFillColor(250, 250, 250)
	r.pdf.SetTextColor(50, 50, 50)
	r.pdf.SetDrawColor(200, 200, 200)

	if isBold {
		r.pdf.SetFont("Arial", "B", 9)
		r.pdf.SetFillColor(240, 240, 240)
	} else {
		r.pdf.SetFont("Arial", "", 9)
	}

	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 5, cell, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}
