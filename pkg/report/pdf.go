package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// GeneratePDF renders one run as a PDF document at outputPath
func GeneratePDF(result *AuditReport, outputPath string) error {
	pdf := buildPDF(result)
	return pdf.OutputFileAndClose(outputPath)
}

func buildPDF(result *AuditReport) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(108, 117, 125)
		pdf.CellFormat(0, 4, fmt.Sprintf("SQL FW Validator | Run ID: %s | %s | Page %d",
			result.RunID, timestamp, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	generateCoverPage(pdf, result)
	generateExecutiveSummary(pdf, result)
	generateFindings(pdf, result)
	if len(result.Creations) > 0 {
		generateCreations(pdf, result)
	}
	if len(result.ScopeErrors) > 0 {
		generateScopeErrors(pdf, result)
	}

	return pdf
}

func generateCoverPage(pdf *gofpdf.Fpdf, result *AuditReport) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.SetTextColor(3, 102, 214)
	pdf.CellFormat(0, 20, "SQL FW Validator", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(0, 6, "Azure SQL Public Firewall Rules Audit", "", 1, "C", false, 0, "")
	pdf.Ln(30)

	statsY := pdf.GetY()
	drawStat(pdf, 15, statsY, fmt.Sprintf("%d", result.ServersAudited), "Servers Audited", 0, 0, 0)
	drawStat(pdf, 75, statsY, fmt.Sprintf("%d", result.TotalOffenses), "Out of Range Rules", 220, 53, 69)
	drawStat(pdf, 135, statsY, fmt.Sprintf("%d", result.CountCreations(StatusSucceeded)), "Rules Restored", 40, 167, 69)

	pdf.SetY(250)
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(0, 5, fmt.Sprintf("Started: %s", result.StartedAt.Format("January 2, 2006 at 3:04 PM")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Subscriptions: %d | Run: %s", result.SubscriptionsAudited, result.RunID), "", 1, "C", false, 0, "")
}

func drawStat(pdf *gofpdf.Fpdf, x, y float64, value, label string, r, g, b int) {
	pdf.SetXY(x, y)
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(60, 10, value, "", 1, "C", false, 0, "")
	pdf.SetXY(x, pdf.GetY())
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(60, 6, label, "", 0, "C", false, 0, "")
}

func generateExecutiveSummary(pdf *gofpdf.Fpdf, result *AuditReport) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 12, "Executive Summary", "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(246, 248, 250)
	pdf.Rect(15, pdf.GetY(), 180, 40, "F")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(20, pdf.GetY()+6)

	statusText := "no firewall rules outside the approved public IP space were found"
	if result.HasFindings() {
		statusText = fmt.Sprintf("%d firewall rules allow public IP addresses outside the approved space", result.TotalOffenses)
	}

	summary := fmt.Sprintf("%d SQL servers across %d subscriptions were audited and %s. %d rules were deleted, %d deletions failed and %d were left in place because deletion is not enabled.",
		result.ServersAudited,
		result.SubscriptionsAudited,
		statusText,
		result.CountDeletions(StatusSucceeded),
		result.CountDeletions(StatusFailed),
		result.CountDeletions(StatusNotEnabled),
	)
	pdf.MultiCell(170, 6, summary, "", "L", false)
	pdf.Ln(15)

	if result.HasFindings() {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 6, "Framework references", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(33, 37, 41)
		pdf.MultiCell(0, 5, FormatFrameworkRequirements(FirewallControlMappings()), "", "L", false)
	}
}

func generateFindings(pdf *gofpdf.Fpdf, result *AuditReport) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(220, 53, 69)
	pdf.CellFormat(0, 10, "Out of Range Rules", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	offenses := result.Offenses()
	if len(offenses) == 0 {
		pdf.SetFont("Arial", "", 11)
		pdf.SetTextColor(40, 167, 69)
		pdf.CellFormat(0, 8, "No out of range rules were found.", "", 1, "L", false, 0, "")
		return
	}

	widths := []float64{45, 45, 55, 35}
	tableHeader(pdf, widths, []string{"Server", "Rule", "Range", "Deleted"})

	pdf.SetFont("Arial", "", 9)
	for _, f := range offenses {
		r, g, b := outcomeColor(f.Outcome.Status)
		pdf.SetTextColor(33, 37, 41)
		pdf.CellFormat(widths[0], 7, truncate(f.Server, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, truncate(f.Rule.Name, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, f.Rule.Range(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(widths[3], 7, deletedLabel(f.Outcome.Status), "1", 1, "C", false, 0, "")
	}
}

func generateCreations(pdf *gofpdf.Fpdf, result *AuditReport) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Missing Approved Ranges", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{45, 55, 50, 30}
	tableHeader(pdf, widths, []string{"Server", "Name", "Range", "Created"})

	pdf.SetFont("Arial", "", 9)
	for _, c := range result.Creations {
		r, g, b := outcomeColor(c.Outcome.Status)
		pdf.SetTextColor(33, 37, 41)
		pdf.CellFormat(widths[0], 7, truncate(c.Server, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, truncate(c.Action.Name, 34), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, c.Action.Range.String(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(widths[3], 7, deletedLabel(c.Outcome.Status), "1", 1, "C", false, 0, "")
	}
}

func generateScopeErrors(pdf *gofpdf.Fpdf, result *AuditReport) {
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(133, 100, 4)
	pdf.CellFormat(0, 8, "Skipped Scopes", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(33, 37, 41)
	for _, e := range result.ScopeErrors {
		pdf.MultiCell(0, 5, fmt.Sprintf("- %s: %s", e.Scope, e.Reason), "", "L", false)
	}
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, titles []string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(246, 248, 250)
	pdf.SetTextColor(0, 0, 0)
	for i, title := range titles {
		pdf.CellFormat(widths[i], 8, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func outcomeColor(status OutcomeStatus) (int, int, int) {
	switch status {
	case StatusSucceeded:
		return 40, 167, 69
	case StatusFailed:
		return 220, 53, 69
	default:
		return 133, 100, 4
	}
}

func deletedLabel(status OutcomeStatus) string {
	switch status {
	case StatusSucceeded:
		return "YES"
	case StatusFailed:
		return "NO (error)"
	default:
		return "NOT ENABLED"
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
