package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// PacketGenerator renders a hospital previsit packet as a printable PDF
type PacketGenerator struct {
	logger *zap.Logger
}

// NewPacketGenerator creates a new PacketGenerator
func NewPacketGenerator(logger *zap.Logger) *PacketGenerator {
	return &PacketGenerator{
		logger: logger,
	}
}

// PacketData contains all data needed for packet rendering
type PacketData struct {
	Pet      model.PetProfile
	Record   model.DiagnosisRecord
	CareLogs []model.DailyCareLog
}

// Generate creates a PDF previsit packet from the provided data
func (g *PacketGenerator) Generate(data *PacketData) ([]byte, error) {
	g.logger.Info("generating previsit packet PDF",
		zap.String("diagnosis_id", data.Record.ID),
		zap.String("pet_id", data.Pet.ID),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	title := data.Record.Packet.Title
	if title == "" {
		title = "Previsit Packet"
	}
	g.addTitle(pdf, title, data.Pet)

	g.addTriageSummary(pdf, data.Record.Triage)
	g.addDiagnosisSummary(pdf, data.Record.Summary)
	g.addSymptomReport(pdf, data.Record.Report)
	g.addPacketText(pdf, data.Record.Packet)
	g.addRecentCareLogs(pdf, data.CareLogs)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("previsit packet PDF generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the packet title and pet identification
func (g *PacketGenerator) addTitle(pdf *gofpdf.Fpdf, title string, pet model.PetProfile) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Patient: %s (%s)", pet.Name, pet.Species), "", 1, "L", false, 0, "")
	if pet.Breed != "" {
		pdf.CellFormat(0, 8, fmt.Sprintf("Breed: %s", pet.Breed), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Age: %s / Weight: %s / Sex: %s", pet.Age, pet.Weight, pet.Sex), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PacketGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addTriageSummary adds the urgency classification section
func (g *PacketGenerator) addTriageSummary(pdf *gofpdf.Fpdf, triage *model.TriageAssessment) {
	g.addSectionHeader(pdf, "Triage Assessment")

	if triage == nil {
		pdf.CellFormat(0, 8, "No triage assessment available.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Urgency: %d/5 (%s)", triage.Score, triage.Level), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Recommended action window: %s", triage.RecommendedWindow), "", 1, "L", false, 0, "")
	if triage.EmergencySummary != "" {
		pdf.MultiCell(0, 6, fmt.Sprintf("Emergency note: %s", triage.EmergencySummary), "", "L", false)
	}
	pdf.Ln(5)
}

// addDiagnosisSummary adds the owner-facing diagnosis sheet section
func (g *PacketGenerator) addDiagnosisSummary(pdf *gofpdf.Fpdf, summary model.SummarySheet) {
	g.addSectionHeader(pdf, "Preliminary Assessment")

	if summary.DiagnosisName == "" {
		pdf.CellFormat(0, 8, "No assessment recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s (%d%%)", summary.DiagnosisName, summary.Probability), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	if summary.NeedHospitalVisit {
		pdf.CellFormat(0, 6, fmt.Sprintf("Hospital visit recommended: %s", summary.HospitalVisitTiming), "", 1, "L", false, 0, "")
	}

	if len(summary.ImmediateHomeActions) > 0 {
		pdf.CellFormat(0, 6, "Home actions already advised:", "", 1, "L", false, 0, "")
		for _, action := range summary.ImmediateHomeActions {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", action), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}

// addSymptomReport adds the guardian's original symptom description
func (g *PacketGenerator) addSymptomReport(pdf *gofpdf.Fpdf, report model.SymptomReport) {
	g.addSectionHeader(pdf, "Reported Symptoms")

	pdf.CellFormat(0, 6, fmt.Sprintf("Reported at: %s", report.ReportedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 6, report.Description, "", "L", false)

	if len(report.SymptomTags) > 0 {
		pdf.CellFormat(0, 6, "Tags:", "", 1, "L", false, 0, "")
		for _, tag := range report.SymptomTags {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", tag), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}

// addPacketText adds the previsit hand-off text and its structured payload
func (g *PacketGenerator) addPacketText(pdf *gofpdf.Fpdf, packet model.PrevisitPacket) {
	g.addSectionHeader(pdf, "Clinic Hand-Off")

	if packet.Text == "" {
		pdf.CellFormat(0, 8, "No hand-off notes prepared.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.MultiCell(0, 6, packet.Text, "", "L", false)

	if len(packet.StructuredJSON) > 0 && string(packet.StructuredJSON) != "{}" {
		pdf.Ln(3)
		pdf.SetFont("Courier", "", 8)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, packet.StructuredJSON, "", "  "); err == nil {
			pdf.MultiCell(0, 4, pretty.String(), "", "L", false)
		}
		pdf.SetFont("Arial", "", 10)
	}
	pdf.Ln(5)
}

// addRecentCareLogs adds the recent daily care counters section
func (g *PacketGenerator) addRecentCareLogs(pdf *gofpdf.Fpdf, logs []model.DailyCareLog) {
	g.addSectionHeader(pdf, "Recent Care Logs")

	if len(logs) == 0 {
		pdf.CellFormat(0, 8, "No care logs recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, log := range logs {
		dateStr := log.Date.Format("2006-01-02")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Feedings: %d, Water: %d, Walks: %d, Bowel: %d",
			log.Feedings, log.WaterIntakes, log.Walks, log.BowelMoves), "", 1, "L", false, 0, "")
		if log.WeightSample != nil {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Weight: %.1f kg", *log.WeightSample), "", 1, "L", false, 0, "")
		}
		if log.Note != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Note: %s", log.Note), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}
