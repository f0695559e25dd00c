package results

import (
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"evalhub/internal/domain"
)

const exportSheet = "Results"

var exportHeader = []any{
	"Staff ID", "Name", "Status", "Total", "Completed", "Pending", "Completion %",
	"Overall", "Manager", "Peer", "Subordinate", "Self",
}

// Scorecard writes a one-page PDF summary of a result.
func (s *Service) Scorecard(ctx context.Context, actor domain.Actor, id string, w io.Writer) error {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	evt, err := s.events.Get(ctx, r.EventID)
	if err != nil {
		return err
	}
	name := r.StaffID
	if member, err := s.staff.Get(ctx, r.StaffID); err == nil && member.FullName != "" {
		name = member.FullName
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Evaluation scorecard")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Staff: %s", name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Event: %s", evt.Name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", r.Status))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Assignments: %d completed of %d (%s%%)",
		r.CompletedAssignments, r.TotalAssignments, r.CompletionRate.StringFixed(2)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 8, "Category", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 8, "Count", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Score", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	rows := []struct {
		label string
		count int
		score decimal.NullDecimal
	}{
		{"Manager", r.Breakdown.Counts.Manager, r.ManagerScore},
		{"Peer", r.Breakdown.Counts.Peer, r.PeerScore},
		{"Subordinate", r.Breakdown.Counts.Subordinate, r.SubordinateScore},
		{"Self", r.Breakdown.Counts.Self, r.SelfScore},
		{"Overall", len(r.Breakdown.Scores), r.OverallScore},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 8, row.label, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", row.count), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, scoreText(row.score), "1", 1, "C", false, 0, "")
	}
	if r.Notes != nil && *r.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 6, "Notes: "+*r.Notes, "", "", false)
	}
	return pdf.Output(w)
}

// ExportEvent writes every result of an event as an XLSX workbook.
func (s *Service) ExportEvent(ctx context.Context, actor domain.Actor, eventID string, w io.Writer) error {
	rows, err := s.ListForEvent(ctx, actor, eventID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.WarnContext(ctx, "close workbook failed", "err", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		name := ""
		if member, err := s.staff.Get(ctx, r.StaffID); err == nil {
			name = member.FullName
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.StaffID, name, r.Status, r.TotalAssignments, r.CompletedAssignments, r.PendingAssignments,
			r.CompletionRate.InexactFloat64(),
			scoreCell(r.OverallScore), scoreCell(r.ManagerScore), scoreCell(r.PeerScore),
			scoreCell(r.SubordinateScore), scoreCell(r.SelfScore),
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func scoreText(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func scoreCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}
