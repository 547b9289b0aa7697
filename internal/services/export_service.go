package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tenf/portal/internal/logging"
	gormModels "tenf/portal/internal/models/gorm"
)

const evaluationSheet = "Evaluations"

var evaluationColumns = []string{
	"Membre", "Mois",
	"Spotlight présent", "Spotlight total", "Spotlight /5",
	"Raids faits", "Raids reçus", "Raids /5",
	"Messages", "Minutes vocal", "Discord /5",
	"Events présents", "Events total", "Events /2",
	"Follow", "Follow total", "Follow /5",
	"Bonus fuseau", "Bonus modération",
	"Total /25", "Total /32", "Statut", "Clôturé",
}

func evaluationRow(e gormModels.Evaluation) []interface{} {
	closed := ""
	if e.FinalizedAt != nil {
		closed = e.FinalizedAt.Format("2006-01-02")
	}
	return []interface{}{
		e.MemberLogin, e.Month,
		e.SpotlightPresent, e.SpotlightTotal, e.SpotlightScore,
		e.RaidsDone, e.RaidsReceived, e.RaidPoints,
		e.DiscordMessages, e.DiscordVoiceMinutes, e.DiscordScore,
		e.EventsAttended, e.EventsTotal, e.EventScore,
		e.FollowedCount, e.FollowTotal, e.FollowScore,
		e.TimezoneBonus, e.ModerationBonus,
		e.TotalHorsBonus, e.TotalAvecBonus, e.AutoStatus, closed,
	}
}

// ExportMonth renders the evaluations of month as an xlsx workbook.
func (s *EvaluationService) ExportMonth(ctx context.Context, month string) ([]byte, error) {
	evals, err := s.ListMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return WriteEvaluationsXLSX(evals)
}

func WriteEvaluationsXLSX(evals []gormModels.Evaluation) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "error", err.Error())
		}
	}()

	if err := f.SetSheetName("Sheet1", evaluationSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	header := make([]interface{}, len(evaluationColumns))
	for i, c := range evaluationColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(evaluationSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range evals {
		row := evaluationRow(e)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(evaluationSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(evaluationSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
