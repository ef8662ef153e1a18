package lanternreport

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	teamsSheet    = "Teams"
	stationsSheet = "Stations"
	roundSheet    = "Round"
)

// ExportScoreboard writes snap as a workbook with Teams, Stations and Round sheets.
func ExportScoreboard(snap Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", teamsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range []string{stationsSheet, roundSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	rows := [][]any{{"Rank", "Team", "Points", "Stations held"}}
	for i, sc := range snap.Scores {
		rows = append(rows, []any{i + 1, sc.Name, sc.Points, sc.StationsHeld})
	}
	if err := writeRows(f, teamsSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]any{{"Station", "Active", "Owner", "Signal", "Boost", "Baseline", "Updated"}}
	for _, st := range snap.Stations {
		owner := ""
		if st.OwnerTeamID != nil {
			owner = snap.TeamName(*st.OwnerTeamID)
			if owner == "" {
				owner = st.OwnerTeamID.String()
			}
		}
		rows = append(rows, []any{
			st.Name, st.IsActive, owner, st.SignalValue, st.BoostingSignal, st.BaselineSignal, formatTime(st.UpdatedAt),
		})
	}
	if err := writeRows(f, stationsSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]any{
		{"Active", snap.Round.IsActive},
		{"Start", formatTime(snap.Round.StartTime)},
		{"End", formatTime(snap.Round.EndTime)},
		{"Generated", formatTime(snap.GeneratedAt)},
	}
	if err := writeRows(f, roundSheet, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
