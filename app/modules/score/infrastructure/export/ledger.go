// Package scoreexport writes the score ledger as an xlsx workbook for
// organisers.
package scoreexport

import (
	"fmt"
	"io"
	"sort"

	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/xuri/excelize/v2"
)

const (
	StandingsSheet = "Standings"
	TicksSheet     = "Ticks"
)

var (
	standingsHeader = []any{"Pos", "Team ID", "Team", "Score"}
	ticksHeader     = []any{"Tick", "Team ID", "Attack", "Defense", "King of the Hill", "Total"}
)

// WriteLedger writes the standings sheet followed by one row per team per
// tick, ordered by tick then team id.
func WriteLedger(w io.Writer, standings []scoredb.Standing, ticks []*scoredb.TickScores) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", StandingsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := setRow(f, StandingsSheet, 1, standingsHeader); err != nil {
		return err
	}
	for i, s := range standings {
		if err := setRow(f, StandingsSheet, i+2, []any{s.Pos, int64(s.TeamID), s.Team, s.Score}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(TicksSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", TicksSheet, err)
	}
	if err := setRow(f, TicksSheet, 1, ticksHeader); err != nil {
		return err
	}
	row := 2
	for _, tick := range ticks {
		if tick == nil {
			continue
		}
		ids := make([]sharedtypes.TeamID, 0, len(tick.Teams))
		for id := range tick.Teams {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			s := tick.Teams[id]
			values := []any{int64(tick.TickID), int64(id), s.Attack, s.Defense, s.KingOfTheHill, s.Total()}
			if err := setRow(f, TicksSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
