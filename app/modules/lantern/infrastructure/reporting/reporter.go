// Package lanternreport renders the scoreboard as a spreadsheet and a bar chart.
package lanternreport

import (
	"context"
	"fmt"
	"time"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
)

// Source is the read side of the lantern service a report needs.
type Source interface {
	ListStations(ctx context.Context, includeInactive bool) ([]lanterntypes.Station, error)
	GetTeamScores(ctx context.Context) ([]lanterntypes.TeamScore, error)
	GetRoundState(ctx context.Context) (*lanterntypes.Round, error)
}

// Snapshot is the game state a report is built from.
type Snapshot struct {
	Round       lanterntypes.Round
	Stations    []lanterntypes.Station
	Scores      []lanterntypes.TeamScore
	GeneratedAt time.Time
}

// TeamName returns the name of id, or "" when the team is unknown.
func (s Snapshot) TeamName(id uuid.UUID) string {
	for _, sc := range s.Scores {
		if sc.TeamID == id {
			return sc.Name
		}
	}
	return ""
}

type Reporter struct {
	source  Source
	clock   lanternservice.Clock
	palette Palette
}

func NewReporter(source Source, clock lanternservice.Clock) *Reporter {
	if clock == nil {
		clock = lanternservice.RealClock{}
	}
	return &Reporter{source: source, clock: clock, palette: DefaultPalette}
}

func (r *Reporter) Snapshot(ctx context.Context) (Snapshot, error) {
	round, err := r.source.GetRoundState(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read round: %w", err)
	}
	stations, err := r.source.ListStations(ctx, true)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list stations: %w", err)
	}
	scores, err := r.source.GetTeamScores(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read scores: %w", err)
	}
	return Snapshot{Round: *round, Stations: stations, Scores: scores, GeneratedAt: r.clock.Now()}, nil
}

// Scoreboard returns the current standings as an xlsx workbook.
func (r *Reporter) Scoreboard(ctx context.Context) ([]byte, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ExportScoreboard(snap)
}

// ScoreChart returns team points as a png bar chart.
func (r *Reporter) ScoreChart(ctx context.Context) ([]byte, error) {
	scores, err := r.source.GetTeamScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return RenderScoreChart(scores, r.palette)
}
