package testutils

import (
	"testing"

	"github.com/Black-And-White-Club/ctf-engine/app"
	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Game is a seeded, started game.
type Game struct {
	Teams    []rosterdb.Team
	Services []rosterdb.Service
	Tick     sharedtypes.TickID
}

// StartGame seeds roster, marks every service active and starts the game.
func StartGame(t *testing.T, a *app.App, roster *rosterservice.RosterFile) *Game {
	t.Helper()

	c := t.Context()
	if _, err := a.Modules.Roster.Service.Seed(c, roster); err != nil {
		t.Fatalf("seed: %v", err)
	}
	teams, err := a.Modules.Roster.Service.ListTeams(c, true)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	services, err := a.Modules.Roster.Service.ListServices(c)
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	for _, s := range services {
		if _, err := a.Modules.Activity.Service.SetToggle(c, activitydb.KindIsActive, s.ID, "true"); err != nil {
			t.Fatalf("activate service %d: %v", s.ID, err)
		}
	}
	tick, err := a.Modules.Game.Service.Start(c)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	return &Game{Teams: teams, Services: services, Tick: tick}
}

// Advance opens n more ticks and returns the last one.
func (g *Game) Advance(t *testing.T, a *app.App, n int) sharedtypes.TickID {
	t.Helper()
	for i := 0; i < n; i++ {
		tick, err := a.Modules.Game.Service.AdvanceTick(t.Context())
		if err != nil {
			t.Fatalf("advance tick: %v", err)
		}
		g.Tick = tick
	}
	return g.Tick
}
