package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHistory(t *testing.T) {
	results := []Result{
		// Both sides of round 1 report the same meeting.
		{TeamID: "a", OpponentID: "b", Round: 1},
		{TeamID: "b", OpponentID: "a", Round: 1},
		{TeamID: "a", OpponentID: "b", Round: 3},
		{TeamID: "c", OpponentID: "d", Round: 2},
		{TeamID: "e", Round: 2},
	}

	h := NewHistory(results)

	assert.Equal(t, 2, h.Seen("a", "b"))
	assert.Equal(t, 2, h.Seen("b", "a"))
	assert.Equal(t, 1, h.Seen("d", "c"))
	assert.Equal(t, 0, h.Seen("a", "c"))
	assert.Len(t, h, 2)
}

func TestSnapshotHelpers(t *testing.T) {
	snap := Snapshot{
		Teams: []Team{{ID: "a"}, {ID: "b"}},
		Results: []Result{
			{TeamID: "a", Round: 1},
			{TeamID: "a", Round: 2},
			{TeamID: "b", Round: 3},
		},
	}

	assert.Len(t, snap.TeamsByID(), 2)
	assert.Contains(t, snap.TeamsByID(), "b")
	assert.Len(t, snap.ResultsBefore(3), 2)
	assert.Empty(t, snap.ResultsBefore(1))
}

func TestSnapshotAvailability(t *testing.T) {
	snap := Snapshot{
		Teams:        []Team{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Adjudicators: []Adjudicator{{ID: "j1"}, {ID: "j2"}},
		Venues:       []Venue{{ID: "v1"}, {ID: "v2"}},
		Availability: []RoundAvailability{
			{Round: 2, Teams: []string{"c", "a", "ghost"}, Venues: []string{"v2"}},
		},
	}

	ids := func(teams []Team) []string {
		var out []string
		for _, t := range teams {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "c"}, ids(snap.ActiveTeams(2)), "snapshot order, unknown IDs ignored")
	assert.Len(t, snap.ActiveAdjudicators(2), 2, "no adjudicator check-ins")
	assert.Equal(t, []Venue{{ID: "v2"}}, snap.ActiveVenues(2))
	assert.Len(t, snap.ActiveTeams(3), 3, "round without check-ins")

	_, ok := snap.AvailabilityFor(3)
	assert.False(t, ok)
}

func TestVenueHosts(t *testing.T) {
	assert.True(t, Venue{}.Hosts("east"))
	assert.True(t, Venue{}.Hosts(""))
	assert.True(t, Venue{DivisionID: "east"}.Hosts("east"))
	assert.False(t, Venue{DivisionID: "east"}.Hosts("west"))
	assert.False(t, Venue{DivisionID: "east"}.Hosts(""))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, DrawPowerPaired, opts.DrawMethod)
	assert.Equal(t, StandingsTotal, opts.StandingsMethod)
	assert.Equal(t, []TieBreakRule{RuleSpeaks}, opts.TieBreakRules)
	assert.Equal(t, CapRuleNone, opts.InstitutionCapRule)
	assert.False(t, opts.AllowBye)
	assert.Greater(t, opts.TeamHistoryPenalty, opts.TeamInstitutionPenalty)
}
