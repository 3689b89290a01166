package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/ports"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleSnapshot() domain.Snapshot {
	opts := domain.DefaultOptions()
	opts.PanelSize = 0
	feedback := 6.5
	return domain.Snapshot{
		TournamentID: "t1",
		Options:      opts,
		Institutions: []domain.Institution{
			{ID: "i1", Name: "One", Code: "ONE"},
			{ID: "i2", Name: "Two", Code: "TWO", Abbreviation: "2", RegionID: "north"},
		},
		Teams: []domain.Team{
			{ID: "a", Name: "A", InstitutionID: "i1", Type: domain.TeamNormal, BreakCategories: []string{"esl"}},
			{ID: "b", Name: "B", InstitutionID: "i2", Type: domain.TeamNormal},
			{ID: "c", Name: "C", InstitutionID: "i1", Type: domain.TeamSwing, DivisionID: "d1"},
			{ID: "d", Name: "D", InstitutionID: "i2", Type: domain.TeamNormal, ExcludedCategories: []string{"open"}},
		},
		Results: []domain.Result{
			{TeamID: "a", OpponentID: "b", Round: 1, Points: 1, SpeakerScore: 150, Margin: 3, Win: true, Side: domain.SideAffirmative},
			{TeamID: "b", OpponentID: "a", Round: 1, SpeakerScore: 147, Margin: -3, Side: domain.SideNegative},
			{TeamID: "c", OpponentID: "d", Round: 1, Points: 1, SpeakerScore: 149, Win: true, Side: domain.SideNegative},
			{TeamID: "d", OpponentID: "c", Round: 1, SpeakerScore: 146, Side: domain.SideAffirmative},
		},
		Categories: []domain.BreakCategory{
			{ID: "open", Name: "Open", BreakSize: 2, IsGeneral: true, InstitutionCap: domain.IntPtr(1), CapRule: domain.CapRuleFlat},
			{ID: "esl", Name: "ESL", Seq: 1, Priority: 1, BreakSize: 1, PointsFloor: 2},
		},
		Adjudicators: []domain.Adjudicator{
			{ID: "j1", Name: "J1", TournamentID: "t1", InstitutionID: "i1", TestScore: 8, FeedbackScore: &feedback,
				TeamConflicts: []string{"b"}, InstitutionConflicts: []string{"i2"}},
			{ID: "j2", Name: "J2", TournamentID: "t1", InstitutionID: "i2", TestScore: 6, Novice: true,
				AdjudicatorConflicts: []string{"j1"}},
			{ID: "s1", Name: "Shared", TestScore: 7},
		},
		Venues: []domain.Venue{{ID: "v1", Name: "Hall", Priority: 5}, {ID: "v2", Name: "Annex", Priority: 1, DivisionID: "d1"}},
		SideAllocations: []domain.SideAllocation{
			{TeamID: "a", Round: 2, Side: domain.SideNegative},
		},
		Availability: []domain.RoundAvailability{
			{Round: 2, Teams: []string{"a", "b"}, Adjudicators: []string{"j1"}, Venues: []string{"v1"}},
		},
	}
}

func importSample(t *testing.T, s *SQLStore) domain.Snapshot {
	t.Helper()
	snap := sampleSnapshot()
	require.NoError(t, s.ImportRoster(context.Background(), "Test Open", snap))
	return snap
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	assert.ErrorIs(t, err, ports.ErrUnsupportedDriver)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, "SELECT * FROM t WHERE a = ? AND b = ?"},
		{DriverPostgres, "SELECT * FROM t WHERE a = $1 AND b = $2"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s := &SQLStore{driver: tt.driver}
			assert.Equal(t, tt.want, s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := importSample(t, s)

	got, err := s.LoadSnapshot(context.Background(), "t1", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Round)
	if diff := cmp.Diff(want.Options, got.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Institutions, got.Institutions); diff != "" {
		t.Errorf("institutions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Categories, got.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Results, got.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.SideAllocations, got.SideAllocations)
	assert.Equal(t, want.Venues, got.Venues)
	assert.Equal(t, want.Availability, got.Availability)

	// Side counts are derived from earlier rounds.
	wantTeams := want.Teams
	domain.ApplySideCounts(wantTeams, want.Results)
	if diff := cmp.Diff(wantTeams, got.Teams); diff != "" {
		t.Errorf("teams mismatch (-want +got):\n%s", diff)
	}

	// Shared adjudicators stay out unless the tournament shares them.
	if diff := cmp.Diff(want.Adjudicators[:2], got.Adjudicators); diff != "" {
		t.Errorf("adjudicators mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.Debates)
}

func TestLoadSnapshot_SharedAdjudicators(t *testing.T) {
	s := newTestStore(t)
	snap := sampleSnapshot()
	snap.Options.ShareAdjs = true
	require.NoError(t, s.ImportRoster(context.Background(), "Test Open", snap))

	got, err := s.LoadSnapshot(context.Background(), "t1", 1)
	require.NoError(t, err)

	var ids []string
	for _, a := range got.Adjudicators {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"j1", "j2", "s1"}, ids)
}

func TestLoadSnapshot_UnknownTournament(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportRoster_ReplacesRoster(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)

	snap := sampleSnapshot()
	snap.Teams = snap.Teams[:2]
	snap.Results = snap.Results[:2]
	require.NoError(t, s.ImportRoster(context.Background(), "Renamed", snap))

	got, err := s.LoadSnapshot(context.Background(), "t1", 2)
	require.NoError(t, err)
	assert.Len(t, got.Teams, 2)
	assert.Len(t, got.Results, 2)
}

func TestSetAvailability(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)
	ctx := context.Background()

	require.NoError(t, s.SetAvailability(ctx, "t1", domain.RoundAvailability{
		Round: 2, Teams: []string{"c", "d"}, Adjudicators: []string{"s1"},
	}))
	require.NoError(t, s.SetAvailability(ctx, "t1", domain.RoundAvailability{Round: 3, Venues: []string{"v2"}}))

	got, err := s.LoadSnapshot(ctx, "t1", 2)
	require.NoError(t, err)
	want := []domain.RoundAvailability{
		{Round: 2, Teams: []string{"c", "d"}, Adjudicators: []string{"s1"}},
		{Round: 3, Venues: []string{"v2"}},
	}
	assert.Equal(t, want, got.Availability, "round 2 is replaced, not merged")

	var active []string
	for _, tm := range got.ActiveTeams(2) {
		active = append(active, tm.ID)
	}
	assert.Equal(t, []string{"c", "d"}, active)
	assert.Len(t, got.ActiveTeams(3), 4, "no team check-ins means every team")

	tests := []struct {
		name string
		av   domain.RoundAvailability
	}{
		{"unknown team", domain.RoundAvailability{Round: 2, Teams: []string{"zz"}}},
		{"unknown adjudicator", domain.RoundAvailability{Round: 2, Adjudicators: []string{"zz"}}},
		{"unknown venue", domain.RoundAvailability{Round: 2, Venues: []string{"zz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.SetAvailability(ctx, "t1", tt.av), domain.ErrNotFound)
		})
	}

	got, err = s.LoadSnapshot(ctx, "t1", 2)
	require.NoError(t, err)
	assert.Equal(t, want, got.Availability, "failed updates leave check-ins alone")
}

func TestDebatesAndAllocations(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)
	ctx := context.Background()

	round1 := []domain.Debate{
		{ID: "d1", Round: 1, Aff: "a", Neg: "b", Bracket: 0, RoomRank: 1, VenueID: "v1"},
		{ID: "d2", Round: 1, Aff: "d", Neg: "c", Bracket: 0, RoomRank: 2, VenueID: "v2", Flags: []domain.DrawFlag{domain.FlagInstitutionClash}},
	}
	require.NoError(t, s.SaveDebates(ctx, "t1", 1, round1))

	got, err := s.Debates(ctx, "t1", 1)
	require.NoError(t, err)
	if diff := cmp.Diff(round1, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("debates mismatch (-want +got):\n%s", diff)
	}

	allocs := []domain.AdjudicatorAllocation{
		{DebateID: "d1", Chair: "j1", Panel: []string{}, Trainees: []string{"j2"}},
		{DebateID: "d2", Chair: "s1"},
	}
	require.NoError(t, s.SaveAllocations(ctx, allocs))

	stored, err := s.Allocations(ctx, "t1", 1)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "j1", stored["d1"].Chair)
	assert.Equal(t, []string{"j2"}, stored["d1"].Trainees)
	assert.Equal(t, "s1", stored["d2"].Chair)

	// Round 2 sees the round 1 panels as history.
	snap, err := s.LoadSnapshot(ctx, "t1", 2)
	require.NoError(t, err)
	j1 := snap.Adjudicators[0]
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, j1.SeenTeams)
	assert.Equal(t, map[string]int{"j2": 1}, j1.SeenAdjudicators)

	// Redrawing a round drops its allocations.
	require.NoError(t, s.SaveDebates(ctx, "t1", 1, round1[:1]))
	stored, err = s.Allocations(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
	got, err = s.Debates(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveAllocations_UnknownDebate(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)

	err := s.SaveAllocations(context.Background(), []domain.AdjudicatorAllocation{{DebateID: "nope", Chair: "j1"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveDebates_DuplicateIDConflicts(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveDebates(ctx, "t1", 1, []domain.Debate{{ID: "d1", Round: 1, Aff: "a", Neg: "b"}}))
	err := s.SaveDebates(ctx, "t1", 2, []domain.Debate{{ID: "d1", Round: 2, Aff: "a", Neg: "c"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConflict)

	var storeErr *ports.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "SaveDebates", storeErr.Operation)
}

func TestBreakRows(t *testing.T) {
	s := newTestStore(t)
	importSample(t, s)
	ctx := context.Background()

	rows := []domain.BreakingTeam{
		{CategoryID: "open", TeamID: "a", Rank: 1, BreakRank: domain.IntPtr(1), Outcome: domain.Automatic{}},
		{CategoryID: "open", TeamID: "c", Rank: 2, Outcome: domain.Automatic{Code: domain.RemarkCapped}},
		{CategoryID: "open", TeamID: "b", Rank: 3, BreakRank: domain.IntPtr(2), Outcome: domain.Automatic{}},
	}
	require.NoError(t, s.ReplaceBreak(ctx, "t1", "open", rows))

	require.NoError(t, s.SetRemark(ctx, "t1", "open", "b", domain.RemarkWithdrawn))
	require.NoError(t, s.SetRemark(ctx, "t1", "open", "d", domain.RemarkDisqualified))

	snap, err := s.LoadSnapshot(ctx, "t1", 0)
	require.NoError(t, err)
	byTeam := make(map[string]domain.BreakingTeam)
	for _, bt := range snap.BreakingTeams {
		byTeam[bt.TeamID] = bt
	}
	require.Len(t, byTeam, 4)

	assert.True(t, byTeam["a"].Breaking())
	assert.Equal(t, 1, *byTeam["a"].BreakRank)
	assert.Equal(t, domain.RemarkCapped, byTeam["c"].Remark())
	assert.False(t, byTeam["c"].IsManual())

	assert.True(t, byTeam["b"].IsManual())
	assert.False(t, byTeam["b"].Breaking())
	assert.Equal(t, domain.RemarkWithdrawn, byTeam["b"].Remark())
	assert.Equal(t, 3, byTeam["b"].Rank, "rank survives the override")
	assert.True(t, byTeam["d"].IsManual())

	require.NoError(t, s.SetRemark(ctx, "t1", "open", "b", domain.RemarkNone))
	snap, err = s.LoadSnapshot(ctx, "t1", 0)
	require.NoError(t, err)
	for _, bt := range snap.BreakingTeams {
		assert.NotEqual(t, "b", bt.TeamID, "cleared remark removes the row")
	}

	assert.ErrorIs(t, s.SetRemark(ctx, "t1", "open", "zz", domain.RemarkWithdrawn), domain.ErrNotFound)
	assert.ErrorIs(t, s.SetRemark(ctx, "t1", "novice", "a", domain.RemarkWithdrawn), domain.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceBreak(ctx, "t1", "esl", rows), domain.ErrInvalidInput)
}
