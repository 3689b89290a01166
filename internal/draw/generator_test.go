package draw

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ahrav/go-tabroom/internal/domain"
)

func testOptions() domain.Options {
	o := domain.DefaultOptions()
	o.Seed = 42
	return o
}

func makeTeams(ids ...string) []domain.Team {
	out := make([]domain.Team, len(ids))
	for i, id := range ids {
		out[i] = domain.Team{ID: id, Name: "Team " + id, InstitutionID: "inst-" + id, Type: domain.TeamNormal}
	}
	return out
}

func numberedTeams(n int) []domain.Team {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%02d", i+1)
	}
	return makeTeams(ids...)
}

// pairKeys returns each non-bye pairing as "x-y" with x < y, sorted.
func pairKeys(pairings []domain.Pairing) []string {
	var out []string
	for _, p := range pairings {
		if p.IsBye() {
			continue
		}
		a, b := p.Aff, p.Neg
		if a > b {
			a, b = b, a
		}
		out = append(out, a+"-"+b)
	}
	sort.Strings(out)
	return out
}

func findPairing(t *testing.T, d *Draw, team string) domain.Pairing {
	t.Helper()
	for _, p := range d.Pairings {
		if p.Aff == team || p.Neg == team {
			return p
		}
	}
	t.Fatalf("team %s not found in draw", team)
	return domain.Pairing{}
}

func assertEachTeamOnce(t *testing.T, d *Draw, teams []domain.Team) {
	t.Helper()
	counts := make(map[string]int)
	for _, p := range d.Pairings {
		for _, id := range p.Teams() {
			counts[id]++
		}
	}
	for _, team := range teams {
		assert.Equal(t, 1, counts[team.ID], "team %s", team.ID)
	}
	assert.Len(t, counts, len(teams))
}

// sixTeamRoundOne gives a, b and c a win over d, e and f with distinct speaks.
func sixTeamRoundOne() []domain.Result {
	return []domain.Result{
		{TeamID: "a", OpponentID: "d", Round: 1, Points: 1, SpeakerScore: 76, Win: true},
		{TeamID: "b", OpponentID: "e", Round: 1, Points: 1, SpeakerScore: 75.5, Win: true},
		{TeamID: "c", OpponentID: "f", Round: 1, Points: 1, SpeakerScore: 75.2, Win: true},
		{TeamID: "d", OpponentID: "a", Round: 1, Points: 0, SpeakerScore: 75},
		{TeamID: "e", OpponentID: "b", Round: 1, Points: 0, SpeakerScore: 74},
		{TeamID: "f", OpponentID: "c", Round: 1, Points: 0, SpeakerScore: 73},
	}
}

func TestGenerate_OddTeamsWithoutByeFails(t *testing.T) {
	gen := NewGenerator(testOptions(), zaptest.NewLogger(t))

	_, err := gen.Generate(context.Background(), Request{Round: 1, Teams: makeTeams("a", "b", "c", "d", "e")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDraw)

	var drawErr *domain.DrawError
	require.True(t, errors.As(err, &drawErr))
	assert.Equal(t, 1, drawErr.Round)
}

func TestGenerate_AllowByeGivesLowestRankedTeamTheBye(t *testing.T) {
	opts := testOptions()
	opts.AllowBye = true
	teams := makeTeams("a", "b", "c", "d", "e")
	teams[4].HadBye = true // e is bottom but already had a bye

	results := []domain.Result{
		{TeamID: "a", Round: 1, Points: 3},
		{TeamID: "b", Round: 1, Points: 2},
		{TeamID: "c", Round: 1, Points: 2},
		{TeamID: "d", Round: 1, Points: 1},
		{TeamID: "e", Round: 1, Points: 0},
	}

	d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
	require.NoError(t, err)

	assert.Equal(t, 3, d.PairingCount())
	assert.Equal(t, 2, d.VenuesRequired())
	assertEachTeamOnce(t, d, teams)

	bye := d.Pairings[len(d.Pairings)-1]
	assert.True(t, bye.IsBye())
	assert.Equal(t, "d", bye.Aff)
	assert.Empty(t, bye.Neg)
	assert.Equal(t, 0, bye.RoomRank)
}

func TestGenerate_ByeTeamTakesSlot(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "z")
	teams[4].Type = domain.TeamBye

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Teams: teams})
	require.NoError(t, err)

	assert.Equal(t, 3, d.PairingCount(), "ceil(5/2) pairings")
	assertEachTeamOnce(t, d, teams)

	bye := findPairing(t, d, "z")
	assert.True(t, bye.HasFlag(domain.FlagBye))
	assert.Equal(t, 0, bye.RoomRank)
	for _, p := range d.Pairings[:2] {
		assert.False(t, p.IsBye())
		assert.Positive(t, p.RoomRank)
	}
}

func TestGenerate_ByeTeamEvensOddPoolWithoutAllowBye(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e", "z")
	teams[5].Type = domain.TeamBye
	results := []domain.Result{
		{TeamID: "a", Round: 1, Points: 3},
		{TeamID: "b", Round: 1, Points: 2},
		{TeamID: "c", Round: 1, Points: 2},
		{TeamID: "d", Round: 1, Points: 1},
		{TeamID: "e", Round: 1, Points: 0},
	}

	for _, method := range []domain.DrawMethod{domain.DrawPowerPaired, domain.DrawRandom} {
		t.Run(string(method), func(t *testing.T) {
			opts := testOptions()
			opts.AllowBye = false
			d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{
				Round: 2, Method: method, Teams: teams, Results: results,
			})
			require.NoError(t, err)

			assert.Equal(t, 3, d.PairingCount())
			assert.Equal(t, 2, d.VenuesRequired())
			assertEachTeamOnce(t, d, teams)

			bye := findPairing(t, d, "z")
			assert.Equal(t, "e", bye.Aff)
			assert.Equal(t, "z", bye.Neg)
			assert.True(t, bye.IsBye())
			assert.Equal(t, 0, bye.RoomRank)

			debates, err := d.Debates([]domain.Venue{{ID: "v1"}, {ID: "v2"}})
			require.NoError(t, err)
			for _, deb := range debates {
				if deb.Neg == "z" {
					assert.Empty(t, deb.VenueID)
				} else {
					assert.NotEmpty(t, deb.VenueID)
				}
			}
		})
	}
}

func TestGenerate_OddPoolStillFailsWhenByeTeamsRunOut(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e", "f", "g", "y", "z")
	teams[7].Type = domain.TeamBye
	teams[8].Type = domain.TeamBye

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Teams: teams})
	require.NoError(t, err)
	assertEachTeamOnce(t, d, teams)
	assert.Equal(t, 5, d.PairingCount(), "three debates, one match against y and z on its own")
	assert.Equal(t, 3, d.VenuesRequired())

	_, err = NewGenerator(testOptions(), nil).Generate(context.Background(), Request{
		Round: 1, Teams: makeTeams("a", "b", "c"),
	})
	assert.ErrorIs(t, err, domain.ErrDraw)
}

func TestGenerate_RoundRobinUsesByeTeam(t *testing.T) {
	teams := makeTeams("a", "b", "c", "z")
	teams[3].Type = domain.TeamBye

	seen := make(map[string]bool)
	for round := 1; round <= 3; round++ {
		d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{
			Round: round, Method: domain.DrawRoundRobin, Teams: teams,
		})
		require.NoError(t, err)
		assertEachTeamOnce(t, d, teams)
		assert.Equal(t, 2, d.PairingCount())
		bye := findPairing(t, d, "z")
		assert.True(t, bye.IsBye())
		assert.Equal(t, "z", bye.Neg)
		seen[bye.Aff] = true
	}
	assert.Len(t, seen, 3, "each team meets the bye team once")
}

func TestGenerate_PowerPairedSlide(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e", "f", "g", "h")
	results := []domain.Result{
		{TeamID: "a", OpponentID: "e", Round: 1, Points: 1, SpeakerScore: 79, Win: true},
		{TeamID: "b", OpponentID: "f", Round: 1, Points: 1, SpeakerScore: 78, Win: true},
		{TeamID: "c", OpponentID: "g", Round: 1, Points: 1, SpeakerScore: 77, Win: true},
		{TeamID: "d", OpponentID: "h", Round: 1, Points: 1, SpeakerScore: 76, Win: true},
		{TeamID: "e", OpponentID: "a", Round: 1, Points: 0, SpeakerScore: 75},
		{TeamID: "f", OpponentID: "b", Round: 1, Points: 0, SpeakerScore: 74},
		{TeamID: "g", OpponentID: "c", Round: 1, Points: 0, SpeakerScore: 73},
		{TeamID: "h", OpponentID: "d", Round: 1, Points: 0, SpeakerScore: 72},
	}

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
	require.NoError(t, err)

	assert.Equal(t, []string{"a-c", "b-d", "e-g", "f-h"}, pairKeys(d.Pairings))
	for i, p := range d.Pairings {
		assert.Equal(t, i+1, p.RoomRank)
		assert.Empty(t, p.Flags)
	}
	assert.Equal(t, 1.0, d.Pairings[0].Bracket)
	assert.Equal(t, 1.0, d.Pairings[1].Bracket)
	assert.Equal(t, 0.0, d.Pairings[3].Bracket)
}

func TestGenerate_PairingMethods(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	results := []domain.Result{
		{TeamID: "a", Round: 1, SpeakerScore: 80},
		{TeamID: "b", Round: 1, SpeakerScore: 79},
		{TeamID: "c", Round: 1, SpeakerScore: 78},
		{TeamID: "d", Round: 1, SpeakerScore: 77},
	}

	tests := []struct {
		method domain.PairingMethod
		want   []string
	}{
		{method: domain.PairSlide, want: []string{"a-c", "b-d"}},
		{method: domain.PairFold, want: []string{"a-d", "b-c"}},
		{method: domain.PairAdjacent, want: []string{"a-b", "c-d"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			opts := testOptions()
			opts.PairingMethod = tt.method
			d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
			require.NoError(t, err)
			assert.Equal(t, tt.want, pairKeys(d.Pairings))
		})
	}
}

func TestGenerate_OddBracketRules(t *testing.T) {
	tests := []struct {
		rule       domain.OddBracketRule
		want       []string
		flagged    string
		flag       domain.DrawFlag
		flagBucket float64
	}{
		{rule: domain.PullupBottom, want: []string{"a-c", "b-f", "d-e"}, flagged: "f", flag: domain.FlagPullup, flagBucket: 1},
		{rule: domain.PullupTop, want: []string{"a-c", "b-d", "e-f"}, flagged: "d", flag: domain.FlagPullup, flagBucket: 1},
		{rule: domain.Intermediate, want: []string{"a-b", "c-d", "e-f"}, flagged: "d", flag: domain.FlagIntermediate, flagBucket: 0.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			opts := testOptions()
			opts.OddBracket = tt.rule
			teams := makeTeams("a", "b", "c", "d", "e", "f")

			d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: sixTeamRoundOne()})
			require.NoError(t, err)

			assert.Equal(t, tt.want, pairKeys(d.Pairings))
			p := findPairing(t, d, tt.flagged)
			assert.True(t, p.HasFlag(tt.flag), "flags: %v", p.Flags)
			assert.Equal(t, tt.flagBucket, p.Bracket)
			assertEachTeamOnce(t, d, teams)
		})
	}
}

func TestGenerate_OneUpOneDownAvoidsHistory(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	results := []domain.Result{
		{TeamID: "a", OpponentID: "c", Round: 1, SpeakerScore: 80},
		{TeamID: "c", OpponentID: "a", Round: 1, SpeakerScore: 78},
		{TeamID: "b", OpponentID: "d", Round: 1, SpeakerScore: 79},
		{TeamID: "d", OpponentID: "b", Round: 1, SpeakerScore: 77},
	}

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
	require.NoError(t, err)

	assert.Equal(t, []string{"a-d", "b-c"}, pairKeys(d.Pairings))
	assert.True(t, findPairing(t, d, "a").HasFlag(domain.FlagSwapHistory))
	assert.True(t, findPairing(t, d, "b").HasFlag(domain.FlagSwapOther))
	assert.Zero(t, d.Flagged()[domain.FlagHistoryConflict])
}

func TestGenerate_UnresolvableConflictIsFlagged(t *testing.T) {
	teams := makeTeams("a", "b")
	teams[1].InstitutionID = teams[0].InstitutionID
	results := []domain.Result{
		{TeamID: "a", OpponentID: "b", Round: 1, Points: 1, Win: true},
		{TeamID: "b", OpponentID: "a", Round: 1, Points: 0},
	}

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
	require.NoError(t, err, "a draw is always produced")

	require.Len(t, d.Pairings, 1)
	p := d.Pairings[0]
	assert.True(t, p.HasFlag(domain.FlagHistoryConflict))
	assert.True(t, p.HasFlag(domain.FlagInstitutionClash))
	assert.True(t, p.HasFlag(domain.FlagPullup))
}

func TestGenerate_AvoidanceOff(t *testing.T) {
	opts := testOptions()
	opts.AvoidConflicts = domain.AvoidOff
	opts.AvoidTeamHistory = false
	teams := makeTeams("a", "b", "c", "d")
	results := []domain.Result{
		{TeamID: "a", OpponentID: "c", Round: 1, SpeakerScore: 80},
		{TeamID: "c", OpponentID: "a", Round: 1, SpeakerScore: 78},
		{TeamID: "b", OpponentID: "d", Round: 1, SpeakerScore: 79},
		{TeamID: "d", OpponentID: "b", Round: 1, SpeakerScore: 77},
	}

	d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{Round: 2, Teams: teams, Results: results})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-c", "b-d"}, pairKeys(d.Pairings))
	assert.Empty(t, d.Flagged())
}

func TestGenerate_PinnedSides(t *testing.T) {
	teams := makeTeams("a", "b")
	pins := []domain.SideAllocation{
		{TeamID: "a", Round: 1, Side: domain.SideNegative},
		{TeamID: "a", Round: 2, Side: domain.SideAffirmative},
	}

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Teams: teams, SideAllocations: pins})
	require.NoError(t, err)

	require.Len(t, d.Pairings, 1)
	assert.Equal(t, "b", d.Pairings[0].Aff)
	assert.Equal(t, "a", d.Pairings[0].Neg)
	assert.True(t, d.Pairings[0].HasFlag(domain.FlagSidesPreallocated))
}

func TestGenerate_ConflictingPins(t *testing.T) {
	tests := []struct {
		name    string
		side    domain.Side
		results []domain.Result
		wantAff string
	}{
		{
			name:    "tied teams: lower ID keeps aff",
			side:    domain.SideAffirmative,
			wantAff: "a",
		},
		{
			name:    "tied teams: lower ID keeps neg",
			side:    domain.SideNegative,
			wantAff: "b",
		},
		{
			name: "higher-ranked team keeps aff",
			side: domain.SideAffirmative,
			results: []domain.Result{
				{TeamID: "a", Round: 1, Points: 0, SpeakerScore: 70},
				{TeamID: "b", Round: 1, Points: 1, SpeakerScore: 75, Win: true},
			},
			wantAff: "b",
		},
		{
			name: "higher-ranked team keeps neg",
			side: domain.SideNegative,
			results: []domain.Result{
				{TeamID: "a", Round: 1, Points: 0, SpeakerScore: 70},
				{TeamID: "b", Round: 1, Points: 1, SpeakerScore: 75, Win: true},
			},
			wantAff: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.AvoidConflicts = domain.AvoidOff
			round := 1
			if len(tt.results) > 0 {
				round = 2
			}
			pins := []domain.SideAllocation{
				{TeamID: "a", Round: round, Side: tt.side},
				{TeamID: "b", Round: round, Side: tt.side},
			}

			for i := 0; i < 5; i++ {
				opts.Seed = int64(40 + i)
				d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{
					Round:           round,
					Method:          domain.DrawRandom,
					Teams:           makeTeams("a", "b"),
					Results:         tt.results,
					SideAllocations: pins,
				})
				require.NoError(t, err)
				require.Len(t, d.Pairings, 1)
				assert.Equal(t, tt.wantAff, d.Pairings[0].Aff, "seed %d", opts.Seed)
				assert.True(t, d.Pairings[0].HasFlag(domain.FlagSideConflict))
			}
		})
	}
}

func TestGenerate_BalanceGivesAffToTeamWithFewerAffs(t *testing.T) {
	teams := makeTeams("a", "b")
	teams[0].AffCount, teams[0].NegCount = 2, 1
	teams[1].AffCount, teams[1].NegCount = 1, 2

	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 4, Teams: teams})
	require.NoError(t, err)
	assert.Equal(t, "b", d.Pairings[0].Aff)
}

// TestGenerate_SideBalanceOverRounds simulates a tournament and checks that
// every team's side counts stay within one of each other.
func TestGenerate_SideBalanceOverRounds(t *testing.T) {
	const rounds = 7
	teams := numberedTeams(12)
	rng := rand.New(rand.NewSource(3))
	gen := NewGenerator(testOptions(), nil)

	var results []domain.Result
	for round := 1; round <= rounds; round++ {
		d, err := gen.Generate(context.Background(), Request{Round: round, Teams: teams, Results: results})
		require.NoError(t, err, "round %d", round)
		assertEachTeamOnce(t, d, teams)
		assert.Equal(t, 6, d.PairingCount())

		index := make(map[string]*domain.Team, len(teams))
		for i := range teams {
			index[teams[i].ID] = &teams[i]
		}
		for _, p := range d.Pairings {
			index[p.Aff].AffCount++
			index[p.Neg].NegCount++

			affWins := rng.Intn(2) == 0
			results = append(results,
				domain.Result{TeamID: p.Aff, OpponentID: p.Neg, Round: round, Points: b2f(affWins), SpeakerScore: 70 + float64(rng.Intn(10)), Win: affWins},
				domain.Result{TeamID: p.Neg, OpponentID: p.Aff, Round: round, Points: b2f(!affWins), SpeakerScore: 70 + float64(rng.Intn(10)), Win: !affWins},
			)
		}

		for _, team := range teams {
			imbalance := team.SideImbalance()
			assert.LessOrEqual(t, imbalance, 1, "round %d team %s", round, team.ID)
			assert.GreaterOrEqual(t, imbalance, -1, "round %d team %s", round, team.ID)
		}
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestGenerate_EveryTeamOnceAcrossMethods(t *testing.T) {
	methods := []domain.DrawMethod{domain.DrawRandom, domain.DrawPowerPaired, domain.DrawRoundRobin}
	for _, method := range methods {
		for _, n := range []int{2, 6, 10, 24} {
			t.Run(fmt.Sprintf("%s/%d", method, n), func(t *testing.T) {
				teams := numberedTeams(n)
				d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Method: method, Teams: teams})
				require.NoError(t, err)
				assertEachTeamOnce(t, d, teams)
				assert.Equal(t, (n+1)/2, d.PairingCount())
			})
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	teams := numberedTeams(10)
	req := Request{Round: 1, Method: domain.DrawRandom, Teams: teams}

	first, err := NewGenerator(testOptions(), nil).Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := NewGenerator(testOptions(), nil).Generate(context.Background(), req)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Pairings, second.Pairings); diff != "" {
		t.Errorf("draws differ under the same seed (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Seed, second.Seed)
}

func TestGenerate_RoundRobinMeetsEveryone(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	gen := NewGenerator(testOptions(), nil)

	var all []string
	for round := 1; round <= 3; round++ {
		d, err := gen.Generate(context.Background(), Request{Round: round, Method: domain.DrawRoundRobin, Teams: teams})
		require.NoError(t, err)
		all = append(all, pairKeys(d.Pairings)...)
	}
	sort.Strings(all)
	assert.Equal(t, []string{"a-b", "a-c", "a-d", "b-c", "b-d", "c-d"}, all)
}

func TestGenerate_RoundRobinDivisions(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e")
	for i := range teams {
		teams[i].DivisionID = "east"
	}
	teams[4].DivisionID = "west"

	_, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Method: domain.DrawRoundRobin, Teams: teams})
	assert.ErrorIs(t, err, domain.ErrDraw)

	opts := testOptions()
	opts.AllowBye = true
	d, err := NewGenerator(opts, nil).Generate(context.Background(), Request{Round: 1, Method: domain.DrawRoundRobin, Teams: teams})
	require.NoError(t, err)
	assertEachTeamOnce(t, d, teams)
	assert.True(t, findPairing(t, d, "e").IsBye())
	assert.Equal(t, "east", findPairing(t, d, "a").DivisionID)
}

func TestGenerate_Manual(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")

	t.Run("valid", func(t *testing.T) {
		d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{
			Round:  1,
			Method: domain.DrawManual,
			Teams:  teams,
			Manual: []domain.Pairing{{Aff: "d", Neg: "a"}, {Aff: "b", Neg: "c"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "d", d.Pairings[0].Aff, "manual sides are kept")
		assert.Equal(t, []string{"a-d", "b-c"}, pairKeys(d.Pairings))
	})

	tests := []struct {
		name   string
		manual []domain.Pairing
	}{
		{name: "duplicate team", manual: []domain.Pairing{{Aff: "a", Neg: "b"}, {Aff: "a", Neg: "c"}}},
		{name: "missing team", manual: []domain.Pairing{{Aff: "a", Neg: "b"}}},
		{name: "unknown team", manual: []domain.Pairing{{Aff: "a", Neg: "b"}, {Aff: "c", Neg: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{
				Round: 1, Method: domain.DrawManual, Teams: teams, Manual: tt.manual,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestGenerate_Elimination(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	gen := NewGenerator(testOptions(), nil)

	d, err := gen.Generate(context.Background(), Request{
		Round:  6,
		Method: domain.DrawFirstElimination,
		Teams:  teams,
		Seeds:  []string{"c", "a", "d", "b"},
	})
	require.NoError(t, err)
	require.Len(t, d.Pairings, 2)
	assert.Equal(t, "c", d.Pairings[0].Aff)
	assert.Equal(t, "b", d.Pairings[0].Neg)
	assert.Equal(t, 1, d.Pairings[0].RoomRank)
	assert.Equal(t, 2, d.Pairings[1].RoomRank)
	assert.Equal(t, "a", d.Pairings[1].Aff)
	assert.Equal(t, "d", d.Pairings[1].Neg)

	_, err = gen.Generate(context.Background(), Request{Round: 6, Method: domain.DrawFirstElimination, Teams: teams, Seeds: []string{"a", "b", "c"}})
	assert.ErrorIs(t, err, domain.ErrDraw)

	_, err = gen.Generate(context.Background(), Request{Round: 7, Method: domain.DrawElimination, Teams: teams})
	assert.ErrorIs(t, err, domain.ErrDraw)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	gen := NewGenerator(testOptions(), nil)

	_, err := gen.Generate(context.Background(), Request{Round: 0, Teams: makeTeams("a", "b")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = gen.Generate(context.Background(), Request{Round: 1, Method: "swiss", Teams: makeTeams("a", "b")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(testOptions(), nil).Generate(ctx, Request{Round: 1, Teams: makeTeams("a", "b")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDraw_Debates(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "z")
	teams[4].Type = domain.TeamBye
	d, err := NewGenerator(testOptions(), nil).Generate(context.Background(), Request{Round: 1, Teams: teams})
	require.NoError(t, err)

	_, err = d.Debates([]domain.Venue{{ID: "v1"}})
	assert.ErrorIs(t, err, domain.ErrDraw)

	debates, err := d.Debates([]domain.Venue{
		{ID: "small", Priority: 1},
		{ID: "hall", Priority: 10},
	})
	require.NoError(t, err)
	require.Len(t, debates, 3)
	assert.Equal(t, "hall", debates[0].VenueID)
	assert.Equal(t, "small", debates[1].VenueID)
	assert.Empty(t, debates[2].VenueID)
	for _, deb := range debates {
		assert.NotEmpty(t, deb.ID)
		assert.Equal(t, 1, deb.Round)
	}
}

func TestDraw_DebatesVenueDivisions(t *testing.T) {
	d := &Draw{Round: 1, Pairings: []domain.Pairing{
		{Aff: "a", Neg: "b", RoomRank: 1, DivisionID: "east"},
		{Aff: "c", Neg: "d", RoomRank: 2, DivisionID: "west"},
		{Aff: "e", Neg: "f", RoomRank: 3},
	}}

	debates, err := d.Debates([]domain.Venue{
		{ID: "hall", Priority: 10},
		{ID: "east-1", Priority: 1, DivisionID: "east"},
		{ID: "west-1", Priority: 1, DivisionID: "west"},
	})
	require.NoError(t, err)
	venues := make(map[string]string)
	for _, deb := range debates {
		venues[deb.Aff] = deb.VenueID
	}
	assert.Equal(t, map[string]string{"a": "east-1", "c": "west-1", "e": "hall"}, venues)

	_, err = d.Debates([]domain.Venue{
		{ID: "east-1", DivisionID: "east"},
		{ID: "east-2", DivisionID: "east"},
		{ID: "west-1", DivisionID: "west"},
	})
	assert.ErrorIs(t, err, domain.ErrDraw, "no general venue for the undivided debate")
}
