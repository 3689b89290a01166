package domain

// PairingMethod selects how teams within one bracket are matched.
type PairingMethod string

// Bracket pairing methods.
const (
	PairSlide    PairingMethod = "slide"
	PairFold     PairingMethod = "fold"
	PairAdjacent PairingMethod = "adjacent"
	PairRandom   PairingMethod = "random"
)

// OddBracketRule selects how odd-sized brackets are evened out.
type OddBracketRule string

// Odd bracket resolution rules.
const (
	PullupBottom OddBracketRule = "pullup_bottom"
	PullupTop    OddBracketRule = "pullup_top"
	PullupRandom OddBracketRule = "pullup_random"
	Intermediate OddBracketRule = "intermediate"
)

// AvoidConflicts selects the conflict avoidance strategy.
type AvoidConflicts string

// Conflict avoidance strategies.
const (
	AvoidOff          AvoidConflicts = "off"
	AvoidOneUpOneDown AvoidConflicts = "one_up_one_down"
)

// SideAllocationRule selects how aff and neg are assigned within a pairing.
type SideAllocationRule string

// Side allocation rules.
const (
	SidesBalance      SideAllocationRule = "balance"
	SidesRandom       SideAllocationRule = "random"
	SidesPreallocated SideAllocationRule = "preallocated"
	SidesNone         SideAllocationRule = "none"
)

// StandingsMethod selects whether standings use totals or per-round averages.
type StandingsMethod string

// Standings methods.
const (
	StandingsTotal   StandingsMethod = "total"
	StandingsAverage StandingsMethod = "average"
)

// TieBreakRule names a metric used after points to order teams.
type TieBreakRule string

// Tie-break rules.
const (
	RuleSpeaks       TieBreakRule = "speaks"
	RuleDrawStrength TieBreakRule = "draw_strength"
	RuleWins         TieBreakRule = "wins"
	RuleMargins      TieBreakRule = "margins"
	RuleWhoBeatWhom  TieBreakRule = "who_beat_whom"
)

// Options are the tournament-level configuration values the engines read.
type Options struct {
	// AvoidSameInstitution and AvoidTeamHistory turn the draw's avoidance
	// constraints on. Violations are swapped away where possible and
	// flagged otherwise.
	AvoidSameInstitution bool
	AvoidTeamHistory     bool

	// TeamHistoryPenalty and TeamInstitutionPenalty weight each previous
	// meeting and each shared institution when comparing swaps.
	TeamHistoryPenalty     float64
	TeamInstitutionPenalty float64

	// DrawMethod is the default draw for preliminary rounds.
	DrawMethod DrawMethod

	// PairingMethod matches teams within a bracket.
	PairingMethod PairingMethod

	// OddBracket evens out brackets with an odd number of teams.
	OddBracket OddBracketRule

	// AvoidConflicts selects the swap strategy for avoidance conflicts.
	AvoidConflicts AvoidConflicts

	// SideAllocations decides aff and neg within each pairing.
	SideAllocations SideAllocationRule

	// AllowBye gives one team an assigned bye when the pool is odd and no
	// bye-type team is left to draw against.
	AllowBye bool

	// InstitutionCapRule applies to categories that set no rule of their own.
	InstitutionCapRule CapRule

	// ShareAdjs adds adjudicators that belong to no tournament to the pool.
	ShareAdjs bool

	// FeedbackWeight blends feedback into the adjudicator score: 0 uses the
	// test score only, 1 the feedback only.
	FeedbackWeight float64

	// PanelSize is the number of panellists beside the chair. It must be
	// even.
	PanelSize int

	// AdjTeamHistoryPenalty and AdjAdjHistoryPenalty weight an adjudicator
	// seeing the same team or sitting with the same adjudicator again.
	AdjTeamHistoryPenalty float64
	AdjAdjHistoryPenalty  float64

	// AllocationIterations bounds the allocator's local search.
	AllocationIterations int

	// StandingsMethod ranks on totals or per-round averages.
	StandingsMethod StandingsMethod

	// TieBreakRules order teams on equal points, first rule first.
	TieBreakRules []TieBreakRule

	// Seed fixes every random choice for reproducibility; zero means a
	// time-derived seed.
	Seed int64
}

// DefaultOptions returns the options a fresh tournament starts with.
func DefaultOptions() Options {
	return Options{
		AvoidSameInstitution:   true,
		AvoidTeamHistory:       true,
		TeamHistoryPenalty:     1e3,
		TeamInstitutionPenalty: 1,
		DrawMethod:             DrawPowerPaired,
		PairingMethod:          PairSlide,
		OddBracket:             PullupBottom,
		AvoidConflicts:         AvoidOneUpOneDown,
		SideAllocations:        SidesBalance,
		InstitutionCapRule:     CapRuleNone,
		PanelSize:              2,
		AdjTeamHistoryPenalty:  0.5,
		AdjAdjHistoryPenalty:   0.25,
		AllocationIterations:   200,
		StandingsMethod:        StandingsTotal,
		TieBreakRules:          []TieBreakRule{RuleSpeaks},
	}
}

// Snapshot is a read-only, pre-materialized view of a tournament handed to
// the engines. The engines never query a store directly.
type Snapshot struct {
	TournamentID string

	// Round is the sequence number of the round being operated on. Results
	// from earlier rounds only are relevant to drawing it.
	Round int

	Teams        []Team
	Institutions []Institution

	// Results holds confirmed results of every round.
	Results []Result

	Categories []BreakCategory

	// BreakingTeams holds the stored break rows, manual remarks included.
	BreakingTeams []BreakingTeam

	// Adjudicators holds the tournament's adjudicators and, when shared,
	// those of no tournament.
	Adjudicators []Adjudicator

	// Debates holds the persisted debates of Round only.
	Debates []Debate

	Venues          []Venue
	SideAllocations []SideAllocation

	// Availability holds per-round check-ins; see ActiveTeams.
	Availability []RoundAvailability

	Options Options
}

// RoundAvailability lists the teams, adjudicators and venues checked in for
// one round. An empty list leaves every member of that kind available.
type RoundAvailability struct {
	Round        int      `json:"round"`
	Teams        []string `json:"teams,omitempty"`
	Adjudicators []string `json:"adjudicators,omitempty"`
	Venues       []string `json:"venues,omitempty"`
}

// AvailabilityFor returns the check-ins recorded for round.
func (s Snapshot) AvailabilityFor(round int) (RoundAvailability, bool) {
	for _, a := range s.Availability {
		if a.Round == round {
			return a, true
		}
	}
	return RoundAvailability{Round: round}, false
}

// ActiveTeams returns the teams available in round.
func (s Snapshot) ActiveTeams(round int) []Team {
	av, _ := s.AvailabilityFor(round)
	return onlyAvailable(s.Teams, av.Teams, func(t Team) string { return t.ID })
}

// ActiveAdjudicators returns the adjudicators available in round.
func (s Snapshot) ActiveAdjudicators(round int) []Adjudicator {
	av, _ := s.AvailabilityFor(round)
	return onlyAvailable(s.Adjudicators, av.Adjudicators, func(a Adjudicator) string { return a.ID })
}

// ActiveVenues returns the venues available in round.
func (s Snapshot) ActiveVenues(round int) []Venue {
	av, _ := s.AvailabilityFor(round)
	return onlyAvailable(s.Venues, av.Venues, func(v Venue) string { return v.ID })
}

func onlyAvailable[T any](items []T, checkedIn []string, id func(T) string) []T {
	if len(checkedIn) == 0 {
		return items
	}
	in := make(map[string]struct{}, len(checkedIn))
	for _, c := range checkedIn {
		in[c] = struct{}{}
	}
	out := make([]T, 0, len(checkedIn))
	for _, it := range items {
		if _, ok := in[id(it)]; ok {
			out = append(out, it)
		}
	}
	return out
}

// TeamsByID indexes the snapshot's teams.
func (s Snapshot) TeamsByID() map[string]Team {
	out := make(map[string]Team, len(s.Teams))
	for _, t := range s.Teams {
		out[t.ID] = t
	}
	return out
}

// ResultsBefore returns results from rounds strictly before round.
func (s Snapshot) ResultsBefore(round int) []Result {
	out := make([]Result, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Round < round {
			out = append(out, r)
		}
	}
	return out
}

// History counts prior meetings between pairs of teams.
type History map[[2]string]int

// NewHistory derives team-vs-team meetings from results.
func NewHistory(results []Result) History {
	type meeting struct {
		round int
		pair  [2]string
	}
	// Both sides of a debate report the same meeting.
	counted := make(map[meeting]struct{})
	h := make(History)
	for _, r := range results {
		if r.OpponentID == "" {
			continue
		}
		pair := orderedPair(r.TeamID, r.OpponentID)
		m := meeting{round: r.Round, pair: pair}
		if _, ok := counted[m]; ok {
			continue
		}
		counted[m] = struct{}{}
		h[pair]++
	}
	return h
}

// Seen returns how many times a and b have met.
func (h History) Seen(a, b string) int { return h[orderedPair(a, b)] }

func orderedPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
