// Package standings ranks teams from confirmed per-round results.
package standings

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// Ranker computes team standings. A Ranker holds only configuration and is
// safe for concurrent use unless a shuffle source is attached.
type Ranker struct {
	method         domain.StandingsMethod
	rules          []domain.TieBreakRule
	upToRound      int
	division       string
	requireResults bool
	shuffle        *rand.Rand
	logger         *zap.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithMethod selects totals or per-round averages.
func WithMethod(m domain.StandingsMethod) Option {
	return func(r *Ranker) {
		if m != "" {
			r.method = m
		}
	}
}

// WithRules sets the tie-break rules applied after points, in order.
func WithRules(rules ...domain.TieBreakRule) Option {
	return func(r *Ranker) {
		if len(rules) > 0 {
			r.rules = slices.Clone(rules)
		}
	}
}

// UpToRound ignores results from rounds after round. Zero counts everything.
func UpToRound(round int) Option { return func(r *Ranker) { r.upToRound = round } }

// InDivision restricts the ranked teams to one division.
func InDivision(divisionID string) Option { return func(r *Ranker) { r.division = divisionID } }

// RequireResults makes a team without any counted result an input error.
func RequireResults() Option { return func(r *Ranker) { r.requireResults = true } }

// WithShuffle randomizes the order of otherwise-equal teams. It is meant for
// draw seeding and must not be used for official standings.
func WithShuffle(rng *rand.Rand) Option { return func(r *Ranker) { r.shuffle = rng } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRanker creates a Ranker that orders by points then speaker score unless
// configured otherwise.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		method: domain.StandingsTotal,
		rules:  []domain.TieBreakRule{domain.RuleSpeaks},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromOptions builds ranker options from tournament options.
func FromOptions(o domain.Options) []Option {
	return []Option{WithMethod(o.StandingsMethod), WithRules(o.TieBreakRules...)}
}

type entry struct {
	domain.StandingEntry
	beat        map[string]int
	pointsStart int
}

// Rank returns one StandingEntry per team, ordered best first. Teams tied on
// points and every tie-break rule share the rank of the first of them.
func (r *Ranker) Rank(teams []domain.Team, results []domain.Result) ([]domain.StandingEntry, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	counted := make([]domain.Result, 0, len(results))
	for _, res := range results {
		if r.upToRound > 0 && res.Round > r.upToRound {
			continue
		}
		counted = append(counted, res)
	}

	totals := aggregate(counted, r.method)

	entries := make([]*entry, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if r.division != "" && t.DivisionID != r.division {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: team %s listed twice", domain.ErrInvalidInput, t.ID)
		}
		seen[t.ID] = struct{}{}

		e, ok := totals[t.ID]
		if !ok {
			if r.requireResults {
				return nil, fmt.Errorf("%w: team %s has no results up to round %d", domain.ErrInvalidInput, t.ID, r.upToRound)
			}
			e = &entry{StandingEntry: domain.StandingEntry{TeamID: t.ID}, beat: map[string]int{}}
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		e.DrawStrength = drawStrength(e.TeamID, counted, totals)
	}

	if r.shuffle != nil {
		sort.Slice(entries, func(i, j int) bool { return entries[i].TeamID < entries[j].TeamID })
		r.shuffle.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	} else {
		sort.Slice(entries, func(i, j int) bool { return entries[i].TeamID < entries[j].TeamID })
	}

	groups := r.partition(entries)
	out := make([]domain.StandingEntry, 0, len(entries))
	for _, g := range groups {
		rank := len(out) + 1
		for _, e := range g {
			e.Rank = rank
			e.SubRank = rank - e.pointsStart
			out = append(out, e.StandingEntry)
		}
	}

	r.logger.Debug("standings computed",
		zap.Int("teams", len(out)),
		zap.Int("results", len(counted)),
		zap.String("method", string(r.method)))
	return out, nil
}

func (r *Ranker) validate() error {
	switch r.method {
	case domain.StandingsTotal, domain.StandingsAverage:
	default:
		return fmt.Errorf("%w: unknown standings method %q", domain.ErrInvalidInput, r.method)
	}
	for _, rule := range r.rules {
		if _, ok := metrics[rule]; !ok {
			return fmt.Errorf("%w: unknown tie-break rule %q", domain.ErrInvalidInput, rule)
		}
	}
	return nil
}

// partition repeatedly splits tied groups by the next metric. Within a
// final group the incoming order (team ID or shuffled) is preserved.
func (r *Ranker) partition(entries []*entry) [][]*entry {
	groups := [][]*entry{entries}
	keys := append([]domain.TieBreakRule{"points"}, r.rules...)

	for level, key := range keys {
		next := make([][]*entry, 0, len(groups))
		offset := 0
		for _, g := range groups {
			values := metricFor(key)(g)
			sort.SliceStable(g, func(i, j int) bool { return values[g[i]] > values[g[j]] })

			start := 0
			for i := 1; i <= len(g); i++ {
				if i == len(g) || values[g[i]] != values[g[start]] {
					sub := g[start:i]
					if level == 0 {
						for _, e := range sub {
							e.pointsStart = offset + start
						}
					}
					next = append(next, sub)
					start = i
				}
			}
			offset += len(g)
		}
		groups = next
	}
	return groups
}

type metric func(group []*entry) map[*entry]float64

var metrics = map[domain.TieBreakRule]metric{
	"points":                simple(func(e *entry) float64 { return e.Points }),
	domain.RuleSpeaks:       simple(func(e *entry) float64 { return e.SpeakerScore }),
	domain.RuleDrawStrength: simple(func(e *entry) float64 { return e.DrawStrength }),
	domain.RuleWins:         simple(func(e *entry) float64 { return float64(e.Wins) }),
	domain.RuleMargins:      simple(func(e *entry) float64 { return e.Margins }),
	domain.RuleWhoBeatWhom:  whoBeatWhom,
}

func metricFor(rule domain.TieBreakRule) metric { return metrics[rule] }

func simple(f func(*entry) float64) metric {
	return func(group []*entry) map[*entry]float64 {
		out := make(map[*entry]float64, len(group))
		for _, e := range group {
			out[e] = f(e)
		}
		return out
	}
}

// whoBeatWhom counts wins against the other members of the tied group.
func whoBeatWhom(group []*entry) map[*entry]float64 {
	out := make(map[*entry]float64, len(group))
	for _, e := range group {
		var wins int
		for _, other := range group {
			if other != e {
				wins += e.beat[other.TeamID]
			}
		}
		out[e] = float64(wins)
	}
	return out
}

func aggregate(results []domain.Result, method domain.StandingsMethod) map[string]*entry {
	totals := make(map[string]*entry)
	rounds := make(map[string]map[int]struct{})
	for _, res := range results {
		e, ok := totals[res.TeamID]
		if !ok {
			e = &entry{StandingEntry: domain.StandingEntry{TeamID: res.TeamID}, beat: map[string]int{}}
			totals[res.TeamID] = e
			rounds[res.TeamID] = make(map[int]struct{})
		}
		e.Points += res.Points
		e.SpeakerScore += res.SpeakerScore
		e.Margins += res.Margin
		if res.Win {
			e.Wins++
			if res.OpponentID != "" {
				e.beat[res.OpponentID]++
			}
		}
		rounds[res.TeamID][res.Round] = struct{}{}
	}
	for id, e := range totals {
		e.RoundsCounted = len(rounds[id])
		if method == domain.StandingsAverage && e.RoundsCounted > 0 {
			n := float64(e.RoundsCounted)
			e.Points /= n
			e.SpeakerScore /= n
			e.Margins /= n
		}
	}
	return totals
}

func drawStrength(teamID string, results []domain.Result, totals map[string]*entry) float64 {
	var sum float64
	for _, res := range results {
		if res.TeamID != teamID || res.OpponentID == "" {
			continue
		}
		if opp, ok := totals[res.OpponentID]; ok {
			sum += opp.Points
		}
	}
	return sum
}

// ByTeam indexes standings by team ID.
func ByTeam(entries []domain.StandingEntry) map[string]domain.StandingEntry {
	out := make(map[string]domain.StandingEntry, len(entries))
	for _, e := range entries {
		out[e.TeamID] = e
	}
	return out
}

// Format renders standings as aligned text, mostly for logs and the CLI.
func Format(entries []domain.StandingEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%3d  %-20s %6.2f %8.2f\n", e.Rank, e.TeamID, e.Points, e.SpeakerScore)
	}
	return b.String()
}
