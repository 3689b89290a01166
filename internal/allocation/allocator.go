// Package allocation assigns adjudicators to debates.
//
// Chairs are placed by an exact assignment over importance-weighted scores,
// panel seats are filled one assignment layer at a time, and a bounded local
// search then tries pairwise swaps. Declared conflicts are hard constraints
// at every stage. The returned allocation never scores below the naive
// best-adjudicator-to-best-room baseline.
package allocation

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// Role weights applied to an adjudicator's score.
const (
	ChairWeight = 1.0
	PanelWeight = 0.5
)

// Request is the input to one allocation.
type Request struct {
	// TournamentID restricts the pool to the tournament's own adjudicators
	// unless adjudicators are shared.
	TournamentID string

	Debates      []domain.Debate
	Teams        []domain.Team
	Adjudicators []domain.Adjudicator
}

// Result is an allocation together with the conditions the caller should
// surface.
type Result struct {
	// Allocations holds one entry per non-bye debate, in input order.
	Allocations []domain.AdjudicatorAllocation

	// Objective is the score of the returned allocation; Baseline is the
	// score of the naive allocation it was compared against.
	Objective float64
	Baseline  float64

	// Shortfall is an *domain.InsufficientResourcesError when there are fewer
	// accredited adjudicators than debates, nil otherwise.
	Shortfall error

	// Invalid lists debates whose allocation lacks a chair or has an odd
	// panel.
	Invalid []string
}

// ByDebate indexes the allocations by debate ID.
func (r *Result) ByDebate() map[string]domain.AdjudicatorAllocation {
	out := make(map[string]domain.AdjudicatorAllocation, len(r.Allocations))
	for _, a := range r.Allocations {
		out[a.DebateID] = a
	}
	return out
}

// Allocator allocates adjudicators according to tournament options.
type Allocator struct {
	opts   domain.Options
	logger *zap.Logger
}

// NewAllocator creates an Allocator. A nil logger disables logging.
func NewAllocator(opts domain.Options, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PanelSize < 0 {
		opts.PanelSize = 0
	}
	return &Allocator{opts: opts, logger: logger}
}

// Allocate builds an allocation for the request's debates. A shortage of
// adjudicators is reported in Result.Shortfall rather than as an error.
func (a *Allocator) Allocate(ctx context.Context, req Request) (*Result, error) {
	p, err := a.newProblem(req)
	if err != nil {
		return nil, err
	}

	best := p.solve()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("allocation cancelled: %w", err)
	}
	iterations, err := p.improve(ctx, best, a.opts.AllocationIterations)
	if err != nil {
		return nil, err
	}

	baseline := p.baseline()
	objective, baseScore := p.objective(best), p.objective(baseline)
	if baseScore > objective {
		a.logger.Debug("baseline allocation outscored the optimizer",
			zap.Float64("objective", objective),
			zap.Float64("baseline", baseScore))
		best, objective = baseline, baseScore
	}
	p.assignTrainees(best)

	res := &Result{Objective: objective, Baseline: baseScore}
	for d := range p.debates {
		alloc := p.toAllocation(best, d)
		if !alloc.Valid() {
			res.Invalid = append(res.Invalid, alloc.DebateID)
		}
		res.Allocations = append(res.Allocations, alloc)
	}
	if accredited := p.accredited(); accredited < len(p.debates) {
		res.Shortfall = &domain.InsufficientResourcesError{
			Resource:  "adjudicators",
			Needed:    len(p.debates),
			Available: accredited,
		}
		a.logger.Warn("fewer accredited adjudicators than debates",
			zap.Int("debates", len(p.debates)),
			zap.Int("adjudicators", accredited))
	}

	a.logger.Info("adjudicators allocated",
		zap.Int("debates", len(p.debates)),
		zap.Int("adjudicators", len(p.adjs)),
		zap.Float64("objective", res.Objective),
		zap.Float64("baseline", res.Baseline),
		zap.Int("swaps", iterations),
		zap.Int("invalid", len(res.Invalid)))
	return res, nil
}

// debateInfo is a debate with its teams resolved and its importance weight.
type debateInfo struct {
	debate domain.Debate
	teams  []domain.Team
	weight float64
}

// problem is the precomputed, read-only view of one allocation.
type problem struct {
	opts     domain.Options
	debates  []debateInfo
	adjs     []domain.Adjudicator
	scores   []float64
	conflict [][]bool // adjudicator x debate
	clash    [][]bool // adjudicator x adjudicator
	order    []int    // debates by weight, most important first
}

func (a *Allocator) newProblem(req Request) (*problem, error) {
	teams := make(map[string]domain.Team, len(req.Teams))
	for _, t := range req.Teams {
		teams[t.ID] = t
	}

	verr := domain.NewValidationError("allocation")
	p := &problem{opts: a.opts}
	for _, d := range req.Debates {
		if d.Neg == "" {
			continue
		}
		info := debateInfo{debate: d}
		for _, id := range d.Teams() {
			t, ok := teams[id]
			if !ok {
				verr.AddErrorf("debate %s references unknown team %q", d.ID, id)
				continue
			}
			info.teams = append(info.teams, t)
		}
		p.debates = append(p.debates, info)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	p.weighDebates()

	for _, adj := range req.Adjudicators {
		if !a.opts.ShareAdjs && req.TournamentID != "" && adj.TournamentID != "" && adj.TournamentID != req.TournamentID {
			continue
		}
		p.adjs = append(p.adjs, adj)
	}
	sort.Slice(p.adjs, func(i, j int) bool { return p.adjs[i].ID < p.adjs[j].ID })

	p.scores = make([]float64, len(p.adjs))
	p.conflict = make([][]bool, len(p.adjs))
	p.clash = make([][]bool, len(p.adjs))
	for i, adj := range p.adjs {
		p.scores[i] = adj.Score(a.opts.FeedbackWeight)
		p.conflict[i] = make([]bool, len(p.debates))
		for d, info := range p.debates {
			for _, t := range info.teams {
				if adj.ConflictsWith(t) {
					p.conflict[i][d] = true
				}
			}
		}
		p.clash[i] = make([]bool, len(p.adjs))
		for j, other := range p.adjs {
			p.clash[i][j] = i != j && adj.ConflictsWithAdjudicator(other)
		}
	}
	return p, nil
}

// weighDebates sets each debate's importance weight. An explicit importance
// is used as is; otherwise the weight runs from 1 for the lowest bracket to 2
// for the highest.
func (p *problem) weighDebates() {
	lo, hi := 0.0, 0.0
	for i, d := range p.debates {
		if i == 0 || d.debate.Bracket < lo {
			lo = d.debate.Bracket
		}
		if i == 0 || d.debate.Bracket > hi {
			hi = d.debate.Bracket
		}
	}
	for i := range p.debates {
		d := &p.debates[i]
		switch {
		case d.debate.Importance > 0:
			d.weight = float64(d.debate.Importance)
		case hi > lo:
			d.weight = 1 + (d.debate.Bracket-lo)/(hi-lo)
		default:
			d.weight = 1
		}
	}

	p.order = make([]int, len(p.debates))
	for i := range p.order {
		p.order[i] = i
	}
	sort.SliceStable(p.order, func(i, j int) bool {
		di, dj := p.debates[p.order[i]], p.debates[p.order[j]]
		if di.weight != dj.weight {
			return di.weight > dj.weight
		}
		return di.debate.RoomRank < dj.debate.RoomRank
	})
}

func (p *problem) accredited() int {
	var n int
	for _, adj := range p.adjs {
		if !adj.Novice {
			n++
		}
	}
	return n
}

// state is a mutable allocation over problem indices; -1 means empty.
type state struct {
	chair    []int
	panel    [][]int
	trainees [][]int
}

func newState(debates int) *state {
	s := &state{
		chair:    filled(debates, -1),
		panel:    make([][]int, debates),
		trainees: make([][]int, debates),
	}
	return s
}

// assigned reports which adjudicators hold a voting seat.
func (s *state) assigned(n int) []bool {
	out := make([]bool, n)
	for d, c := range s.chair {
		if c >= 0 {
			out[c] = true
		}
		for _, x := range s.panel[d] {
			out[x] = true
		}
	}
	return out
}

// vote is the value of adjudicator a voting in debate d with role weight w.
func (p *problem) vote(d, a int, w float64) float64 {
	v := p.debates[d].weight * p.scores[a] * w
	for _, t := range p.debates[d].teams {
		v -= p.opts.AdjTeamHistoryPenalty * float64(p.adjs[a].SeenTeams[t.ID])
	}
	return v
}

// debateValue scores one debate's voting panel.
func (p *problem) debateValue(d, chair int, panel []int) float64 {
	var v float64
	voting := make([]int, 0, len(panel)+1)
	if chair >= 0 {
		v += p.vote(d, chair, ChairWeight)
		voting = append(voting, chair)
	}
	for _, x := range panel {
		v += p.vote(d, x, PanelWeight)
	}
	voting = append(voting, panel...)
	for i := range voting {
		for j := i + 1; j < len(voting); j++ {
			seen := p.adjs[voting[i]].SeenAdjudicators[p.adjs[voting[j]].ID]
			v -= p.opts.AdjAdjHistoryPenalty * float64(seen)
		}
	}
	return v
}

// feasible reports whether a voting panel respects every hard constraint.
func (p *problem) feasible(d, chair int, panel []int) bool {
	voting := make([]int, 0, len(panel)+1)
	if chair >= 0 {
		voting = append(voting, chair)
	}
	voting = append(voting, panel...)
	for i, a := range voting {
		if p.conflict[a][d] {
			return false
		}
		for _, b := range voting[i+1:] {
			if a == b || p.clash[a][b] {
				return false
			}
		}
	}
	return true
}

func (p *problem) objective(s *state) float64 {
	var total float64
	for d := range p.debates {
		total += p.debateValue(d, s.chair[d], s.panel[d])
	}
	return total
}

// solve places chairs and then each panel seat by minimum-cost assignment.
func (p *problem) solve() *state {
	s := newState(len(p.debates))
	if len(p.debates) == 0 {
		return s
	}

	candidates := p.free(s)
	cost := make([][]float64, len(p.debates))
	for d := range p.debates {
		cost[d] = make([]float64, len(candidates))
		for c, a := range candidates {
			if p.conflict[a][d] {
				cost[d][c] = forbidden
				continue
			}
			cost[d][c] = -p.vote(d, a, ChairWeight)
		}
	}
	for d, c := range hungarian(cost) {
		if c >= 0 && cost[d][c] < forbidden {
			s.chair[d] = candidates[c]
		}
	}

	for seat := 0; seat < p.opts.PanelSize; seat++ {
		candidates = p.free(s)
		if len(candidates) == 0 {
			break
		}
		var rows []int
		for d := range p.debates {
			if s.chair[d] >= 0 {
				rows = append(rows, d)
			}
		}
		if len(rows) == 0 {
			break
		}
		cost = make([][]float64, len(rows))
		for r, d := range rows {
			cost[r] = make([]float64, len(candidates))
			current := p.debateValue(d, s.chair[d], s.panel[d])
			for c, a := range candidates {
				panel := append(slices.Clone(s.panel[d]), a)
				if !p.feasible(d, s.chair[d], panel) {
					cost[r][c] = forbidden
					continue
				}
				cost[r][c] = current - p.debateValue(d, s.chair[d], panel)
			}
		}
		for r, c := range hungarian(cost) {
			if c >= 0 && cost[r][c] < forbidden {
				d := rows[r]
				s.panel[d] = append(s.panel[d], candidates[c])
			}
		}
	}
	return s
}

// free returns unallocated accredited adjudicators in ID order.
func (p *problem) free(s *state) []int {
	used := s.assigned(len(p.adjs))
	var out []int
	for i, adj := range p.adjs {
		if !used[i] && !adj.Novice {
			out = append(out, i)
		}
	}
	return out
}

// baseline is the naive allocation: adjudicators sorted by score, best first,
// each placed in the most important debate still needing them.
func (p *problem) baseline() *state {
	s := newState(len(p.debates))
	ranked := make([]int, 0, len(p.adjs))
	for i, adj := range p.adjs {
		if !adj.Novice {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return p.scores[ranked[i]] > p.scores[ranked[j]] })

	used := make([]bool, len(p.adjs))
	take := func(d int, ok func(a int) bool) int {
		for _, a := range ranked {
			if !used[a] && ok(a) {
				used[a] = true
				return a
			}
		}
		return -1
	}

	for _, d := range p.order {
		s.chair[d] = take(d, func(a int) bool { return !p.conflict[a][d] })
	}
	for seat := 0; seat < p.opts.PanelSize; seat++ {
		for _, d := range p.order {
			if s.chair[d] < 0 {
				continue
			}
			a := take(d, func(a int) bool {
				return p.feasible(d, s.chair[d], append(slices.Clone(s.panel[d]), a))
			})
			if a >= 0 {
				s.panel[d] = append(s.panel[d], a)
			}
		}
	}
	return s
}

// assignTrainees spreads novices over the most important debates, best
// novice first, skipping debates they conflict with.
func (p *problem) assignTrainees(s *state) {
	var novices []int
	for i, adj := range p.adjs {
		if adj.Novice {
			novices = append(novices, i)
		}
	}
	sort.SliceStable(novices, func(i, j int) bool { return p.scores[novices[i]] > p.scores[novices[j]] })
	if len(p.order) == 0 {
		return
	}

	next := 0
	for _, n := range novices {
		for tries := 0; tries < len(p.order); tries++ {
			d := p.order[(next+tries)%len(p.order)]
			if !p.traineeFits(s, d, n) {
				continue
			}
			s.trainees[d] = append(s.trainees[d], n)
			next = (next + tries + 1) % len(p.order)
			break
		}
	}
}

func (p *problem) traineeFits(s *state, d, n int) bool {
	if p.conflict[n][d] {
		return false
	}
	panel := append([]int{}, s.panel[d]...)
	panel = append(panel, s.trainees[d]...)
	if s.chair[d] >= 0 {
		panel = append(panel, s.chair[d])
	}
	for _, x := range panel {
		if p.clash[n][x] {
			return false
		}
	}
	return true
}

func (p *problem) toAllocation(s *state, d int) domain.AdjudicatorAllocation {
	out := domain.AdjudicatorAllocation{
		DebateID: p.debates[d].debate.ID,
		Panel:    make([]string, 0, len(s.panel[d])),
		Trainees: make([]string, 0, len(s.trainees[d])),
	}
	if c := s.chair[d]; c >= 0 {
		out.Chair = p.adjs[c].ID
	}
	for _, x := range s.panel[d] {
		out.Panel = append(out.Panel, p.adjs[x].ID)
	}
	for _, x := range s.trainees[d] {
		out.Trainees = append(out.Trainees, p.adjs[x].ID)
	}
	return out
}
