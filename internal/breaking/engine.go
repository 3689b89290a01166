// Package breaking computes which teams qualify for elimination rounds in
// each break category.
package breaking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/standings"
)

// Engine computes breaks from tournament snapshots. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// CategoryBreak is the computed break for one category.
type CategoryBreak struct {
	Category domain.BreakCategory

	// Teams holds every walked team in rank order, breaking or not, followed
	// by any manual overrides the walk did not reach.
	Teams []domain.BreakingTeam
}

// Breaking returns the IDs of teams in the break.
func (c CategoryBreak) Breaking() []string {
	var out []string
	for _, bt := range c.Teams {
		if bt.Breaking() {
			out = append(out, bt.TeamID)
		}
	}
	return out
}

// ComputeBreak computes the break for a single category. higherBroken holds
// the teams already in the break of a strictly higher-priority category; it
// is only read.
func (e *Engine) ComputeBreak(cat domain.BreakCategory, snap domain.Snapshot, higherBroken map[string]struct{}) (CategoryBreak, error) {
	if err := ValidateCategories([]domain.BreakCategory{cat}); err != nil {
		return CategoryBreak{}, err
	}
	return e.computeBreak(cat, snap, higherBroken)
}

func (e *Engine) computeBreak(cat domain.BreakCategory, snap domain.Snapshot, higherBroken map[string]struct{}) (CategoryBreak, error) {
	logger := e.logger.With(zap.String("category", cat.ID))

	pool := make([]domain.Team, 0, len(snap.Teams))
	for _, t := range snap.Teams {
		if t.IsBye() {
			continue
		}
		// General categories rank the whole tournament so that opted-out
		// teams still hold their place in the ranking.
		if cat.IsGeneral || t.EligibleIn(cat) {
			pool = append(pool, t)
		}
	}
	teams := make(map[string]domain.Team, len(pool))
	for _, t := range pool {
		teams[t.ID] = t
	}

	ranked, err := standings.NewRanker(standings.FromOptions(snap.Options)...).Rank(pool, snap.Results)
	if err != nil {
		return CategoryBreak{}, fmt.Errorf("ranking teams for break category %s: %w", cat.ID, err)
	}

	manual := make(map[string]domain.BreakingTeam)
	for _, bt := range snap.BreakingTeams {
		if bt.CategoryID == cat.ID && bt.IsManual() {
			manual[bt.TeamID] = bt
		}
	}

	w := newWalk(cat, capRuleFor(cat, snap.Options))
	for _, entry := range ranked {
		if w.done(entry) {
			break
		}
		team := teams[entry.TeamID]
		bt := domain.BreakingTeam{CategoryID: cat.ID, TeamID: team.ID, Rank: entry.Rank}

		if prior, ok := manual[team.ID]; ok {
			bt.Outcome = prior.Outcome
			delete(manual, team.ID)
			w.record(bt, team)
			continue
		}

		// A team already in a higher tier's break is never marked capped.
		_, brokeHigher := higherBroken[team.ID]
		switch {
		case !team.EligibleIn(cat):
			bt.Outcome = domain.Automatic{Code: domain.RemarkIneligible}
		case brokeHigher:
			bt.Outcome = domain.Automatic{Code: domain.RemarkDifferentBreak}
		case w.capped(team, entry.Rank):
			bt.Outcome = domain.Automatic{Code: domain.RemarkCapped}
		default:
			bt.Outcome = domain.Automatic{}
			bt.BreakRank = domain.IntPtr(w.admit(team, entry.Rank))
		}
		w.record(bt, team)
	}
	w.backfill()

	out := w.teams
	rest := make([]domain.BreakingTeam, 0, len(manual))
	for _, bt := range manual {
		bt.BreakRank = nil
		rest = append(rest, bt)
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].Rank != rest[j].Rank {
			return rest[i].Rank < rest[j].Rank
		}
		return rest[i].TeamID < rest[j].TeamID
	})
	out = append(out, rest...)

	result := CategoryBreak{Category: cat, Teams: out}
	logger.Debug("break computed",
		zap.Int("ranked", len(ranked)),
		zap.Int("walked", len(w.teams)),
		zap.Int("breaking", w.admitted),
		zap.Int("backfilled", w.backfilled))
	return result, nil
}

// capRuleFor resolves the effective cap rule for a category. A category
// without a cap is never capped; one with a cap but no rule of its own falls
// back to the tournament rule, and to a flat cap when that is unset.
func capRuleFor(cat domain.BreakCategory, opts domain.Options) domain.CapRule {
	if cat.InstitutionCap == nil {
		return domain.CapRuleNone
	}
	if cat.CapRule != "" {
		return cat.CapRule
	}
	if opts.InstitutionCapRule == domain.CapRuleAIDA2016 {
		return domain.CapRuleAIDA2016
	}
	return domain.CapRuleFlat
}

// walk carries the running state of a single category computation.
type walk struct {
	cat  domain.BreakCategory
	rule domain.CapRule

	teams        []domain.BreakingTeam
	institutions []string // parallel to teams
	perInst      map[string]int

	admitted   int
	seq        int
	lastRank   int
	breakRank  int
	backfilled int
}

func newWalk(cat domain.BreakCategory, rule domain.CapRule) *walk {
	return &walk{cat: cat, rule: rule, perInst: make(map[string]int)}
}

// done reports whether the walk should stop before entry. A full break
// still takes every team tied with the last admitted one. Under the AIDA
// 2016 rule the walk also stops once points drop below the floor.
func (w *walk) done(entry domain.StandingEntry) bool {
	newGroup := len(w.teams) == 0 || entry.Rank != w.teams[len(w.teams)-1].Rank
	if !newGroup {
		return false
	}
	if w.admitted >= w.cat.BreakSize {
		return true
	}
	return w.rule == domain.CapRuleAIDA2016 && entry.Points < w.cat.Floor()
}

// capped reports whether admitting team would exceed its institution's cap.
func (w *walk) capped(team domain.Team, rank int) bool {
	if w.rule == domain.CapRuleNone || w.cat.InstitutionCap == nil || team.InstitutionID == "" {
		return false
	}
	limit := *w.cat.InstitutionCap
	if w.rule == domain.CapRuleAIDA2016 && rank > w.cat.BreakSize {
		limit = 1
	}
	return w.perInst[team.InstitutionID] >= limit
}

// admit counts team into the break and returns its break rank: the sequence
// number of the first admitted team in its tie group.
func (w *walk) admit(team domain.Team, rank int) int {
	w.seq++
	w.admitted++
	if rank != w.lastRank || w.breakRank == 0 {
		w.breakRank = w.seq
		w.lastRank = rank
	}
	if team.InstitutionID != "" {
		w.perInst[team.InstitutionID]++
	}
	return w.breakRank
}

func (w *walk) record(bt domain.BreakingTeam, team domain.Team) {
	w.teams = append(w.teams, bt)
	w.institutions = append(w.institutions, team.InstitutionID)
}

// backfill promotes capped teams, best first, while the break is short.
// Promoted teams continue the break rank sequence.
func (w *walk) backfill() {
	lastRank := -1
	for i := range w.teams {
		if w.admitted >= w.cat.BreakSize {
			return
		}
		bt := &w.teams[i]
		if bt.IsManual() || bt.Remark() != domain.RemarkCapped {
			continue
		}
		w.seq++
		w.admitted++
		w.backfilled++
		if bt.Rank != lastRank {
			w.breakRank = w.seq
			lastRank = bt.Rank
		}
		bt.Outcome = domain.Automatic{}
		bt.BreakRank = domain.IntPtr(w.breakRank)
		if inst := w.institutions[i]; inst != "" {
			w.perInst[inst]++
		}
	}
}

// Result is the outcome of computing every category.
type Result struct {
	// Categories are ordered by priority, then sequence.
	Categories []CategoryBreak
}

// Category returns the break for one category.
func (r *Result) Category(id string) (CategoryBreak, bool) {
	for _, c := range r.Categories {
		if c.Category.ID == id {
			return c, true
		}
	}
	return CategoryBreak{}, false
}

// ComputeAllBreaks computes every category in the snapshot. Categories are
// processed in ascending priority tiers. Categories sharing a priority are
// computed concurrently against the same frozen exclusion set, so a team may
// break in several of them; a team that breaks in a tier is excluded from
// every later tier.
func (e *Engine) ComputeAllBreaks(ctx context.Context, snap domain.Snapshot) (*Result, error) {
	if err := ValidateCategories(snap.Categories); err != nil {
		return nil, err
	}

	cats := append([]domain.BreakCategory(nil), snap.Categories...)
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Priority != cats[j].Priority {
			return cats[i].Priority < cats[j].Priority
		}
		if cats[i].Seq != cats[j].Seq {
			return cats[i].Seq < cats[j].Seq
		}
		return cats[i].ID < cats[j].ID
	})

	res := &Result{Categories: make([]CategoryBreak, len(cats))}
	excluded := make(map[string]struct{})

	for start := 0; start < len(cats); {
		end := start
		for end < len(cats) && cats[end].Priority == cats[start].Priority {
			end++
		}

		var (
			mu     sync.Mutex
			broken []string
		)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cb, err := e.computeBreak(cats[i], snap, excluded)
				if err != nil {
					return err
				}
				res.Categories[i] = cb

				mu.Lock()
				broken = append(broken, cb.Breaking()...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("computing priority %d breaks: %w", cats[start].Priority, err)
		}

		for _, id := range broken {
			excluded[id] = struct{}{}
		}
		e.logger.Debug("break tier computed",
			zap.Int("priority", cats[start].Priority),
			zap.Int("categories", end-start),
			zap.Int("excluded_total", len(excluded)))
		start = end
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("break computation cancelled: %w", err)
	}
	return res, nil
}

// ValidateCategories checks category configuration before any break is
// computed.
func ValidateCategories(cats []domain.BreakCategory) error {
	verr := domain.NewValidationError("break categories")
	ids := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		if c.ID == "" {
			verr.AddErrorf("category %q has no ID", c.Name)
			continue
		}
		if _, dup := ids[c.ID]; dup {
			verr.AddErrorf("category %s is defined more than once", c.ID)
		}
		ids[c.ID] = struct{}{}

		if c.BreakSize < 1 {
			verr.AddErrorf("category %s: break size must be positive, got %d", c.ID, c.BreakSize)
		}
		if c.Priority < 0 {
			verr.AddErrorf("category %s: priority must not be negative, got %d", c.ID, c.Priority)
		}
		if c.InstitutionCap != nil && *c.InstitutionCap < 1 {
			verr.AddErrorf("category %s: institution cap must be positive, got %d", c.ID, *c.InstitutionCap)
		}
		if c.PointsFloor < 0 {
			verr.AddErrorf("category %s: points floor must not be negative", c.ID)
		}
		switch c.CapRule {
		case "", domain.CapRuleNone:
		case domain.CapRuleFlat, domain.CapRuleAIDA2016:
			if c.InstitutionCap == nil {
				verr.AddErrorf("category %s: cap rule %s needs an institution cap", c.ID, c.CapRule)
			}
		default:
			verr.AddErrorf("category %s: unknown cap rule %q", c.ID, c.CapRule)
		}
	}
	return verr.Err()
}
