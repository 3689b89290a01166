// Package draw pairs teams into debates for a round.
//
// A Generator runs each invocation through a fixed sequence of states:
// Idle, Bracketed, Paired, Validated and Emitted. Nothing persists between
// invocations; every call works from the Request it is given.
package draw

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/standings"
)

// Request carries everything needed to draw one round.
type Request struct {
	// Round is the sequence number of the round being drawn, starting at 1.
	Round int

	// Method overrides the configured draw method when set.
	Method domain.DrawMethod

	// Teams are the active teams, bye-type teams included.
	Teams []domain.Team

	// Results are confirmed results. Only results from earlier rounds are used.
	Results []domain.Result

	// SideAllocations pin teams to sides. Only entries for Round are used.
	SideAllocations []domain.SideAllocation

	// Manual holds operator-supplied pairings for DrawManual.
	Manual []domain.Pairing

	// Seeds lists breaking team IDs in break order for DrawFirstElimination.
	Seeds []string
}

// RequestFromSnapshot builds a Request for the snapshot's round.
func RequestFromSnapshot(s domain.Snapshot) Request {
	return Request{
		Round:           s.Round,
		Method:          s.Options.DrawMethod,
		Teams:           s.ActiveTeams(s.Round),
		Results:         s.ResultsBefore(s.Round),
		SideAllocations: s.SideAllocations,
	}
}

// Draw is the emitted output of a Generator.
type Draw struct {
	// RunID identifies this generation for logs and metrics.
	RunID string

	Round  int
	Method domain.DrawMethod

	// Seed is the random seed used, recorded so the draw can be reproduced.
	Seed int64

	// Pairings are ordered by room rank with byes last.
	Pairings []domain.Pairing
}

// PairingCount returns the number of pairings, byes included.
func (d *Draw) PairingCount() int { return len(d.Pairings) }

// VenuesRequired returns the number of pairings that need a room.
func (d *Draw) VenuesRequired() int {
	var n int
	for _, p := range d.Pairings {
		if !p.IsBye() {
			n++
		}
	}
	return n
}

// Flagged returns how many pairings carry each flag.
func (d *Draw) Flagged() map[domain.DrawFlag]int {
	out := make(map[domain.DrawFlag]int)
	for _, p := range d.Pairings {
		for _, f := range p.Flags {
			out[f]++
		}
	}
	return out
}

// Generator produces draws according to tournament options.
type Generator struct {
	opts   domain.Options
	logger *zap.Logger
}

// NewGenerator creates a Generator. A nil logger disables logging.
func NewGenerator(opts domain.Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{opts: opts, logger: logger}
}

// Generate draws one round. Structural problems (an odd pool with no bye
// mechanism, unsupported methods, bad manual pairings) are returned as
// errors; avoidance conflicts that cannot be swapped away are flagged on the
// affected pairings instead.
func (g *Generator) Generate(ctx context.Context, req Request) (*Draw, error) {
	if req.Round < 1 {
		return nil, fmt.Errorf("%w: round must be positive, got %d", domain.ErrInvalidInput, req.Round)
	}
	method := req.Method
	if method == "" {
		method = g.opts.DrawMethod
	}

	r := g.newRun(req)
	r.logger = r.logger.With(zap.String("method", string(method)))

	var (
		pairs []*pair
		err   error
	)
	switch method {
	case domain.DrawRandom:
		pairs, err = r.random()
	case domain.DrawPowerPaired:
		pairs, err = r.powerPaired(ctx)
	case domain.DrawRoundRobin:
		pairs, err = r.roundRobin()
	case domain.DrawManual:
		pairs, err = r.manual()
	case domain.DrawFirstElimination:
		pairs, err = r.firstElimination()
	case domain.DrawElimination:
		err = domain.NewDrawError(req.Round, "draw method %q is not supported", method)
	default:
		err = fmt.Errorf("%w: unknown draw method %q", domain.ErrInvalidInput, method)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("draw for round %d cancelled: %w", req.Round, err)
	}

	r.allocateSides(pairs)
	pairings := make([]domain.Pairing, 0, len(pairs))
	for _, p := range pairs {
		pairings = append(pairings, p.toPairing())
	}
	assignRoomRanks(pairings)

	expected := r.expectedTeams(method)
	if verr := validatePairings(pairings, expected); verr != nil {
		if method == domain.DrawManual {
			return nil, verr
		}
		return nil, domain.NewDrawError(req.Round, "generated draw is inconsistent: %v", verr)
	}
	r.advance(stateValidated)

	d := &Draw{
		RunID:    uuid.NewString(),
		Round:    req.Round,
		Method:   method,
		Seed:     r.seed,
		Pairings: pairings,
	}
	r.advance(stateEmitted)
	g.logger.Info("draw generated",
		zap.String("run_id", d.RunID),
		zap.Int("round", d.Round),
		zap.String("method", string(method)),
		zap.Int("pairings", d.PairingCount()),
		zap.Int("venues_required", d.VenuesRequired()),
		zap.Int64("seed", d.Seed))
	return d, nil
}

type state int

const (
	stateIdle state = iota
	stateBracketed
	statePaired
	stateValidated
	stateEmitted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateBracketed:
		return "bracketed"
	case statePaired:
		return "paired"
	case stateValidated:
		return "validated"
	case stateEmitted:
		return "emitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// seed is a team entering the draw with its current standing.
type seed struct {
	team     domain.Team
	standing domain.StandingEntry
	pulledUp bool
}

// pair is a pairing under construction. b is nil for an assigned bye and
// holds the bye-type team when one evens out the pool.
type pair struct {
	a, b       *seed
	bracket    float64
	flags      []domain.DrawFlag
	division   string
	fixedSides bool
}

func (p *pair) flag(f domain.DrawFlag) {
	if !slices.Contains(p.flags, f) {
		p.flags = append(p.flags, f)
	}
}

func (p *pair) isBye() bool { return p.b == nil || slices.Contains(p.flags, domain.FlagBye) }

func (p *pair) toPairing() domain.Pairing {
	out := domain.Pairing{
		Aff:        p.a.team.ID,
		Bracket:    p.bracket,
		Flags:      slices.Clone(p.flags),
		DivisionID: p.division,
	}
	if p.b != nil {
		out.Neg = p.b.team.ID
	}
	return out
}

func byePair(s *seed) *pair {
	return &pair{a: s, bracket: s.standing.Points, flags: []domain.DrawFlag{domain.FlagBye}, division: s.team.DivisionID}
}

// byeTeamMatch pairs s against a bye-type team. The debate needs no venue.
func byeTeamMatch(s, byeTeam *seed) *pair {
	p := byePair(s)
	p.b = byeTeam
	p.fixedSides = true
	return p
}

// run holds the state of one Generate call.
type run struct {
	opts    domain.Options
	round   int
	request Request
	seed    int64
	rng     *rand.Rand
	history domain.History
	pinned  map[string]domain.Side
	logger  *zap.Logger
	state   state

	// keepPairs disables side repair for schedules that fix the matchups.
	keepPairs bool

	// usedByeTeams holds bye-type teams already matched against a real team.
	usedByeTeams map[string]bool

	ranked func() ([]domain.StandingEntry, error)
}

func (g *Generator) newRun(req Request) *run {
	seedValue := g.opts.Seed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	seedValue += int64(req.Round)

	prior := make([]domain.Result, 0, len(req.Results))
	for _, res := range req.Results {
		if res.Round < req.Round {
			prior = append(prior, res)
		}
	}

	pinned := make(map[string]domain.Side)
	for _, sa := range req.SideAllocations {
		if sa.Round == req.Round {
			pinned[sa.TeamID] = sa.Side
		}
	}

	r := &run{
		opts:    g.opts,
		round:   req.Round,
		request: req,
		seed:    seedValue,
		rng:     rand.New(rand.NewSource(seedValue)),
		history: domain.NewHistory(prior),
		pinned:  pinned,
		logger:  g.logger.With(zap.Int("round", req.Round)),

		usedByeTeams: make(map[string]bool),
	}

	// Standings are computed at most once per invocation.
	r.ranked = sync.OnceValues(func() ([]domain.StandingEntry, error) {
		opts := append(standings.FromOptions(g.opts),
			standings.WithShuffle(r.rng),
			standings.WithLogger(r.logger))
		return standings.NewRanker(opts...).Rank(r.activeTeams(), prior)
	})
	return r
}

func (r *run) advance(next state) {
	r.logger.Debug("draw state transition",
		zap.Stringer("from", r.state),
		zap.Stringer("to", next))
	r.state = next
}

// activeTeams returns the non-bye teams in request order.
func (r *run) activeTeams() []domain.Team {
	out := make([]domain.Team, 0, len(r.request.Teams))
	for _, t := range r.request.Teams {
		if !t.IsBye() {
			out = append(out, t)
		}
	}
	return out
}

// rankedSeeds returns the active teams best first.
func (r *run) rankedSeeds() ([]*seed, error) {
	entries, err := r.ranked()
	if err != nil {
		return nil, fmt.Errorf("ranking teams for round %d: %w", r.round, err)
	}
	teams := make(map[string]domain.Team, len(r.request.Teams))
	for _, t := range r.request.Teams {
		teams[t.ID] = t
	}
	out := make([]*seed, 0, len(entries))
	for _, e := range entries {
		out = append(out, &seed{team: teams[e.TeamID], standing: e})
	}
	return out, nil
}

// byeTeamPairs gives every bye-type team not already matched its own
// pairing.
func (r *run) byeTeamPairs() []*pair {
	var out []*pair
	for _, t := range r.request.Teams {
		if t.IsBye() && !r.usedByeTeams[t.ID] {
			out = append(out, byePair(&seed{team: t, standing: domain.StandingEntry{TeamID: t.ID}}))
		}
	}
	return out
}

// takeByeTeam claims the first unmatched bye-type team, or returns nil.
func (r *run) takeByeTeam() *seed {
	for _, t := range r.request.Teams {
		if t.IsBye() && !r.usedByeTeams[t.ID] {
			r.usedByeTeams[t.ID] = true
			return &seed{team: t, standing: domain.StandingEntry{TeamID: t.ID}}
		}
	}
	return nil
}

// evenPool removes one team from an odd pool. The lowest-ranked team that
// has not yet had a bye is drawn against a bye-type team when one exists,
// and otherwise gets an assigned bye if byes are allowed.
func (r *run) evenPool(ranked []*seed) ([]*seed, *pair, error) {
	if len(ranked)%2 == 0 {
		return ranked, nil, nil
	}
	byeTeam := r.takeByeTeam()
	if byeTeam == nil && !r.opts.AllowBye {
		return nil, nil, domain.NewDrawError(r.round, "odd number of eligible teams (%d) and no bye mechanism configured", len(ranked))
	}
	idx := len(ranked) - 1
	for i := len(ranked) - 1; i >= 0; i-- {
		if !ranked[i].team.HadBye {
			idx = i
			break
		}
	}

	bye := byePair(ranked[idx])
	if byeTeam != nil {
		bye = byeTeamMatch(ranked[idx], byeTeam)
		r.logger.Info("drew team against bye team",
			zap.String("team", ranked[idx].team.ID),
			zap.String("bye_team", byeTeam.team.ID))
	} else {
		r.logger.Info("assigned bye", zap.String("team", ranked[idx].team.ID))
	}
	return slices.Delete(slices.Clone(ranked), idx, idx+1), bye, nil
}

// expectedTeams returns the team IDs that must each appear exactly once.
func (r *run) expectedTeams(method domain.DrawMethod) []string {
	if method == domain.DrawFirstElimination {
		return slices.Clone(r.request.Seeds)
	}
	out := make([]string, 0, len(r.request.Teams))
	for _, t := range r.request.Teams {
		out = append(out, t.ID)
	}
	return out
}

// validatePairings checks that every expected team appears in exactly one
// pairing and nothing else does.
func validatePairings(pairings []domain.Pairing, expected []string) error {
	verr := domain.NewValidationError("draw")
	want := make(map[string]bool, len(expected))
	for _, id := range expected {
		want[id] = false
	}
	for i, p := range pairings {
		if p.Aff == "" {
			verr.AddErrorf("pairing %d has no affirmative team", i)
			continue
		}
		if p.Aff == p.Neg {
			verr.AddErrorf("team %s paired against itself", p.Aff)
		}
		for _, id := range p.Teams() {
			seen, ok := want[id]
			switch {
			case !ok:
				verr.AddErrorf("team %s is not in the draw pool", id)
			case seen:
				verr.AddErrorf("team %s appears in more than one pairing", id)
			default:
				want[id] = true
			}
		}
	}
	for _, id := range expected {
		if !want[id] {
			verr.AddErrorf("team %s is missing from the draw", id)
		}
	}
	return verr.Err()
}

// assignRoomRanks orders pairings by bracket, highest first, and numbers them
// from 1. Byes go last with room rank 0.
func assignRoomRanks(pairings []domain.Pairing) {
	slices.SortStableFunc(pairings, func(x, y domain.Pairing) int {
		xb, yb := x.IsBye(), y.IsBye()
		switch {
		case xb != yb:
			if xb {
				return 1
			}
			return -1
		case x.Bracket > y.Bracket:
			return -1
		case x.Bracket < y.Bracket:
			return 1
		}
		return 0
	})
	rank := 0
	for i := range pairings {
		if pairings[i].IsBye() {
			pairings[i].RoomRank = 0
			continue
		}
		rank++
		pairings[i].RoomRank = rank
	}
}
