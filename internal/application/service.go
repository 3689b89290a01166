package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/allocation"
	"github.com/ahrav/go-tabroom/internal/breaking"
	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/draw"
	"github.com/ahrav/go-tabroom/internal/ports"
	"github.com/ahrav/go-tabroom/internal/standings"
)

// Report keys. The middleware records gauges under these metric names.
const (
	gaugePairings        = "pairings"
	gaugeBreakingTeams   = "breaking_teams"
	gaugeAllocationScore = "allocation_objective"
	gaugeAdjShortfall    = "adjudicator_shortfall"
	gaugeInvalidPanels   = "invalid_panels"
)

// Tabulator runs the tournament engines against a store. Each method loads a
// fresh snapshot, runs one engine and persists the outcome only when the
// engine succeeds and the context is still live.
type Tabulator struct {
	store  ports.Store
	guard  ports.OperationGuard
	logger *zap.Logger
}

// NewTabulator creates a Tabulator. A nil logger disables logging.
func NewTabulator(store ports.Store, guard ports.OperationGuard, logger *zap.Logger) *Tabulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tabulator{store: store, guard: guard, logger: logger}
}

// ImportRoster stores a compiled tournament.
func (t *Tabulator) ImportRoster(ctx context.Context, tour *Tournament) error {
	if err := t.store.ImportRoster(ctx, tour.Name, tour.Snapshot); err != nil {
		return fmt.Errorf("importing %s: %w", tour.Snapshot.TournamentID, err)
	}
	t.logger.Info("roster imported",
		zap.String("tournament", tour.Snapshot.TournamentID),
		zap.Int("teams", len(tour.Snapshot.Teams)),
		zap.Int("adjudicators", len(tour.Snapshot.Adjudicators)),
		zap.Int("results", len(tour.Snapshot.Results)))
	return nil
}

// Standings ranks the tournament's teams on results up to and including
// afterRound. Zero ranks on every result.
func (t *Tabulator) Standings(ctx context.Context, tournamentID string, afterRound int) ([]domain.StandingEntry, error) {
	snap, err := t.store.LoadSnapshot(ctx, tournamentID, afterRound+1)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", tournamentID, err)
	}

	opts := append(standings.FromOptions(snap.Options),
		standings.UpToRound(afterRound),
		standings.WithLogger(t.logger))
	entries, err := standings.NewRanker(opts...).Rank(rankable(snap.Teams), snap.Results)
	if err != nil {
		return nil, fmt.Errorf("ranking %s: %w", tournamentID, err)
	}
	return entries, nil
}

// DrawOutcome is a persisted draw.
type DrawOutcome struct {
	Draw    *draw.Draw
	Debates []domain.Debate
}

// GenerateDraw draws a round and replaces its stored debates. Manual
// pairings are used by the manual draw method only. A second draw of the
// same round while one is running fails with domain.ErrOperationInProgress.
func (t *Tabulator) GenerateDraw(ctx context.Context, tournamentID string, round int, manual []domain.Pairing) (*DrawOutcome, error) {
	op := ports.Operation{Name: "draw", TournamentID: tournamentID, Round: round}

	var out *DrawOutcome
	err := t.guard.Exclusive(ctx, op, func(ctx context.Context) (ports.OperationReport, error) {
		snap, err := t.store.LoadSnapshot(ctx, tournamentID, round)
		if err != nil {
			return ports.OperationReport{}, fmt.Errorf("loading %s: %w", tournamentID, err)
		}

		req := draw.RequestFromSnapshot(snap)
		req.Manual = manual
		if req.Method == domain.DrawFirstElimination {
			req.Seeds = breakSeeds(snap)
		}

		d, err := draw.NewGenerator(snap.Options, t.logger).Generate(ctx, req)
		if err != nil {
			return ports.OperationReport{}, err
		}
		debates, err := d.Debates(snap.ActiveVenues(round))
		if err != nil {
			return ports.OperationReport{}, err
		}
		if err := ctx.Err(); err != nil {
			return ports.OperationReport{}, fmt.Errorf("draw for round %d cancelled: %w", round, err)
		}
		if err := t.store.SaveDebates(ctx, tournamentID, round, debates); err != nil {
			return ports.OperationReport{}, fmt.Errorf("saving draw: %w", err)
		}

		out = &DrawOutcome{Draw: d, Debates: debates}
		counters := make(map[string]float64)
		for flag, n := range d.Flagged() {
			counters[string(flag)] = float64(n)
		}
		return ports.OperationReport{
			Gauges:   map[string]float64{gaugePairings: float64(d.PairingCount())},
			Counters: counters,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllocateAdjudicators allocates adjudicators to a drawn round and stores
// the allocation. It fails with domain.ErrNotFound when the round has no
// debates. A shortage of adjudicators is logged and reported in the result.
func (t *Tabulator) AllocateAdjudicators(ctx context.Context, tournamentID string, round int) (*allocation.Result, error) {
	op := ports.Operation{Name: "allocate", TournamentID: tournamentID, Round: round}

	var out *allocation.Result
	err := t.guard.Exclusive(ctx, op, func(ctx context.Context) (ports.OperationReport, error) {
		snap, err := t.store.LoadSnapshot(ctx, tournamentID, round)
		if err != nil {
			return ports.OperationReport{}, fmt.Errorf("loading %s: %w", tournamentID, err)
		}
		if len(snap.Debates) == 0 {
			return ports.OperationReport{}, fmt.Errorf("round %d of %s has no debates: %w", round, tournamentID, domain.ErrNotFound)
		}

		res, err := allocation.NewAllocator(snap.Options, t.logger).Allocate(ctx, allocation.Request{
			TournamentID: snap.TournamentID,
			Debates:      snap.Debates,
			Teams:        snap.Teams,
			Adjudicators: snap.ActiveAdjudicators(round),
		})
		if err != nil {
			return ports.OperationReport{}, err
		}
		if err := ctx.Err(); err != nil {
			return ports.OperationReport{}, fmt.Errorf("allocation for round %d cancelled: %w", round, err)
		}
		if err := t.store.SaveAllocations(ctx, res.Allocations); err != nil {
			return ports.OperationReport{}, fmt.Errorf("saving allocation: %w", err)
		}

		out = res
		rep := ports.OperationReport{Gauges: map[string]float64{
			gaugeAllocationScore: res.Objective,
			gaugeInvalidPanels:   float64(len(res.Invalid)),
			gaugeAdjShortfall:    0,
		}}
		var short *domain.InsufficientResourcesError
		if errors.As(res.Shortfall, &short) {
			rep.Gauges[gaugeAdjShortfall] = float64(short.Needed - short.Available)
		}
		return rep, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetAvailability replaces the check-ins of one round. Draws and
// allocations of that round only consider the members checked in.
func (t *Tabulator) SetAvailability(ctx context.Context, tournamentID string, av domain.RoundAvailability) error {
	if av.Round < 1 {
		return fmt.Errorf("%w: round must be positive, got %d", domain.ErrInvalidInput, av.Round)
	}
	op := ports.Operation{Name: "availability", TournamentID: tournamentID, Round: av.Round}
	return t.guard.Serialize(ctx, op, func(ctx context.Context) (ports.OperationReport, error) {
		if err := t.store.SetAvailability(ctx, tournamentID, av); err != nil {
			return ports.OperationReport{}, fmt.Errorf("setting availability for round %d: %w", av.Round, err)
		}
		t.logger.Info("availability set",
			zap.String("tournament", tournamentID),
			zap.Int("round", av.Round),
			zap.Int("teams", len(av.Teams)),
			zap.Int("adjudicators", len(av.Adjudicators)),
			zap.Int("venues", len(av.Venues)))
		return ports.OperationReport{}, nil
	})
}

// ComputeBreaks recomputes every break category and replaces the stored
// rows. Manual remarks survive. Writes to one category are serialized with
// remark updates to the same category.
func (t *Tabulator) ComputeBreaks(ctx context.Context, tournamentID string) (*breaking.Result, error) {
	op := ports.Operation{Name: "break", TournamentID: tournamentID}

	var out *breaking.Result
	err := t.guard.Exclusive(ctx, op, func(ctx context.Context) (ports.OperationReport, error) {
		snap, err := t.store.LoadSnapshot(ctx, tournamentID, 0)
		if err != nil {
			return ports.OperationReport{}, fmt.Errorf("loading %s: %w", tournamentID, err)
		}

		res, err := breaking.NewEngine(t.logger).ComputeAllBreaks(ctx, snap)
		if err != nil {
			return ports.OperationReport{}, err
		}

		var breakingTeams int
		for _, cb := range res.Categories {
			breakingTeams += len(cb.Breaking())
			write := ports.Operation{Name: "break:" + cb.Category.ID, TournamentID: tournamentID}
			err := t.guard.Serialize(ctx, write, func(ctx context.Context) (ports.OperationReport, error) {
				rep := ports.OperationReport{Gauges: map[string]float64{gaugeBreakingTeams: float64(len(cb.Breaking()))}}
				return rep, t.store.ReplaceBreak(ctx, tournamentID, cb.Category.ID, cb.Teams)
			})
			if err != nil {
				return ports.OperationReport{}, fmt.Errorf("saving break for %s: %w", cb.Category.ID, err)
			}
		}

		out = res
		return ports.OperationReport{Gauges: map[string]float64{gaugeBreakingTeams: float64(breakingTeams)}}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetRemark records an operator remark for a team in a category. An empty
// remark clears the override so the next computation decides the team's
// fate again.
func (t *Tabulator) SetRemark(ctx context.Context, tournamentID, categoryID, teamID string, remark domain.Remark) error {
	if !knownRemark(remark) {
		return fmt.Errorf("%w: unknown remark %q", domain.ErrInvalidInput, remark)
	}
	op := ports.Operation{Name: "break:" + categoryID, TournamentID: tournamentID}
	return t.guard.Serialize(ctx, op, func(ctx context.Context) (ports.OperationReport, error) {
		if err := t.store.SetRemark(ctx, tournamentID, categoryID, teamID, remark); err != nil {
			return ports.OperationReport{}, fmt.Errorf("setting remark for %s in %s: %w", teamID, categoryID, err)
		}
		t.logger.Info("break remark set",
			zap.String("tournament", tournamentID),
			zap.String("category", categoryID),
			zap.String("team", teamID),
			zap.String("remark", string(remark)))
		return ports.OperationReport{}, nil
	})
}

func knownRemark(r domain.Remark) bool {
	switch r {
	case domain.RemarkNone, domain.RemarkCapped, domain.RemarkIneligible, domain.RemarkDifferentBreak,
		domain.RemarkDisqualified, domain.RemarkLostCoinToss, domain.RemarkWithdrawn:
		return true
	}
	return false
}

// breakSeeds returns the breaking teams of the highest-priority general
// category in break order.
func breakSeeds(snap domain.Snapshot) []string {
	var general *domain.BreakCategory
	for i, c := range snap.Categories {
		if !c.IsGeneral {
			continue
		}
		if general == nil || c.Priority < general.Priority ||
			(c.Priority == general.Priority && c.Seq < general.Seq) {
			general = &snap.Categories[i]
		}
	}
	if general == nil {
		return nil
	}

	var rows []domain.BreakingTeam
	for _, bt := range snap.BreakingTeams {
		if bt.CategoryID == general.ID && bt.Breaking() {
			rows = append(rows, bt)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if *rows[i].BreakRank != *rows[j].BreakRank {
			return *rows[i].BreakRank < *rows[j].BreakRank
		}
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].TeamID < rows[j].TeamID
	})

	seeds := make([]string, len(rows))
	for i, bt := range rows {
		seeds[i] = bt.TeamID
	}
	return seeds
}

// rankable drops bye-type teams, which never appear in standings.
func rankable(teams []domain.Team) []domain.Team {
	out := make([]domain.Team, 0, len(teams))
	for _, tm := range teams {
		if !tm.IsBye() {
			out = append(out, tm)
		}
	}
	return out
}
