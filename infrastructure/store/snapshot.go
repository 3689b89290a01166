package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// LoadSnapshot implements ports.SnapshotLoader. Side counts and adjudicator
// history are derived from rounds before round; round zero derives them
// from everything stored. Shared adjudicators are included only when the
// tournament shares adjudicators.
func (s *SQLStore) LoadSnapshot(ctx context.Context, tournamentID string, round int) (domain.Snapshot, error) {
	snap := domain.Snapshot{TournamentID: tournamentID, Round: round}

	var rawOpts string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT options FROM tournaments WHERE id = ?`), tournamentID).Scan(&rawOpts)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("tournament %q: %w", tournamentID, domain.ErrNotFound)
	}
	if err != nil {
		return snap, s.wrap("tournaments", "LoadSnapshot", err)
	}
	if err := json.Unmarshal([]byte(rawOpts), &snap.Options); err != nil {
		return snap, s.wrap("tournaments", "LoadSnapshot", fmt.Errorf("decoding options: %w", err))
	}

	loaders := []struct {
		entity string
		load   func(context.Context, *domain.Snapshot) error
	}{
		{"institutions", s.loadInstitutions},
		{"teams", s.loadTeams},
		{"results", s.loadResults},
		{"side_allocations", s.loadSideAllocations},
		{"break_categories", s.loadCategories},
		{"breaking_teams", s.loadBreakingTeams},
		{"venues", s.loadVenues},
		{"availability", s.loadAvailability},
		{"adjudicators", s.loadAdjudicators},
		{"debates", s.loadDebates},
		{"debate_adjudicators", s.loadAdjudicatorHistory},
	}
	for _, l := range loaders {
		if err := l.load(ctx, &snap); err != nil {
			return snap, s.wrap(l.entity, "LoadSnapshot", err)
		}
	}

	results := snap.Results
	if round > 0 {
		results = snap.ResultsBefore(round)
	}
	domain.ApplySideCounts(snap.Teams, results)

	s.logger.Debug("snapshot loaded",
		zap.String("tournament", tournamentID),
		zap.Int("round", round),
		zap.Int("teams", len(snap.Teams)),
		zap.Int("results", len(snap.Results)),
		zap.Int("debates", len(snap.Debates)))
	return snap, nil
}

// scanAll runs query and calls scan once per row.
func (s *SQLStore) scanAll(ctx context.Context, q querier, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLStore) loadInstitutions(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT id, name, code, abbreviation, region FROM institutions
		WHERE tournament_id = ? ORDER BY id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var inst domain.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Code, &inst.Abbreviation, &inst.RegionID); err != nil {
			return err
		}
		snap.Institutions = append(snap.Institutions, inst)
		return nil
	})
}

func (s *SQLStore) loadTeams(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT id, name, institution_id, division_id, type, break_categories, excluded_categories
		FROM teams WHERE tournament_id = ? ORDER BY id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			t              domain.Team
			typ            string
			cats, excluded string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.InstitutionID, &t.DivisionID, &typ, &cats, &excluded); err != nil {
			return err
		}
		t.Type = domain.TeamType(typ)
		var err error
		if t.BreakCategories, err = decodeList[string](cats); err != nil {
			return fmt.Errorf("team %s categories: %w", t.ID, err)
		}
		if t.ExcludedCategories, err = decodeList[string](excluded); err != nil {
			return fmt.Errorf("team %s excluded categories: %w", t.ID, err)
		}
		snap.Teams = append(snap.Teams, t)
		return nil
	})
}

func (s *SQLStore) loadResults(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT team_id, round, opponent_id, points, speaks, margin, win, side FROM results
		WHERE tournament_id = ? ORDER BY round, team_id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			r    domain.Result
			side string
		)
		if err := rows.Scan(&r.TeamID, &r.Round, &r.OpponentID, &r.Points, &r.SpeakerScore, &r.Margin, &r.Win, &side); err != nil {
			return err
		}
		r.Side = domain.Side(side)
		snap.Results = append(snap.Results, r)
		return nil
	})
}

func (s *SQLStore) loadSideAllocations(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT team_id, round, side FROM side_allocations
		WHERE tournament_id = ? ORDER BY round, team_id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			sa   domain.SideAllocation
			side string
		)
		if err := rows.Scan(&sa.TeamID, &sa.Round, &side); err != nil {
			return err
		}
		sa.Side = domain.Side(side)
		snap.SideAllocations = append(snap.SideAllocations, sa)
		return nil
	})
}

func (s *SQLStore) loadCategories(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT id, name, seq, priority, break_size, institution_cap, is_general, cap_rule, points_floor
		FROM break_categories WHERE tournament_id = ? ORDER BY seq, id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			c       domain.BreakCategory
			instCap sql.NullInt64
			rule    string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Seq, &c.Priority, &c.BreakSize, &instCap, &c.IsGeneral, &rule, &c.PointsFloor); err != nil {
			return err
		}
		c.InstitutionCap = intPtr(instCap)
		c.CapRule = domain.CapRule(rule)
		snap.Categories = append(snap.Categories, c)
		return nil
	})
}

func (s *SQLStore) loadBreakingTeams(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT category_id, team_id, rank, break_rank, remark, manual FROM breaking_teams
		WHERE tournament_id = ? ORDER BY category_id, rank, team_id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		bt, err := scanBreakingTeam(rows)
		if err != nil {
			return err
		}
		snap.BreakingTeams = append(snap.BreakingTeams, bt)
		return nil
	})
}

func scanBreakingTeam(rows *sql.Rows) (domain.BreakingTeam, error) {
	var (
		bt        domain.BreakingTeam
		breakRank sql.NullInt64
		remark    string
		manual    bool
	)
	if err := rows.Scan(&bt.CategoryID, &bt.TeamID, &bt.Rank, &breakRank, &remark, &manual); err != nil {
		return bt, err
	}
	bt.BreakRank = intPtr(breakRank)
	if manual {
		bt.Outcome = domain.ManualOverride{Code: domain.Remark(remark)}
	} else {
		bt.Outcome = domain.Automatic{Code: domain.Remark(remark)}
	}
	return bt, nil
}

func (s *SQLStore) loadVenues(ctx context.Context, snap *domain.Snapshot) error {
	return s.scanAll(ctx, s.db, `SELECT id, name, priority, division_id FROM venues
		WHERE tournament_id = ? ORDER BY priority DESC, id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var v domain.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Priority, &v.DivisionID); err != nil {
			return err
		}
		snap.Venues = append(snap.Venues, v)
		return nil
	})
}

func (s *SQLStore) loadAdjudicators(ctx context.Context, snap *domain.Snapshot) error {
	query := `SELECT tournament_id, id, name, institution_id, test_score, feedback_score, novice,
		team_conflicts, institution_conflicts, adjudicator_conflicts FROM adjudicators WHERE tournament_id = ?`
	if snap.Options.ShareAdjs {
		query += ` OR tournament_id = ''`
	}
	query += ` ORDER BY id`

	return s.scanAll(ctx, s.db, query, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			a                  domain.Adjudicator
			feedback           sql.NullFloat64
			teams, insts, adjs string
		)
		if err := rows.Scan(&a.TournamentID, &a.ID, &a.Name, &a.InstitutionID, &a.TestScore, &feedback, &a.Novice,
			&teams, &insts, &adjs); err != nil {
			return err
		}
		a.FeedbackScore = floatPtr(feedback)
		var err error
		if a.TeamConflicts, err = decodeList[string](teams); err != nil {
			return err
		}
		if a.InstitutionConflicts, err = decodeList[string](insts); err != nil {
			return err
		}
		if a.AdjudicatorConflicts, err = decodeList[string](adjs); err != nil {
			return err
		}
		snap.Adjudicators = append(snap.Adjudicators, a)
		return nil
	})
}

func (s *SQLStore) loadDebates(ctx context.Context, snap *domain.Snapshot) error {
	if snap.Round < 1 {
		return nil
	}
	debates, err := s.debates(ctx, s.db, snap.TournamentID, snap.Round)
	if err != nil {
		return err
	}
	snap.Debates = debates
	return nil
}

// loadAdjudicatorHistory fills SeenTeams and SeenAdjudicators from the
// allocations of earlier rounds.
func (s *SQLStore) loadAdjudicatorHistory(ctx context.Context, snap *domain.Snapshot) error {
	type seat struct{ debate, adj string }
	var seats []seat
	teams := make(map[string][]string)

	query := `SELECT d.id, d.aff, d.neg, da.adjudicator_id FROM debates d
		JOIN debate_adjudicators da ON da.debate_id = d.id
		WHERE d.tournament_id = ?`
	args := []any{snap.TournamentID}
	if snap.Round > 0 {
		query += ` AND d.round < ?`
		args = append(args, snap.Round)
	}
	query += ` ORDER BY d.id, da.position`

	err := s.scanAll(ctx, s.db, query, args, func(rows *sql.Rows) error {
		var debateID, aff, neg, adjID string
		if err := rows.Scan(&debateID, &aff, &neg, &adjID); err != nil {
			return err
		}
		if _, ok := teams[debateID]; !ok {
			teams[debateID] = domain.Debate{Aff: aff, Neg: neg}.Teams()
		}
		seats = append(seats, seat{debate: debateID, adj: adjID})
		return nil
	})
	if err != nil {
		return err
	}

	panels := make(map[string][]string)
	for _, st := range seats {
		panels[st.debate] = append(panels[st.debate], st.adj)
	}
	index := make(map[string]int, len(snap.Adjudicators))
	for i, a := range snap.Adjudicators {
		index[a.ID] = i
	}
	for debateID, panel := range panels {
		for _, id := range panel {
			i, ok := index[id]
			if !ok {
				continue
			}
			adj := &snap.Adjudicators[i]
			for _, team := range teams[debateID] {
				if adj.SeenTeams == nil {
					adj.SeenTeams = make(map[string]int)
				}
				adj.SeenTeams[team]++
			}
			for _, other := range panel {
				if other == id {
					continue
				}
				if adj.SeenAdjudicators == nil {
					adj.SeenAdjudicators = make(map[string]int)
				}
				adj.SeenAdjudicators[other]++
			}
		}
	}
	return nil
}
