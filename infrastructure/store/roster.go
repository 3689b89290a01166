package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// rosterTables are cleared and rewritten by ImportRoster. Debates,
// allocations and break rows are left alone.
var rosterTables = []string{
	"institutions", "teams", "venues", "break_categories", "results", "side_allocations", "availability",
}

// ImportRoster implements ports.RosterStore. The tournament row and every
// roster table are replaced in one transaction; shared adjudicators are
// upserted.
func (s *SQLStore) ImportRoster(ctx context.Context, name string, snap domain.Snapshot) error {
	if snap.TournamentID == "" {
		return fmt.Errorf("%w: roster has no tournament ID", domain.ErrInvalidInput)
	}
	opts, err := json.Marshal(snap.Options)
	if err != nil {
		return s.wrap("tournaments", "ImportRoster", err)
	}

	err = s.inTx(ctx, "roster", "ImportRoster", func(tx *sql.Tx) error {
		tid := snap.TournamentID
		if err := s.exec(ctx, tx, `INSERT INTO tournaments (id, name, options) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, options = excluded.options`, tid, name, string(opts)); err != nil {
			return fmt.Errorf("tournament: %w", err)
		}
		for _, table := range rosterTables {
			if err := s.exec(ctx, tx, "DELETE FROM "+table+" WHERE tournament_id = ?", tid); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		if err := s.exec(ctx, tx, "DELETE FROM adjudicators WHERE tournament_id = ?", tid); err != nil {
			return fmt.Errorf("clearing adjudicators: %w", err)
		}

		for _, inst := range snap.Institutions {
			if err := s.exec(ctx, tx, `INSERT INTO institutions (tournament_id, id, name, code, abbreviation, region)
				VALUES (?, ?, ?, ?, ?, ?)`, tid, inst.ID, inst.Name, inst.Code, inst.Abbreviation, inst.RegionID); err != nil {
				return fmt.Errorf("institution %s: %w", inst.ID, err)
			}
		}
		for _, t := range snap.Teams {
			cats, err := encodeList(t.BreakCategories)
			if err != nil {
				return err
			}
			excluded, err := encodeList(t.ExcludedCategories)
			if err != nil {
				return err
			}
			if err := s.exec(ctx, tx, `INSERT INTO teams (tournament_id, id, name, institution_id, division_id, type,
				break_categories, excluded_categories) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				tid, t.ID, t.Name, t.InstitutionID, t.DivisionID, string(t.Type), cats, excluded); err != nil {
				return fmt.Errorf("team %s: %w", t.ID, err)
			}
		}
		for _, a := range snap.Adjudicators {
			if err := s.insertAdjudicator(ctx, tx, a); err != nil {
				return fmt.Errorf("adjudicator %s: %w", a.ID, err)
			}
		}
		for _, v := range snap.Venues {
			if err := s.exec(ctx, tx, `INSERT INTO venues (tournament_id, id, name, priority, division_id) VALUES (?, ?, ?, ?, ?)`,
				tid, v.ID, v.Name, v.Priority, v.DivisionID); err != nil {
				return fmt.Errorf("venue %s: %w", v.ID, err)
			}
		}
		for _, c := range snap.Categories {
			if err := s.exec(ctx, tx, `INSERT INTO break_categories
				(tournament_id, id, name, seq, priority, break_size, institution_cap, is_general, cap_rule, points_floor)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				tid, c.ID, c.Name, c.Seq, c.Priority, c.BreakSize, nullInt(c.InstitutionCap), c.IsGeneral,
				string(c.CapRule), c.PointsFloor); err != nil {
				return fmt.Errorf("break category %s: %w", c.ID, err)
			}
		}
		for _, r := range snap.Results {
			if err := s.exec(ctx, tx, `INSERT INTO results
				(tournament_id, team_id, round, opponent_id, points, speaks, margin, win, side)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				tid, r.TeamID, r.Round, r.OpponentID, r.Points, r.SpeakerScore, r.Margin, r.Win, string(r.Side)); err != nil {
				return fmt.Errorf("result for %s in round %d: %w", r.TeamID, r.Round, err)
			}
		}
		for _, av := range snap.Availability {
			if err := s.insertAvailability(ctx, tx, tid, av); err != nil {
				return fmt.Errorf("availability for round %d: %w", av.Round, err)
			}
		}
		for _, sa := range snap.SideAllocations {
			if err := s.exec(ctx, tx, `INSERT INTO side_allocations (tournament_id, team_id, round, side) VALUES (?, ?, ?, ?)`,
				tid, sa.TeamID, sa.Round, string(sa.Side)); err != nil {
				return fmt.Errorf("side allocation for %s: %w", sa.TeamID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("roster stored",
		zap.String("tournament", snap.TournamentID),
		zap.Int("teams", len(snap.Teams)),
		zap.Int("adjudicators", len(snap.Adjudicators)),
		zap.Int("results", len(snap.Results)))
	return nil
}

func (s *SQLStore) insertAdjudicator(ctx context.Context, tx *sql.Tx, a domain.Adjudicator) error {
	teams, err := encodeList(a.TeamConflicts)
	if err != nil {
		return err
	}
	insts, err := encodeList(a.InstitutionConflicts)
	if err != nil {
		return err
	}
	adjs, err := encodeList(a.AdjudicatorConflicts)
	if err != nil {
		return err
	}
	return s.exec(ctx, tx, `INSERT INTO adjudicators
		(tournament_id, id, name, institution_id, test_score, feedback_score, novice,
		 team_conflicts, institution_conflicts, adjudicator_conflicts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tournament_id, id) DO UPDATE SET
			name = excluded.name,
			institution_id = excluded.institution_id,
			test_score = excluded.test_score,
			feedback_score = excluded.feedback_score,
			novice = excluded.novice,
			team_conflicts = excluded.team_conflicts,
			institution_conflicts = excluded.institution_conflicts,
			adjudicator_conflicts = excluded.adjudicator_conflicts`,
		a.TournamentID, a.ID, a.Name, a.InstitutionID, a.TestScore, nullFloat(a.FeedbackScore), a.Novice,
		teams, insts, adjs)
}
