package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// ReplaceBreak implements ports.BreakStore.
func (s *SQLStore) ReplaceBreak(ctx context.Context, tournamentID, categoryID string, teams []domain.BreakingTeam) error {
	return s.inTx(ctx, "breaking_teams", "ReplaceBreak", func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx, `DELETE FROM breaking_teams WHERE tournament_id = ? AND category_id = ?`,
			tournamentID, categoryID); err != nil {
			return err
		}
		for _, bt := range teams {
			if bt.CategoryID != categoryID {
				return fmt.Errorf("%w: row for %s belongs to category %s", domain.ErrInvalidInput, bt.TeamID, bt.CategoryID)
			}
			if err := s.exec(ctx, tx, `INSERT INTO breaking_teams
				(tournament_id, category_id, team_id, rank, break_rank, remark, manual)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				tournamentID, categoryID, bt.TeamID, bt.Rank, nullInt(bt.BreakRank), string(bt.Remark()), bt.IsManual()); err != nil {
				return fmt.Errorf("team %s: %w", bt.TeamID, err)
			}
		}
		return nil
	})
}

// SetRemark implements ports.BreakStore. A non-empty remark becomes a manual
// override and takes the team out of the break; an empty remark deletes
// the team's row so the next computation decides afresh.
func (s *SQLStore) SetRemark(ctx context.Context, tournamentID, categoryID, teamID string, remark domain.Remark) error {
	return s.inTx(ctx, "breaking_teams", "SetRemark", func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM break_categories WHERE tournament_id = ? AND id = ?`),
			tournamentID, categoryID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("break category %q: %w", categoryID, domain.ErrNotFound)
		}
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM teams WHERE tournament_id = ? AND id = ?`),
			tournamentID, teamID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("team %q: %w", teamID, domain.ErrNotFound)
		}

		if remark == domain.RemarkNone {
			return s.exec(ctx, tx, `DELETE FROM breaking_teams WHERE tournament_id = ? AND category_id = ? AND team_id = ?`,
				tournamentID, categoryID, teamID)
		}
		return s.exec(ctx, tx, `INSERT INTO breaking_teams (tournament_id, category_id, team_id, rank, break_rank, remark, manual)
			VALUES (?, ?, ?, 0, NULL, ?, ?)
			ON CONFLICT (tournament_id, category_id, team_id) DO UPDATE SET
				break_rank = NULL, remark = excluded.remark, manual = excluded.manual`,
			tournamentID, categoryID, teamID, string(remark), true)
	})
}
