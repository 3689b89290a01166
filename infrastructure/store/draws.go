package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// SaveDebates implements ports.DrawStore. The round's previous debates and
// their allocations are removed in the same transaction.
func (s *SQLStore) SaveDebates(ctx context.Context, tournamentID string, round int, debates []domain.Debate) error {
	err := s.inTx(ctx, "debates", "SaveDebates", func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx, `DELETE FROM debate_adjudicators WHERE debate_id IN
			(SELECT id FROM debates WHERE tournament_id = ? AND round = ?)`, tournamentID, round); err != nil {
			return fmt.Errorf("clearing allocations: %w", err)
		}
		if err := s.exec(ctx, tx, `DELETE FROM debates WHERE tournament_id = ? AND round = ?`, tournamentID, round); err != nil {
			return fmt.Errorf("clearing debates: %w", err)
		}
		for i, d := range debates {
			if d.Round != round {
				return fmt.Errorf("%w: debate %s belongs to round %d, not %d", domain.ErrInvalidInput, d.ID, d.Round, round)
			}
			flags, err := encodeList(d.Flags)
			if err != nil {
				return err
			}
			if err := s.exec(ctx, tx, `INSERT INTO debates
				(id, tournament_id, round, position, aff, neg, bracket, room_rank, importance, venue_id, flags)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.ID, tournamentID, round, i, d.Aff, d.Neg, d.Bracket, d.RoomRank, d.Importance, d.VenueID, flags); err != nil {
				return fmt.Errorf("debate %s: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("debates saved",
		zap.String("tournament", tournamentID),
		zap.Int("round", round),
		zap.Int("debates", len(debates)))
	return nil
}

// Debates implements ports.DrawStore.
func (s *SQLStore) Debates(ctx context.Context, tournamentID string, round int) ([]domain.Debate, error) {
	debates, err := s.debates(ctx, s.db, tournamentID, round)
	if err != nil {
		return nil, s.wrap("debates", "Debates", err)
	}
	return debates, nil
}

func (s *SQLStore) debates(ctx context.Context, q querier, tournamentID string, round int) ([]domain.Debate, error) {
	var out []domain.Debate
	err := s.scanAll(ctx, q, `SELECT id, round, aff, neg, bracket, room_rank, importance, venue_id, flags
		FROM debates WHERE tournament_id = ? AND round = ? ORDER BY position`,
		[]any{tournamentID, round}, func(rows *sql.Rows) error {
			var (
				d     domain.Debate
				flags string
			)
			if err := rows.Scan(&d.ID, &d.Round, &d.Aff, &d.Neg, &d.Bracket, &d.RoomRank, &d.Importance, &d.VenueID, &flags); err != nil {
				return err
			}
			var err error
			if d.Flags, err = decodeList[domain.DrawFlag](flags); err != nil {
				return fmt.Errorf("debate %s flags: %w", d.ID, err)
			}
			out = append(out, d)
			return nil
		})
	return out, err
}

// SaveAllocations implements ports.AllocationStore.
func (s *SQLStore) SaveAllocations(ctx context.Context, allocs []domain.AdjudicatorAllocation) error {
	return s.inTx(ctx, "debate_adjudicators", "SaveAllocations", func(tx *sql.Tx) error {
		for _, a := range allocs {
			var exists int
			err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM debates WHERE id = ?`), a.DebateID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists == 0 {
				return fmt.Errorf("debate %s: %w", a.DebateID, domain.ErrNotFound)
			}
			if err := s.exec(ctx, tx, `DELETE FROM debate_adjudicators WHERE debate_id = ?`, a.DebateID); err != nil {
				return err
			}

			pos := 0
			insert := func(id string, role domain.AdjudicatorRole) error {
				pos++
				return s.exec(ctx, tx, `INSERT INTO debate_adjudicators (debate_id, adjudicator_id, role, position)
					VALUES (?, ?, ?, ?)`, a.DebateID, id, string(role), pos)
			}
			if a.HasChair() {
				if err := insert(a.Chair, domain.RoleChair); err != nil {
					return err
				}
			}
			for _, id := range a.Panel {
				if err := insert(id, domain.RolePanel); err != nil {
					return err
				}
			}
			for _, id := range a.Trainees {
				if err := insert(id, domain.RoleTrainee); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Allocations implements ports.AllocationStore. Debates without any
// adjudicator are omitted.
func (s *SQLStore) Allocations(ctx context.Context, tournamentID string, round int) (map[string]domain.AdjudicatorAllocation, error) {
	out := make(map[string]domain.AdjudicatorAllocation)
	err := s.scanAll(ctx, s.db, `SELECT da.debate_id, da.adjudicator_id, da.role FROM debate_adjudicators da
		JOIN debates d ON d.id = da.debate_id
		WHERE d.tournament_id = ? AND d.round = ? ORDER BY da.debate_id, da.position`,
		[]any{tournamentID, round}, func(rows *sql.Rows) error {
			var debateID, adjID, role string
			if err := rows.Scan(&debateID, &adjID, &role); err != nil {
				return err
			}
			a := out[debateID]
			a.DebateID = debateID
			switch domain.AdjudicatorRole(role) {
			case domain.RoleChair:
				a.Chair = adjID
			case domain.RolePanel:
				a.Panel = append(a.Panel, adjID)
			case domain.RoleTrainee:
				a.Trainees = append(a.Trainees, adjID)
			}
			out[debateID] = a
			return nil
		})
	if err != nil {
		return nil, s.wrap("debate_adjudicators", "Allocations", err)
	}
	return out, nil
}
