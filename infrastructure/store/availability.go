package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// Availability row kinds.
const (
	kindTeam        = "team"
	kindAdjudicator = "adjudicator"
	kindVenue       = "venue"
)

// SetAvailability implements ports.AvailabilityStore.
func (s *SQLStore) SetAvailability(ctx context.Context, tournamentID string, av domain.RoundAvailability) error {
	err := s.inTx(ctx, "availability", "SetAvailability", func(tx *sql.Tx) error {
		checks := []struct {
			kind, query string
			ids         []string
		}{
			{kindTeam, `SELECT COUNT(*) FROM teams WHERE tournament_id = ? AND id = ?`, av.Teams},
			{kindAdjudicator, `SELECT COUNT(*) FROM adjudicators WHERE (tournament_id = ? OR tournament_id = '') AND id = ?`, av.Adjudicators},
			{kindVenue, `SELECT COUNT(*) FROM venues WHERE tournament_id = ? AND id = ?`, av.Venues},
		}
		for _, c := range checks {
			for _, id := range c.ids {
				var n int
				if err := tx.QueryRowContext(ctx, s.rebind(c.query), tournamentID, id).Scan(&n); err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("%s %q: %w", c.kind, id, domain.ErrNotFound)
				}
			}
		}

		if err := s.exec(ctx, tx, `DELETE FROM availability WHERE tournament_id = ? AND round = ?`, tournamentID, av.Round); err != nil {
			return err
		}
		return s.insertAvailability(ctx, tx, tournamentID, av)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("availability stored",
		zap.String("tournament", tournamentID),
		zap.Int("round", av.Round),
		zap.Int("teams", len(av.Teams)),
		zap.Int("adjudicators", len(av.Adjudicators)),
		zap.Int("venues", len(av.Venues)))
	return nil
}

func (s *SQLStore) insertAvailability(ctx context.Context, tx *sql.Tx, tournamentID string, av domain.RoundAvailability) error {
	kinds := []struct {
		kind string
		ids  []string
	}{
		{kindTeam, av.Teams},
		{kindAdjudicator, av.Adjudicators},
		{kindVenue, av.Venues},
	}
	for _, k := range kinds {
		for _, id := range k.ids {
			if err := s.exec(ctx, tx, `INSERT INTO availability (tournament_id, round, kind, member_id) VALUES (?, ?, ?, ?)`,
				tournamentID, av.Round, k.kind, id); err != nil {
				return fmt.Errorf("%s %s: %w", k.kind, id, err)
			}
		}
	}
	return nil
}

func (s *SQLStore) loadAvailability(ctx context.Context, snap *domain.Snapshot) error {
	byRound := make(map[int]int)
	return s.scanAll(ctx, s.db, `SELECT round, kind, member_id FROM availability
		WHERE tournament_id = ? ORDER BY round, kind, member_id`, []any{snap.TournamentID}, func(rows *sql.Rows) error {
		var (
			round    int
			kind, id string
		)
		if err := rows.Scan(&round, &kind, &id); err != nil {
			return err
		}
		i, ok := byRound[round]
		if !ok {
			i = len(snap.Availability)
			byRound[round] = i
			snap.Availability = append(snap.Availability, domain.RoundAvailability{Round: round})
		}
		av := &snap.Availability[i]
		switch kind {
		case kindTeam:
			av.Teams = append(av.Teams, id)
		case kindAdjudicator:
			av.Adjudicators = append(av.Adjudicators, id)
		case kindVenue:
			av.Venues = append(av.Venues, id)
		default:
			return fmt.Errorf("unknown availability kind %q", kind)
		}
		return nil
	})
}
