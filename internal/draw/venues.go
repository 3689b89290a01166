package draw

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// Debates turns a draw into debates, giving the highest-priority venues to
// the lowest room ranks. A debate of a division takes a venue reserved for
// that division before a general one; debates outside a division use
// general venues only. Byes get no venue. It fails with a DrawError when
// there are fewer usable venues than pairings needing a room.
func (d *Draw) Debates(venues []domain.Venue) ([]domain.Debate, error) {
	if need, have := d.VenuesRequired(), len(venues); have < need {
		return nil, domain.NewDrawError(d.Round, "%d pairings need a venue but only %d venues are available", need, have)
	}

	ordered := make([]domain.Venue, len(venues))
	copy(ordered, venues)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	used := make([]bool, len(ordered))

	// take claims the best free venue that hosts division, preferring one
	// reserved for it.
	take := func(division string) (string, bool) {
		pick := -1
		for i, v := range ordered {
			if used[i] || !v.Hosts(division) {
				continue
			}
			if division != "" && v.DivisionID == division {
				pick = i
				break
			}
			if pick < 0 {
				pick = i
			}
		}
		if pick < 0 {
			return "", false
		}
		used[pick] = true
		return ordered[pick].ID, true
	}

	out := make([]domain.Debate, 0, len(d.Pairings))
	for _, p := range d.Pairings {
		deb := domain.Debate{
			ID:       uuid.NewString(),
			Round:    d.Round,
			Aff:      p.Aff,
			Neg:      p.Neg,
			Bracket:  p.Bracket,
			RoomRank: p.RoomRank,
			Flags:    p.Flags,
		}
		if !p.IsBye() {
			id, ok := take(p.DivisionID)
			if !ok {
				return nil, domain.NewDrawError(d.Round, "no venue left for the debate between %s and %s (division %q)",
					p.Aff, p.Neg, p.DivisionID)
			}
			deb.VenueID = id
		}
		out = append(out, deb)
	}
	return out, nil
}
