package allocation

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// minGain is the smallest improvement worth applying.
const minGain = 1e-9

// seat addresses a voting position: index 0 is the chair, i > 0 is panel[i-1].
type seat struct {
	debate, index int
}

// move exchanges the occupants of two seats, or replaces a seat's occupant
// with an unallocated adjudicator when bench >= 0.
type move struct {
	a, b  seat
	bench int
}

func (s *state) occupant(st seat) int {
	if st.index == 0 {
		return s.chair[st.debate]
	}
	return s.panel[st.debate][st.index-1]
}

// replaced returns debate d's chair and panel with the given seats changed.
func (s *state) replaced(d int, changes map[seat]int) (int, []int) {
	chair := s.chair[d]
	panel := slices.Clone(s.panel[d])
	for st, adj := range changes {
		if st.debate != d {
			continue
		}
		if st.index == 0 {
			chair = adj
		} else {
			panel[st.index-1] = adj
		}
	}
	return chair, panel
}

func (s *state) seats() []seat {
	var out []seat
	for d, c := range s.chair {
		if c < 0 {
			continue
		}
		out = append(out, seat{debate: d})
		for i := range s.panel[d] {
			out = append(out, seat{debate: d, index: i + 1})
		}
	}
	return out
}

// candidates lists every pairwise seat exchange and every bench substitution.
func (p *problem) candidates(s *state) []move {
	seats := s.seats()
	var out []move
	for i := range seats {
		for j := i + 1; j < len(seats); j++ {
			out = append(out, move{a: seats[i], b: seats[j], bench: -1})
		}
	}
	for _, b := range p.free(s) {
		for _, st := range seats {
			out = append(out, move{a: st, bench: b})
		}
	}
	return out
}

func (m move) changes(s *state) map[seat]int {
	if m.bench >= 0 {
		return map[seat]int{m.a: m.bench}
	}
	return map[seat]int{m.a: s.occupant(m.b), m.b: s.occupant(m.a)}
}

func (m move) debates() []int {
	if m.bench >= 0 || m.a.debate == m.b.debate {
		return []int{m.a.debate}
	}
	return []int{m.a.debate, m.b.debate}
}

// gain returns how much the move would raise the objective, or false when
// it would break a hard constraint.
func (p *problem) gain(s *state, m move) (float64, bool) {
	changes := m.changes(s)
	var delta float64
	for _, d := range m.debates() {
		chair, panel := s.replaced(d, changes)
		if !p.feasible(d, chair, panel) {
			return 0, false
		}
		delta += p.debateValue(d, chair, panel) - p.debateValue(d, s.chair[d], s.panel[d])
	}
	return delta, true
}

func (p *problem) apply(s *state, m move) {
	changes := m.changes(s)
	for _, d := range m.debates() {
		s.chair[d], s.panel[d] = s.replaced(d, changes)
	}
}

// improve runs a steepest-ascent local search for at most limit moves.
// Candidate moves are scored concurrently; the chosen move is applied on
// the calling goroutine. It returns the number of moves applied.
func (p *problem) improve(ctx context.Context, s *state, limit int) (int, error) {
	workers := runtime.GOMAXPROCS(0)
	applied := 0
	for applied < limit {
		moves := p.candidates(s)
		if len(moves) == 0 {
			return applied, nil
		}

		gains := make([]float64, len(moves))
		valid := make([]bool, len(moves))
		chunk := (len(moves) + workers - 1) / workers

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for start := 0; start < len(moves); start += chunk {
			end := min(start+chunk, len(moves))
			g.Go(func() error {
				for i := start; i < end; i++ {
					if i%64 == 0 {
						if err := gctx.Err(); err != nil {
							return err
						}
					}
					gains[i], valid[i] = p.gain(s, moves[i])
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return applied, fmt.Errorf("scoring allocation swaps: %w", err)
		}

		best := -1
		for i := range moves {
			if valid[i] && gains[i] > minGain && (best < 0 || gains[i] > gains[best]) {
				best = i
			}
		}
		if best < 0 {
			return applied, nil
		}
		p.apply(s, moves[best])
		applied++
	}
	return applied, nil
}
