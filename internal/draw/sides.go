package draw

import (
	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// allocateSides decides which team in each pairing is affirmative. Pinned
// sides are honoured first and the configured rule applies to the rest.
func (r *run) allocateSides(pairs []*pair) {
	if r.opts.SideAllocations == domain.SidesBalance && !r.keepPairs {
		r.repairSides(pairs)
	}
	for _, p := range pairs {
		if p.isBye() || p.fixedSides {
			continue
		}
		if r.applyPinned(p) {
			continue
		}
		switch r.opts.SideAllocations {
		case domain.SidesBalance:
			if !r.prefersAff(p.a, p.b) {
				p.a, p.b = p.b, p.a
			}
		case domain.SidesRandom:
			if r.rng.Intn(2) == 1 {
				p.a, p.b = p.b, p.a
			}
		}
	}
}

// applyPinned orients a pairing from preallocated sides. It reports false
// when neither team is pinned. When both teams are pinned to the same side
// the higher-ranked team keeps its pin, and the lower team ID on a tie.
func (r *run) applyPinned(p *pair) bool {
	sa, okA := r.pinned[p.a.team.ID]
	sb, okB := r.pinned[p.b.team.ID]
	if !okA && !okB {
		return false
	}

	aAff := sa == domain.SideAffirmative
	switch {
	case !okA:
		aAff = sb == domain.SideNegative
	case okB && sa == sb:
		keeper := p.a
		if outranks(p.b, p.a) {
			keeper = p.b
			aAff = sb == domain.SideNegative
		}
		p.flag(domain.FlagSideConflict)
		r.logger.Warn("both teams pinned to the same side",
			zap.String("team", p.a.team.ID),
			zap.String("opponent", p.b.team.ID),
			zap.String("side", string(sa)),
			zap.String("kept_by", keeper.team.ID))
	}
	if !aAff {
		p.a, p.b = p.b, p.a
	}
	p.flag(domain.FlagSidesPreallocated)
	return true
}

// outranks reports whether x stands above y, falling back to team ID when
// the standings do not separate them.
func outranks(x, y *seed) bool {
	rx, ry := x.standing.Rank, y.standing.Rank
	if rx > 0 && ry > 0 && rx != ry {
		return rx < ry
	}
	return x.team.ID < y.team.ID
}

// prefersAff reports whether x rather than y should be affirmative: fewer
// affirmative debates first, then the lower side imbalance, then a coin toss.
func (r *run) prefersAff(x, y *seed) bool {
	switch {
	case x.team.AffCount != y.team.AffCount:
		return x.team.AffCount < y.team.AffCount
	case x.team.SideImbalance() != y.team.SideImbalance():
		return x.team.SideImbalance() < y.team.SideImbalance()
	}
	return r.rng.Intn(2) == 0
}

func sideSign(s *seed) int {
	switch d := s.team.SideImbalance(); {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}

func (r *run) isPinned(p *pair) bool {
	if p.isBye() {
		return false
	}
	_, okA := r.pinned[p.a.team.ID]
	_, okB := r.pinned[p.b.team.ID]
	return okA || okB
}

// sideClash returns the shared imbalance direction of a pairing whose teams
// both owe the same side, or zero.
func (r *run) sideClash(p *pair) int {
	if p.isBye() || p.fixedSides || r.isPinned(p) {
		return 0
	}
	sa, sb := sideSign(p.a), sideSign(p.b)
	if sa != 0 && sa == sb {
		return sa
	}
	return 0
}

// repairSides exchanges teams between nearby pairings so that no pairing
// holds two teams owing the same side. Each exchange fixes the clashing
// pairing without creating a new clash, so a single pass is enough whenever
// a partner exists.
func (r *run) repairSides(pairs []*pair) {
	for i, p := range pairs {
		dir := r.sideClash(p)
		if dir == 0 {
			continue
		}
		j, slot := r.sideSwapCandidate(pairs, i, dir)
		if j < 0 {
			r.logger.Debug("no side swap available", zap.String("team", p.b.team.ID))
			continue
		}
		q := pairs[j]
		if slot == 0 {
			p.b, q.a = q.a, p.b
		} else {
			p.b, q.b = q.b, p.b
		}
		p.flag(domain.FlagSwapSide)
		q.flag(domain.FlagSwapSide)
	}
}

// sideSwapCandidate finds the nearest pairing holding a team that owes the
// opposite side and whose partner does not owe dir. Candidates that do not
// raise the avoidance penalty are preferred.
func (r *run) sideSwapCandidate(pairs []*pair, i, dir int) (int, int) {
	p := pairs[i]
	fallback, fallbackSlot := -1, 0
	for dist := 1; dist < len(pairs); dist++ {
		for _, j := range []int{i + dist, i - dist} {
			if j < 0 || j >= len(pairs) {
				continue
			}
			q := pairs[j]
			if q.isBye() || q.fixedSides || r.isPinned(q) {
				continue
			}
			for slot, m := range []*seed{q.a, q.b} {
				other := q.b
				if slot == 1 {
					other = q.a
				}
				if sideSign(m) != -dir || sideSign(other) == dir {
					continue
				}
				before := r.penalty(p.a, p.b) + r.penalty(q.a, q.b)
				after := r.penalty(p.a, m) + r.penalty(other, p.b)
				if after <= before {
					return j, slot
				}
				if fallback < 0 {
					fallback, fallbackSlot = j, slot
				}
			}
		}
	}
	return fallback, fallbackSlot
}
