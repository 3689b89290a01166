package draw

import (
	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// penalty scores how undesirable a pairing is under the active avoidance
// options. Zero means no conflict.
func (r *run) penalty(a, b *seed) float64 {
	if a == nil || b == nil {
		return 0
	}
	var p float64
	if r.opts.AvoidTeamHistory {
		p += float64(r.history.Seen(a.team.ID, b.team.ID)) * r.opts.TeamHistoryPenalty
	}
	if r.opts.AvoidSameInstitution && sameInstitution(a, b) {
		p += r.opts.TeamInstitutionPenalty
	}
	return p
}

func sameInstitution(a, b *seed) bool {
	return a.team.InstitutionID != "" && a.team.InstitutionID == b.team.InstitutionID
}

// oneUpOneDown swaps the lower team of a conflicted pairing with the lower
// team of the pairing directly above or below it, when doing so strictly
// lowers the combined penalty.
func (r *run) oneUpOneDown(pairs []*pair) {
	for i, p := range pairs {
		if p.isBye() {
			continue
		}
		cost := r.penalty(p.a, p.b)
		if cost == 0 {
			continue
		}

		best, bestDelta := -1, 0.0
		for _, j := range []int{i - 1, i + 1} {
			if j < 0 || j >= len(pairs) || pairs[j].isBye() {
				continue
			}
			q := pairs[j]
			before := cost + r.penalty(q.a, q.b)
			after := r.penalty(p.a, q.b) + r.penalty(q.a, p.b)
			if delta := after - before; delta < bestDelta {
				best, bestDelta = j, delta
			}
		}
		if best < 0 {
			continue
		}

		reason := domain.FlagSwapInstitution
		if r.opts.AvoidTeamHistory && r.history.Seen(p.a.team.ID, p.b.team.ID) > 0 {
			reason = domain.FlagSwapHistory
		}
		q := pairs[best]
		r.logger.Debug("one-up-one-down swap",
			zap.String("team", p.b.team.ID),
			zap.String("with", q.b.team.ID),
			zap.String("reason", string(reason)))
		p.b, q.b = q.b, p.b
		p.flag(reason)
		q.flag(domain.FlagSwapOther)
	}
}

// flagConflicts marks pairings whose avoidance conflicts survived swapping.
func (r *run) flagConflicts(pairs []*pair) {
	for _, p := range pairs {
		if p.isBye() {
			continue
		}
		if r.opts.AvoidTeamHistory {
			if seen := r.history.Seen(p.a.team.ID, p.b.team.ID); seen > 0 {
				p.flag(domain.FlagHistoryConflict)
				r.logger.Warn("pairing repeats a previous matchup",
					zap.String("aff", p.a.team.ID),
					zap.String("neg", p.b.team.ID),
					zap.Int("times_met", seen))
			}
		}
		if r.opts.AvoidSameInstitution && sameInstitution(p.a, p.b) {
			p.flag(domain.FlagInstitutionClash)
			r.logger.Warn("pairing teams from the same institution",
				zap.String("aff", p.a.team.ID),
				zap.String("neg", p.b.team.ID),
				zap.String("institution", p.a.team.InstitutionID))
		}
	}
}
