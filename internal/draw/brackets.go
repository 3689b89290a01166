package draw

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// bracket is a group of teams on the same points level.
type bracket struct {
	points       float64
	teams        []*seed
	intermediate bool
}

// powerPaired brackets teams by points, evens out odd brackets and pairs
// within each bracket.
func (r *run) powerPaired(ctx context.Context) ([]*pair, error) {
	ranked, err := r.rankedSeeds()
	if err != nil {
		return nil, err
	}
	pool, bye, err := r.evenPool(ranked)
	if err != nil {
		return nil, err
	}

	brackets, err := r.resolveOddBrackets(bracketize(pool))
	if err != nil {
		return nil, err
	}
	r.advance(stateBracketed)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("draw for round %d cancelled: %w", r.round, err)
	}

	var pairs []*pair
	for _, b := range brackets {
		bp := r.pairBracket(b)
		if r.opts.AvoidConflicts == domain.AvoidOneUpOneDown {
			r.oneUpOneDown(bp)
		}
		pairs = append(pairs, bp...)
	}
	r.flagConflicts(pairs)

	if bye != nil {
		pairs = append(pairs, bye)
	}
	pairs = append(pairs, r.byeTeamPairs()...)
	r.advance(statePaired)
	return pairs, nil
}

// random pairs the pool in a random order. Conflict avoidance still applies
// with the whole pool treated as one bracket.
func (r *run) random() ([]*pair, error) {
	ranked, err := r.rankedSeeds()
	if err != nil {
		return nil, err
	}
	pool, bye, err := r.evenPool(ranked)
	if err != nil {
		return nil, err
	}
	shuffled := slices.Clone(pool)
	r.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	r.advance(stateBracketed)

	pairs := make([]*pair, 0, len(shuffled)/2+1)
	for i := 0; i+1 < len(shuffled); i += 2 {
		pairs = append(pairs, &pair{a: shuffled[i], b: shuffled[i+1]})
	}
	if r.opts.AvoidConflicts == domain.AvoidOneUpOneDown {
		r.oneUpOneDown(pairs)
	}
	r.flagConflicts(pairs)

	if bye != nil {
		pairs = append(pairs, bye)
	}
	pairs = append(pairs, r.byeTeamPairs()...)
	r.advance(statePaired)
	return pairs, nil
}

// bracketize groups ranked teams by points, highest first.
func bracketize(ranked []*seed) []*bracket {
	var out []*bracket
	for _, s := range ranked {
		if n := len(out); n > 0 && out[n-1].points == s.standing.Points {
			out[n-1].teams = append(out[n-1].teams, s)
			continue
		}
		out = append(out, &bracket{points: s.standing.Points, teams: []*seed{s}})
	}
	return out
}

func (r *run) resolveOddBrackets(brackets []*bracket) ([]*bracket, error) {
	if r.opts.OddBracket == domain.Intermediate {
		return r.intermediateBrackets(brackets), nil
	}

	for i := 0; i < len(brackets); i++ {
		b := brackets[i]
		if len(b.teams)%2 == 0 {
			continue
		}
		if i+1 >= len(brackets) {
			return nil, domain.NewDrawError(r.round, "bottom bracket (%g points) is odd with nothing to pull up", b.points)
		}
		lower := brackets[i+1]
		idx := r.pullupIndex(lower.teams)
		pulled := lower.teams[idx]
		pulled.pulledUp = true
		lower.teams = slices.Delete(lower.teams, idx, idx+1)
		b.teams = append(b.teams, pulled)
		r.logger.Debug("pulled up team",
			zap.String("team", pulled.team.ID),
			zap.Float64("from", lower.points),
			zap.Float64("to", b.points))
		if len(lower.teams) == 0 {
			brackets = slices.Delete(brackets, i+1, i+2)
		}
	}
	return brackets, nil
}

// pullupIndex chooses the team to pull up from a lower bracket.
func (r *run) pullupIndex(teams []*seed) int {
	switch r.opts.OddBracket {
	case domain.PullupTop:
		return 0
	case domain.PullupRandom:
		return r.rng.Intn(len(teams))
	}

	// Lowest speaker score, ties resolved by the seeded source.
	low := teams[0].standing.SpeakerScore
	for _, s := range teams[1:] {
		low = min(low, s.standing.SpeakerScore)
	}
	var candidates []int
	for i, s := range teams {
		if s.standing.SpeakerScore == low {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[r.rng.Intn(len(candidates))]
}

// intermediateBrackets splits each odd bracket's bottom team and the next
// bracket's top team into a bracket of their own at the midpoint.
func (r *run) intermediateBrackets(brackets []*bracket) []*bracket {
	out := make([]*bracket, 0, len(brackets)*2)
	for i := 0; i < len(brackets); i++ {
		b := brackets[i]
		if len(b.teams)%2 == 0 || i+1 >= len(brackets) {
			out = append(out, b)
			continue
		}
		lower := brackets[i+1]
		bottom := b.teams[len(b.teams)-1]
		top := lower.teams[0]
		b.teams = b.teams[:len(b.teams)-1]
		lower.teams = lower.teams[1:]

		if len(b.teams) > 0 {
			out = append(out, b)
		}
		out = append(out, &bracket{
			points:       (b.points + lower.points) / 2,
			teams:        []*seed{bottom, top},
			intermediate: true,
		})
		if len(lower.teams) == 0 {
			i++
		}
	}
	return out
}

// pairBracket pairs an even bracket using the configured method.
func (r *run) pairBracket(b *bracket) []*pair {
	teams := b.teams
	if r.opts.PairingMethod == domain.PairRandom {
		teams = slices.Clone(teams)
		r.rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
	}

	k := len(teams)
	half := k / 2
	out := make([]*pair, 0, half)
	for i := 0; i < half; i++ {
		var a, c *seed
		switch r.opts.PairingMethod {
		case domain.PairFold:
			a, c = teams[i], teams[k-1-i]
		case domain.PairAdjacent, domain.PairRandom:
			a, c = teams[2*i], teams[2*i+1]
		default:
			a, c = teams[i], teams[i+half]
		}
		p := &pair{a: a, b: c, bracket: b.points}
		if a.pulledUp || c.pulledUp {
			p.flag(domain.FlagPullup)
		}
		if b.intermediate {
			p.flag(domain.FlagIntermediate)
		}
		out = append(out, p)
	}
	return out
}
