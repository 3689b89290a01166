package draw

import (
	"slices"
	"sort"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// roundRobin pairs each division by the circle method so that every team
// meets every other team once per cycle.
func (r *run) roundRobin() ([]*pair, error) {
	divisions := make(map[string][]*seed)
	for _, t := range r.activeTeams() {
		divisions[t.DivisionID] = append(divisions[t.DivisionID], &seed{team: t, standing: domain.StandingEntry{TeamID: t.ID}})
	}
	keys := make([]string, 0, len(divisions))
	for k := range divisions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.keepPairs = true
	r.advance(stateBracketed)

	var pairs []*pair
	for _, div := range keys {
		seeds := divisions[div]
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].team.ID < seeds[j].team.ID })
		if len(seeds)%2 == 1 {
			byeTeam := r.takeByeTeam()
			if byeTeam == nil && !r.opts.AllowBye {
				return nil, domain.NewDrawError(r.round, "division %q has an odd number of teams (%d) and no bye mechanism configured", div, len(seeds))
			}
			seeds = append(seeds, byeTeam)
		}

		for _, match := range circle(seeds, r.round-1) {
			a, b := match[0], match[1]
			switch {
			case a == nil:
				pairs = append(pairs, byePair(b))
			case b == nil:
				pairs = append(pairs, byePair(a))
			case a.team.IsBye():
				pairs = append(pairs, byeTeamMatch(b, a))
			case b.team.IsBye():
				pairs = append(pairs, byeTeamMatch(a, b))
			default:
				pairs = append(pairs, &pair{a: a, b: b, division: div})
			}
		}
	}
	r.flagConflicts(pairs)
	pairs = append(pairs, r.byeTeamPairs()...)
	r.advance(statePaired)
	return pairs, nil
}

// circle returns the matches for one round of the circle method. The first
// seed stays fixed while the rest rotate one place per round.
func circle(seeds []*seed, round int) [][2]*seed {
	n := len(seeds)
	if n < 2 {
		return nil
	}
	rest := seeds[1:]
	m := len(rest)
	shift := round % m

	arranged := make([]*seed, 0, n)
	arranged = append(arranged, seeds[0])
	for i := range rest {
		arranged = append(arranged, rest[((i-shift)%m+m)%m])
	}

	out := make([][2]*seed, 0, n/2)
	for i := 0; i < n/2; i++ {
		out = append(out, [2]*seed{arranged[i], arranged[n-1-i]})
	}
	return out
}

// manual validates and emits operator-supplied pairings as given.
func (r *run) manual() ([]*pair, error) {
	if len(r.request.Manual) == 0 {
		return nil, domain.NewDrawError(r.round, "manual draw has no pairings")
	}
	teams := make(map[string]domain.Team, len(r.request.Teams))
	for _, t := range r.request.Teams {
		teams[t.ID] = t
	}

	verr := domain.NewValidationError("manual draw")
	lookup := func(id string) *seed {
		t, ok := teams[id]
		if !ok {
			verr.AddErrorf("unknown team %q", id)
			t = domain.Team{ID: id}
		}
		return &seed{team: t, standing: domain.StandingEntry{TeamID: id}}
	}

	r.advance(stateBracketed)
	pairs := make([]*pair, 0, len(r.request.Manual))
	for _, mp := range r.request.Manual {
		p := &pair{
			a:          lookup(mp.Aff),
			bracket:    mp.Bracket,
			flags:      slices.Clone(mp.Flags),
			division:   mp.DivisionID,
			fixedSides: true,
		}
		if mp.Neg != "" {
			p.b = lookup(mp.Neg)
		} else {
			p.flag(domain.FlagBye)
		}
		pairs = append(pairs, p)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	r.flagConflicts(pairs)
	r.advance(statePaired)
	return pairs, nil
}

// firstElimination folds the break: first seed against last, second against
// second last. The higher seed takes affirmative.
func (r *run) firstElimination() ([]*pair, error) {
	n := len(r.request.Seeds)
	if n < 2 {
		return nil, domain.NewDrawError(r.round, "first elimination round needs at least two breaking teams, got %d", n)
	}
	if n%2 == 1 {
		return nil, domain.NewDrawError(r.round, "first elimination round needs an even break, got %d teams", n)
	}
	teams := make(map[string]domain.Team, len(r.request.Teams))
	for _, t := range r.request.Teams {
		teams[t.ID] = t
	}
	r.advance(stateBracketed)

	pairs := make([]*pair, 0, n/2)
	for i := 0; i < n/2; i++ {
		hi, lo := r.request.Seeds[i], r.request.Seeds[n-1-i]
		pairs = append(pairs, &pair{
			a:          &seed{team: teamOrID(teams, hi)},
			b:          &seed{team: teamOrID(teams, lo)},
			fixedSides: true,
		})
	}
	r.advance(statePaired)
	return pairs, nil
}

func teamOrID(teams map[string]domain.Team, id string) domain.Team {
	if t, ok := teams[id]; ok {
		return t
	}
	return domain.Team{ID: id}
}
