package application

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-tabroom/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// registerCustomValidators registers the tag validators used by the
// configuration structs.
func registerCustomValidators(v *validator.Validate) error {
	validators := map[string]validator.Func{
		"semver":    validateSemver,
		"slug":      validateSlug,
		"evenpanel": validateEvenPanel,
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateSlug accepts lowercase identifiers safe for use as store keys
// and CLI arguments.
func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

// validateEvenPanel requires an even number of panellists so that the
// voting panel, chair included, is odd.
func validateEvenPanel(fl validator.FieldLevel) bool {
	return fl.Field().Int()%2 == 0
}

// validateSemantics checks rules that struct tags cannot express:
// identifier uniqueness, references between roster entries and break
// category consistency.
func validateSemantics(cfg *TournamentConfig) error {
	verr := domain.NewValidationError("tournament config")

	categoryIDs := make(map[string]struct{}, len(cfg.BreakCategories))
	for _, c := range cfg.BreakCategories {
		categoryIDs[c.ID] = struct{}{}
		if c.CapRule != "" && c.CapRule != string(domain.CapRuleNone) && c.InstitutionCap == nil {
			verr.AddErrorf("break category %s: cap rule %s needs an institution cap", c.ID, c.CapRule)
		}
	}
	checkUnique(verr, "break category", len(cfg.BreakCategories), func(i int) string { return cfg.BreakCategories[i].ID })

	r := cfg.Roster
	checkUnique(verr, "institution", len(r.Institutions), func(i int) string { return r.Institutions[i].ID })
	checkUnique(verr, "team", len(r.Teams), func(i int) string { return r.Teams[i].ID })
	checkUnique(verr, "adjudicator", len(r.Adjudicators), func(i int) string { return r.Adjudicators[i].ID })
	checkUnique(verr, "venue", len(r.Venues), func(i int) string { return r.Venues[i].ID })

	teams := make(map[string]struct{}, len(r.Teams))
	for _, t := range r.Teams {
		teams[t.ID] = struct{}{}
		for _, c := range t.BreakCategories {
			if _, ok := categoryIDs[c]; !ok {
				verr.AddErrorf("team %s: unknown break category %q", t.ID, c)
			}
		}
		for _, c := range t.ExcludeCategories {
			if _, ok := categoryIDs[c]; !ok {
				verr.AddErrorf("team %s: excluded from unknown break category %q", t.ID, c)
			}
			if slices.Contains(t.BreakCategories, c) {
				verr.AddErrorf("team %s: both enters and is excluded from %q", t.ID, c)
			}
		}
	}
	for _, a := range r.Adjudicators {
		for _, tc := range a.TeamConflicts {
			if _, ok := teams[tc]; !ok {
				verr.AddErrorf("adjudicator %s: conflict with unknown team %q", a.ID, tc)
			}
		}
	}

	type teamRound struct {
		team  string
		round int
	}
	results := make(map[teamRound]struct{}, len(r.Results))
	for _, res := range r.Results {
		if _, ok := teams[res.Team]; !ok {
			verr.AddErrorf("result for unknown team %q in round %d", res.Team, res.Round)
		}
		if res.Opponent != "" {
			if _, ok := teams[res.Opponent]; !ok {
				verr.AddErrorf("result for %s in round %d names unknown opponent %q", res.Team, res.Round, res.Opponent)
			}
		}
		key := teamRound{res.Team, res.Round}
		if _, dup := results[key]; dup {
			verr.AddErrorf("team %s has more than one result for round %d", res.Team, res.Round)
		}
		results[key] = struct{}{}
	}

	pins := make(map[teamRound]struct{}, len(r.SideAllocations))
	for _, sa := range r.SideAllocations {
		if _, ok := teams[sa.Team]; !ok {
			verr.AddErrorf("side allocation for unknown team %q", sa.Team)
		}
		key := teamRound{sa.Team, sa.Round}
		if _, dup := pins[key]; dup {
			verr.AddErrorf("team %s is pinned twice in round %d", sa.Team, sa.Round)
		}
		pins[key] = struct{}{}
	}

	adjs := make(map[string]struct{}, len(r.Adjudicators))
	for _, a := range r.Adjudicators {
		adjs[a.ID] = struct{}{}
	}
	venues := make(map[string]struct{}, len(r.Venues))
	for _, v := range r.Venues {
		venues[v.ID] = struct{}{}
	}
	checked := make(map[int]struct{}, len(r.Availability))
	for _, av := range r.Availability {
		if _, dup := checked[av.Round]; dup {
			verr.AddErrorf("availability for round %d listed twice", av.Round)
		}
		checked[av.Round] = struct{}{}
		checkKnown(verr, av.Round, "team", av.Teams, teams)
		checkKnown(verr, av.Round, "adjudicator", av.Adjudicators, adjs)
		checkKnown(verr, av.Round, "venue", av.Venues, venues)
	}

	return verr.Err()
}

func checkKnown(verr *domain.ValidationError, round int, kind string, ids []string, known map[string]struct{}) {
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			verr.AddErrorf("availability for round %d names unknown %s %q", round, kind, id)
		}
	}
}

func checkUnique(verr *domain.ValidationError, kind string, n int, id func(int) string) {
	seen := make(map[string]struct{}, n)
	for i := range n {
		k := id(i)
		if _, dup := seen[k]; dup {
			verr.AddErrorf("duplicate %s ID %q", kind, k)
		}
		seen[k] = struct{}{}
	}
}
