// Package domain contains the pure, storage-free tournament model shared by
// the standings, draw, allocation and break engines.
package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// TeamType distinguishes ordinary teams from the placeholder teams some
// tournaments use to fill a draw.
type TeamType string

// Supported team types.
const (
	TeamNormal    TeamType = "normal"
	TeamSwing     TeamType = "swing"
	TeamComposite TeamType = "composite"
	TeamBye       TeamType = "bye"
)

// Side is the position a team takes in a debate.
type Side string

// Debate sides.
const (
	SideAffirmative Side = "aff"
	SideNegative    Side = "neg"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideAffirmative {
		return SideNegative
	}
	return SideAffirmative
}

// Institution is the university or club a team or adjudicator represents.
type Institution struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Code         string `json:"code" yaml:"code"`
	Abbreviation string `json:"abbreviation" yaml:"abbreviation"`
	RegionID     string `json:"region_id,omitempty" yaml:"region"`
}

// ShortCode returns the abbreviation, falling back to the first five
// characters of the code.
func (i Institution) ShortCode() string {
	if i.Abbreviation != "" {
		return i.Abbreviation
	}
	if len(i.Code) > 5 {
		return i.Code[:5]
	}
	return i.Code
}

// Team is a registered debating team. Identity fields are immutable; anything
// derived from results lives in StandingEntry instead.
type Team struct {
	// ID uniquely identifies the team within a tournament.
	ID string `json:"id"`

	// Name is the display name of the team.
	Name string `json:"name"`

	// InstitutionID references the team's institution.
	InstitutionID string `json:"institution_id"`

	// DivisionID optionally places the team in a sub-tournament division.
	DivisionID string `json:"division_id,omitempty"`

	// Type marks swing, composite and bye teams.
	Type TeamType `json:"type"`

	// BreakCategories lists the non-general break categories the team is
	// eligible for. Every team is eligible for a general category.
	BreakCategories []string `json:"break_categories,omitempty"`

	// ExcludedCategories lists categories the team has opted out of. It is
	// the only way to make a team ineligible for a general category.
	ExcludedCategories []string `json:"excluded_categories,omitempty"`

	// AffCount and NegCount count preliminary debates on each side so far.
	AffCount int `json:"aff_count"`
	NegCount int `json:"neg_count"`

	// HadBye records whether the team already received an assigned bye.
	HadBye bool `json:"had_bye,omitempty"`
}

// IsBye reports whether the team is a bye placeholder.
func (t Team) IsBye() bool { return t.Type == TeamBye }

// EligibleFor reports whether the team is marked eligible for a category.
func (t Team) EligibleFor(categoryID string) bool {
	return slices.Contains(t.BreakCategories, categoryID)
}

// EligibleIn reports whether the team may break in cat: any team not opted
// out for a general category, listed teams otherwise.
func (t Team) EligibleIn(cat BreakCategory) bool {
	if slices.Contains(t.ExcludedCategories, cat.ID) {
		return false
	}
	return cat.IsGeneral || t.EligibleFor(cat.ID)
}

// SideImbalance returns aff count minus neg count.
func (t Team) SideImbalance() int { return t.AffCount - t.NegCount }

// Result is one confirmed per-round result for a team.
type Result struct {
	TeamID string `json:"team_id"`

	// OpponentID is empty for a bye.
	OpponentID string `json:"opponent_id,omitempty"`

	Round int `json:"round"`

	// Points are team points earned in the round.
	Points float64 `json:"points"`

	// SpeakerScore is the team's summed speaker scores.
	SpeakerScore float64 `json:"speaker_score"`

	// Margin is the team's score minus the opponent's.
	Margin float64 `json:"margin"`
	Win    bool    `json:"win"`

	// Side is the side the team took; empty when unknown.
	Side Side `json:"side,omitempty"`
}

// ApplySideCounts sets each team's aff and neg counts from results that
// record a side. A result without an opponent is a bye.
func ApplySideCounts(teams []Team, results []Result) {
	idx := make(map[string]int, len(teams))
	for i := range teams {
		teams[i].AffCount, teams[i].NegCount = 0, 0
		idx[teams[i].ID] = i
	}
	for _, r := range results {
		i, ok := idx[r.TeamID]
		if !ok {
			continue
		}
		switch {
		case r.OpponentID == "":
			teams[i].HadBye = true
		case r.Side == SideAffirmative:
			teams[i].AffCount++
		case r.Side == SideNegative:
			teams[i].NegCount++
		}
	}
}

// SideAllocation pins a team to a side for one round.
type SideAllocation struct {
	TeamID string `json:"team_id"`
	Round  int    `json:"round"`
	Side   Side   `json:"side"`
}

// InstitutionIndex resolves institution references by code, name or
// abbreviation.
type InstitutionIndex struct {
	institutions []Institution
	byKey        map[string]Institution
}

// NewInstitutionIndex builds an index over the given institutions.
func NewInstitutionIndex(institutions []Institution) *InstitutionIndex {
	idx := &InstitutionIndex{
		institutions: slices.Clone(institutions),
		byKey:        make(map[string]Institution, len(institutions)*3),
	}
	// Codes win over names, names over abbreviations.
	for _, field := range []func(Institution) string{
		func(i Institution) string { return i.Abbreviation },
		func(i Institution) string { return i.Name },
		func(i Institution) string { return i.Code },
		func(i Institution) string { return i.ID },
	} {
		for _, inst := range institutions {
			if key := normalizeInstitutionKey(field(inst)); key != "" {
				idx.byKey[key] = inst
			}
		}
	}
	return idx
}

// Lookup returns the institution matching name. On a miss the error names the
// closest known institution to help fix typos in imported rosters.
func (idx *InstitutionIndex) Lookup(name string) (Institution, error) {
	if inst, ok := idx.byKey[normalizeInstitutionKey(name)]; ok {
		return inst, nil
	}
	if suggestion := idx.closest(name); suggestion != "" {
		return Institution{}, fmt.Errorf("%w: institution %q (did you mean %q?)", ErrNotFound, name, suggestion)
	}
	return Institution{}, fmt.Errorf("%w: institution %q", ErrNotFound, name)
}

func (idx *InstitutionIndex) closest(name string) string {
	needle := normalizeInstitutionKey(name)
	best, bestDistance := "", -1
	for _, inst := range idx.institutions {
		for _, candidate := range []string{inst.Code, inst.Name, inst.Abbreviation} {
			if candidate == "" {
				continue
			}
			d := levenshtein.ComputeDistance(needle, normalizeInstitutionKey(candidate))
			if bestDistance < 0 || d < bestDistance {
				best, bestDistance = candidate, d
			}
		}
	}
	// Suggestions further than half the query length away are noise.
	if bestDistance < 0 || bestDistance > len(needle)/2+1 {
		return ""
	}
	return best
}

// normalizeInstitutionKey case-folds so that names such as "Université"
// match regardless of how a roster capitalizes them.
func normalizeInstitutionKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
