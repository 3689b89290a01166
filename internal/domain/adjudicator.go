package domain

import "slices"

// Adjudicator is a judge available to be allocated to debates.
type Adjudicator struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	InstitutionID string `json:"institution_id"`

	// TournamentID is empty for adjudicators shared between tournaments.
	TournamentID string `json:"tournament_id,omitempty"`

	// TestScore is the fixed pre-tournament accreditation score.
	TestScore float64 `json:"test_score"`

	// FeedbackScore is the mean of confirmed feedback, nil when none exists.
	FeedbackScore *float64 `json:"feedback_score,omitempty"`

	// Novice adjudicators are unaccredited and may only be trainees.
	Novice bool `json:"novice"`

	TeamConflicts        []string `json:"team_conflicts,omitempty"`
	InstitutionConflicts []string `json:"institution_conflicts,omitempty"`
	AdjudicatorConflicts []string `json:"adjudicator_conflicts,omitempty"`

	// SeenTeams and SeenAdjudicators count prior rounds in which this
	// adjudicator judged the team or sat with the other adjudicator.
	SeenTeams        map[string]int `json:"seen_teams,omitempty"`
	SeenAdjudicators map[string]int `json:"seen_adjudicators,omitempty"`
}

// Score blends the test score with the feedback score. Feedback is trusted
// more as the per-round weight increases; without feedback only the test
// score counts.
func (a Adjudicator) Score(feedbackWeight float64) float64 {
	if a.FeedbackScore == nil {
		return a.TestScore
	}
	return a.TestScore*(1-feedbackWeight) + *a.FeedbackScore*feedbackWeight
}

// ConflictsWith reports a personal or institutional conflict with the team.
// The adjudicator's own institution is always a conflict.
func (a Adjudicator) ConflictsWith(team Team) bool {
	if slices.Contains(a.TeamConflicts, team.ID) {
		return true
	}
	if team.InstitutionID == "" {
		return false
	}
	return team.InstitutionID == a.InstitutionID || slices.Contains(a.InstitutionConflicts, team.InstitutionID)
}

// ConflictsWithAdjudicator reports a declared conflict in either direction.
func (a Adjudicator) ConflictsWithAdjudicator(other Adjudicator) bool {
	return slices.Contains(a.AdjudicatorConflicts, other.ID) || slices.Contains(other.AdjudicatorConflicts, a.ID)
}

// AdjudicatorRole is the role an adjudicator plays on a panel.
type AdjudicatorRole string

// Adjudicator roles.
const (
	RoleChair    AdjudicatorRole = "chair"
	RolePanel    AdjudicatorRole = "panellist"
	RoleTrainee  AdjudicatorRole = "trainee"
	RoleNotFound AdjudicatorRole = ""
)

// AdjudicatorAllocation holds the adjudicators on one debate.
type AdjudicatorAllocation struct {
	DebateID string `json:"debate_id"`

	// Chair is empty when no accredited adjudicator was left.
	Chair string `json:"chair,omitempty"`

	// Panel holds voting panellists besides the chair.
	Panel []string `json:"panel"`

	// Trainees observe without voting.
	Trainees []string `json:"trainees"`
}

// HasChair reports whether a chair is allocated.
func (a AdjudicatorAllocation) HasChair() bool { return a.Chair != "" }

// IsPanel reports whether there is at least one panellist.
func (a AdjudicatorAllocation) IsPanel() bool { return len(a.Panel) > 0 }

// Valid reports whether the allocation has a chair and an even panel, so
// ballots can always be decided by majority. It is surfaced, never enforced.
func (a AdjudicatorAllocation) Valid() bool { return a.HasChair() && len(a.Panel)%2 == 0 }

// Voting returns the chair followed by the panellists.
func (a AdjudicatorAllocation) Voting() []string {
	out := make([]string, 0, len(a.Panel)+1)
	if a.HasChair() {
		out = append(out, a.Chair)
	}
	return append(out, a.Panel...)
}

// All returns every allocated adjudicator including trainees.
func (a AdjudicatorAllocation) All() []string {
	return append(a.Voting(), a.Trainees...)
}

// RoleOf returns the role adjudicator id plays, or RoleNotFound.
func (a AdjudicatorAllocation) RoleOf(id string) AdjudicatorRole {
	switch {
	case id == "":
		return RoleNotFound
	case a.Chair == id:
		return RoleChair
	case slices.Contains(a.Panel, id):
		return RolePanel
	case slices.Contains(a.Trainees, id):
		return RoleTrainee
	}
	return RoleNotFound
}

// Contains reports whether the adjudicator is allocated in any role.
func (a AdjudicatorAllocation) Contains(id string) bool { return a.RoleOf(id) != RoleNotFound }
