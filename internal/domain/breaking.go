package domain

// CapRule selects how a category's institution cap is applied.
type CapRule string

// Institution cap rule variants.
const (
	// CapRuleNone applies no institution cap.
	CapRuleNone CapRule = "none"

	// CapRuleFlat caps every institution at InstitutionCap breaking teams.
	CapRuleFlat CapRule = "flat"

	// CapRuleAIDA2016 applies InstitutionCap within the nominal break and
	// tightens to one team per institution for teams ranked below it.
	CapRuleAIDA2016 CapRule = "aida_2016"
)

// DefaultAIDAPointsFloor is the points level below which an AIDA 2016 break
// stops admitting teams.
const DefaultAIDAPointsFloor = 5

// BreakCategory is one elimination stream, e.g. Open or ESL.
type BreakCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Seq orders categories for display.
	Seq int `json:"seq"`

	// Priority resolves multi-eligibility: a team that breaks in a category
	// with a lower priority number cannot break in a higher-numbered one.
	Priority int `json:"priority"`

	// BreakSize is the nominal number of breaking teams.
	BreakSize int `json:"break_size"`

	// InstitutionCap is nil when uncapped.
	InstitutionCap *int `json:"institution_cap,omitempty"`

	// IsGeneral categories draw from the whole tournament rather than an
	// explicit roster.
	IsGeneral bool `json:"is_general"`

	CapRule CapRule `json:"cap_rule"`

	// PointsFloor is used by CapRuleAIDA2016; zero means DefaultAIDAPointsFloor.
	PointsFloor float64 `json:"points_floor,omitempty"`
}

// Floor returns the effective AIDA 2016 points floor.
func (c BreakCategory) Floor() float64 {
	if c.PointsFloor > 0 {
		return c.PointsFloor
	}
	return DefaultAIDAPointsFloor
}

// Remark explains why a ranked team is not breaking.
type Remark string

// Remark codes. The first three are produced by the break engine; the rest
// are only ever set by an operator.
const (
	RemarkNone           Remark = ""
	RemarkCapped         Remark = "capped"
	RemarkIneligible     Remark = "ineligible"
	RemarkDifferentBreak Remark = "different_break"
	RemarkDisqualified   Remark = "disqualified"
	RemarkLostCoinToss   Remark = "lost_coin_toss"
	RemarkWithdrawn      Remark = "withdrawn"
)

// IsAutomatic reports whether the break engine produces this remark itself.
func (r Remark) IsAutomatic() bool {
	switch r {
	case RemarkCapped, RemarkIneligible, RemarkDifferentBreak:
		return true
	}
	return false
}

// Outcome is the sealed result of a break computation for one team:
// either Automatic or ManualOverride.
type Outcome interface {
	Remark() Remark
	isOutcome()
}

// Automatic is an outcome produced by the break engine. An empty code means
// the team is breaking.
type Automatic struct{ Code Remark }

// Remark implements Outcome.
func (a Automatic) Remark() Remark { return a.Code }
func (Automatic) isOutcome()       {}

// ManualOverride is an operator-set remark. It survives recomputation
// verbatim and keeps the team out of automatic admission.
type ManualOverride struct{ Code Remark }

// Remark implements Outcome.
func (m ManualOverride) Remark() Remark { return m.Code }
func (ManualOverride) isOutcome()       {}

// BreakingTeam is the break engine's verdict on one team in one category.
type BreakingTeam struct {
	CategoryID string `json:"category_id"`
	TeamID     string `json:"team_id"`

	// Rank is the overall rank including ineligible and capped teams.
	Rank int `json:"rank"`

	// BreakRank is the rank among breaking teams; nil when not breaking.
	BreakRank *int `json:"break_rank,omitempty"`

	// Outcome is nil for a breaking team, Automatic for an engine remark and
	// ManualOverride for an operator remark.
	Outcome Outcome `json:"-"`
}

// Remark returns the remark, empty for breaking teams.
func (bt BreakingTeam) Remark() Remark {
	if bt.Outcome == nil {
		return RemarkNone
	}
	return bt.Outcome.Remark()
}

// IsManual reports whether the remark was set by an operator.
func (bt BreakingTeam) IsManual() bool {
	_, ok := bt.Outcome.(ManualOverride)
	return ok
}

// Breaking reports whether the team is in the break.
func (bt BreakingTeam) Breaking() bool { return bt.BreakRank != nil }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
