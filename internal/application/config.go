// Package application wires the tournament engines to configuration,
// persistence and observability.
package application

import (
	"github.com/ahrav/go-tabroom/internal/domain"
)

// TournamentConfig is the complete YAML description of a tournament: its
// tabulation options, break categories and, optionally, its roster.
type TournamentConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning.
	Version string `yaml:"version" validate:"required,semver"`

	// Tournament identifies the tournament.
	Tournament TournamentMeta `yaml:"tournament" validate:"required"`

	// Options tune the engines. Unset fields keep their defaults.
	Options OptionsConfig `yaml:"options"`

	// BreakCategories define the elimination streams.
	BreakCategories []BreakCategoryConfig `yaml:"break_categories" validate:"dive"`

	// Roster holds registration data and confirmed results.
	Roster RosterConfig `yaml:"roster"`
}

// TournamentMeta names a tournament.
type TournamentMeta struct {
	// ID is the stable key used by the store and the CLI.
	ID string `yaml:"id" validate:"required,slug,max=64"`

	// Name is the human-readable tournament name.
	Name string `yaml:"name" validate:"required,min=1,max=255"`

	// Rounds is the number of preliminary rounds.
	Rounds int `yaml:"rounds" validate:"omitempty,min=1,max=50"`
}

// OptionsConfig mirrors domain.Options with YAML names and validation.
type OptionsConfig struct {
	AvoidSameInstitution   bool    `yaml:"avoid_same_institution"`
	AvoidTeamHistory       bool    `yaml:"avoid_team_history"`
	TeamHistoryPenalty     float64 `yaml:"team_history_penalty" validate:"gte=0"`
	TeamInstitutionPenalty float64 `yaml:"team_institution_penalty" validate:"gte=0"`

	DrawPairingMethod string `yaml:"draw_pairing_method" validate:"oneof=random power_paired round_robin manual first_elimination elimination"`
	PairingMethod     string `yaml:"pairing_method" validate:"oneof=slide fold adjacent random"`
	OddBracket        string `yaml:"odd_bracket" validate:"oneof=pullup_bottom pullup_top pullup_random intermediate"`
	AvoidConflicts    string `yaml:"avoid_conflicts" validate:"oneof=off one_up_one_down"`
	SideAllocations   string `yaml:"side_allocations" validate:"oneof=balance random preallocated none"`
	AllowBye          bool   `yaml:"allow_bye"`

	InstitutionCapRule string `yaml:"institution_cap_rule" validate:"oneof=none flat aida_2016"`

	ShareAdjs             bool    `yaml:"share_adjs"`
	FeedbackWeight        float64 `yaml:"feedback_weight" validate:"gte=0,lte=1"`
	PanelSize             int     `yaml:"panel_size" validate:"gte=0,lte=8,evenpanel"`
	AdjTeamHistoryPenalty float64 `yaml:"adj_team_history_penalty" validate:"gte=0"`
	AdjAdjHistoryPenalty  float64 `yaml:"adj_adj_history_penalty" validate:"gte=0"`
	AllocationIterations  int     `yaml:"allocation_iterations" validate:"gte=0,lte=100000"`

	StandingsMethod    string   `yaml:"standings_method" validate:"oneof=total average"`
	TeamStandingsRules []string `yaml:"team_standings_rules" validate:"max=5,unique,dive,oneof=speaks draw_strength wins margins who_beat_whom"`

	// Seed fixes random choices; zero derives one from the clock.
	Seed int64 `yaml:"seed"`
}

// BreakCategoryConfig describes one elimination stream.
type BreakCategoryConfig struct {
	ID             string  `yaml:"id" validate:"required,slug,max=64"`
	Name           string  `yaml:"name" validate:"required,max=255"`
	Seq            int     `yaml:"seq" validate:"gte=0"`
	Priority       int     `yaml:"priority" validate:"gte=0"`
	BreakSize      int     `yaml:"break_size" validate:"required,min=1,max=1024"`
	InstitutionCap *int    `yaml:"institution_cap" validate:"omitempty,min=1"`
	IsGeneral      bool    `yaml:"is_general"`
	CapRule        string  `yaml:"cap_rule" validate:"omitempty,oneof=none flat aida_2016"`
	PointsFloor    float64 `yaml:"points_floor" validate:"gte=0"`
}

// RosterConfig lists registration data. Teams and adjudicators refer to
// institutions by ID, code, name or abbreviation.
type RosterConfig struct {
	Institutions    []InstitutionConfig    `yaml:"institutions" validate:"dive"`
	Teams           []TeamConfig           `yaml:"teams" validate:"dive"`
	Adjudicators    []AdjudicatorConfig    `yaml:"adjudicators" validate:"dive"`
	Venues          []VenueConfig          `yaml:"venues" validate:"dive"`
	Results         []ResultConfig         `yaml:"results" validate:"dive"`
	SideAllocations []SideAllocationConfig `yaml:"side_allocations" validate:"dive"`
	Availability    []AvailabilityConfig   `yaml:"availability" validate:"dive"`
}

// InstitutionConfig describes an institution.
type InstitutionConfig struct {
	ID           string `yaml:"id" validate:"required,slug"`
	Name         string `yaml:"name" validate:"required"`
	Code         string `yaml:"code" validate:"required,max=20"`
	Abbreviation string `yaml:"abbreviation" validate:"max=20"`
	Region       string `yaml:"region"`
}

// TeamConfig describes a team.
type TeamConfig struct {
	ID              string   `yaml:"id" validate:"required,slug"`
	Name            string   `yaml:"name" validate:"required"`
	Institution     string   `yaml:"institution"`
	Division        string   `yaml:"division"`
	Type            string   `yaml:"type" validate:"omitempty,oneof=normal swing composite bye"`
	BreakCategories []string `yaml:"break_categories" validate:"unique,dive,slug"`

	// ExcludeCategories opts the team out of categories, general ones included.
	ExcludeCategories []string `yaml:"exclude_categories" validate:"unique,dive,slug"`
}

// AdjudicatorConfig describes an adjudicator.
type AdjudicatorConfig struct {
	ID                   string   `yaml:"id" validate:"required,slug"`
	Name                 string   `yaml:"name" validate:"required"`
	Institution          string   `yaml:"institution"`
	Shared               bool     `yaml:"shared"`
	TestScore            float64  `yaml:"test_score" validate:"gte=0,lte=10"`
	FeedbackScore        *float64 `yaml:"feedback_score" validate:"omitempty,gte=0,lte=10"`
	Novice               bool     `yaml:"novice"`
	TeamConflicts        []string `yaml:"team_conflicts" validate:"dive,slug"`
	InstitutionConflicts []string `yaml:"institution_conflicts"`
	AdjudicatorConflicts []string `yaml:"adjudicator_conflicts" validate:"dive,slug"`
}

// VenueConfig describes a room.
type VenueConfig struct {
	ID       string `yaml:"id" validate:"required,slug"`
	Name     string `yaml:"name" validate:"required"`
	Priority int    `yaml:"priority"`

	// Division reserves the venue for one division's debates.
	Division string `yaml:"division"`
}

// ResultConfig is one confirmed team result.
type ResultConfig struct {
	Team     string  `yaml:"team" validate:"required,slug"`
	Opponent string  `yaml:"opponent" validate:"omitempty,slug,nefield=Team"`
	Round    int     `yaml:"round" validate:"required,min=1"`
	Points   float64 `yaml:"points" validate:"gte=0"`
	Speaks   float64 `yaml:"speaks" validate:"gte=0"`
	Margin   float64 `yaml:"margin"`
	Win      bool    `yaml:"win"`
	Side     string  `yaml:"side" validate:"omitempty,oneof=aff neg"`
}

// SideAllocationConfig pins a team to a side for one round.
type SideAllocationConfig struct {
	Team  string `yaml:"team" validate:"required,slug"`
	Round int    `yaml:"round" validate:"required,min=1"`
	Side  string `yaml:"side" validate:"required,oneof=aff neg"`
}

// AvailabilityConfig lists who is checked in for a round. Omitted lists
// leave everyone of that kind available.
type AvailabilityConfig struct {
	Round        int      `yaml:"round" validate:"required,min=1"`
	Teams        []string `yaml:"teams" validate:"unique,dive,slug"`
	Adjudicators []string `yaml:"adjudicators" validate:"unique,dive,slug"`
	Venues       []string `yaml:"venues" validate:"unique,dive,slug"`
}

// DefaultConfig returns a configuration holding the default options. YAML
// is decoded on top of it so omitted options keep their defaults.
func DefaultConfig() TournamentConfig {
	return TournamentConfig{Options: OptionsFromDomain(domain.DefaultOptions())}
}

// OptionsFromDomain converts engine options to their YAML form.
func OptionsFromDomain(o domain.Options) OptionsConfig {
	rules := make([]string, len(o.TieBreakRules))
	for i, r := range o.TieBreakRules {
		rules[i] = string(r)
	}
	return OptionsConfig{
		AvoidSameInstitution:   o.AvoidSameInstitution,
		AvoidTeamHistory:       o.AvoidTeamHistory,
		TeamHistoryPenalty:     o.TeamHistoryPenalty,
		TeamInstitutionPenalty: o.TeamInstitutionPenalty,
		DrawPairingMethod:      string(o.DrawMethod),
		PairingMethod:          string(o.PairingMethod),
		OddBracket:             string(o.OddBracket),
		AvoidConflicts:         string(o.AvoidConflicts),
		SideAllocations:        string(o.SideAllocations),
		AllowBye:               o.AllowBye,
		InstitutionCapRule:     string(o.InstitutionCapRule),
		ShareAdjs:              o.ShareAdjs,
		FeedbackWeight:         o.FeedbackWeight,
		PanelSize:              o.PanelSize,
		AdjTeamHistoryPenalty:  o.AdjTeamHistoryPenalty,
		AdjAdjHistoryPenalty:   o.AdjAdjHistoryPenalty,
		AllocationIterations:   o.AllocationIterations,
		StandingsMethod:        string(o.StandingsMethod),
		TeamStandingsRules:     rules,
		Seed:                   o.Seed,
	}
}

// ToDomain converts validated options to engine options.
func (c OptionsConfig) ToDomain() domain.Options {
	rules := make([]domain.TieBreakRule, len(c.TeamStandingsRules))
	for i, r := range c.TeamStandingsRules {
		rules[i] = domain.TieBreakRule(r)
	}
	return domain.Options{
		AvoidSameInstitution:   c.AvoidSameInstitution,
		AvoidTeamHistory:       c.AvoidTeamHistory,
		TeamHistoryPenalty:     c.TeamHistoryPenalty,
		TeamInstitutionPenalty: c.TeamInstitutionPenalty,
		DrawMethod:             domain.DrawMethod(c.DrawPairingMethod),
		PairingMethod:          domain.PairingMethod(c.PairingMethod),
		OddBracket:             domain.OddBracketRule(c.OddBracket),
		AvoidConflicts:         domain.AvoidConflicts(c.AvoidConflicts),
		SideAllocations:        domain.SideAllocationRule(c.SideAllocations),
		AllowBye:               c.AllowBye,
		InstitutionCapRule:     domain.CapRule(c.InstitutionCapRule),
		ShareAdjs:              c.ShareAdjs,
		FeedbackWeight:         c.FeedbackWeight,
		PanelSize:              c.PanelSize,
		AdjTeamHistoryPenalty:  c.AdjTeamHistoryPenalty,
		AdjAdjHistoryPenalty:   c.AdjAdjHistoryPenalty,
		AllocationIterations:   c.AllocationIterations,
		StandingsMethod:        domain.StandingsMethod(c.StandingsMethod),
		TieBreakRules:          rules,
		Seed:                   c.Seed,
	}
}

// ToDomain converts a category configuration.
func (c BreakCategoryConfig) ToDomain() domain.BreakCategory {
	return domain.BreakCategory{
		ID:             c.ID,
		Name:           c.Name,
		Seq:            c.Seq,
		Priority:       c.Priority,
		BreakSize:      c.BreakSize,
		InstitutionCap: c.InstitutionCap,
		IsGeneral:      c.IsGeneral,
		CapRule:        domain.CapRule(c.CapRule),
		PointsFloor:    c.PointsFloor,
	}
}
