package domain

import "slices"

// StandingEntry is one team's derived position in the standings. Entries are
// always produced fresh from raw results and never mutated in place.
type StandingEntry struct {
	TeamID        string  `json:"team_id"`
	Points        float64 `json:"points"`
	SpeakerScore  float64 `json:"speaker_score"`
	Wins          int     `json:"wins"`
	DrawStrength  float64 `json:"draw_strength"`
	Margins       float64 `json:"margins"`
	RoundsCounted int     `json:"rounds_counted"`

	// Rank is the 1-based index of the first team in this entry's tie group.
	Rank int `json:"rank"`

	// SubRank is the rank among teams on the same points.
	SubRank int `json:"sub_rank"`
}

// DrawMethod selects how a round is paired.
type DrawMethod string

// Supported draw methods.
const (
	DrawRandom           DrawMethod = "random"
	DrawPowerPaired      DrawMethod = "power_paired"
	DrawRoundRobin       DrawMethod = "round_robin"
	DrawManual           DrawMethod = "manual"
	DrawFirstElimination DrawMethod = "first_elimination"
	DrawElimination      DrawMethod = "elimination"
)

// DrawFlag annotates a pairing with what the generator had to do to produce it.
type DrawFlag string

// Draw flags attached to pairings.
const (
	FlagPullup            DrawFlag = "pullup"
	FlagIntermediate      DrawFlag = "intermediate"
	FlagSwapHistory       DrawFlag = "1u1d_hist"
	FlagSwapInstitution   DrawFlag = "1u1d_inst"
	FlagSwapOther         DrawFlag = "1u1d_other"
	FlagSwapSide          DrawFlag = "1u1d_side"
	FlagHistoryConflict   DrawFlag = "hist_conflict"
	FlagInstitutionClash  DrawFlag = "inst_conflict"
	FlagBye               DrawFlag = "bye"
	FlagSideConflict      DrawFlag = "side_conflict"
	FlagSidesPreallocated DrawFlag = "sides_preallocated"
)

// DrawFlagDescriptions gives a readable description for every flag.
var DrawFlagDescriptions = map[DrawFlag]string{
	FlagPullup:            "team pulled up from a lower bracket",
	FlagIntermediate:      "intermediate bracket",
	FlagSwapHistory:       "swapped one-up-one-down to avoid history conflict",
	FlagSwapInstitution:   "swapped one-up-one-down to avoid institution conflict",
	FlagSwapOther:         "swapped one-up-one-down to fix another debate",
	FlagSwapSide:          "swapped to keep side counts balanced",
	FlagHistoryConflict:   "teams have met before; no swap could resolve it",
	FlagInstitutionClash:  "teams share an institution; no swap could resolve it",
	FlagBye:               "bye",
	FlagSideConflict:      "both teams pinned to the same side",
	FlagSidesPreallocated: "sides taken from a preallocated position",
}

// Pairing is a proposed, not yet persisted, match between two teams.
type Pairing struct {
	// Aff and Neg are team IDs. Neg is empty for an assigned bye.
	Aff string `json:"aff"`
	Neg string `json:"neg,omitempty"`

	// Bracket is the points level the teams were drawn from. Intermediate
	// brackets are fractional.
	Bracket float64 `json:"bracket"`

	// RoomRank orders debates by importance for venue priority; 1 is the most
	// important. Byes have room rank 0.
	RoomRank int `json:"room_rank"`

	// Flags records pull-ups, swaps and unresolved conflicts.
	Flags []DrawFlag `json:"flags,omitempty"`

	// DivisionID is set for division-based draws.
	DivisionID string `json:"division_id,omitempty"`
}

// Teams returns the team IDs in the pairing.
func (p Pairing) Teams() []string {
	if p.Neg == "" {
		return []string{p.Aff}
	}
	return []string{p.Aff, p.Neg}
}

// HasFlag reports whether the pairing carries flag.
func (p Pairing) HasFlag(flag DrawFlag) bool { return slices.Contains(p.Flags, flag) }

// IsBye reports whether the pairing is a bye and needs no venue.
func (p Pairing) IsBye() bool { return p.HasFlag(FlagBye) }

// AddFlag attaches flag once.
func (p *Pairing) AddFlag(flag DrawFlag) {
	if !p.HasFlag(flag) {
		p.Flags = append(p.Flags, flag)
	}
}

// Debate is a persisted pairing with a venue and adjudicator allocation.
type Debate struct {
	ID    string `json:"id"`
	Round int    `json:"round"`

	// Aff and Neg are team IDs as in Pairing.
	Aff string `json:"aff"`
	Neg string `json:"neg,omitempty"`

	Bracket  float64 `json:"bracket"`
	RoomRank int     `json:"room_rank"`

	// Importance is an operator weighting; zero leaves the allocator to
	// order debates by bracket.
	Importance int `json:"importance"`

	// VenueID is empty for a bye.
	VenueID string     `json:"venue_id,omitempty"`
	Flags   []DrawFlag `json:"flags,omitempty"`
}

// Teams returns the team IDs in the debate.
func (d Debate) Teams() []string {
	if d.Neg == "" {
		return []string{d.Aff}
	}
	return []string{d.Aff, d.Neg}
}

// Venue is a room a debate can be held in. Higher priority venues go to
// lower room ranks.
type Venue struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Priority orders venues; the highest goes to room rank 1.
	Priority int `json:"priority"`

	// DivisionID reserves the venue for one division's debates. Empty
	// venues host any debate.
	DivisionID string `json:"division_id,omitempty"`
}

// Hosts reports whether the venue may hold a debate of division.
func (v Venue) Hosts(division string) bool {
	return v.DivisionID == "" || v.DivisionID == division
}
