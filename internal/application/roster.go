package application

import (
	"slices"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// Tournament is a compiled tournament configuration. Its snapshot carries
// the options, break categories and roster; debates, allocations and break
// rows live only in the store.
type Tournament struct {
	Name   string
	Rounds int

	Snapshot domain.Snapshot
}

// compile resolves references in a validated configuration and converts it
// to domain types.
func compile(cfg *TournamentConfig) (*Tournament, error) {
	verr := domain.NewValidationError("roster")
	r := cfg.Roster

	institutions := make([]domain.Institution, len(r.Institutions))
	for i, inst := range r.Institutions {
		institutions[i] = domain.Institution{
			ID:           inst.ID,
			Name:         inst.Name,
			Code:         inst.Code,
			Abbreviation: inst.Abbreviation,
			RegionID:     inst.Region,
		}
	}
	index := domain.NewInstitutionIndex(institutions)
	resolve := func(owner, ref string) string {
		if ref == "" {
			return ""
		}
		inst, err := index.Lookup(ref)
		if err != nil {
			verr.AddErrorf("%s: %v", owner, err)
			return ""
		}
		return inst.ID
	}

	snap := domain.Snapshot{
		TournamentID: cfg.Tournament.ID,
		Options:      cfg.Options.ToDomain(),
		Institutions: institutions,
	}

	for _, c := range cfg.BreakCategories {
		snap.Categories = append(snap.Categories, c.ToDomain())
	}

	for _, t := range r.Teams {
		typ := domain.TeamType(t.Type)
		if typ == "" {
			typ = domain.TeamNormal
		}
		snap.Teams = append(snap.Teams, domain.Team{
			ID:                 t.ID,
			Name:               t.Name,
			InstitutionID:      resolve("team "+t.ID, t.Institution),
			DivisionID:         t.Division,
			Type:               typ,
			BreakCategories:    slices.Clone(t.BreakCategories),
			ExcludedCategories: slices.Clone(t.ExcludeCategories),
		})
	}

	for _, a := range r.Adjudicators {
		adj := domain.Adjudicator{
			ID:                   a.ID,
			Name:                 a.Name,
			InstitutionID:        resolve("adjudicator "+a.ID, a.Institution),
			TestScore:            a.TestScore,
			FeedbackScore:        a.FeedbackScore,
			Novice:               a.Novice,
			TeamConflicts:        slices.Clone(a.TeamConflicts),
			AdjudicatorConflicts: slices.Clone(a.AdjudicatorConflicts),
		}
		if !a.Shared {
			adj.TournamentID = cfg.Tournament.ID
		}
		for _, ref := range a.InstitutionConflicts {
			if id := resolve("adjudicator "+a.ID+" conflict", ref); id != "" {
				adj.InstitutionConflicts = append(adj.InstitutionConflicts, id)
			}
		}
		snap.Adjudicators = append(snap.Adjudicators, adj)
	}

	for _, v := range r.Venues {
		snap.Venues = append(snap.Venues, domain.Venue{ID: v.ID, Name: v.Name, Priority: v.Priority, DivisionID: v.Division})
	}

	for _, av := range r.Availability {
		snap.Availability = append(snap.Availability, domain.RoundAvailability{
			Round:        av.Round,
			Teams:        slices.Clone(av.Teams),
			Adjudicators: slices.Clone(av.Adjudicators),
			Venues:       slices.Clone(av.Venues),
		})
	}

	for _, res := range r.Results {
		snap.Results = append(snap.Results, domain.Result{
			TeamID:       res.Team,
			OpponentID:   res.Opponent,
			Round:        res.Round,
			Points:       res.Points,
			SpeakerScore: res.Speaks,
			Margin:       res.Margin,
			Win:          res.Win,
			Side:         domain.Side(res.Side),
		})
	}

	for _, sa := range r.SideAllocations {
		snap.SideAllocations = append(snap.SideAllocations, domain.SideAllocation{
			TeamID: sa.Team,
			Round:  sa.Round,
			Side:   domain.Side(sa.Side),
		})
	}

	domain.ApplySideCounts(snap.Teams, snap.Results)

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return &Tournament{
		Name:     cfg.Tournament.Name,
		Rounds:   cfg.Tournament.Rounds,
		Snapshot: snap,
	}, nil
}
