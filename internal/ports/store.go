// Package ports defines the interfaces between the tournament engines and
// the infrastructure that feeds and persists them. The engines themselves
// never touch these; the application service does.
package ports

import (
	"context"

	"github.com/ahrav/go-tabroom/internal/domain"
)

// SnapshotLoader materializes a read-only view of a tournament.
type SnapshotLoader interface {
	// LoadSnapshot returns everything the engines need to operate on round.
	// Results are returned for every round; callers filter by round.
	// Debates holds the persisted debates of round only.
	// It returns domain.ErrNotFound for an unknown tournament.
	LoadSnapshot(ctx context.Context, tournamentID string, round int) (domain.Snapshot, error)
}

// DrawStore persists generated draws.
type DrawStore interface {
	// SaveDebates replaces the debates of a round in one transaction.
	SaveDebates(ctx context.Context, tournamentID string, round int, debates []domain.Debate) error

	// Debates returns the debates of a round ordered by room rank.
	Debates(ctx context.Context, tournamentID string, round int) ([]domain.Debate, error)
}

// AllocationStore persists adjudicator allocations.
type AllocationStore interface {
	// SaveAllocations replaces the allocations of every debate in allocs.
	SaveAllocations(ctx context.Context, allocs []domain.AdjudicatorAllocation) error

	// Allocations returns the allocations of a round keyed by debate ID.
	Allocations(ctx context.Context, tournamentID string, round int) (map[string]domain.AdjudicatorAllocation, error)
}

// BreakStore persists break results.
type BreakStore interface {
	// ReplaceBreak stores the full set of rows for a category, deleting any
	// row not present in teams. Callers serialize writes per category.
	ReplaceBreak(ctx context.Context, tournamentID, categoryID string, teams []domain.BreakingTeam) error

	// SetRemark records an operator override for one team.
	SetRemark(ctx context.Context, tournamentID, categoryID, teamID string, remark domain.Remark) error
}

// RosterStore imports registration data and results.
type RosterStore interface {
	// ImportRoster upserts the tournament under a display name together
	// with its institutions, teams, adjudicators, venues, break categories,
	// availability and confirmed results.
	ImportRoster(ctx context.Context, name string, snap domain.Snapshot) error
}

// AvailabilityStore records per-round check-ins.
type AvailabilityStore interface {
	// SetAvailability replaces the check-ins of av.Round. IDs that are not
	// part of the tournament fail with domain.ErrNotFound.
	SetAvailability(ctx context.Context, tournamentID string, av domain.RoundAvailability) error
}

// Store combines every persistence port.
type Store interface {
	SnapshotLoader
	DrawStore
	AllocationStore
	BreakStore
	RosterStore
	AvailabilityStore
}
