package store

// schema creates every table. Statements are portable between SQLite and
// PostgreSQL and safe to re-run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tournaments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		options TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS institutions (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		abbreviation TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tournament_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		institution_id TEXT NOT NULL DEFAULT '',
		division_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'normal',
		break_categories TEXT NOT NULL DEFAULT '[]',
		excluded_categories TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (tournament_id, id)
	)`,

	// Shared adjudicators have an empty tournament_id.
	`CREATE TABLE IF NOT EXISTS adjudicators (
		tournament_id TEXT NOT NULL DEFAULT '',
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		institution_id TEXT NOT NULL DEFAULT '',
		test_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		feedback_score DOUBLE PRECISION,
		novice BOOLEAN NOT NULL DEFAULT FALSE,
		team_conflicts TEXT NOT NULL DEFAULT '[]',
		institution_conflicts TEXT NOT NULL DEFAULT '[]',
		adjudicator_conflicts TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (tournament_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS venues (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		division_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tournament_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS break_categories (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		priority INTEGER NOT NULL DEFAULT 0,
		break_size INTEGER NOT NULL,
		institution_cap INTEGER,
		is_general BOOLEAN NOT NULL DEFAULT FALSE,
		cap_rule TEXT NOT NULL DEFAULT '',
		points_floor DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (tournament_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS results (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		opponent_id TEXT NOT NULL DEFAULT '',
		points DOUBLE PRECISION NOT NULL DEFAULT 0,
		speaks DOUBLE PRECISION NOT NULL DEFAULT 0,
		margin DOUBLE PRECISION NOT NULL DEFAULT 0,
		win BOOLEAN NOT NULL DEFAULT FALSE,
		side TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tournament_id, team_id, round)
	)`,

	`CREATE TABLE IF NOT EXISTS side_allocations (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		side TEXT NOT NULL,
		PRIMARY KEY (tournament_id, team_id, round)
	)`,

	// One row per member checked in for a round. kind is team, adjudicator
	// or venue.
	`CREATE TABLE IF NOT EXISTS availability (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		round INTEGER NOT NULL,
		kind TEXT NOT NULL,
		member_id TEXT NOT NULL,
		PRIMARY KEY (tournament_id, round, kind, member_id)
	)`,

	`CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		round INTEGER NOT NULL,
		position INTEGER NOT NULL,
		aff TEXT NOT NULL,
		neg TEXT NOT NULL DEFAULT '',
		bracket DOUBLE PRECISION NOT NULL DEFAULT 0,
		room_rank INTEGER NOT NULL DEFAULT 0,
		importance INTEGER NOT NULL DEFAULT 0,
		venue_id TEXT NOT NULL DEFAULT '',
		flags TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_debates_round ON debates(tournament_id, round)`,

	`CREATE TABLE IF NOT EXISTS debate_adjudicators (
		debate_id TEXT NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
		adjudicator_id TEXT NOT NULL,
		role TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (debate_id, adjudicator_id)
	)`,

	`CREATE TABLE IF NOT EXISTS breaking_teams (
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		category_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		rank INTEGER NOT NULL DEFAULT 0,
		break_rank INTEGER,
		remark TEXT NOT NULL DEFAULT '',
		manual BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (tournament_id, category_id, team_id)
	)`,
}
