package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and sessions",
		SQL: `
			CREATE TABLE users (
				id             TEXT PRIMARY KEY,
				name           TEXT NOT NULL,
				email          TEXT NOT NULL,
				password_hash  TEXT NOT NULL,
				created_at     TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_users_email ON users (email);

			CREATE TABLE sessions (
				token       TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at  TEXT NOT NULL,
				expires_at  TEXT NOT NULL
			);

			CREATE INDEX idx_sessions_user ON sessions (user_id);
			CREATE INDEX idx_sessions_expires ON sessions (expires_at);
		`,
	},
	{
		Version: 2,
		Name:    "create agents and meetings",
		SQL: `
			CREATE TABLE agents (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				instructions  TEXT NOT NULL,
				user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			);

			CREATE INDEX idx_agents_user ON agents (user_id, created_at DESC, id DESC);

			CREATE TABLE meetings (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				agent_id    TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				status      TEXT NOT NULL DEFAULT 'upcoming',
				started_at  TEXT,
				ended_at    TEXT,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);

			CREATE INDEX idx_meetings_user ON meetings (user_id, created_at DESC, id DESC);
			CREATE INDEX idx_meetings_agent ON meetings (agent_id);
		`,
	},
	{
		Version: 3,
		Name:    "create subscriptions",
		SQL: `
			CREATE TABLE subscriptions (
				user_id     TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				product_id  TEXT NOT NULL,
				status      TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);
		`,
	},
}
