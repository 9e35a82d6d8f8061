package store

// migration is a single schema change, applied in version order.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "initial schema",
		SQL: `
			CREATE TABLE sessions (
				id         TEXT PRIMARY KEY,
				key_str    TEXT NOT NULL UNIQUE,
				platform_id TEXT NOT NULL,
				chat_id    TEXT NOT NULL,
				sender_id  TEXT NOT NULL,
				model      TEXT NOT NULL,
				prompt     TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE TABLE turns (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				role           TEXT NOT NULL,
				content        TEXT NOT NULL,
				tool_call_name TEXT,
				tool_call_args TEXT,
				tool_name      TEXT,
				sender_id      TEXT,
				tokens         INTEGER NOT NULL DEFAULT 0,
				timestamp      TEXT NOT NULL
			);
			CREATE INDEX idx_turns_session ON turns(session_id, id);

			CREATE TABLE senders (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL DEFAULT '',
				is_admin   INTEGER NOT NULL DEFAULT 0,
				info       TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`,
	},
}
