package db

// Timestamps are TEXT in both dialects, written by the services in a fixed
// width UTC layout.

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  github_username TEXT UNIQUE NOT NULL,
  created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users (id),
  attempt_number INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  deadline_at TEXT NOT NULL,
  finished_at TEXT,
  score INTEGER,
  total_questions INTEGER,
  answers_json TEXT,
  option_mapping_json TEXT NOT NULL,
  incorrect_json TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_attempts_user_number ON attempts (user_id, attempt_number)`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  github_username TEXT UNIQUE NOT NULL,
  created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users (id),
  attempt_number INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  deadline_at TEXT NOT NULL,
  finished_at TEXT,
  score INTEGER,
  total_questions INTEGER,
  answers_json TEXT,
  option_mapping_json TEXT NOT NULL,
  incorrect_json TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_attempts_user_number ON attempts (user_id, attempt_number)`,
}
