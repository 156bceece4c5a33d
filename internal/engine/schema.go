package engine

// schemaSQL is applied when no persisted image exists. Notebooks and
// chapters are append-only reference data addressed by natural key; words
// may be orphaned (NULL notebook/chapter) and must stay queryable.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS chapters (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	notebook_id INTEGER NOT NULL REFERENCES notebooks(id),
	name        TEXT NOT NULL,
	UNIQUE(notebook_id, name)
);

CREATE TABLE IF NOT EXISTS words (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	notebook_id  INTEGER REFERENCES notebooks(id),
	chapter_id   INTEGER REFERENCES chapters(id),
	headword     TEXT NOT NULL,
	phonetic     TEXT,
	html_content TEXT NOT NULL DEFAULT '',
	tags         TEXT
);

CREATE TABLE IF NOT EXISTS stats_daily (
	date          TEXT PRIMARY KEY,
	learned_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_words_notebook ON words(notebook_id);
CREATE INDEX IF NOT EXISTS idx_words_chapter  ON words(chapter_id);
`
