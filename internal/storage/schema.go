package storage

const schema = `
-- Single-row collection metadata. crt anchors the scheduler-day numbering.
CREATE TABLE IF NOT EXISTS col (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    crt INTEGER NOT NULL,
    ver INTEGER NOT NULL DEFAULT 2,
    usn INTEGER NOT NULL DEFAULT 0,
    current_deck INTEGER NOT NULL DEFAULT 1,
    last_unburied INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    conf_id INTEGER NOT NULL DEFAULT 1,
    dyn INTEGER NOT NULL DEFAULT 0,
    desc TEXT NOT NULL DEFAULT '',
    collapsed INTEGER NOT NULL DEFAULT 0,
    mtime INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    new_today_day INTEGER NOT NULL DEFAULT 0,
    new_today_count INTEGER NOT NULL DEFAULT 0,
    rev_today_day INTEGER NOT NULL DEFAULT 0,
    rev_today_count INTEGER NOT NULL DEFAULT 0,
    lrn_today_day INTEGER NOT NULL DEFAULT 0,
    lrn_today_count INTEGER NOT NULL DEFAULT 0,
    time_today_day INTEGER NOT NULL DEFAULT 0,
    time_today_count INTEGER NOT NULL DEFAULT 0,
    extend_new INTEGER NOT NULL DEFAULT 10,
    extend_rev INTEGER NOT NULL DEFAULT 50,
    terms TEXT NOT NULL DEFAULT '',   -- JSON, filtered decks only
    resched INTEGER NOT NULL DEFAULT 1,
    preview_delay INTEGER NOT NULL DEFAULT 10
);

-- Deck option groups; the body is a JSON blob shared by standard decks.
CREATE TABLE IF NOT EXISTS deck_config (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    config TEXT NOT NULL,
    mtime INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    hash TEXT NOT NULL UNIQUE,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    mtime INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Scheduling state, one row per card. Column order is the wire layout.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    nid INTEGER NOT NULL,
    did INTEGER NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    mtime INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    kind INTEGER NOT NULL DEFAULT 0,
    queue INTEGER NOT NULL DEFAULT 0,
    due INTEGER NOT NULL DEFAULT 0,
    ivl INTEGER NOT NULL DEFAULT 0,
    factor INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    left INTEGER NOT NULL DEFAULT 0,
    odue INTEGER NOT NULL DEFAULT 0,
    odid INTEGER NOT NULL DEFAULT 0,
    flags INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL DEFAULT '',

    FOREIGN KEY(nid) REFERENCES notes(id)
);

-- Append-only review history. id is the answer timestamp in milliseconds.
CREATE TABLE IF NOT EXISTS revlog (
    id INTEGER PRIMARY KEY,
    cid INTEGER NOT NULL,
    usn INTEGER NOT NULL DEFAULT 0,
    grade INTEGER NOT NULL,
    ivl INTEGER NOT NULL,
    last_ivl INTEGER NOT NULL,
    factor INTEGER NOT NULL,
    time_ms INTEGER NOT NULL,
    kind INTEGER NOT NULL
);

-- Card sources for the importer: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    deck TEXT NOT NULL DEFAULT 'Default',
    last_scanned DATETIME
);

CREATE INDEX IF NOT EXISTS idx_cards_did_queue_due ON cards(did, queue, due);
CREATE INDEX IF NOT EXISTS idx_cards_nid ON cards(nid);
CREATE INDEX IF NOT EXISTS idx_cards_kind ON cards(kind);
CREATE INDEX IF NOT EXISTS idx_revlog_cid ON revlog(cid);
`
