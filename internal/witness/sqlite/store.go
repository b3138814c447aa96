// Package sqlite implements witness.Store on top of SQLite, creating its
// schema when the database is opened.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmdrvl/fingerprint/internal/witness"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements witness.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the witness ledger at dbPath. Use
// ":memory:" for an ephemeral ledger in tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open witness db: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create witness schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		version TEXT NOT NULL,
		binary_hash TEXT NOT NULL,
		inputs TEXT NOT NULL,
		params TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		output_hash TEXT NOT NULL,
		prev TEXT,
		timestamp INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes a new entry chained to the current tip. A witness write
// failure never changes the caller's exit code; callers should log and
// continue rather than propagate this error to the process outcome.
func (s *Store) Append(p witness.AppendParams) (witness.Entry, error) {
	prev, err := s.tip()
	if err != nil {
		return witness.Entry{}, err
	}

	inputs := p.Inputs
	if inputs == nil {
		inputs = []witness.InputRef{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return witness.Entry{}, fmt.Errorf("encode witness inputs: %w", err)
	}
	params := p.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return witness.Entry{}, fmt.Errorf("encode witness params: %w", err)
	}

	entry := witness.Entry{
		ID:         witness.NewEntryID(),
		Tool:       p.Tool,
		Version:    p.Version,
		BinaryHash: p.BinaryHash,
		Inputs:     inputs,
		Params:     params,
		Outcome:    p.Outcome,
		ExitCode:   p.ExitCode,
		OutputHash: p.OutputHash,
		Prev:       prev,
		Timestamp:  time.Now(),
	}

	_, err = s.db.Exec(
		`INSERT INTO entries (id, tool, version, binary_hash, inputs, params, outcome, exit_code, output_hash, prev, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Tool, entry.Version, entry.BinaryHash, string(inputsJSON), string(paramsJSON),
		entry.Outcome, entry.ExitCode, entry.OutputHash, nullableString(entry.Prev), entry.Timestamp.Unix(),
	)
	if err != nil {
		return witness.Entry{}, fmt.Errorf("append witness entry: %w", err)
	}
	return entry, nil
}

func (s *Store) tip() (string, error) {
	row := s.db.QueryRow(`SELECT id FROM entries ORDER BY timestamp DESC, rowid DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("read witness tip: %w", err)
	}
	return id, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
