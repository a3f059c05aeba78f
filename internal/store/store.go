// Package store implements the durable name -> JobInfo mapping. It is a
// thin, synchronous layer over a SQL table; the only caller in this program
// is the state actor (internal/state), which serializes every access.
package store

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/omarelawady/godownload/internal/errs"
	"github.com/omarelawady/godownload/internal/types"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	name       TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	path       TEXT NOT NULL,
	downloaded INTEGER,
	total      INTEGER,
	state      TEXT,
	msg        TEXT
)`

// Store is the synchronous, single-threaded job table. Nothing in it is
// safe for concurrent use by design — the state actor is its only caller,
// one request at a time.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite-backed job table at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "open database"))
	}
	// The actor is the sole writer/reader; one connection is enough and
	// avoids SQLITE_BUSY contention against ourselves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "create jobs table"))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes the full JobInfo row, replacing any existing row of the
// same name.
func (s *Store) Upsert(info types.JobInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO jobs (name, url, path, downloaded, total, state, msg)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   url=excluded.url, path=excluded.path, downloaded=excluded.downloaded,
		   total=excluded.total, state=excluded.state, msg=excluded.msg`,
		info.Name, info.URL, info.Path, info.Downloaded, info.Total, info.State.String(), info.Msg,
	)
	if err != nil {
		return errs.Wrap(errs.DatabaseError, errors.Wrap(err, "upsert job"))
	}
	return nil
}

// SetState updates only the state column. A missing row is not an error:
// the UPDATE simply affects zero rows.
func (s *Store) SetState(name string, state types.State) error {
	_, err := s.db.Exec(`UPDATE jobs SET state = ? WHERE name = ?`, state.String(), name)
	if err != nil {
		return errs.Wrap(errs.DatabaseError, errors.Wrap(err, "set job state"))
	}
	return nil
}

// Delete removes the row for name. An absent row is not an error.
func (s *Store) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE name = ?`, name)
	if err != nil {
		return errs.Wrap(errs.DatabaseError, errors.Wrap(err, "delete job"))
	}
	return nil
}

// Get reads the row for name, returning DownloadJobNotFound if absent.
func (s *Store) Get(name string) (types.JobInfo, error) {
	row := s.db.QueryRow(
		`SELECT name, url, path, downloaded, total, state, msg FROM jobs WHERE name = ?`, name,
	)
	info, stateStr, err := scanRow(row)
	if err == sql.ErrNoRows {
		return types.JobInfo{}, errs.Newf(errs.DownloadJobNotFound, "%s not found", name)
	}
	if err != nil {
		return types.JobInfo{}, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "get job"))
	}
	info.State = types.ParseState(stateStr)
	return info, nil
}

// List returns every job row. Order is whatever SQLite returns for a plain
// SELECT with no ORDER BY — stable within a call, unspecified across them.
func (s *Store) List() ([]types.JobInfo, error) {
	rows, err := s.db.Query(`SELECT name, url, path, downloaded, total, state, msg FROM jobs`)
	if err != nil {
		return nil, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "list jobs"))
	}
	defer rows.Close()

	var out []types.JobInfo
	for rows.Next() {
		info, stateStr, err := scanRows(rows)
		if err != nil {
			return nil, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "scan job row"))
		}
		info.State = types.ParseState(stateStr)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.DatabaseError, errors.Wrap(err, "iterate jobs"))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(row *sql.Row) (types.JobInfo, string, error) {
	return scan(row)
}

func scanRows(rows *sql.Rows) (types.JobInfo, string, error) {
	return scan(rows)
}

func scan(s scanner) (types.JobInfo, string, error) {
	var info types.JobInfo
	var stateStr string
	err := s.Scan(&info.Name, &info.URL, &info.Path, &info.Downloaded, &info.Total, &stateStr, &info.Msg)
	if err != nil {
		return types.JobInfo{}, "", err
	}
	return info, stateStr, nil
}
