/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Job spool
 */

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// spoolSchema is the spool database schema
var spoolSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id              INTEGER PRIMARY KEY,
		uri             TEXT    NOT NULL,
		state           INTEGER NOT NULL,
		state_reasons   TEXT    NOT NULL,
		name            TEXT    NOT NULL DEFAULT '',
		user_name       TEXT    NOT NULL DEFAULT '',
		document_format TEXT    NOT NULL DEFAULT '',
		created         INTEGER NOT NULL,
		document        BLOB
	)`,

	// next_job_id is kept here, so IDs of jobs, that were
	// not saved into the jobs table, are not reused
	`CREATE TABLE IF NOT EXISTS meta (
		name  TEXT    PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// Spool saves jobs into the SQLite database, so they
// survive server restart
//
// Jobs are written by the background goroutine, so Save
// never blocks the IPP request
type Spool struct {
	db     *sql.DB        // The database
	path   string         // Database path
	queue  chan *Job      // Write queue
	done   sync.WaitGroup // Writer goroutine termination
	lock   sync.RWMutex   // Protects closed
	closed bool           // Spool is closed
}

// OpenSpool opens the spool database, creating it if needed
func OpenSpool(path string) (*Spool, error) {
	if path != ":memory:" {
		os.MkdirAll(filepath.Dir(path), 0755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("spool: failed to open database: %w", err)
	}

	// Single writer; also keeps :memory: database in one connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d",
			SpoolBusyTimeout/time.Millisecond),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("spool: failed to set pragma: %w", err)
		}
	}

	for _, stmt := range spoolSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("spool: failed to initialize schema: %w", err)
		}
	}

	spool := &Spool{
		db:    db,
		path:  path,
		queue: make(chan *Job, SpoolQueueSize),
	}

	spool.done.Add(1)
	go spool.goroutine()

	Log.Debug(' ', "spool: %s: opened", path)

	return spool, nil
}

// Save enqueues the job for saving. It implements
// JobSink interface
//
// The job itself is written in background, but the next job
// ID is updated synchronously, so job ID, once reported to
// the client, is never reused, even if job is not saved
func (spool *Spool) Save(job *Job) {
	spool.lock.RLock()
	defer spool.lock.RUnlock()

	if spool.closed {
		Log.Error('!', "spool: job %d: %s", job.ID, ErrSpoolClosed)
		return
	}

	err := spool.reserveJobID(context.Background(), job.ID+1)
	if err != nil {
		Log.Error('!', "spool: job %d: %s", job.ID, err)
	}

	select {
	case spool.queue <- job:
	default:
		Log.Error('!', "spool: job %d: write queue overflow, not saved",
			job.ID)
	}
}

// Load returns all saved jobs, ordered by ID
func (spool *Spool) Load(ctx context.Context) ([]*Job, error) {
	rows, err := spool.db.QueryContext(ctx, `
		SELECT id, uri, state, state_reasons, name, user_name,
		       document_format, created, document
		FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("spool: failed to query jobs: %w", err)
	}

	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var job Job
		var reasons string
		var created int64

		err = rows.Scan(&job.ID, &job.URI, &job.State, &reasons,
			&job.Name, &job.UserName, &job.DocumentFormat,
			&created, &job.Document)
		if err != nil {
			return nil, fmt.Errorf("spool: failed to scan job: %w", err)
		}

		for _, r := range strings.Split(reasons, ",") {
			if r != "" {
				job.StateReasons = append(job.StateReasons,
					JobStateReason(r))
			}
		}

		job.Created = time.Unix(0, created)
		jobs = append(jobs, &job)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("spool: failed to read jobs: %w", err)
	}

	return jobs, nil
}

// NextJobID returns the saved next job ID, or 0 if not known
func (spool *Spool) NextJobID(ctx context.Context) (int32, error) {
	var id int32
	err := spool.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE name = 'next_job_id'`).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("spool: failed to query next job ID: %w", err)
	}

	return id, nil
}

// reserveJobID raises the saved next job ID up to id. It never
// goes down
func (spool *Spool) reserveJobID(ctx context.Context, id int32) error {
	_, err := spool.db.ExecContext(ctx, `
		INSERT INTO meta (name, value) VALUES ('next_job_id', ?)
		ON CONFLICT(name) DO UPDATE SET value = max(value, excluded.value)`,
		id)

	if err != nil {
		return fmt.Errorf("failed to save next job ID: %w", err)
	}

	return nil
}

// Close flushes pending writes and closes the spool
func (spool *Spool) Close() error {
	spool.lock.Lock()
	if spool.closed {
		spool.lock.Unlock()
		return ErrSpoolClosed
	}
	spool.closed = true
	close(spool.queue)
	spool.lock.Unlock()

	spool.done.Wait()

	Log.Debug(' ', "spool: %s: closed", spool.path)
	return spool.db.Close()
}

// goroutine writes queued jobs into the database
func (spool *Spool) goroutine() {
	defer spool.done.Done()

	for job := range spool.queue {
		err := spool.store(context.Background(), job)
		if err != nil {
			Log.Error('!', "spool: job %d: %s", job.ID, err)
		} else {
			Log.Debug(' ', "spool: job %d: saved", job.ID)
		}
	}
}

// store writes the job into the database
func (spool *Spool) store(ctx context.Context, job *Job) error {
	reasons := make([]string, len(job.StateReasons))
	for i, r := range job.StateReasons {
		reasons[i] = string(r)
	}

	_, err := spool.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(id, uri, state, state_reasons, name, user_name,
			 document_format, created, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URI, int32(job.State), strings.Join(reasons, ","),
		job.Name, job.UserName, job.DocumentFormat,
		job.Created.UnixNano(), job.Document)

	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	return nil
}
