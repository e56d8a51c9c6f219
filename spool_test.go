/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Job spool test
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// TestSpool tests saving and loading of jobs
func TestSpool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool", "spool.db")

	spool, err := OpenSpool(path)
	if err != nil {
		t.Fatalf("OpenSpool: %s", err)
	}

	printer := NewPrinter(DefaultPrinterConfig())
	doc := []byte{0x25, 0x50, 0x44, 0x46}

	job1 := printer.CreateJob(JobTemplate{
		Name:           "report",
		UserName:       "alice",
		DocumentFormat: string(MimePDF),
	}, doc)
	job2 := printer.CreateJob(JobTemplate{}, nil)

	spool.Save(job2)
	spool.Save(job1)

	// Close flushes the queue
	err = spool.Close()
	if err != nil {
		t.Fatalf("Close: %s", err)
	}

	if err = spool.Close(); !errors.Is(err, ErrSpoolClosed) {
		t.Errorf("second Close: expected ErrSpoolClosed, present %v", err)
	}

	// Save after Close is ignored
	spool.Save(job1)

	// Reopen and load
	spool, err = OpenSpool(path)
	if err != nil {
		t.Fatalf("OpenSpool: %s", err)
	}
	defer spool.Close()

	jobs, err := spool.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %s", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("Load: expected 2 jobs, present %d", len(jobs))
	}

	job := jobs[0]
	if job.ID != 1 || job.URI != job1.URI || job.State != JobPending {
		t.Errorf("job 1: present id=%d uri=%q state=%s",
			job.ID, job.URI, job.State)
	}

	if job.Name != "report" || job.UserName != "alice" ||
		job.DocumentFormat != string(MimePDF) {
		t.Errorf("job 1: template not restored")
	}

	if !bytes.Equal(job.Document, doc) {
		t.Errorf("job 1: document: expected %x, present %x",
			doc, job.Document)
	}

	if !job.Created.Equal(job1.Created) {
		t.Errorf("job 1: created: expected %s, present %s",
			job1.Created, job.Created)
	}

	if len(job.StateReasons) != 1 || job.StateReasons[0] != JobReasonNone {
		t.Errorf("job 1: state reasons: present %v", job.StateReasons)
	}

	if jobs[1].ID != 2 || jobs[1].Size() != 0 {
		t.Errorf("job 2: present id=%d size=%d", jobs[1].ID, jobs[1].Size())
	}

	// Restore into the new printer
	printer2 := NewPrinter(DefaultPrinterConfig())
	printer2.Restore(jobs)
	if printer2.NextJobID() != 3 {
		t.Errorf("next job ID: expected 3, present %d", printer2.NextJobID())
	}
}

// TestSpoolReplace tests that saving the same job twice
// updates it
func TestSpoolReplace(t *testing.T) {
	spool, err := OpenSpool(filepath.Join(t.TempDir(), "spool.db"))
	if err != nil {
		t.Fatalf("OpenSpool: %s", err)
	}

	job := NewJob(5, "ipp://localhost/ipp/print", JobTemplate{}, nil)
	err = spool.store(context.Background(), job)
	if err != nil {
		t.Fatalf("store: %s", err)
	}

	job.State = JobCompleted
	job.StateReasons = []JobStateReason{JobReasonJobCompletedOK}
	err = spool.store(context.Background(), job)
	if err != nil {
		t.Fatalf("store: %s", err)
	}

	jobs, err := spool.Load(context.Background())
	spool.Close()

	if err != nil {
		t.Fatalf("Load: %s", err)
	}

	if len(jobs) != 1 || jobs[0].State != JobCompleted ||
		jobs[0].StateReasons[0] != JobReasonJobCompletedOK {
		t.Errorf("Load: job not replaced")
	}
}

// TestSpoolNextJobID tests that ID of the job, which was not
// written into the spool, is not reused after restart
func TestSpoolNextJobID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.db")

	spool, err := OpenSpool(path)
	if err != nil {
		t.Fatalf("OpenSpool: %s", err)
	}

	next, err := spool.NextJobID(context.Background())
	if err != nil || next != 0 {
		t.Errorf("NextJobID: expected 0, present %d (%v)", next, err)
	}

	printer := NewPrinter(DefaultPrinterConfig())
	job1 := printer.CreateJob(JobTemplate{}, nil)
	job2 := printer.CreateJob(JobTemplate{}, nil)

	spool.Save(job1)
	spool.Save(job2)
	spool.Close()

	// Lose the newest job, as if it was dropped or
	// the server has crashed before it was written
	spool, err = OpenSpool(path)
	if err != nil {
		t.Fatalf("OpenSpool: %s", err)
	}
	defer spool.Close()

	_, err = spool.db.Exec("DELETE FROM jobs WHERE id = ?", job2.ID)
	if err != nil {
		t.Fatalf("DELETE: %s", err)
	}

	jobs, err := spool.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %s", err)
	}

	next, err = spool.NextJobID(context.Background())
	if err != nil {
		t.Fatalf("NextJobID: %s", err)
	}

	printer2 := NewPrinter(DefaultPrinterConfig())
	printer2.Restore(jobs)
	printer2.ReserveJobIDs(next)

	job := printer2.CreateJob(JobTemplate{}, nil)
	if job.ID != 3 {
		t.Errorf("job ID: expected 3, present %d", job.ID)
	}

	// Saved next ID never goes down
	err = spool.reserveJobID(context.Background(), 2)
	if err != nil {
		t.Fatalf("reserveJobID: %s", err)
	}

	next, _ = spool.NextJobID(context.Background())
	if next != 3 {
		t.Errorf("NextJobID: expected 3, present %d", next)
	}
}
