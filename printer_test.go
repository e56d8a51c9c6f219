/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Printer tests
 */

package main

import (
	"sync"
	"testing"
)

// testPrinterJob returns a copy of the printer's job with
// the specified ID
func testPrinterJob(p *Printer, id int32) (*Job, bool) {
	for _, job := range p.Jobs() {
		if job.ID == id {
			return job, true
		}
	}
	return nil, false
}

// TestPrinterReserveJobIDs tests that reserved IDs are never assigned
func TestPrinterReserveJobIDs(t *testing.T) {
	p := NewPrinter(DefaultPrinterConfig())

	p.ReserveJobIDs(10)
	p.ReserveJobIDs(5)

	if p.NextJobID() != 10 {
		t.Errorf("next job ID: expected 10, present %d", p.NextJobID())
	}

	job := p.CreateJob(JobTemplate{}, nil)
	if job.ID != 10 {
		t.Errorf("job ID: expected 10, present %d", job.ID)
	}

	// Restore doesn't move next ID back
	p.Restore([]*Job{NewJob(3, p.PrimaryURI(), JobTemplate{}, nil)})
	if p.NextJobID() != 11 {
		t.Errorf("next job ID: expected 11, present %d", p.NextJobID())
	}
}

// TestPrinterCreateJob tests sequential job creation
func TestPrinterCreateJob(t *testing.T) {
	p := NewPrinter(DefaultPrinterConfig())

	job1 := p.CreateJob(JobTemplate{Name: "first"}, []byte{0x25, 0x50, 0x44, 0x46})
	job2 := p.CreateJob(JobTemplate{Name: "second"}, nil)

	if job1.ID != 1 || job2.ID != 2 {
		t.Errorf("job IDs: expected 1, 2, present %d, %d", job1.ID, job2.ID)
	}

	if job1.URI != "ipp://127.0.0.1:3000/ipp/print/1" {
		t.Errorf("job URI: present %q", job1.URI)
	}

	if job1.State != JobPending {
		t.Errorf("job state: expected %s, present %s", JobPending, job1.State)
	}

	if job1.Size() != 4 {
		t.Errorf("job size: expected 4, present %d", job1.Size())
	}

	if p.NextJobID() != 3 {
		t.Errorf("next job ID: expected 3, present %d", p.NextJobID())
	}

	// Returned job is a copy
	job1.State = JobCompleted
	saved, ok := testPrinterJob(p, 1)
	if !ok || saved.State != JobPending {
		t.Errorf("Job(1): printer's copy modified")
	}
}

// TestPrinterConcurrentJobs tests that concurrently created jobs
// get unique IDs
func TestPrinterConcurrentJobs(t *testing.T) {
	const n = 100

	p := NewPrinter(DefaultPrinterConfig())
	ids := make(chan int32, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- p.CreateJob(JobTemplate{}, nil).ID
		}()
	}

	wg.Wait()
	close(ids)

	seen := make(map[int32]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("job ID %d allocated twice", id)
		}
		if id < 1 || id > n {
			t.Errorf("job ID %d out of range", id)
		}
		seen[id] = true
	}

	if len(p.Jobs()) != n {
		t.Errorf("jobs count: expected %d, present %d", n, len(p.Jobs()))
	}
}

// TestPrinterSnapshot tests printer snapshot
func TestPrinterSnapshot(t *testing.T) {
	p := NewPrinter(DefaultPrinterConfig())
	p.CreateJob(JobTemplate{}, nil)
	p.CreateJob(JobTemplate{}, nil)

	snap := p.Snapshot()

	if snap.Name != "Default Printer Name" {
		t.Errorf("name: present %q", snap.Name)
	}

	if snap.State != PrinterIdle {
		t.Errorf("state: expected %s, present %s", PrinterIdle, snap.State)
	}

	if snap.QueuedJobCount != 2 {
		t.Errorf("queued-job-count: expected 2, present %d",
			snap.QueuedJobCount)
	}

	if snap.UpTime < 1 {
		t.Errorf("printer-up-time: expected >= 1, present %d", snap.UpTime)
	}

	if !snap.AcceptingJobs {
		t.Errorf("printer-is-accepting-jobs: expected true")
	}

	p.SetAcceptingJobs(false)
	if p.IsAcceptingJobs() || !snap.AcceptingJobs {
		t.Errorf("SetAcceptingJobs: snapshot or printer state is wrong")
	}
}

// TestQueuedJobCount tests queuedJobCount
func TestQueuedJobCount(t *testing.T) {
	jobs := []*Job{
		{ID: 1, State: JobPending},
		{ID: 2, State: JobPendingHeld},
		{ID: 3, State: JobProcessing},
		{ID: 4, State: JobProcessingStopped},
		{ID: 5, State: JobCanceled},
		{ID: 6, State: JobAborted},
		{ID: 7, State: JobCompleted},
	}

	cnt := queuedJobCount(jobs)
	if cnt != 2 {
		t.Errorf("queuedJobCount: expected 2, present %d", cnt)
	}
}

// TestPrinterRestore tests restoring of saved jobs
func TestPrinterRestore(t *testing.T) {
	p := NewPrinter(DefaultPrinterConfig())
	p.CreateJob(JobTemplate{}, nil)

	saved := []*Job{
		{ID: 7, State: JobCompleted},
		{ID: 1, State: JobPending}, // Already known
		{ID: 3, State: JobPending},
		{ID: 0, State: JobPending}, // Invalid
	}

	n := p.Restore(saved)
	if n != 2 {
		t.Errorf("Restore: expected 2, present %d", n)
	}

	jobs := p.Jobs()
	expected := []int32{1, 3, 7}
	if len(jobs) != len(expected) {
		t.Fatalf("jobs: expected %d, present %d", len(expected), len(jobs))
	}

	for i, job := range jobs {
		if job.ID != expected[i] {
			t.Errorf("jobs[%d]: expected ID %d, present %d",
				i, expected[i], job.ID)
		}
	}

	if p.NextJobID() != 8 {
		t.Errorf("next job ID: expected 8, present %d", p.NextJobID())
	}

	if job := p.CreateJob(JobTemplate{}, nil); job.ID != 8 {
		t.Errorf("new job ID: expected 8, present %d", job.ID)
	}
}

// TestPrinterStateReason tests PrinterStateReason.String
func TestPrinterStateReason(t *testing.T) {
	type testData struct {
		in  PrinterStateReason // Input reason
		out string             // Expected keyword
	}

	tests := []testData{
		{PrinterStateReason{PrinterReasonNone, SeverityNone}, "none"},
		{PrinterStateReason{PrinterReasonMediaEmpty, SeverityWarning}, "media-empty-warning"},
		{PrinterStateReason{PrinterReasonTonerLow, SeverityReport}, "toner-low-report"},
		{PrinterStateReason{PrinterReasonPaused, SeverityError}, "paused-error"},
	}

	for _, test := range tests {
		out := test.in.String()
		if out != test.out {
			t.Errorf("expected %q, present %q", test.out, out)
		}
	}
}
