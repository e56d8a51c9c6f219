/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Print jobs
 */

package main

import (
	"fmt"
	"strconv"
	"time"
)

// JobState represents job-state, RFC 8011, 5.3.7
//
// Values are protocol-assigned enum codes and are sent
// on the wire as is
type JobState int32

// Job states:
const (
	JobPending           JobState = 3
	JobPendingHeld       JobState = 4
	JobProcessing        JobState = 5
	JobProcessingStopped JobState = 6
	JobCanceled          JobState = 7
	JobAborted           JobState = 8
	JobCompleted         JobState = 9
)

// String returns RFC 8011 keyword for the JobState
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobPendingHeld:
		return "pending-held"
	case JobProcessing:
		return "processing"
	case JobProcessingStopped:
		return "processing-stopped"
	case JobCanceled:
		return "canceled"
	case JobAborted:
		return "aborted"
	case JobCompleted:
		return "completed"
	}

	return fmt.Sprintf("unknown (%d)", int32(s))
}

// Queued tells if job counts to the printer's queued-job-count
func (s JobState) Queued() bool {
	return s == JobPending || s == JobProcessing
}

// JobStateReason represents job-state-reasons keyword,
// RFC 8011, 5.3.8
type JobStateReason string

// Job state reasons. Only a subset is used
const (
	JobReasonNone                  JobStateReason = "none"
	JobReasonQueuedInDevice        JobStateReason = "queued-in-device"
	JobReasonJobIncoming           JobStateReason = "job-incoming"
	JobReasonDocumentFormatError   JobStateReason = "document-format-error"
	JobReasonCompressionError      JobStateReason = "compression-error"
	JobReasonJobCompletedOK        JobStateReason = "job-completed-successfully"
	JobReasonJobCanceledAtDevice   JobStateReason = "job-canceled-at-device"
	JobReasonAbortedBySystem       JobStateReason = "aborted-by-system"
	JobReasonProcessingToStopPoint JobStateReason = "processing-to-stop-point"
)

// Job represents a single print job
//
// Job is owned by the Printer that has created it. Jobs
// handed out of the Printer are copies, so they can be
// safely used without holding the printer lock
type Job struct {
	ID             int32            // Job ID, unique within the printer
	URI            string           // Job URI: printer-uri/ID
	State          JobState         // Job state
	StateReasons   []JobStateReason // Job state reasons
	Name           string           // job-name, if supplied
	UserName       string           // requesting-user-name, if supplied
	DocumentFormat string           // document-format, if supplied
	Created        time.Time        // Time of creation
	Document       []byte           // Document payload
}

// JobTemplate contains client-supplied parameters
// of the new job
type JobTemplate struct {
	Name           string // job-name
	UserName       string // requesting-user-name
	DocumentFormat string // document-format
}

// NewJob creates a new job in the JobPending state
func NewJob(id int32, printerURI string, tmpl JobTemplate, doc []byte) *Job {
	return &Job{
		ID:             id,
		URI:            JobURI(printerURI, id),
		State:          JobPending,
		StateReasons:   []JobStateReason{JobReasonNone},
		Name:           tmpl.Name,
		UserName:       tmpl.UserName,
		DocumentFormat: tmpl.DocumentFormat,
		Created:        time.Now(),
		Document:       doc,
	}
}

// JobURI derives job URI from the printer URI and job ID
func JobURI(printerURI string, id int32) string {
	return printerURI + "/" + strconv.Itoa(int(id))
}

// Clone returns a copy of the Job
//
// Document is shared between copies: it is never
// modified after the job is created
func (job *Job) Clone() *Job {
	job2 := *job
	job2.StateReasons = append([]JobStateReason(nil), job.StateReasons...)
	return &job2
}

// Size returns document size, in bytes
func (job *Job) Size() int {
	return len(job.Document)
}
