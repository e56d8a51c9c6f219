/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * The Printer object
 */

package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"
)

// Charset represents IPP charset value
type Charset string

// Charsets:
const (
	CharsetUTF8 Charset = "utf-8"
)

// Compression represents compression-supported keyword,
// RFC 8011, 5.4.32
type Compression string

// Compression methods:
const (
	CompressionNone     Compression = "none"
	CompressionDeflate  Compression = "deflate"
	CompressionGzip     Compression = "gzip"
	CompressionCompress Compression = "compress"
)

// MimeMediaType represents document format
type MimeMediaType string

// Document formats:
const (
	MimeHTML           MimeMediaType = "text/html"
	MimePlainText      MimeMediaType = "text/plain"
	MimePlainTextASCII MimeMediaType = "text/plain; charset=US-ASCII"
	MimePlainTextUTF8  MimeMediaType = "text/plain; charset=utf-8"
	MimePostscript     MimeMediaType = "application/postscript"
	MimePCL            MimeMediaType = "application/vnd.hp-PCL"
	MimePDF            MimeMediaType = "application/pdf"
	MimeOctetStream    MimeMediaType = "application/octet-stream"
)

// NaturalLanguage represents natural language tag (RFC 5646)
type NaturalLanguage string

// Natural languages:
const (
	LanguageEN NaturalLanguage = "en"
)

// IppVersion represents ipp-versions-supported keyword
type IppVersion string

// IPP versions:
const (
	IppVersion10 IppVersion = "1.0"
	IppVersion11 IppVersion = "1.1"
	IppVersion20 IppVersion = "2.0"
	IppVersion21 IppVersion = "2.1"
	IppVersion22 IppVersion = "2.2"
)

// PdlOverride represents pdl-override-supported keyword,
// RFC 8011, 5.4.28
type PdlOverride string

// PDL override policies:
const (
	PdlOverrideAttempted    PdlOverride = "attempted"
	PdlOverrideNotAttempted PdlOverride = "not-attempted"
)

// PrinterState represents printer-state, RFC 8011, 5.4.11
//
// Values are protocol-assigned enum codes and are sent
// on the wire as is
type PrinterState int32

// Printer states:
const (
	PrinterIdle       PrinterState = 3
	PrinterProcessing PrinterState = 4
	PrinterStopped    PrinterState = 5
)

// String returns RFC 8011 keyword for the PrinterState
func (s PrinterState) String() string {
	switch s {
	case PrinterIdle:
		return "idle"
	case PrinterProcessing:
		return "processing"
	case PrinterStopped:
		return "stopped"
	}

	return fmt.Sprintf("unknown (%d)", int32(s))
}

// PrinterReason represents printer-state-reasons keyword,
// RFC 8011, 5.4.12
type PrinterReason string

// Printer state reasons:
const (
	PrinterReasonNone                  PrinterReason = "none"
	PrinterReasonOther                 PrinterReason = "other"
	PrinterReasonConnectingToDevice    PrinterReason = "connecting-to-device"
	PrinterReasonCoverOpen             PrinterReason = "cover-open"
	PrinterReasonDeveloperEmpty        PrinterReason = "developer-empty"
	PrinterReasonDeveloperLow          PrinterReason = "developer-low"
	PrinterReasonDoorOpen              PrinterReason = "door-open"
	PrinterReasonFuserOverTemp         PrinterReason = "fuser-over-temp"
	PrinterReasonFuserUnderTemp        PrinterReason = "fuser-under-temp"
	PrinterReasonInputTrayMissing      PrinterReason = "input-tray-missing"
	PrinterReasonInterlockOpen         PrinterReason = "interlock-open"
	PrinterReasonInterpreterUnavail    PrinterReason = "interpreter-resource-unavailable"
	PrinterReasonMarkerSupplyEmpty     PrinterReason = "marker-supply-empty"
	PrinterReasonMarkerSupplyLow       PrinterReason = "marker-supply-low"
	PrinterReasonMarkerWasteAlmostFull PrinterReason = "marker-waste-almost-full"
	PrinterReasonMarkerWasteFull       PrinterReason = "marker-waste-full"
	PrinterReasonMediaEmpty            PrinterReason = "media-empty"
	PrinterReasonMediaJam              PrinterReason = "media-jam"
	PrinterReasonMediaLow              PrinterReason = "media-low"
	PrinterReasonMediaNeeded           PrinterReason = "media-needed"
	PrinterReasonMovingToPaused        PrinterReason = "moving-to-paused"
	PrinterReasonOpcLifeOver           PrinterReason = "opc-life-over"
	PrinterReasonOpcNearEOL            PrinterReason = "opc-near-eol"
	PrinterReasonOutputAreaAlmostFull  PrinterReason = "output-area-almost-full"
	PrinterReasonOutputAreaFull        PrinterReason = "output-area-full"
	PrinterReasonOutputTrayMissing     PrinterReason = "output-tray-missing"
	PrinterReasonPaused                PrinterReason = "paused"
	PrinterReasonShutdown              PrinterReason = "shutdown"
	PrinterReasonSpoolAreaFull         PrinterReason = "spool-area-full"
	PrinterReasonStoppedPartly         PrinterReason = "stopped-partly"
	PrinterReasonStopping              PrinterReason = "stopping"
	PrinterReasonTimedOut              PrinterReason = "timed-out"
	PrinterReasonTonerEmpty            PrinterReason = "toner-empty"
	PrinterReasonTonerLow              PrinterReason = "toner-low"
)

// Severity represents optional severity suffix of the
// printer-state-reasons keyword
type Severity string

// Severities:
const (
	SeverityNone    Severity = ""
	SeverityReport  Severity = "report"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// PrinterStateReason represents a single printer-state-reasons
// value: keyword with optional severity
type PrinterStateReason struct {
	Keyword  PrinterReason // Reason keyword
	Severity Severity      // Optional severity
}

// String returns printer-state-reasons keyword, i.e.,
// "media-low-warning"
func (r PrinterStateReason) String() string {
	if r.Severity == SeverityNone {
		return string(r.Keyword)
	}
	return string(r.Keyword) + "-" + string(r.Severity)
}

// UriAuthentication represents uri-authentication-supported
// keyword, RFC 8011, 5.4.2
type UriAuthentication string

// URI authentication methods:
const (
	UriAuthNone               UriAuthentication = "none"
	UriAuthRequestingUserName UriAuthentication = "requesting-user-name"
	UriAuthBasic              UriAuthentication = "basic"
	UriAuthDigest             UriAuthentication = "digest"
	UriAuthCertificate        UriAuthentication = "certificate"
)

// UriSecurity represents uri-security-supported keyword,
// RFC 8011, 5.4.3
type UriSecurity string

// URI security methods:
const (
	UriSecurityNone UriSecurity = "none"
	UriSecurityTLS  UriSecurity = "tls"
)

// PrinterURI represents a single printer URI, advertised in
// printer-uri-supported, together with its authentication
// and security methods
type PrinterURI struct {
	URI            string            // The URI
	Authentication UriAuthentication // Authentication method
	Security       UriSecurity       // Security method
}

// PrinterConfig contains the static printer configuration
type PrinterConfig struct {
	Name                    string               // printer-name
	Location                string               // printer-location, for DNS-SD
	CharsetConfigured       Charset              // charset-configured
	CharsetSupported        []Charset            // charset-supported
	CompressionSupported    []Compression        // compression-supported
	DocumentFormatDefault   MimeMediaType        // document-format-default
	DocumentFormatSupported []MimeMediaType      // document-format-supported
	LanguagesSupported      []NaturalLanguage    // generated-natural-language-supported
	NaturalLanguage         NaturalLanguage      // natural-language-configured
	IppVersionsSupported    []IppVersion         // ipp-versions-supported
	OperationsSupported     []goipp.Op           // operations-supported
	PdlOverride             PdlOverride          // pdl-override-supported
	AcceptingJobs           bool                 // Initial printer-is-accepting-jobs
	State                   PrinterState         // Initial printer-state
	StateReasons            []PrinterStateReason // Initial printer-state-reasons
	URIs                    []PrinterURI         // printer-uri-supported etc
}

// DefaultPrinterConfig returns default printer configuration
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		Name:                    "Default Printer Name",
		CharsetConfigured:       CharsetUTF8,
		CharsetSupported:        []Charset{CharsetUTF8},
		CompressionSupported:    []Compression{CompressionNone},
		DocumentFormatDefault:   MimePDF,
		DocumentFormatSupported: []MimeMediaType{MimePDF, MimePlainText},
		LanguagesSupported:      []NaturalLanguage{LanguageEN},
		NaturalLanguage:         LanguageEN,
		IppVersionsSupported:    []IppVersion{IppVersion11},
		OperationsSupported: []goipp.Op{
			goipp.OpPrintJob,
			goipp.OpValidateJob,
			goipp.OpGetPrinterAttributes,
		},
		PdlOverride:   PdlOverrideNotAttempted,
		AcceptingJobs: true,
		State:         PrinterIdle,
		StateReasons: []PrinterStateReason{
			{Keyword: PrinterReasonNone},
		},
		URIs: []PrinterURI{
			{
				URI:            "ipp://127.0.0.1:3000/ipp/print",
				Authentication: UriAuthNone,
				Security:       UriSecurityNone,
			},
		},
	}
}

// Printer represents the printer, served by this server
//
// There is exactly one Printer per server process, shared
// by all concurrently served requests. All mutable state
// is protected by the lock: readers take a snapshot under
// the read lock, job creation takes the write lock
type Printer struct {
	lock          sync.RWMutex         // Access lock
	conf          PrinterConfig        // Static configuration
	acceptingJobs bool                 // printer-is-accepting-jobs
	state         PrinterState         // printer-state
	stateReasons  []PrinterStateReason // printer-state-reasons
	started       time.Time            // Start time, for printer-up-time
	jobs          []*Job               // All jobs, ordered by ID
	nextJobID     int32                // Next job ID
}

// PrinterSnapshot is a consistent copy of the printer state,
// suitable for attribute resolving without holding a lock
type PrinterSnapshot struct {
	PrinterConfig
	AcceptingJobs  bool                 // printer-is-accepting-jobs
	State          PrinterState         // printer-state
	StateReasons   []PrinterStateReason // printer-state-reasons
	UpTime         int32                // printer-up-time, seconds
	QueuedJobCount int32                // queued-job-count
}

// NewPrinter creates a new Printer
func NewPrinter(conf PrinterConfig) *Printer {
	return &Printer{
		conf:          conf,
		acceptingJobs: conf.AcceptingJobs,
		state:         conf.State,
		stateReasons:  append([]PrinterStateReason(nil), conf.StateReasons...),
		started:       time.Now(),
		nextJobID:     1,
	}
}

// Name returns printer name
func (p *Printer) Name() string {
	return p.conf.Name
}

// PrimaryURI returns printer's primary URI. Job URIs
// are derived from it
func (p *Printer) PrimaryURI() string {
	if len(p.conf.URIs) == 0 {
		return ""
	}
	return p.conf.URIs[0].URI
}

// Config returns printer configuration
func (p *Printer) Config() PrinterConfig {
	return p.conf
}

// Snapshot returns a consistent snapshot of the printer state
func (p *Printer) Snapshot() *PrinterSnapshot {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return &PrinterSnapshot{
		PrinterConfig:  p.conf,
		AcceptingJobs:  p.acceptingJobs,
		State:          p.state,
		StateReasons:   append([]PrinterStateReason(nil), p.stateReasons...),
		UpTime:         p.upTime(),
		QueuedJobCount: queuedJobCount(p.jobs),
	}
}

// upTime returns printer-up-time. RFC 8011 requires
// it to be at least 1
func (p *Printer) upTime() int32 {
	return int32(time.Since(p.started)/time.Second) + 1
}

// IsAcceptingJobs tells if printer accepts new jobs
func (p *Printer) IsAcceptingJobs() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.acceptingJobs
}

// SetAcceptingJobs changes printer-is-accepting-jobs
func (p *Printer) SetAcceptingJobs(accepting bool) {
	p.lock.Lock()
	p.acceptingJobs = accepting
	p.lock.Unlock()
}

// CreateJob allocates a new job ID, creates the Job and
// appends it to the printer's job list
//
// The document must be completely received before this
// call: the write lock is held only for ID allocation
// and insertion. Returned Job is a copy
func (p *Printer) CreateJob(tmpl JobTemplate, doc []byte) *Job {
	uri := p.PrimaryURI()

	p.lock.Lock()
	id := p.nextJobID
	p.nextJobID++
	job := NewJob(id, uri, tmpl, doc)
	p.jobs = append(p.jobs, job)
	p.lock.Unlock()

	return job.Clone()
}

// Jobs returns copies of all jobs, ordered by ID
func (p *Printer) Jobs() []*Job {
	p.lock.RLock()
	defer p.lock.RUnlock()

	jobs := make([]*Job, len(p.jobs))
	for i, job := range p.jobs {
		jobs[i] = job.Clone()
	}

	return jobs
}

// NextJobID returns ID that will be assigned to the next job
func (p *Printer) NextJobID() int32 {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.nextJobID
}

// ReserveJobIDs makes sure next job ID is not less than id.
// IDs below it will never be assigned
func (p *Printer) ReserveJobIDs(id int32) {
	p.lock.Lock()
	if id > p.nextJobID {
		p.nextJobID = id
	}
	p.lock.Unlock()
}

// Restore adds previously saved jobs to the printer
//
// Jobs with IDs already known to the printer are ignored.
// After restore, next job ID is greater than ID of any
// known job, so IDs are never reused
func (p *Printer) Restore(jobs []*Job) int {
	p.lock.Lock()
	defer p.lock.Unlock()

	known := make(map[int32]struct{}, len(p.jobs))
	for _, job := range p.jobs {
		known[job.ID] = struct{}{}
	}

	restored := 0
	for _, job := range jobs {
		if _, found := known[job.ID]; found || job.ID <= 0 {
			continue
		}

		p.jobs = append(p.jobs, job.Clone())
		known[job.ID] = struct{}{}
		restored++

		if job.ID >= p.nextJobID {
			p.nextJobID = job.ID + 1
		}
	}

	sortJobs(p.jobs)
	return restored
}

// queuedJobCount counts jobs in the pending or
// processing state
func queuedJobCount(jobs []*Job) int32 {
	var cnt int32
	for _, job := range jobs {
		if job.State.Queued() {
			cnt++
		}
	}
	return cnt
}

// sortJobs sorts jobs by ID
func sortJobs(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})
}
