/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * IPP operations dispatcher
 */

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenPrinting/goipp"
)

// JobSink receives newly created jobs, i.e. for spooling
type JobSink interface {
	Save(job *Job)
}

// IppServer executes IPP operations against the Printer
//
// IppServer itself is stateless: all state lives in the
// Printer, so a single IppServer serves all connections
type IppServer struct {
	printer *Printer // The printer
	sink    JobSink  // Where to send created jobs, may be nil
}

// NewIppServer creates a new IppServer
func NewIppServer(printer *Printer, sink JobSink) *IppServer {
	return &IppServer{printer: printer, sink: sink}
}

// Printer returns the printer, served by IppServer
func (srv *IppServer) Printer() *Printer {
	return srv.printer
}

// Handle executes the IPP request and returns the response
//
// body is the request's document payload, i.e. whatever
// follows the end-of-attributes tag in the request stream.
// Handle never fails: all errors are reported to the client
// as IPP status codes
func (srv *IppServer) Handle(rq *goipp.Message, body io.Reader) *goipp.Message {
	op := goipp.Op(rq.Code)

	Log.Debug(' ', "IPP: %s request, id=%d, version=%s",
		op, rq.RequestID, rq.Version)

	var rsp *goipp.Message

	switch op {
	case goipp.OpGetPrinterAttributes:
		rsp = srv.getPrinterAttributes(rq)
	case goipp.OpValidateJob:
		rsp = srv.validateJob(rq)
	case goipp.OpPrintJob:
		rsp = srv.printJob(rq, body)
	default:
		rsp = srv.notSupported(rq)
	}

	Log.Debug(' ', "IPP: %s response, id=%d, status=%s",
		op, rsp.RequestID, goipp.Status(rsp.Code))

	return rsp
}

// newResponse creates a ResponseBuilder for the response to
// the request. Standard operation attributes are added
func (srv *IppServer) newResponse(rq *goipp.Message,
	status goipp.Status) *ResponseBuilder {

	conf := srv.printer.Config()

	b := NewResponseBuilder(rq.Version, status, rq.RequestID)
	b.AddStandardOperationAttributes(conf.CharsetConfigured,
		conf.NaturalLanguage)

	return b
}

// getPrinterAttributes handles Get-Printer-Attributes
func (srv *IppServer) getPrinterAttributes(rq *goipp.Message) *goipp.Message {
	ids, all := requestedAttributes(rq)
	snap := srv.printer.Snapshot()

	b := srv.newResponse(rq, goipp.StatusOk)
	if all {
		b.AddRequiredPrinterAttributes(snap)
	} else {
		b.AddPrinterAttributes(snap, ids)
	}

	return b.Build()
}

// validateJob handles Validate-Job
func (srv *IppServer) validateJob(rq *goipp.Message) *goipp.Message {
	snap := srv.printer.Snapshot()

	b := srv.newResponse(rq, goipp.StatusOk)
	checkJobRequest(rq, snap, b)

	return b.Build()
}

// printJob handles Print-Job
func (srv *IppServer) printJob(rq *goipp.Message, body io.Reader) *goipp.Message {
	// Read the document. Printer is not locked here,
	// so slow client doesn't block anybody else
	doc, err := readDocument(body)
	if err != nil {
		Log.Error('!', "IPP: Print-Job: document: %s", err)
		b := srv.newResponse(rq, goipp.StatusErrorInternal)
		b.AddStatusMessage(fmt.Sprintf("document read error: %s", err))
		return b.Build()
	}

	// Validate the request
	snap := srv.printer.Snapshot()
	b := srv.newResponse(rq, goipp.StatusOk)
	if !checkJobRequest(rq, snap, b) {
		return b.Build()
	}

	if !snap.AcceptingJobs {
		b.SetStatus(goipp.StatusErrorNotAcceptingJobs)
		b.AddStatusMessage("printer is not accepting jobs")
		return b.Build()
	}

	// Create the job
	tmpl := jobTemplate(rq, snap)
	job := srv.printer.CreateJob(tmpl, doc)

	Log.Info('+', "IPP: job %d created: %d bytes, %s",
		job.ID, job.Size(), job.DocumentFormat)

	if srv.sink != nil {
		srv.sink.Save(job)
	}

	b.AddRequiredJobAttributes(job)
	return b.Build()
}

// notSupported handles all unsupported operations
func (srv *IppServer) notSupported(rq *goipp.Message) *goipp.Message {
	Log.Debug(' ', "IPP: %s: operation not supported", goipp.Op(rq.Code))
	b := NewResponseBuilder(rq.Version,
		goipp.StatusErrorOperationNotSupported, rq.RequestID)
	return b.Build()
}

// readDocument reads the whole document payload
func readDocument(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	return io.ReadAll(body)
}

// requestedAttributes parses requested-attributes of the
// Get-Printer-Attributes request
//
// It returns list of requested printer attributes or
// all=true if client wants all attributes. Values of
// the wrong syntax and unknown attribute names are
// logged and skipped
func requestedAttributes(rq *goipp.Message) (ids []PrinterAttribute, all bool) {
	attr, found := findAttr(rq.Operation, "requested-attributes")
	if !found {
		Log.Debug(' ', "IPP: requested-attributes missing, assuming all")
		return nil, true
	}

	valid := 0
	for _, v := range attr.Values {
		s, ok := v.V.(goipp.String)
		if !ok || v.T != goipp.TagKeyword {
			Log.Debug(' ', "IPP: requested-attributes: %s %s: "+
				"must be keyword, skipped", v.T, v.V)
			continue
		}

		valid++

		switch name := string(s); name {
		case "all", "printer-description":
			all = true
		case "job-template":
		default:
			if id, ok := printerAttributeByName(name); ok {
				ids = append(ids, id)
			} else {
				Log.Debug(' ', "IPP: requested-attributes: %q: "+
					"not supported, skipped", name)
			}
		}
	}

	if valid == 0 {
		all = true
	}

	return
}

// checkJobRequest validates Print-Job and Validate-Job requests
// against the printer capabilities
//
// Unsupported values are echoed into the unsupported group
// and the response status is set accordingly. It returns
// true if request is acceptable
func checkJobRequest(rq *goipp.Message, p *PrinterSnapshot,
	b *ResponseBuilder) bool {

	ok := true

	if format, found := attrString(rq.Operation, "document-format"); found {
		if !formatSupported(p, format) {
			Log.Debug(' ', "IPP: document-format %q not supported", format)
			b.AddUnsupportedAttribute(MakeAttr("document-format",
				StringValue(SyntaxMimeMediaType, format)))
			b.SetStatus(goipp.StatusErrorDocumentFormatNotSupported)
			ok = false
		}
	}

	if compr, found := attrString(rq.Operation, "compression"); found {
		if !compressionSupported(p, compr) {
			Log.Debug(' ', "IPP: compression %q not supported", compr)
			b.AddUnsupportedAttribute(MakeAttr("compression",
				StringValue(SyntaxKeyword, compr)))
			if ok {
				b.SetStatus(goipp.StatusErrorCompressionNotSupported)
			}
			ok = false
		}
	}

	return ok
}

// jobTemplate extracts job parameters from the Print-Job request
func jobTemplate(rq *goipp.Message, p *PrinterSnapshot) JobTemplate {
	tmpl := JobTemplate{DocumentFormat: string(p.DocumentFormatDefault)}

	if s, found := attrString(rq.Operation, "job-name"); found {
		tmpl.Name = s
	}

	if s, found := attrString(rq.Operation, "requesting-user-name"); found {
		tmpl.UserName = s
	}

	if s, found := attrString(rq.Operation, "document-format"); found {
		tmpl.DocumentFormat = s
	}

	return tmpl
}

// formatSupported tells if document format is supported
//
// MIME type and subtype are case-insensitive, RFC 2045
func formatSupported(p *PrinterSnapshot, format string) bool {
	for _, f := range p.DocumentFormatSupported {
		if strings.EqualFold(string(f), format) {
			return true
		}
	}
	return false
}

// compressionSupported tells if compression method is supported
func compressionSupported(p *PrinterSnapshot, compr string) bool {
	for _, c := range p.CompressionSupported {
		if string(c) == compr {
			return true
		}
	}
	return false
}

// findAttr finds attribute by name. If attribute is
// duplicated, first occurrence wins
func findAttr(attrs goipp.Attributes, name string) (goipp.Attribute, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr, true
		}
	}
	return goipp.Attribute{}, false
}

// attrString returns the first value of the string-valued
// attribute. Values of other types are logged and ignored
func attrString(attrs goipp.Attributes, name string) (string, bool) {
	attr, found := findAttr(attrs, name)
	if !found || len(attr.Values) == 0 {
		return "", false
	}

	s, ok := attr.Values[0].V.(goipp.String)
	if !ok {
		Log.Debug(' ', "IPP: %s: %s value ignored", name, attr.Values[0].T)
		return "", false
	}

	return string(s), true
}
