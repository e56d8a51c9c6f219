/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * IPP over HTTP transport
 */

package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/OpenPrinting/goipp"
)

var (
	httpSessionID int32
)

// ippHTTPHandler serves IPP requests over HTTP. It implements
// http.Handler interface
type ippHTTPHandler struct {
	ipp *IppServer // IPP operations executor
}

// NewHTTPServer creates http.Server that serves IPP requests
func NewHTTPServer(conf *Configuration, ipp *IppServer) *http.Server {
	return &http.Server{
		Handler:      &ippHTTPHandler{ipp: ipp},
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		ErrorLog:     log.New(Log.LineWriter(LogError, '!'), "", 0),
	}
}

// ServeHTTP handles HTTP request
func (h *ippHTTPHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	session := atomic.AddInt32(&httpSessionID, 1)
	w := &httpResponseWriter{ResponseWriter: rw}

	Log.HTTPRequest(LogTraceHTTP, '>', session, r)

	// Catch panics to log
	defer httpRecover(session, w)

	// Check method and path
	if r.Method != http.MethodPost || r.URL.Path != IppPath {
		httpError(session, w, http.StatusNotFound, "404 Not Found")
		return
	}

	if strings.EqualFold(r.Header.Get("Expect"), "100-continue") {
		Log.Debug(' ', "HTTP[%d]: Expect: 100-continue", session)
	}

	// Decode IPP request. Whatever remains in the body
	// is the document payload
	hdr := &httpHeaderRecorder{in: r.Body}

	var rq goipp.Message
	err := rq.Decode(hdr)
	if err != nil {
		h.badRequest(session, w, hdr, err)
		return
	}

	Log.IppRequest(LogTraceIPP, '>', &rq)

	// Execute the request
	rsp := h.ipp.Handle(&rq, r.Body)
	h.sendResponse(session, w, rsp)
}

// badRequest handles undecodable IPP requests
//
// If IPP message header was received, client gets IPP
// response with the client-error-bad-request status,
// the original version and request ID. Otherwise, HTTP
// error is returned
func (h *ippHTTPHandler) badRequest(session int32, w http.ResponseWriter,
	hdr *httpHeaderRecorder, err error) {

	Log.Error('!', "HTTP[%d]: IPP decode: %s", session, err)

	version, requestID, ok := hdr.header()
	if !ok {
		httpError(session, w, http.StatusBadRequest,
			"400 Bad Request: %s", err)
		return
	}

	conf := h.ipp.Printer().Config()
	b := NewResponseBuilder(version, goipp.StatusErrorBadRequest, requestID)
	b.AddStandardOperationAttributes(conf.CharsetConfigured,
		conf.NaturalLanguage)
	b.AddStatusMessage(fmt.Sprintf("invalid IPP request: %s", err))

	h.sendResponse(session, w, b.Build())
}

// sendResponse sends IPP response to the client
func (h *ippHTTPHandler) sendResponse(session int32,
	w http.ResponseWriter, rsp *goipp.Message) {

	Log.IppResponse(LogTraceIPP, '<', rsp)

	data, err := rsp.EncodeBytes()
	if err != nil {
		Log.Error('!', "HTTP[%d]: IPP encode: %s", session, err)
		httpError(session, w, http.StatusInternalServerError,
			"500 Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", goipp.ContentType)
	httpNoCache(w)
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	Log.Begin().HTTPResponse(LogTraceHTTP, '<', session,
		http.StatusOK, w.Header()).Commit()
}

// httpResponseWriter wraps http.ResponseWriter and tracks
// if response header was already sent
type httpResponseWriter struct {
	http.ResponseWriter      // Underlying http.ResponseWriter
	written             bool // Header was written
}

// WriteHeader implements http.ResponseWriter interface
func (w *httpResponseWriter) WriteHeader(status int) {
	w.written = true
	w.ResponseWriter.WriteHeader(status)
}

// Write implements http.ResponseWriter interface
func (w *httpResponseWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(data)
}

// httpRecover catches and logs handler panics. Must be deferred
//
// If response is not sent yet, client gets HTTP 500
func httpRecover(session int32, w *httpResponseWriter) {
	v := recover()
	if v == nil {
		return
	}

	Log.Panic(v)

	if w.written {
		Log.Error('!', "HTTP[%d]: panic after response was sent", session)
		return
	}

	httpError(session, w, http.StatusInternalServerError,
		"500 Internal Server Error")
}

// httpHeaderRecorder wraps io.Reader and records the first
// 8 bytes read from it, which is the IPP message header
type httpHeaderRecorder struct {
	in  io.Reader // Underlying reader
	hdr [8]byte   // Recorded header
	cnt int       // Count of recorded bytes
}

// Read implements io.Reader interface
func (rec *httpHeaderRecorder) Read(buf []byte) (int, error) {
	n, err := rec.in.Read(buf)
	if rec.cnt < len(rec.hdr) && n > 0 {
		rec.cnt += copy(rec.hdr[rec.cnt:], buf[:n])
	}
	return n, err
}

// header returns version and request ID from the recorded header
func (rec *httpHeaderRecorder) header() (goipp.Version, uint32, bool) {
	if rec.cnt < len(rec.hdr) {
		return 0, 0, false
	}

	version := goipp.Version(binary.BigEndian.Uint16(rec.hdr[0:2]))
	requestID := binary.BigEndian.Uint32(rec.hdr[4:8])

	return version, requestID, true
}

// Reject request with a error
func httpError(session int32, w http.ResponseWriter,
	status int, format string, args ...interface{}) {

	msg := fmt.Sprintf(format, args...)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	httpNoCache(w)
	w.WriteHeader(status)
	w.Write([]byte(msg + "\n"))

	Log.Begin().
		HTTPResponse(LogTraceHTTP, '<', session, status, w.Header()).
		Debug('!', "HTTP[%d]: %s", session, msg).
		Commit()
}

// Set response headers to disable caching
func httpNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
