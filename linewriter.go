/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * LineWriter adapts line-oriented callback to io.Writer
 */

package main

import (
	"bytes"
)

// LineWriter implements io.Writer and io.Closer interfaces.
// It splits the stream into text lines and calls the provided
// callback for each complete line. Used to route output of
// the stdlib log.Logger (i.e., http.Server.ErrorLog) into
// our own Logger
//
// Line passed to callback is not terminated by '\n' and
// trailing '\r' is stripped. Close flushes the last incomplete
// line, if any
type LineWriter struct {
	Func func([]byte) // write-line callback
	buf  bytes.Buffer // buffer for incomplete lines
}

// Write implements io.Writer interface
func (lw *LineWriter) Write(text []byte) (n int, err error) {
	n = len(text)

	for len(text) > 0 {
		l := bytes.IndexByte(text, '\n')
		if l < 0 {
			lw.buf.Write(text)
			break
		}

		line := text[:l]
		text = text[l+1:]

		if lw.buf.Len() > 0 {
			lw.buf.Write(line)
			line = lw.buf.Bytes()
		}

		lw.Func(bytes.TrimSuffix(line, []byte("\r")))
		lw.buf.Reset()
	}

	return
}

// Close implements io.Closer interface
func (lw *LineWriter) Close() error {
	if lw.buf.Len() > 0 {
		lw.Func(bytes.TrimSuffix(lw.buf.Bytes(), []byte("\r")))
		lw.buf.Reset()
	}
	return nil
}
