/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * LineWriter test
 */

package main

import (
	"reflect"
	"testing"
)

// TestLineWriter tests LineWriter
func TestLineWriter(t *testing.T) {
	type testData struct {
		in  []string // Chunks written
		out []string // Expected lines
	}

	tests := []testData{
		{
			in:  []string{"hello\n"},
			out: []string{"hello"},
		},
		{
			in:  []string{"hel", "lo\nwor", "ld\n"},
			out: []string{"hello", "world"},
		},
		{
			in:  []string{"line 1\r\nline 2\r\n"},
			out: []string{"line 1", "line 2"},
		},
		{
			in:  []string{"\n\n"},
			out: []string{"", ""},
		},
		{
			// Incomplete line flushed by Close
			in:  []string{"complete\nincomplete"},
			out: []string{"complete", "incomplete"},
		},
	}

	for i, test := range tests {
		var lines []string
		lw := &LineWriter{
			Func: func(line []byte) {
				lines = append(lines, string(line))
			},
		}

		for _, chunk := range test.in {
			n, err := lw.Write([]byte(chunk))
			if n != len(chunk) || err != nil {
				t.Errorf("test %d: Write returned (%d, %v)", i+1, n, err)
			}
		}
		lw.Close()

		if !reflect.DeepEqual(lines, test.out) {
			t.Errorf("test %d: expected %q, present %q",
				i+1, test.out, lines)
		}
	}
}
