/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Attribute values test
 */

package main

import (
	"testing"

	"github.com/OpenPrinting/goipp"
)

// TestValueExport tests conversion of Value into goipp.Values
func TestValueExport(t *testing.T) {
	type testData struct {
		in  Value        // Input value
		out goipp.Values // Expected output
	}

	tests := []testData{
		{
			in:  StringValue(SyntaxCharset, "utf-8"),
			out: goipp.Values{{goipp.TagCharset, goipp.String("utf-8")}},
		},

		{
			in:  StringValue(SyntaxMimeMediaType, "application/pdf"),
			out: goipp.Values{{goipp.TagMimeType, goipp.String("application/pdf")}},
		},

		{
			in:  IntValue(SyntaxEnum, 3),
			out: goipp.Values{{goipp.TagEnum, goipp.Integer(3)}},
		},

		{
			in:  IntValue(SyntaxInteger, 42),
			out: goipp.Values{{goipp.TagInteger, goipp.Integer(42)}},
		},

		{
			in:  BoolValue(true),
			out: goipp.Values{{goipp.TagBoolean, goipp.Boolean(true)}},
		},

		{
			// Array order is preserved
			in: StringArray(SyntaxKeyword, []string{"none", "deflate"}),
			out: goipp.Values{
				{goipp.TagKeyword, goipp.String("none")},
				{goipp.TagKeyword, goipp.String("deflate")},
			},
		},

		{
			// Empty array becomes no-value
			in:  ArrayValue(),
			out: goipp.Values{{goipp.TagNoValue, goipp.Void{}}},
		},
	}

	for _, test := range tests {
		out := test.in.Values()
		if !out.Equal(test.out) {
			t.Errorf("%s: expected %s, present %s",
				test.in, test.out, out)
		}
	}
}

// TestValueElementSyntax tests Value.ElementSyntax
func TestValueElementSyntax(t *testing.T) {
	type testData struct {
		in  Value  // Input value
		out Syntax // Expected syntax
	}

	tests := []testData{
		{StringValue(SyntaxURI, "ipp://localhost/"), SyntaxURI},
		{StringArray(SyntaxKeyword, []string{"a"}), SyntaxKeyword},
		{ArrayOf([]int32{1, 2}, func(v int32) Value {
			return IntValue(SyntaxEnum, v)
		}), SyntaxEnum},
		{ArrayValue(), SyntaxArray},
	}

	for _, test := range tests {
		out := test.in.ElementSyntax()
		if out != test.out {
			t.Errorf("%s: expected %s, present %s",
				test.in, test.out, out)
		}
	}
}

// TestValueString tests Value.String
func TestValueString(t *testing.T) {
	type testData struct {
		in  Value  // Input value
		out string // Expected output
	}

	tests := []testData{
		{StringValue(SyntaxName, "printer"), "printer"},
		{IntValue(SyntaxInteger, -5), "-5"},
		{BoolValue(false), "false"},
		{StringArray(SyntaxKeyword, []string{"a", "b"}), "[a,b]"},
	}

	for _, test := range tests {
		out := test.in.String()
		if out != test.out {
			t.Errorf("expected %q, present %q", test.out, out)
		}
	}
}
