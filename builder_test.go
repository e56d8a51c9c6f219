/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Response builder test
 */

package main

import (
	"strings"
	"testing"

	"github.com/OpenPrinting/goipp"
)

// TestResponseBuilderGroupOrder tests that groups are emitted
// in the protocol order, regardless of the order attributes
// were added
func TestResponseBuilderGroupOrder(t *testing.T) {
	b := NewResponseBuilder(goipp.MakeVersion(1, 1), goipp.StatusOk, 7)

	job := NewJob(1, "ipp://localhost/ipp/print", JobTemplate{}, nil)
	b.AddRequiredJobAttributes(job)
	b.AddPrinterAttribute(MakeAttr("printer-name",
		StringValue(SyntaxName, "test")))
	b.AddUnsupportedAttribute(MakeAttr("compression",
		StringValue(SyntaxKeyword, "zip")))
	b.AddStandardOperationAttributes(CharsetUTF8, LanguageEN)

	msg := b.Build()

	expected := []goipp.Tag{
		goipp.TagOperationGroup,
		goipp.TagUnsupportedGroup,
		goipp.TagPrinterGroup,
		goipp.TagJobGroup,
	}

	if len(msg.Groups) != len(expected) {
		t.Fatalf("groups: expected %d, present %d",
			len(expected), len(msg.Groups))
	}

	for i, grp := range msg.Groups {
		if grp.Tag != expected[i] {
			t.Errorf("group %d: expected %s, present %s",
				i, expected[i], grp.Tag)
		}
	}

	// First operation attributes must be charset and language
	if len(msg.Operation) < 2 ||
		msg.Operation[0].Name != "attributes-charset" ||
		msg.Operation[1].Name != "attributes-natural-language" {
		t.Errorf("operation attributes: wrong order")
	}

	// Check round trip through the wire encoding
	data, err := msg.EncodeBytes()
	if err != nil {
		t.Fatalf("EncodeBytes: %s", err)
	}

	var msg2 goipp.Message
	err = msg2.DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %s", err)
	}

	if msg2.RequestID != 7 || goipp.Status(msg2.Code) != goipp.StatusOk {
		t.Errorf("header: present id=%d status=%s",
			msg2.RequestID, goipp.Status(msg2.Code))
	}

	for i, grp := range msg2.Groups {
		if grp.Tag != expected[i] {
			t.Errorf("decoded group %d: expected %s, present %s",
				i, expected[i], grp.Tag)
		}
	}
}

// TestResponseBuilderEmpty tests that empty groups are omitted
func TestResponseBuilderEmpty(t *testing.T) {
	b := NewResponseBuilder(goipp.MakeVersion(2, 0),
		goipp.StatusErrorOperationNotSupported, 1)

	msg := b.Build()

	if len(msg.Groups) != 0 {
		t.Errorf("groups: expected none, present %d", len(msg.Groups))
	}

	if msg.Version != goipp.MakeVersion(2, 0) {
		t.Errorf("version: expected 2.0, present %s", msg.Version)
	}

	data, err := msg.EncodeBytes()
	if err != nil {
		t.Fatalf("EncodeBytes: %s", err)
	}

	// Header plus end-of-attributes tag
	if len(data) != 9 {
		t.Errorf("encoded size: expected 9, present %d", len(data))
	}
}

// TestResponseBuilderSelected tests AddPrinterAttributes
func TestResponseBuilderSelected(t *testing.T) {
	snap := NewPrinter(DefaultPrinterConfig()).Snapshot()

	b := NewResponseBuilder(goipp.MakeVersion(1, 1), goipp.StatusOk, 1)
	b.AddPrinterAttributes(snap, []PrinterAttribute{
		PrinterAttrState,
		PrinterAttrName,
		PrinterAttrState,
	})

	msg := b.Build()

	var names []string
	for _, attr := range msg.Printer {
		names = append(names, attr.Name)
	}

	present := strings.Join(names, ",")
	if present != "printer-state,printer-name" {
		t.Errorf("printer attributes: present %s", present)
	}
}
