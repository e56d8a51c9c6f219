/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * IPP response builder
 */

package main

import (
	"github.com/OpenPrinting/goipp"
)

// ResponseBuilder accumulates attributes of the IPP response
// and assembles them into the goipp.Message
//
// Attributes are kept per group, in the order they were
// added. Groups are emitted in the protocol order:
// operation, unsupported, printer, job
type ResponseBuilder struct {
	version     goipp.Version // Protocol version
	status      goipp.Status  // Response status
	requestID   uint32        // Request ID
	operation   []Attr        // Operation attributes
	unsupported []Attr        // Unsupported attributes
	printer     []Attr        // Printer attributes
	job         []Attr        // Job attributes
}

// NewResponseBuilder creates a new ResponseBuilder
func NewResponseBuilder(version goipp.Version, status goipp.Status,
	requestID uint32) *ResponseBuilder {

	return &ResponseBuilder{
		version:   version,
		status:    status,
		requestID: requestID,
	}
}

// Status returns response status
func (b *ResponseBuilder) Status() goipp.Status {
	return b.status
}

// SetStatus changes response status
func (b *ResponseBuilder) SetStatus(status goipp.Status) {
	b.status = status
}

// AddOperationAttribute appends attribute to the operation group
func (b *ResponseBuilder) AddOperationAttribute(attr Attr) {
	b.operation = append(b.operation, attr)
}

// AddUnsupportedAttribute appends attribute to the
// unsupported attributes group
func (b *ResponseBuilder) AddUnsupportedAttribute(attr Attr) {
	b.unsupported = append(b.unsupported, attr)
}

// AddPrinterAttribute appends attribute to the printer group
func (b *ResponseBuilder) AddPrinterAttribute(attr Attr) {
	b.printer = append(b.printer, attr)
}

// AddJobAttribute appends attribute to the job group
func (b *ResponseBuilder) AddJobAttribute(attr Attr) {
	b.job = append(b.job, attr)
}

// AddStandardOperationAttributes adds attributes-charset and
// attributes-natural-language, RFC 8011, 4.1.4.2
func (b *ResponseBuilder) AddStandardOperationAttributes(charset Charset,
	lang NaturalLanguage) {

	b.AddOperationAttribute(resolveOperationAttribute(OpAttrCharset,
		string(charset)))
	b.AddOperationAttribute(resolveOperationAttribute(OpAttrNaturalLanguage,
		string(lang)))
}

// AddStatusMessage adds status-message operation attribute
func (b *ResponseBuilder) AddStatusMessage(msg string) {
	b.AddOperationAttribute(resolveOperationAttribute(OpAttrStatusMessage,
		msg))
}

// AddRequiredPrinterAttributes adds all modeled printer attributes,
// in the catalog order
func (b *ResponseBuilder) AddRequiredPrinterAttributes(p *PrinterSnapshot) {
	for id := PrinterAttribute(0); id < PrinterAttributeCount; id++ {
		b.AddPrinterAttribute(resolvePrinterAttribute(p, id))
	}
}

// AddPrinterAttributes adds the selected printer attributes,
// in the order they are specified. Duplicates are added once
func (b *ResponseBuilder) AddPrinterAttributes(p *PrinterSnapshot,
	ids []PrinterAttribute) {

	var seen [PrinterAttributeCount]bool
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			b.AddPrinterAttribute(resolvePrinterAttribute(p, id))
		}
	}
}

// AddRequiredJobAttributes adds all modeled job attributes,
// in the catalog order
func (b *ResponseBuilder) AddRequiredJobAttributes(job *Job) {
	for id := JobAttribute(0); id < JobAttributeCount; id++ {
		b.AddJobAttribute(resolveJobAttribute(job, id))
	}
}

// Build assembles the response message
//
// Empty groups are omitted. Both Groups and the named
// per-group fields of the message are filled; encoder
// uses Groups, so the group order is preserved on wire
func (b *ResponseBuilder) Build() *goipp.Message {
	msg := goipp.NewResponse(b.version, b.status, b.requestID)

	for _, grp := range []struct {
		tag   goipp.Tag
		attrs []Attr
		out   *goipp.Attributes
	}{
		{goipp.TagOperationGroup, b.operation, &msg.Operation},
		{goipp.TagUnsupportedGroup, b.unsupported, &msg.Unsupported},
		{goipp.TagPrinterGroup, b.printer, &msg.Printer},
		{goipp.TagJobGroup, b.job, &msg.Job},
	} {
		if len(grp.attrs) == 0 {
			continue
		}

		attrs := make(goipp.Attributes, 0, len(grp.attrs))
		for _, attr := range grp.attrs {
			attrs.Add(attr.Export())
		}

		*grp.out = attrs
		msg.Groups.Add(goipp.Group{Tag: grp.tag, Attrs: attrs})
	}

	return msg
}
