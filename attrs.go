/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Attribute catalog
 */

package main

import (
	"fmt"

	"github.com/OpenPrinting/goipp"
)

// PrinterAttribute identifies the printer attribute
type PrinterAttribute int

// Printer attributes:
const (
	PrinterAttrCharsetConfigured PrinterAttribute = iota
	PrinterAttrCharsetSupported
	PrinterAttrCompressionSupported
	PrinterAttrDocumentFormatDefault
	PrinterAttrDocumentFormatSupported
	PrinterAttrGeneratedNaturalLanguageSupported
	PrinterAttrIppVersionsSupported
	PrinterAttrNaturalLanguageConfigured
	PrinterAttrOperationsSupported
	PrinterAttrPdlOverrideSupported
	PrinterAttrIsAcceptingJobs
	PrinterAttrName
	PrinterAttrState
	PrinterAttrStateReasons
	PrinterAttrUpTime
	PrinterAttrURISupported
	PrinterAttrQueuedJobCount
	PrinterAttrURIAuthenticationSupported
	PrinterAttrURISecuritySupported

	PrinterAttributeCount // Total count of printer attributes
)

// printerAttributeNames contains wire names of printer attributes
var printerAttributeNames = [PrinterAttributeCount]string{
	PrinterAttrCharsetConfigured:                 "charset-configured",
	PrinterAttrCharsetSupported:                  "charset-supported",
	PrinterAttrCompressionSupported:              "compression-supported",
	PrinterAttrDocumentFormatDefault:             "document-format-default",
	PrinterAttrDocumentFormatSupported:           "document-format-supported",
	PrinterAttrGeneratedNaturalLanguageSupported: "generated-natural-language-supported",
	PrinterAttrIppVersionsSupported:              "ipp-versions-supported",
	PrinterAttrNaturalLanguageConfigured:         "natural-language-configured",
	PrinterAttrOperationsSupported:               "operations-supported",
	PrinterAttrPdlOverrideSupported:              "pdl-override-supported",
	PrinterAttrIsAcceptingJobs:                   "printer-is-accepting-jobs",
	PrinterAttrName:                              "printer-name",
	PrinterAttrState:                             "printer-state",
	PrinterAttrStateReasons:                      "printer-state-reasons",
	PrinterAttrUpTime:                            "printer-up-time",
	PrinterAttrURISupported:                      "printer-uri-supported",
	PrinterAttrQueuedJobCount:                    "queued-job-count",
	PrinterAttrURIAuthenticationSupported:        "uri-authentication-supported",
	PrinterAttrURISecuritySupported:              "uri-security-supported",
}

// String returns wire name of the printer attribute
func (id PrinterAttribute) String() string {
	if id >= 0 && id < PrinterAttributeCount {
		return printerAttributeNames[id]
	}
	return fmt.Sprintf("unknown printer attribute %d", int(id))
}

// printerAttributeByName looks up printer attribute by its wire name
func printerAttributeByName(name string) (PrinterAttribute, bool) {
	for id, n := range printerAttributeNames {
		if n == name {
			return PrinterAttribute(id), true
		}
	}
	return 0, false
}

// resolvePrinterAttribute returns name and value of the printer
// attribute. It is total: every PrinterAttribute has a value
func resolvePrinterAttribute(p *PrinterSnapshot, id PrinterAttribute) Attr {
	var v Value

	switch id {
	case PrinterAttrCharsetConfigured:
		v = StringValue(SyntaxCharset, string(p.CharsetConfigured))
	case PrinterAttrCharsetSupported:
		v = StringArray(SyntaxCharset, p.CharsetSupported)
	case PrinterAttrCompressionSupported:
		v = StringArray(SyntaxKeyword, p.CompressionSupported)
	case PrinterAttrDocumentFormatDefault:
		v = StringValue(SyntaxMimeMediaType, string(p.DocumentFormatDefault))
	case PrinterAttrDocumentFormatSupported:
		v = StringArray(SyntaxMimeMediaType, p.DocumentFormatSupported)
	case PrinterAttrGeneratedNaturalLanguageSupported:
		v = StringArray(SyntaxNaturalLanguage, p.LanguagesSupported)
	case PrinterAttrIppVersionsSupported:
		v = StringArray(SyntaxKeyword, p.IppVersionsSupported)
	case PrinterAttrNaturalLanguageConfigured:
		v = StringValue(SyntaxNaturalLanguage, string(p.NaturalLanguage))
	case PrinterAttrOperationsSupported:
		v = ArrayOf(p.OperationsSupported, func(op goipp.Op) Value {
			return IntValue(SyntaxEnum, int32(op))
		})
	case PrinterAttrPdlOverrideSupported:
		v = StringValue(SyntaxKeyword, string(p.PdlOverride))
	case PrinterAttrIsAcceptingJobs:
		v = BoolValue(p.AcceptingJobs)
	case PrinterAttrName:
		v = StringValue(SyntaxName, p.Name)
	case PrinterAttrState:
		v = IntValue(SyntaxEnum, int32(p.State))
	case PrinterAttrStateReasons:
		v = ArrayOf(p.StateReasons, func(r PrinterStateReason) Value {
			return StringValue(SyntaxKeyword, r.String())
		})
	case PrinterAttrUpTime:
		v = IntValue(SyntaxInteger, p.UpTime)
	case PrinterAttrURISupported:
		v = ArrayOf(p.URIs, func(u PrinterURI) Value {
			return StringValue(SyntaxURI, u.URI)
		})
	case PrinterAttrQueuedJobCount:
		v = IntValue(SyntaxInteger, p.QueuedJobCount)
	case PrinterAttrURIAuthenticationSupported:
		v = ArrayOf(p.URIs, func(u PrinterURI) Value {
			return StringValue(SyntaxKeyword, string(u.Authentication))
		})
	case PrinterAttrURISecuritySupported:
		v = ArrayOf(p.URIs, func(u PrinterURI) Value {
			return StringValue(SyntaxKeyword, string(u.Security))
		})
	default:
		panic(fmt.Sprintf("internal error: %s", id))
	}

	return MakeAttr(id.String(), v)
}

// JobAttribute identifies the job attribute
type JobAttribute int

// Job attributes:
const (
	JobAttrURI JobAttribute = iota
	JobAttrID
	JobAttrState
	JobAttrStateReasons

	JobAttributeCount // Total count of job attributes
)

// jobAttributeNames contains wire names of job attributes
var jobAttributeNames = [JobAttributeCount]string{
	JobAttrURI:          "job-uri",
	JobAttrID:           "job-id",
	JobAttrState:        "job-state",
	JobAttrStateReasons: "job-state-reasons",
}

// String returns wire name of the job attribute
func (id JobAttribute) String() string {
	if id >= 0 && id < JobAttributeCount {
		return jobAttributeNames[id]
	}
	return fmt.Sprintf("unknown job attribute %d", int(id))
}

// resolveJobAttribute returns name and value of the job attribute
func resolveJobAttribute(job *Job, id JobAttribute) Attr {
	var v Value

	switch id {
	case JobAttrURI:
		v = StringValue(SyntaxURI, job.URI)
	case JobAttrID:
		v = IntValue(SyntaxInteger, job.ID)
	case JobAttrState:
		v = IntValue(SyntaxEnum, int32(job.State))
	case JobAttrStateReasons:
		v = StringArray(SyntaxKeyword, job.StateReasons)
	default:
		panic(fmt.Sprintf("internal error: %s", id))
	}

	return MakeAttr(id.String(), v)
}

// OperationAttribute identifies the operation attribute
type OperationAttribute int

// Operation attributes:
const (
	OpAttrCharset OperationAttribute = iota
	OpAttrNaturalLanguage
	OpAttrStatusMessage

	OperationAttributeCount // Total count of operation attributes
)

// operationAttributeNames contains wire names of operation attributes
var operationAttributeNames = [OperationAttributeCount]string{
	OpAttrCharset:         "attributes-charset",
	OpAttrNaturalLanguage: "attributes-natural-language",
	OpAttrStatusMessage:   "status-message",
}

// String returns wire name of the operation attribute
func (id OperationAttribute) String() string {
	if id >= 0 && id < OperationAttributeCount {
		return operationAttributeNames[id]
	}
	return fmt.Sprintf("unknown operation attribute %d", int(id))
}

// resolveOperationAttribute makes operation attribute out of
// its identifier and string value
func resolveOperationAttribute(id OperationAttribute, s string) Attr {
	var v Value

	switch id {
	case OpAttrCharset:
		v = StringValue(SyntaxCharset, s)
	case OpAttrNaturalLanguage:
		v = StringValue(SyntaxNaturalLanguage, s)
	case OpAttrStatusMessage:
		v = StringValue(SyntaxText, s)
	default:
		panic(fmt.Sprintf("internal error: %s", id))
	}

	return MakeAttr(id.String(), v)
}
