/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Attribute values
 */

package main

import (
	"bytes"
	"fmt"

	"github.com/OpenPrinting/goipp"
)

// Syntax represents a value syntax of the attribute value
type Syntax int

// Value syntaxes, used by printer, job and operation attributes
const (
	SyntaxCharset Syntax = iota
	SyntaxKeyword
	SyntaxMimeMediaType
	SyntaxNaturalLanguage
	SyntaxURI
	SyntaxEnum
	SyntaxInteger
	SyntaxBoolean
	SyntaxName
	SyntaxText
	SyntaxArray
)

// String returns the RFC 8011 name of the Syntax
func (s Syntax) String() string {
	switch s {
	case SyntaxCharset:
		return "charset"
	case SyntaxKeyword:
		return "keyword"
	case SyntaxMimeMediaType:
		return "mimeMediaType"
	case SyntaxNaturalLanguage:
		return "naturalLanguage"
	case SyntaxURI:
		return "uri"
	case SyntaxEnum:
		return "enum"
	case SyntaxInteger:
		return "integer"
	case SyntaxBoolean:
		return "boolean"
	case SyntaxName:
		return "name"
	case SyntaxText:
		return "text"
	case SyntaxArray:
		return "1setOf"
	}

	return fmt.Sprintf("unknown syntax %d", int(s))
}

// Tag returns goipp value tag for the Syntax
//
// SyntaxArray has no tag on its own; each element
// is encoded with the tag of its own syntax
func (s Syntax) Tag() goipp.Tag {
	switch s {
	case SyntaxCharset:
		return goipp.TagCharset
	case SyntaxKeyword:
		return goipp.TagKeyword
	case SyntaxMimeMediaType:
		return goipp.TagMimeType
	case SyntaxNaturalLanguage:
		return goipp.TagLanguage
	case SyntaxURI:
		return goipp.TagURI
	case SyntaxEnum:
		return goipp.TagEnum
	case SyntaxInteger:
		return goipp.TagInteger
	case SyntaxBoolean:
		return goipp.TagBoolean
	case SyntaxName:
		return goipp.TagName
	case SyntaxText:
		return goipp.TagText
	}

	return goipp.TagZero
}

// Value is a single attribute value. It is a closed tagged
// union: Syntax selects which of the remaining fields is
// meaningful
//
//	Text   - Charset, Keyword, MimeMediaType, NaturalLanguage,
//	         URI, Name, Text
//	Int    - Enum, Integer
//	Bool   - Boolean
//	Array  - Array, all elements of the same syntax
type Value struct {
	Syntax Syntax  // Value syntax
	Text   string  // String-like value
	Int    int32   // Integer or enum value
	Bool   bool    // Boolean value
	Array  []Value // Array elements
}

// StringValue makes a string-like Value of the specified syntax
// (Charset, Keyword, MimeMediaType, NaturalLanguage, URI, Name, Text)
func StringValue(syntax Syntax, text string) Value {
	return Value{Syntax: syntax, Text: text}
}

// IntValue makes integer or enum Value
func IntValue(syntax Syntax, v int32) Value {
	return Value{Syntax: syntax, Int: v}
}

// BoolValue makes boolean Value
func BoolValue(v bool) Value {
	return Value{Syntax: SyntaxBoolean, Bool: v}
}

// ArrayValue makes array Value out of its elements
func ArrayValue(elements ...Value) Value {
	return Value{Syntax: SyntaxArray, Array: elements}
}

// StringArray makes array of string-like values of the same
// syntax out of slice of strings (or string-based types)
func StringArray[T ~string](syntax Syntax, src []T) Value {
	return ArrayOf(src, func(s T) Value {
		return StringValue(syntax, string(s))
	})
}

// ArrayOf makes array Value by mapping each element of the
// source sequence through the same per-syntax constructor.
// Source order is preserved
func ArrayOf[T any](src []T, mk func(T) Value) Value {
	elements := make([]Value, len(src))
	for i, s := range src {
		elements[i] = mk(s)
	}
	return ArrayValue(elements...)
}

// ElementSyntax returns syntax of array elements, or the Value's
// own syntax for scalar values. For empty arrays it returns
// SyntaxArray
func (v Value) ElementSyntax() Syntax {
	if v.Syntax != SyntaxArray {
		return v.Syntax
	}

	if len(v.Array) == 0 {
		return SyntaxArray
	}

	return v.Array[0].Syntax
}

// Values converts Value into goipp.Values. Scalar becomes
// a single-valued sequence, Array becomes a multi-valued one
//
// IPP has no way to encode attribute without values, so
// empty Array is exported as the out-of-band no-value
func (v Value) Values() goipp.Values {
	var vals goipp.Values

	switch v.Syntax {
	case SyntaxArray:
		for _, elem := range v.Array {
			vals = append(vals, elem.Values()...)
		}

		if len(vals) == 0 {
			vals.Add(goipp.TagNoValue, goipp.Void{})
		}

	case SyntaxEnum, SyntaxInteger:
		vals.Add(v.Syntax.Tag(), goipp.Integer(v.Int))

	case SyntaxBoolean:
		vals.Add(v.Syntax.Tag(), goipp.Boolean(v.Bool))

	default:
		vals.Add(v.Syntax.Tag(), goipp.String(v.Text))
	}

	return vals
}

// String returns a human-readable representation of the Value
func (v Value) String() string {
	switch v.Syntax {
	case SyntaxArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range v.Array {
			if i != 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(elem.String())
		}
		buf.WriteByte(']')
		return buf.String()

	case SyntaxEnum, SyntaxInteger:
		return fmt.Sprintf("%d", v.Int)

	case SyntaxBoolean:
		return fmt.Sprintf("%t", v.Bool)
	}

	return v.Text
}

// Attr is a resolved attribute: wire name plus typed value
type Attr struct {
	Name  string // Attribute name
	Value Value  // Attribute value
}

// MakeAttr makes Attr
func MakeAttr(name string, v Value) Attr {
	return Attr{Name: name, Value: v}
}

// Export converts Attr into goipp.Attribute
func (a Attr) Export() goipp.Attribute {
	return goipp.Attribute{Name: a.Name, Values: a.Value.Values()}
}
