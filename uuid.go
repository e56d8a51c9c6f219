/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * UUID utilities
 */

package main

import (
	"strings"

	"github.com/google/uuid"
)

// UUIDNormalize parses an UUID and then reformats it into
// the standard form (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx)
//
// If input is not a valid UUID, it returns an empty string.
// Besides the forms recognized by uuid.Parse, hex digits
// separated by arbitrary punctuation are accepted
func UUIDNormalize(s string) string {
	in := strings.ToLower(strings.TrimSpace(s))
	in = strings.TrimPrefix(in, "urn:")
	in = strings.TrimPrefix(in, "uuid:")

	if u, err := uuid.Parse(in); err == nil {
		return u.String()
	}

	var hex strings.Builder
	for i := 0; i < len(in); i++ {
		c := in[i]
		if '0' <= c && c <= '9' || 'a' <= c && c <= 'f' {
			hex.WriteByte(c)
		}
	}

	u, err := uuid.Parse(hex.String())
	if err != nil {
		return ""
	}

	return u.String()
}

// UUIDGenerate generates a new random UUID
func UUIDGenerate() string {
	return uuid.New().String()
}
