/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Server persistent state
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// SrvState manages the server persistent state: printer UUID
// and DNS-SD names, survived across restarts
type SrvState struct {
	UUID          string // printer UUID
	DNSSdName     string // DNS-SD name, from the printer name
	DNSSdOverride string // DNS-SD name after collision resolution

	path string // Path to the disk file
}

// LoadSrvState loads SrvState from a disk file
//
// Missing or damaged file is not an error: the state is
// regenerated and saved. Printer name change resets the
// DNS-SD name override
func LoadSrvState(path, printerName string) *SrvState {
	state := &SrvState{path: path}

	// Load state file
	inifile, err := ini.Load(path)
	if err != nil && !os.IsNotExist(err) {
		Log.Error('!', "STATE LOAD: %s", state.error("%s", err))
	}

	// Extract data
	if inifile != nil {
		if section, _ := inifile.GetSection("printer"); section != nil {
			state.UUID = state.loadString(section, "uuid")
			state.DNSSdName = state.loadString(section, "dns-sd-name")
			state.DNSSdOverride = state.loadString(section, "dns-sd-override")
		}
	}

	// Validate and update
	update := false

	if uuid := UUIDNormalize(state.UUID); uuid == "" {
		if state.UUID != "" {
			Log.Error('!', "STATE LOAD: %s",
				state.error("%w: uuid %q", ErrBadState, state.UUID))
		}
		state.UUID = UUIDGenerate()
		update = true
	} else if uuid != state.UUID {
		state.UUID = uuid
		update = true
	}

	if state.DNSSdName != printerName {
		state.DNSSdName = printerName
		state.DNSSdOverride = ""
		update = true
	}

	if update {
		state.Save()
	}

	return state
}

// Load string, defaults to ""
func (state *SrvState) loadString(section *ini.Section, name string) string {
	if key, _ := section.GetKey(name); key != nil {
		return key.String()
	}

	return ""
}

// Save updates SrvState on disk
func (state *SrvState) Save() {
	os.MkdirAll(filepath.Dir(state.path), 0755)

	inifile := ini.Empty()
	section, _ := inifile.NewSection("printer")
	section.Comment = "print-srv persistent state. Don't edit"

	section.NewKey("uuid", state.UUID)

	if state.DNSSdName != "" {
		section.NewKey("dns-sd-name", state.DNSSdName)
	}

	if state.DNSSdOverride != "" {
		section.NewKey("dns-sd-override", state.DNSSdOverride)
	}

	err := inifile.SaveTo(state.path)
	if err != nil {
		Log.Error('!', "STATE SAVE: %s", state.error("%s", err))
	}
}

// error creates a state-related error
func (state *SrvState) error(format string, args ...interface{}) error {
	return fmt.Errorf(state.path+": "+format, args...)
}
