/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Service manager integration test
 */

package main

import (
	"testing"
)

// TestSvcConfig tests service configuration
func TestSvcConfig(t *testing.T) {
	cfg := svcConfig()

	if cfg.Name != "print-srv" {
		t.Errorf("Name: present %q", cfg.Name)
	}

	if len(cfg.Arguments) != 1 || cfg.Arguments[0] != "serve" {
		t.Errorf("Arguments: present %q", cfg.Arguments)
	}

	if cfg.WorkingDirectory != PathProgState {
		t.Errorf("WorkingDirectory: present %q", cfg.WorkingDirectory)
	}
}

// TestSvcProgramStopIdle tests that Stop of never started
// program does nothing
func TestSvcProgramStopIdle(t *testing.T) {
	prg := &svcProgram{}
	if err := prg.Stop(nil); err != nil {
		t.Errorf("Stop: %s", err)
	}
}
