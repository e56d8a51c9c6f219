/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Logger test
 */

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLogLevelAdjust tests LogLevel.Adjust
func TestLogLevelAdjust(t *testing.T) {
	type testData struct {
		in, out LogLevel
	}

	tests := []testData{
		{0, 0},
		{LogError, LogError},
		{LogInfo, LogInfo | LogError},
		{LogDebug, LogDebug | LogInfo | LogError},
		{LogTraceIPP, LogTraceIPP | LogDebug | LogInfo | LogError},
		{LogTraceHTTP, LogTraceHTTP | LogDebug | LogInfo | LogError},
	}

	for _, test := range tests {
		levels := test.in
		levels.Adjust()
		if levels != test.out {
			t.Errorf("%x: expected %x, present %x", test.in, test.out, levels)
		}
	}
}

// TestLoggerFile tests logging to file with level filtering
// and carbon copy
func TestLoggerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log", "main.log")
	ccpath := filepath.Join(dir, "cc.log")

	l := NewLogger()
	l.Info(' ', "buffered before mode set")

	cc := NewLogger().ToFile(ccpath)
	l.ToFile(path).SetLevels(LogInfo).Cc(cc)

	l.Info('+', "job %d created", 1)
	l.Debug(' ', "not in the main log")
	l.Begin().
		Error('!', "first line").
		Error('!', "second line").
		Commit()

	l.Close()
	cc.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%s", err)
	}

	text := string(data)

	for _, s := range []string{
		"  buffered before mode set\n",
		"+ job 1 created\n",
		"! first line\n",
		"! second line\n",
	} {
		if !strings.Contains(text, s) {
			t.Errorf("main log: %q missed:\n%s", s, text)
		}
	}

	if strings.Contains(text, "not in the main log") {
		t.Errorf("main log: debug line not filtered:\n%s", text)
	}

	data, err = os.ReadFile(ccpath)
	if err != nil {
		t.Fatalf("%s", err)
	}

	if !strings.Contains(string(data), "not in the main log") {
		t.Errorf("cc log: debug line missed:\n%s", data)
	}
}

// TestLoggerRotate tests log file rotation
func TestLoggerRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.log")

	l := NewLogger().ToFile(path)
	l.maxSize = 100
	l.maxBackups = 2

	for i := 0; i < 20; i++ {
		l.Info(' ', "line %d: some text to fill the log file", i)
	}

	l.Close()

	if _, err := os.Stat(path + ".0.gz"); err != nil {
		t.Errorf("rotated file missed: %s", err)
	}

	if _, err := os.Stat(path + ".2.gz"); err == nil {
		t.Errorf("too many backup files kept")
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("%s", err)
	}

	if stat.Size() > 200 {
		t.Errorf("log file not truncated: %d bytes", stat.Size())
	}
}
