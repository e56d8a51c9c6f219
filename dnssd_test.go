/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD publisher test
 */

package main

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testDNSSdServer is the fake registered DNS-SD service
type testDNSSdServer struct {
	shutdown bool
}

// Shutdown implements dnssdServer interface
func (srv *testDNSSdServer) Shutdown() {
	srv.shutdown = true
}

// testDNSSdRegistry is the fake DNS-SD registry, where
// some names are already taken by other hosts and first
// registrations may fail
type testDNSSdRegistry struct {
	lock     sync.Mutex
	taken    map[string]bool // Names announced by other hosts
	failures int             // Count of registrations to fail
	lookups  []string        // Looked up names
	attempts []string        // Registration attempts
	txt      []string        // Last registered TXT record
}

// register implements dnssdRegisterFunc
func (reg *testDNSSdRegistry) register(instance, service string, port int,
	txt []string, ifaces []net.Interface) (dnssdServer, error) {

	reg.lock.Lock()
	defer reg.lock.Unlock()

	reg.attempts = append(reg.attempts, instance)
	reg.txt = txt

	if reg.failures > 0 {
		reg.failures--
		return nil, errors.New("Could not determine host IP addresses")
	}

	return &testDNSSdServer{}, nil
}

// lookup implements dnssdLookupFunc
func (reg *testDNSSdRegistry) lookup(ctx context.Context,
	instance, service string) (bool, error) {

	reg.lock.Lock()
	defer reg.lock.Unlock()

	reg.lookups = append(reg.lookups, instance)
	return reg.taken[instance], nil
}

// testDNSSdPublish publishes the service with the fake registry
// and waits until published. It returns the publisher and the
// registered instance name
func testDNSSdPublish(t *testing.T, state *SrvState,
	reg *testDNSSdRegistry) (*DNSSdPublisher, string) {

	svc := DNSSdIppService(DefaultPrinterConfig(), state.UUID, 3000)
	publisher := NewDNSSdPublisher(state, svc, nil)
	publisher.register = reg.register
	publisher.lookup = reg.lookup
	publisher.retry = 10 * time.Millisecond

	publisher.Publish()

	deadline := time.Now().Add(5 * time.Second)
	for publisher.Instance() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	return publisher, publisher.Instance()
}

// TestDNSSdPublisher tests name collision resolution
func TestDNSSdPublisher(t *testing.T) {
	state := LoadSrvState(filepath.Join(t.TempDir(), "state"), "Office")
	reg := &testDNSSdRegistry{taken: map[string]bool{"Office": true}}

	publisher, instance := testDNSSdPublish(t, state, reg)
	if instance != "Office (1)" {
		t.Errorf("instance: expected %q, present %q", "Office (1)", instance)
	}

	publisher.lock.Lock()
	srv, _ := publisher.server.(*testDNSSdServer)
	publisher.lock.Unlock()

	// Unpublish waits for the publisher goroutine
	publisher.Unpublish()

	if srv == nil || !srv.shutdown {
		t.Errorf("Unpublish: service not removed")
	}

	if state.DNSSdOverride != "Office (1)" {
		t.Errorf("override: present %q", state.DNSSdOverride)
	}

	reg.lock.Lock()
	lookups := append([]string(nil), reg.lookups...)
	attempts := append([]string(nil), reg.attempts...)
	txt := reg.txt
	reg.lock.Unlock()

	if len(lookups) != 2 || lookups[0] != "Office" {
		t.Errorf("lookups: present %q", lookups)
	}

	if len(attempts) != 1 || attempts[0] != "Office (1)" {
		t.Errorf("attempts: present %q", attempts)
	}

	found := false
	for _, item := range txt {
		if item == "rp=ipp/print" {
			found = true
		}
	}

	if !found {
		t.Errorf("TXT: rp missed: %q", txt)
	}

	if publisher.Instance() != "" {
		t.Errorf("Unpublish: instance still present")
	}

	// Override survives restart and is used next time
	state = LoadSrvState(state.path, "Office")
	if state.DNSSdOverride != "Office (1)" {
		t.Errorf("override after reload: present %q", state.DNSSdOverride)
	}
}

// TestDNSSdPublisherRetry tests that registration errors, which
// are not collisions, are retried with the same name
func TestDNSSdPublisherRetry(t *testing.T) {
	state := LoadSrvState(filepath.Join(t.TempDir(), "state"), "Office")
	reg := &testDNSSdRegistry{failures: 3}

	publisher, instance := testDNSSdPublish(t, state, reg)
	publisher.Unpublish()

	if instance != "Office" {
		t.Errorf("instance: expected %q, present %q", "Office", instance)
	}

	reg.lock.Lock()
	attempts := append([]string(nil), reg.attempts...)
	reg.lock.Unlock()

	if len(attempts) != 4 {
		t.Errorf("attempts: expected 4, present %q", attempts)
	}

	for _, a := range attempts {
		if a != "Office" {
			t.Errorf("attempts: name changed: %q", attempts)
			break
		}
	}

	if state.DNSSdOverride != "" {
		t.Errorf("override: expected none, present %q", state.DNSSdOverride)
	}
}

// TestDNSSdPublisherOverrideKept tests that previously saved
// override is published as is
func TestDNSSdPublisherOverrideKept(t *testing.T) {
	state := LoadSrvState(filepath.Join(t.TempDir(), "state"), "Office")
	state.DNSSdOverride = "Office (2)"
	state.Save()

	reg := &testDNSSdRegistry{}
	publisher, instance := testDNSSdPublish(t, state, reg)
	publisher.Unpublish()

	if instance != "Office (2)" {
		t.Errorf("instance: expected %q, present %q", "Office (2)", instance)
	}

	if state.DNSSdOverride != "Office (2)" {
		t.Errorf("override: present %q", state.DNSSdOverride)
	}
}

// TestDNSSdIppService tests IPP service TXT record
func TestDNSSdIppService(t *testing.T) {
	pc := DefaultPrinterConfig()
	pc.Location = "2nd floor"

	svc := DNSSdIppService(pc, "01234567-89ab-cdef-0123-456789abcdef", 631)

	if svc.Type != "_ipp._tcp" || svc.Port != 631 {
		t.Errorf("service: present %s:%d", svc.Type, svc.Port)
	}

	expected := map[string]string{
		"txtvers": "1",
		"rp":      "ipp/print",
		"ty":      "Default Printer Name",
		"note":    "2nd floor",
		"pdl":     "application/pdf,text/plain",
		"UUID":    "01234567-89ab-cdef-0123-456789abcdef",
		"product": "(Default Printer Name)",
	}

	present := make(map[string]string)
	for _, item := range svc.Txt {
		present[item.Key] = item.Value
	}

	for key, value := range expected {
		if present[key] != value {
			t.Errorf("TXT %s: expected %q, present %q",
				key, value, present[key])
		}
	}
}
