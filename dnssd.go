/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD publisher
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// DNSSdTxtItem represents a single TXT record item
type DNSSdTxtItem struct {
	Key, Value string // TXT entry: Key=Value
}

// DNSSdTxtRecord represents a TXT record
type DNSSdTxtRecord []DNSSdTxtItem

// Add adds item to DNSSdTxtRecord
func (txt *DNSSdTxtRecord) Add(key, value string) {
	*txt = append(*txt, DNSSdTxtItem{key, value})
}

// IfNotEmpty adds item to DNSSdTxtRecord if its value is not empty
//
// It returns true if item was actually added, false otherwise
func (txt *DNSSdTxtRecord) IfNotEmpty(key, value string) bool {
	if value != "" {
		txt.Add(key, value)
		return true
	}
	return false
}

// AddPDL adds PDL list to the TXT record
//
// value is a comma-separated list of MIME types. Single TXT
// item is limited to 255 bytes (RFC 6763, 6.1), so the list
// is truncated at the first element that doesn't fit
func (txt *DNSSdTxtRecord) AddPDL(key, value string) {
	const max = 255

	var out strings.Builder
	for _, pdl := range strings.Split(value, ",") {
		pdl = strings.TrimSpace(pdl)
		if pdl == "" {
			continue
		}

		sz := len(key) + 1 + out.Len() + len(pdl)
		if out.Len() != 0 {
			sz++
		}

		if sz > max {
			break
		}

		if out.Len() != 0 {
			out.WriteByte(',')
		}
		out.WriteString(pdl)
	}

	txt.Add(key, out.String())
}

// export exports DNSSdTxtRecord in the zeroconf format
func (txt DNSSdTxtRecord) export() []string {
	exported := make([]string, len(txt))
	for i, item := range txt {
		exported[i] = item.Key + "=" + item.Value
	}
	return exported
}

// DNSSdSvcInfo represents a DNS-SD service information
type DNSSdSvcInfo struct {
	Type string         // Service type, i.e. "_ipp._tcp"
	Port int            // TCP port
	Txt  DNSSdTxtRecord // TXT record
}

// DNSSdIppService builds DNS-SD information for the IPP service
// of the printer
func DNSSdIppService(pc PrinterConfig, uuid string, port int) DNSSdSvcInfo {
	info := DNSSdSvcInfo{Type: "_ipp._tcp", Port: port}

	formats := make([]string, len(pc.DocumentFormatSupported))
	for i, f := range pc.DocumentFormatSupported {
		formats[i] = string(f)
	}

	info.Txt.Add("txtvers", "1")
	info.Txt.Add("qtotal", "1")
	info.Txt.Add("rp", strings.TrimPrefix(IppPath, "/"))
	info.Txt.Add("ty", pc.Name)
	info.Txt.Add("note", pc.Location)
	info.Txt.AddPDL("pdl", strings.Join(formats, ","))
	info.Txt.IfNotEmpty("UUID", uuid)
	info.Txt.Add("product", "("+pc.Name+")")

	return info
}

// dnssdServer is the registered DNS-SD service
type dnssdServer interface {
	Shutdown()
}

// dnssdRegisterFunc registers DNS-SD service
type dnssdRegisterFunc func(instance, service string, port int,
	txt []string, ifaces []net.Interface) (dnssdServer, error)

// dnssdLookupFunc tells if service instance is already
// announced on the network by somebody else
type dnssdLookupFunc func(ctx context.Context,
	instance, service string) (bool, error)

// dnssdZeroconfRegister registers DNS-SD service with zeroconf
func dnssdZeroconfRegister(instance, service string, port int,
	txt []string, ifaces []net.Interface) (dnssdServer, error) {

	srv, err := zeroconf.Register(instance, service, "local.",
		port, txt, ifaces)
	if err != nil {
		return nil, err
	}

	return srv, nil
}

// dnssdZeroconfLookup looks up the service instance with zeroconf
//
// zeroconf.Register doesn't probe for conflicts, so names
// are checked with the resolver before registration. Resolver
// reports only entries that match the instance name
func dnssdZeroconfLookup(ctx context.Context,
	instance, service string) (bool, error) {

	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, DNSSdLookupTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	err = resolver.Lookup(ctx, instance, service, "local.", entries)
	if err != nil {
		return false, err
	}

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case e, ok := <-entries:
			if !ok {
				return false, nil
			}
			if e != nil {
				Log.Debug(' ', "DNS-SD: %s: answered by %s",
					instance, e.HostName)
				return true, nil
			}
		}
	}
}

// DNSSdPublisher publishes the printer's IPP service
//
// Service instance name comes from the SrvState. If name is
// taken by another host, "name (N)" is used instead and saved
// as the SrvState's DNS-SD override
type DNSSdPublisher struct {
	State    *SrvState          // Persistent state
	Service  DNSSdSvcInfo       // Published service
	Ifaces   []net.Interface    // Interfaces to publish on, nil for all
	register dnssdRegisterFunc  // Registration function
	lookup   dnssdLookupFunc    // Conflict check function
	retry    time.Duration      // Retry interval
	server   dnssdServer        // Registered service
	instance string             // Registered instance name
	lock     sync.Mutex         // Protects server and instance
	ctx      context.Context    // Canceled to terminate publisher goroutine
	cancel   context.CancelFunc // Cancels ctx
	finDone  sync.WaitGroup     // To wait for goroutine termination
}

// NewDNSSdPublisher creates new DNSSdPublisher
func NewDNSSdPublisher(state *SrvState, service DNSSdSvcInfo,
	ifaces []net.Interface) *DNSSdPublisher {

	ctx, cancel := context.WithCancel(context.Background())

	return &DNSSdPublisher{
		State:    state,
		Service:  service,
		Ifaces:   ifaces,
		register: dnssdZeroconfRegister,
		lookup:   dnssdZeroconfLookup,
		retry:    DNSSdRetryInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish starts publishing. Failures are retried in background
func (publisher *DNSSdPublisher) Publish() {
	Log.Info('+', "DNS-SD: %s: publishing requested", publisher.instanceName(0))

	publisher.finDone.Add(1)
	go publisher.goroutine()
}

// Unpublish removes the published service
func (publisher *DNSSdPublisher) Unpublish() {
	publisher.cancel()
	publisher.finDone.Wait()

	publisher.lock.Lock()
	defer publisher.lock.Unlock()

	if publisher.server != nil {
		publisher.server.Shutdown()
		publisher.server = nil
		Log.Info('-', "DNS-SD: %s: removed", publisher.instance)
	}
}

// Instance returns the currently published instance name,
// or "" if service is not published yet
func (publisher *DNSSdPublisher) Instance() string {
	publisher.lock.Lock()
	defer publisher.lock.Unlock()

	if publisher.server == nil {
		return ""
	}
	return publisher.instance
}

// instanceName builds service instance name with optional
// collision-resolution suffix
func (publisher *DNSSdPublisher) instanceName(suffix int) string {
	state := publisher.State

	if suffix == 0 {
		if state.DNSSdOverride != "" {
			return state.DNSSdOverride
		}
		return state.DNSSdName
	}

	return fmt.Sprintf("%s (%d)", state.DNSSdName, suffix)
}

// tryPublish makes a single registration attempt
//
// It returns errDNSSdCollision if instance name is already
// in use by somebody else
func (publisher *DNSSdPublisher) tryPublish(instance string) error {
	taken, err := publisher.lookup(publisher.ctx, instance,
		publisher.Service.Type)
	if err != nil {
		return err
	}

	if taken {
		return errDNSSdCollision
	}

	srv, err := publisher.register(instance, publisher.Service.Type,
		publisher.Service.Port, publisher.Service.Txt.export(),
		publisher.Ifaces)

	if err != nil {
		return err
	}

	publisher.lock.Lock()
	publisher.server = srv
	publisher.instance = instance
	publisher.lock.Unlock()

	return nil
}

// errDNSSdCollision reports the instance name collision
var errDNSSdCollision = errors.New("name collision")

// Publisher goroutine
//
// Name collision moves to the next "name (N)" immediately,
// other errors are retried with the same name
func (publisher *DNSSdPublisher) goroutine() {
	defer publisher.finDone.Done()

	suffix := 0
	for {
		instance := publisher.instanceName(suffix)
		err := publisher.tryPublish(instance)

		switch {
		case err == nil:
			Log.Info(' ', "DNS-SD: %s: published", instance)
			publisher.saveOverride(instance)
			return

		case errors.Is(err, errDNSSdCollision):
			Log.Info(' ', "DNS-SD: %s: %s", instance, err)

			suffix++
			if suffix > DNSSdMaxSuffix {
				suffix = 1
			}

			if publisher.ctx.Err() != nil {
				return
			}
			continue

		default:
			Log.Error('!', "DNS-SD: %s: %s", instance, err)
		}

		select {
		case <-publisher.ctx.Done():
			return
		case <-time.After(publisher.retry):
		}
	}
}

// saveOverride updates DNS-SD override in the SrvState after
// successful publishing
func (publisher *DNSSdPublisher) saveOverride(instance string) {
	override := instance
	if instance == publisher.State.DNSSdName {
		override = ""
	}

	if override != publisher.State.DNSSdOverride {
		publisher.State.DNSSdOverride = override
		publisher.State.Save()
	}
}
