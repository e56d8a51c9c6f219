/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * print-srv status support
 */

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// statusOfServer represents a status of the running server
type statusOfServer struct {
	printer   *Printer        // The printer
	addr      string          // HTTP listen address
	publisher *DNSSdPublisher // DNS-SD publisher, may be nil
}

var (
	// statusCurrent is the current server status. It is
	// nil if server is not running
	statusCurrent *statusOfServer

	// statusLock protects access to the statusCurrent
	statusLock sync.RWMutex
)

// StatusRetrieve connects to the running print-srv, retrieves
// its status and returns retrieved status as a printable text
func StatusRetrieve(path string) ([]byte, error) {
	return statusRequest(path, http.MethodGet, "/status")
}

// StatusCommand sends command ("pause" or "resume") to the
// running print-srv
func StatusCommand(path, cmd string) ([]byte, error) {
	return statusRequest(path, http.MethodPost, "/"+cmd)
}

// statusRequest performs HTTP request over the control socket
func statusRequest(path, method, uri string) ([]byte, error) {
	rq, err := http.NewRequest(method, "http://localhost"+uri, nil)
	if err != nil {
		return nil, err
	}

	rsp, err := CtrlsockClient(path).Do(rq)
	if err != nil {
		for _, e := range []error{ErrNoServer, ErrAccess} {
			if errors.Is(err, e) {
				return nil, e
			}
		}
		return nil, err
	}

	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err == nil && rsp.StatusCode == http.StatusForbidden {
		err = ErrAccess
	} else if err == nil && rsp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%s: %s", rsp.Status, bytes.TrimSpace(body))
	}

	return body, err
}

// StatusFormat formats print-srv status as a text
func StatusFormat() []byte {
	buf := &bytes.Buffer{}

	statusLock.RLock()
	status := statusCurrent
	statusLock.RUnlock()

	// If we are here, we are definitely running :-)
	fmt.Fprintf(buf, "print-srv %s: running\n", Version)

	if status == nil {
		buf.WriteString("printer: not configured\n")
		return buf.Bytes()
	}

	snap := status.printer.Snapshot()
	accepting := "no"
	if snap.AcceptingJobs {
		accepting = "yes"
	}

	fmt.Fprintf(buf, "listening at: %s\n", status.addr)
	fmt.Fprintf(buf, "printer: %q\n", snap.Name)
	fmt.Fprintf(buf, "  uri:            %s\n", status.printer.PrimaryURI())
	fmt.Fprintf(buf, "  state:          %s\n", snap.State)
	fmt.Fprintf(buf, "  accepting jobs: %s\n", accepting)
	fmt.Fprintf(buf, "  queued jobs:    %d\n", snap.QueuedJobCount)
	fmt.Fprintf(buf, "  up time:        %ds\n", snap.UpTime)

	if status.publisher != nil {
		instance := status.publisher.Instance()
		if instance == "" {
			instance = "not published"
		}
		fmt.Fprintf(buf, "  dns-sd:         %s\n", instance)
	}

	// Format jobs
	jobs := status.printer.Jobs()
	buf.WriteString("jobs:")
	if len(jobs) == 0 {
		buf.WriteString(" none\n")
		return buf.Bytes()
	}

	buf.WriteString("\n")
	fmt.Fprintf(buf, " ID     State       Size      Format                    Name\n")
	for _, job := range jobs {
		fmt.Fprintf(buf, " %-6d %-11s %-9d %-25s %q\n",
			job.ID, job.State, job.Size(), job.DocumentFormat, job.Name)
	}

	return buf.Bytes()
}

// StatusSet sets the current server status
func StatusSet(printer *Printer, addr string, publisher *DNSSdPublisher) {
	statusLock.Lock()
	statusCurrent = &statusOfServer{
		printer:   printer,
		addr:      addr,
		publisher: publisher,
	}
	statusLock.Unlock()
}

// StatusPrinter returns the printer of the running server,
// or nil if server is not running
func StatusPrinter() *Printer {
	statusLock.RLock()
	defer statusLock.RUnlock()

	if statusCurrent == nil {
		return nil
	}
	return statusCurrent.printer
}

// StatusDel clears the current server status
func StatusDel() {
	statusLock.Lock()
	statusCurrent = nil
	statusLock.Unlock()
}
