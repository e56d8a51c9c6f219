/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Server object brings all parts together
 */

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Server object brings all parts together, namely:
//   - the Printer and its IPP operations
//   - HTTP server
//   - job spool
//   - DNS-SD advertiser
//   - control socket
type Server struct {
	Conf       *Configuration  // Server configuration
	State      *SrvState       // Persistent state
	Printer    *Printer        // The printer
	Spool      *Spool          // Job spool, may be nil
	HTTPServer *http.Server    // HTTP server
	Listener   net.Listener    // HTTP listener
	Publisher  *DNSSdPublisher // DNS-SD publisher, may be nil
}

// NewServer creates new Server object
func NewServer(conf *Configuration) (*Server, error) {
	srv := &Server{Conf: conf}

	var err error
	var sink JobSink = discardSink{}

	// Create the printer
	srv.Printer = NewPrinter(conf.PrinterConfig())
	Log.Debug('+', "printer: %q at %s", srv.Printer.Name(),
		srv.Printer.PrimaryURI())

	// Load persistent state
	srv.State = LoadSrvState(PathStateFile, conf.PrinterName)
	Log.Debug(' ', "printer: UUID %s", srv.State.UUID)

	// Open the spool and restore saved jobs
	if conf.SpoolEnable {
		srv.Spool, err = OpenSpool(conf.SpoolPath)
		if err != nil {
			goto ERROR
		}

		var jobs []*Job
		jobs, err = srv.Spool.Load(context.Background())
		if err != nil {
			goto ERROR
		}

		n := srv.Printer.Restore(jobs)

		var next int32
		next, err = srv.Spool.NextJobID(context.Background())
		if err != nil {
			goto ERROR
		}

		srv.Printer.ReserveJobIDs(next)
		Log.Info(' ', "spool: %d jobs restored, next job ID %d",
			n, srv.Printer.NextJobID())

		sink = srv.Spool
	}

	// Create net.Listener
	srv.Listener, err = NewListener(conf)
	if err != nil {
		goto ERROR
	}

	// Create HTTP server
	srv.HTTPServer = NewHTTPServer(conf, NewIppServer(srv.Printer, sink))

	// Setup DNS-SD
	if conf.DNSSdEnable {
		var ifaces []net.Interface
		if conf.LoopbackOnly {
			var iface net.Interface
			iface, err = LoopbackInterface()
			if err != nil {
				goto ERROR
			}
			ifaces = []net.Interface{iface}
		}

		svc := DNSSdIppService(srv.Printer.Config(), srv.State.UUID,
			srv.listenPort())
		srv.Publisher = NewDNSSdPublisher(srv.State, svc, ifaces)
	}

	return srv, nil

ERROR:
	if srv.Listener != nil {
		srv.Listener.Close()
	}

	if srv.Spool != nil {
		srv.Spool.Close()
	}

	return nil, err
}

// Run runs the server until ctx is canceled or a fatal
// error occurs. Then server is gracefully shut down
func (srv *Server) Run(ctx context.Context) error {
	addr := srv.Listener.Addr().String()

	// Start control socket. Failure is not fatal, only
	// "print-srv status" will not work
	ctrl := NewCtrlsock(PathControlSocket)
	err := ctrl.Start()
	if err != nil {
		Log.Error('!', "ctrlsock: %s", err)
	} else {
		defer ctrl.Stop()
	}

	StatusSet(srv.Printer, addr, srv.Publisher)
	defer StatusDel()

	if srv.Publisher != nil {
		srv.Publisher.Publish()
	}

	Log.Info(' ', "HTTP: listening at %s", addr)

	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		err := srv.HTTPServer.Serve(srv.Listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-ctx.Done()
		return srv.shutdown(context.Cause(ctx))
	})

	err = grp.Wait()

	if srv.Spool != nil {
		srv.Spool.Close()
	}

	return err
}

// shutdown gracefully stops the HTTP server and the
// DNS-SD publisher
func (srv *Server) shutdown(reason error) error {
	Log.Info(' ', "server: %s", reason)

	if srv.Publisher != nil {
		srv.Publisher.Unpublish()
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.HTTPServer.Shutdown(ctx)
	if err != nil {
		Log.Error('!', "HTTP: shutdown: %s", err)
		srv.HTTPServer.Close()
	}

	return nil
}

// listenPort returns the actual TCP port the server listens on
func (srv *Server) listenPort() int {
	if addr, ok := srv.Listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}

	_, port, _ := net.SplitHostPort(srv.Listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// discardSink is the JobSink used when spool is disabled
type discardSink struct{}

// Save does nothing
func (discardSink) Save(*Job) {}
