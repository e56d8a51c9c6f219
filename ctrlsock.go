/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Control socket
 *
 * The running server accepts HTTP requests over the unix domain
 * control socket. "print-srv status", "print-srv pause" and
 * "print-srv resume" talk to it
 */

package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
)

// Ctrlsock is the control socket server
//
// The socket is world-accessible, so anybody may query the status.
// State-changing commands are allowed only to root and to the
// user print-srv runs as
type Ctrlsock struct {
	path   string             // Socket path
	server *http.Server       // HTTP server on a top of the socket
	allow  func(uid int) bool // Tells if peer may change state
}

// ctrlsockPeerKey is the context key for the peer UID
type ctrlsockPeerKey struct{}

// NewCtrlsock creates the control socket server
func NewCtrlsock(path string) *Ctrlsock {
	ctrl := &Ctrlsock{
		path:  path,
		allow: ctrlsockAllowUID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", ctrlsockStatus)
	mux.HandleFunc("POST /pause", ctrl.acceptingJobs(false))
	mux.HandleFunc("POST /resume", ctrl.acceptingJobs(true))

	ctrl.server = &http.Server{
		Handler:     ctrlsockRecover(mux),
		ErrorLog:    log.New(Log.LineWriter(LogError, '!'), "", 0),
		ConnContext: ctrlsockConnContext,
	}

	return ctrl
}

// ctrlsockConnContext saves the peer UID into the connection context
func ctrlsockConnContext(ctx context.Context, conn net.Conn) context.Context {
	uid, err := ctrlsockPeerUID(conn)
	if err != nil {
		Log.Debug('!', "ctrlsock: %s", err)
		return ctx
	}

	return context.WithValue(ctx, ctrlsockPeerKey{}, uid)
}

// ctrlsockAllowUID tells if user may change the server state
func ctrlsockAllowUID(uid int) bool {
	return uid == 0 || uid == os.Getuid()
}

// Start starts serving the control socket in background
func (ctrl *Ctrlsock) Start() error {
	Log.Debug(' ', "ctrlsock: listening at %q", ctrl.path)

	os.MkdirAll(filepath.Dir(ctrl.path), 0755)
	os.Remove(ctrl.path)

	listener, err := net.Listen("unix", ctrl.path)
	if err != nil {
		return err
	}

	// Socket must be accessible by unprivileged users
	// for "print-srv status". Failure is not fatal
	os.Chmod(ctrl.path, 0777)

	go func() {
		err := ctrl.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.Error('!', "ctrlsock: %s", err)
		}
	}()

	return nil
}

// Stop stops the control socket server
func (ctrl *Ctrlsock) Stop() {
	Log.Debug(' ', "ctrlsock: shutdown")
	ctrl.server.Close()
	os.Remove(ctrl.path)
}

// ctrlsockRecover wraps handler and logs its panics
func ctrlsockRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Log.Debug(' ', "ctrlsock: %s %s", r.Method, r.URL)

		defer func() {
			if v := recover(); v != nil {
				Log.Panic(v)
				http.Error(w, "internal error",
					http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ctrlsockStatus handles GET /status
func ctrlsockStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	httpNoCache(w)
	w.WriteHeader(http.StatusOK)
	w.Write(StatusFormat())
}

// acceptingJobs returns handler for POST /pause
// and POST /resume
func (ctrl *Ctrlsock) acceptingJobs(accepting bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := r.Context().Value(ctrlsockPeerKey{}).(int)
		if !ok {
			uid = -1
		}

		if !ok || !ctrl.allow(uid) {
			Log.Info('!', "ctrlsock: %s %s: uid=%d: %s",
				r.Method, r.URL, uid, ErrAccess)
			http.Error(w, "permission denied", http.StatusForbidden)
			return
		}

		printer := StatusPrinter()
		if printer == nil {
			http.Error(w, "printer not configured",
				http.StatusServiceUnavailable)
			return
		}

		printer.SetAcceptingJobs(accepting)
		Log.Info(' ', "ctrlsock: uid=%d: printer-is-accepting-jobs=%v",
			uid, accepting)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		httpNoCache(w)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "OK\n")
	}
}

// CtrlsockDial connects to the control socket of the running
// print-srv
func CtrlsockDial(path string) (net.Conn, error) {
	conn, err := net.Dial("unix", path)
	if err == nil {
		return conn, nil
	}

	var syserr *os.SyscallError
	if errors.As(err, &syserr) {
		switch syserr.Err {
		case syscall.ECONNREFUSED, syscall.ENOENT:
			err = ErrNoServer

		case syscall.EACCES, syscall.EPERM:
			err = ErrAccess
		}
	}

	return nil, err
}

// CtrlsockClient returns http.Client that talks to the
// running print-srv over the control socket
func CtrlsockClient(path string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context,
				network, addr string) (net.Conn, error) {
				return CtrlsockDial(path)
			},
		},
	}
}
