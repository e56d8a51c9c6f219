/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Running under the system service manager
 */

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
)

// svcProgram runs print-srv under the service manager.
// It implements service.Interface
type svcProgram struct {
	cancel context.CancelCauseFunc // Cancels the server context
	done   chan struct{}           // Closed when server is finished
	err    error                   // Server exit error
}

// Start is called by the service manager to start the server.
// It must not block
func (prg *svcProgram) Start(s service.Service) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	prg.cancel = cancel
	prg.done = make(chan struct{})

	go func() {
		defer close(prg.done)
		prg.err = serve(ctx)
	}()

	return nil
}

// Stop is called by the service manager to stop the server
func (prg *svcProgram) Stop(s service.Service) error {
	if prg.cancel == nil {
		return nil
	}

	prg.cancel(ErrShutdown)

	select {
	case <-prg.done:
		return prg.err
	case <-time.After(2 * ShutdownTimeout):
		return fmt.Errorf("service: stop timed out")
	}
}

// svcConfig returns the service configuration
func svcConfig() *service.Config {
	return &service.Config{
		Name:             "print-srv",
		DisplayName:      "print-srv IPP print server",
		Description:      "Serves IPP printer over HTTP and advertises it with DNS-SD",
		WorkingDirectory: PathProgState,
		Arguments:        []string{"serve"},
		Option: service.KeyValue{
			// systemd
			"Restart":           "on-failure",
			"SuccessExitStatus": "0 SIGTERM",
			"KillSignal":        "SIGTERM",

			// launchd
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

// svcNew creates the service object
func svcNew() (service.Service, error) {
	s, err := service.New(&svcProgram{}, svcConfig())
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	return s, nil
}

// svcRun runs print-srv under control of the service manager
func svcRun() error {
	s, err := svcNew()
	if err != nil {
		return err
	}

	return s.Run()
}

// svcControl performs the service control action: install,
// uninstall, start, stop or restart
func svcControl(action string) error {
	s, err := svcNew()
	if err != nil {
		return err
	}

	err = service.Control(s, action)
	if err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}

	return nil
}
