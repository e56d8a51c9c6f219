/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * The main function
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// RunParameters represents the program run parameters
type RunParameters struct {
	Debug bool // Logs duplicated on console
}

var runParams RunParameters

var rootCmd = &cobra.Command{
	Use:           "print-srv",
	Short:         "IPP print server",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return ConfLoad()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the print server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)

		// If we are here, configuration is OK
		InitLog.Info(0, "Configuration files: OK")
		InitLog.Info(0, "Printer:   %q", Conf.PrinterName)
		InitLog.Info(0, "URI:       %s", Conf.PrimaryURI())
		InitLog.Info(0, "Listen at: %s", Conf.HTTPAddr())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print print-srv status and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)
		printStatus()
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop accepting new jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)
		return sendCommand("pause")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume accepting new jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)
		return sendCommand("resume")
	},
}

var serviceCmd = &cobra.Command{
	Use:       "service {install|uninstall|start|stop|restart}",
	Short:     "Control print-srv system service",
	Args:      cobra.ExactArgs(1),
	ValidArgs: service.ControlAction[:],
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)

		err := svcControl(args[0])
		if err == nil {
			InitLog.Info(0, "service %s: OK", args[0])
		}
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&runParams.Debug, "debug", false,
		"duplicate logs on console")

	rootCmd.AddCommand(serveCmd, checkCmd, statusCmd, pauseCmd, resumeCmd,
		serviceCmd)
}

// setupLogging configures loggers according to the configuration
func setupLogging(console bool) {
	if !console {
		Console.ToNowhere()
	} else if Conf.ColorConsole {
		Console.ToColorConsole()
	}

	Log.SetLevels(Conf.LogMain)
	Console.SetLevels(Conf.LogConsole)
	Log.Cc(Console)
}

// printStatus prints status of running print-srv, if any
func printStatus() {
	// Fetch status
	text, err := StatusRetrieve(PathControlSocket)

	if err != nil {
		InitLog.Info(0, "%s", err)
		return
	}

	// Split into lines
	text = bytes.Trim(text, "\n")
	lines := bytes.Split(text, []byte("\n"))

	// Write to log, line by line
	for _, line := range lines {
		InitLog.Info(0, "%s", line)
	}
}

// sendCommand sends command to the running print-srv
func sendCommand(cmd string) error {
	_, err := StatusCommand(PathControlSocket, cmd)
	if err != nil {
		return err
	}

	InitLog.Info(0, "%s: OK", cmd)
	return nil
}

// runServe runs the server until terminated by signal, or
// under the service manager control
func runServe() error {
	if !service.Interactive() {
		setupLogging(false)
		return svcRun()
	}

	setupLogging(runParams.Debug)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() {
		select {
		case s := <-sig:
			Log.Info(' ', "%s signal received", s)
			cancel(ErrShutdown)
		case <-ctx.Done():
		}
	}()

	return serve(ctx)
}

// serve runs the server until ctx is canceled
func serve(ctx context.Context) error {
	// Prevent multiple copies of print-srv from being running
	// in a same time
	lock, err := AcquireInstanceLock(PathLockFile)
	if err == ErrLockIsBusy {
		return errors.New("print-srv already running")
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	Log.ToMainFile()

	// Write to log that we are here
	Log.Info(' ', "===============================")
	Log.Info(' ', "print-srv %s started, pid=%d", Version, os.Getpid())
	defer Log.Info(' ', "print-srv finished")

	srv, err := NewServer(&Conf)
	if err != nil {
		Log.Error('!', "%s", err)
		return err
	}

	err = srv.Run(ctx)
	if err != nil {
		Log.Error('!', "%s", err)
	}

	return err
}

// The main function
func main() {
	err := rootCmd.Execute()
	InitLog.Check(err)
}
