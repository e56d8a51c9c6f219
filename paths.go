/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Common paths
 */

package main

const (
	// PathConfDir defines path to configuration directory
	PathConfDir = "/etc/print-srv"

	// PathProgState defines path to program state directory
	PathProgState = "/var/lib/print-srv"

	// PathStateFile defines path to the printer persistent
	// state file
	PathStateFile = PathProgState + "/printer.state"

	// PathSpoolFile defines path to the job spool database
	PathSpoolFile = PathProgState + "/spool.db"

	// PathLockFile defines path to the instance lock file
	PathLockFile = PathProgState + "/print-srv.lock"

	// PathControlSocket defines path to the control socket
	PathControlSocket = PathProgState + "/ctrl"

	// PathLogDir defines path to log directory
	PathLogDir = "/var/log/print-srv"

	// PathLogFile defines path to the main log file
	PathLogFile = PathLogDir + "/main.log"
)
