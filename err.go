/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Common errors
 */

package main

import (
	"errors"
)

// Error values for print-srv
var (
	ErrShutdown    = errors.New("Shutdown requested")
	ErrNoServer    = errors.New("print-srv not running")
	ErrAccess      = errors.New("Access denied")
	ErrSpoolClosed = errors.New("Spool is closed")
	ErrBadConfig   = errors.New("Invalid configuration")
	ErrBadState    = errors.New("Invalid state file")
	ErrLockIsBusy  = errors.New("Lock is busy")
)
