/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Configuration constants
 */

package main

import (
	"time"
)

const (
	// Version is the program version
	Version = "0.1.0"

	// IppPath is the HTTP path of the IPP endpoint
	IppPath = "/ipp/print"

	// DNSSdRetryInterval specifies the retry interval in a case
	// of failed DNS-SD operation
	DNSSdRetryInterval = 1 * time.Second

	// DNSSdLookupTimeout specifies how long to wait for answer when
	// checking the DNS-SD instance name for collision
	DNSSdLookupTimeout = 2 * time.Second

	// DNSSdMaxSuffix limits the "name (N)" suffix, used to
	// resolve DNS-SD name collisions
	DNSSdMaxSuffix = 100

	// ShutdownTimeout specifies how much time to wait for
	// HTTP server graceful shutdown
	ShutdownTimeout = 5 * time.Second

	// SpoolQueueSize specifies the capacity of the spool
	// write queue
	SpoolQueueSize = 64

	// SpoolBusyTimeout specifies SQLite busy timeout
	SpoolBusyTimeout = 5 * time.Second

	// TCPKeepAlivePeriod specifies keepalive period of
	// accepted TCP connections
	TCPKeepAlivePeriod = 20 * time.Second
)
