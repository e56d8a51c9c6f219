//go:build !linux

/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Control socket peer credentials -- default version
 *
 * If you add support for yet another platform, please
 * update the build tag at the top of this file to exclude your
 * platform
 */

package main

import (
	"errors"
	"net"
)

// ctrlsockPeerUID obtains UID of the client process, connected
// to the control socket
//
// Not supported on this platform, so state-changing commands
// are always refused
func ctrlsockPeerUID(conn net.Conn) (int, error) {
	return -1, errors.New("peer credentials not supported")
}
