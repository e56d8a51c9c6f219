//go:build linux

/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Control socket peer credentials -- Linux version
 */

package main

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// ctrlsockPeerUID obtains UID of the client process, connected
// to the control socket
func ctrlsockPeerUID(conn net.Conn) (int, error) {
	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		return -1, fmt.Errorf("%T: not a unix socket", conn)
	}

	raw, err := uconn.SyscallConn()
	if err != nil {
		return -1, err
	}

	var cred *unix.Ucred
	var credErr error

	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd),
			unix.SOL_SOCKET, unix.SO_PEERCRED)
	})

	if err == nil {
		err = credErr
	}

	if err != nil {
		return -1, fmt.Errorf("SO_PEERCRED: %w", err)
	}

	return int(cred.Uid), nil
}
