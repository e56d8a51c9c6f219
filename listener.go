/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * HTTP listener
 */

package main

import (
	"net"
)

// Listener wraps net.Listener
//
// It sets up TCP parameters of accepted connections and,
// if configured, silently drops connections from non-loopback
// peers. Filtering is done in Accept(), so single listener
// serves both IPv4 and IPv6 when address is unspecified
type Listener struct {
	net.Listener      // Underlying net.Listener
	loopbackOnly bool // Accept only loopback connections
}

// NewListener creates new listener
func NewListener(conf *Configuration) (net.Listener, error) {
	nl, err := net.Listen("tcp", conf.HTTPAddr())
	if err != nil {
		return nil, err
	}

	return Listener{Listener: nl, loopbackOnly: conf.LoopbackOnly}, nil
}

// Accept new connection
func (l Listener) Accept() (net.Conn, error) {
	for {
		// Accept new connection
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		// Obtain underlying net.TCPConn
		tcpconn, ok := conn.(*net.TCPConn)
		if !ok {
			// Should never happen, actually
			conn.Close()
			continue
		}

		// Reject non-loopback connections, if required
		if l.loopbackOnly &&
			!tcpconn.RemoteAddr().(*net.TCPAddr).IP.IsLoopback() {
			Log.Debug('!', "listener: %s: rejected, not loopback",
				tcpconn.RemoteAddr())
			tcpconn.SetLinger(0)
			tcpconn.Close()
			continue
		}

		// Setup TCP parameters
		tcpconn.SetKeepAlive(true)
		tcpconn.SetKeepAlivePeriod(TCPKeepAlivePeriod)

		return tcpconn, nil
	}
}
