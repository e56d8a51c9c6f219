/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Loopback interface discovery
 */

package main

import (
	"errors"
	"fmt"
	"net"
)

// LoopbackInterface returns the loopback network interface.
// It is used to limit DNS-SD advertising to the local host
func LoopbackInterface() (net.Interface, error) {
	interfaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range interfaces {
			if (iface.Flags & net.FlagLoopback) != 0 {
				return iface, nil
			}
		}
	}

	if err == nil {
		err = errors.New("not found")
	}

	return net.Interface{}, fmt.Errorf("Loopback discovery: %s", err)
}
