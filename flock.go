//go:build unix

/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Instance lock
 */

package main

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// InstanceLock prevents multiple copies of print-srv from
// sharing the same state directory and spool
type InstanceLock struct {
	file *os.File // Locked file
}

// AcquireInstanceLock creates the lock file, if needed, and
// acquires exclusive lock on it without waiting
//
// If lock is held by another process, ErrLockIsBusy is returned
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	os.MkdirAll(filepath.Dir(path), 0755)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			err = ErrLockIsBusy
		}
		return nil, err
	}

	return &InstanceLock{file: file}, nil
}

// Release releases the lock
func (lock *InstanceLock) Release() error {
	err := unix.Flock(int(lock.file.Fd()), unix.LOCK_UN)
	lock.file.Close()
	return err
}
