// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package portalloc provides free TCP ports for the mock trace agent listener.
package portalloc

import (
	"net"

	"github.com/pkg/errors"
)

// Allocator asks the operating system for free ports on a given host
type Allocator struct {
	Host string
}

// Default allocates ports on localhost
var Default = &Allocator{Host: "localhost"}

// GetOpenPort returns a port that was free at the time of the call. Another
// process may grab it before the caller binds it.
func (a *Allocator) GetOpenPort() (int, error) {
	host := a.Host
	if host == "" {
		host = "localhost"
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, errors.Wrap(err, "cannot allocate a free port")
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// GetOpenPort returns a free port on localhost
func GetOpenPort() (int, error) {
	return Default.GetOpenPort()
}
