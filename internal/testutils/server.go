package testutils

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// FreePort returns a TCP port that is free on host at the time of the call.
func FreePort(t *testing.T, host string) int {
	t.Helper()

	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	require.NoError(t, err, "Setup: could not reserve a port")
	defer l.Close()

	_, p, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err, "Setup: unexpected listener address")
	port, err := strconv.Atoi(p)
	require.NoError(t, err, "Setup: unexpected listener port")
	return port
}

// PortOpen reports whether something accepts TCP connections on host:port.
func PortOpen(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
