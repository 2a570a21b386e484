//go:build unix

package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalName returns the conventional name of sig, e.g. "SIGTERM".
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
