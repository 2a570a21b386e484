//go:build !unix

package supervisor

import "syscall"

// SignalName returns the signal number formatted by the syscall package.
func SignalName(sig syscall.Signal) string {
	return sig.String()
}
