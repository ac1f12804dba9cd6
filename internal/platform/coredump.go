// Package platform holds small OS-level hardening helpers.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps keeps derived keys out of crash dumps.
func DisableCoreDumps() error {
	var rlim unix.Rlimit
	rlim.Cur = 0
	rlim.Max = 0
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}
