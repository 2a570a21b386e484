//go:build unix

package preflight

import "golang.org/x/sys/unix"

func fileDescriptorLimit() (int, bool) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, false
	}
	if limit.Cur > 1<<30 {
		return 1 << 30, true
	}
	return int(limit.Cur), true
}

func accessWritable(path string) error {
	return unix.Access(path, unix.W_OK)
}
