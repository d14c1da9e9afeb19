//go:build linux || darwin || freebsd || netbsd || openbsd

package logger

import "golang.org/x/sys/unix"

// isTerminal reports whether fd refers to a terminal
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlReadTermios)
	return err == nil
}
