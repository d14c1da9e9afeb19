//go:build !windows

package transport

import (
	"context"
	"net"
	"os"
)

func ipcPath(target string) string {
	return target
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// listenIPC removes a stale socket file left by a previous server before
// binding. Regular files at path are left alone and make Listen fail.
func listenIPC(path string) (net.Listener, error) {
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
		_ = os.Remove(path)
	}
	return net.Listen("unix", path)
}
