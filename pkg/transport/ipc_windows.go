//go:build windows

package transport

import (
	"context"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

func ipcPath(target string) string {
	if strings.HasPrefix(target, `\\`) {
		return target
	}
	return pipePrefix + target
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}

func listenIPC(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}
