package transport

// NewIPC builds a local IPC Context. target is a unix socket path, or a
// named pipe name on Windows. Clients usually open it with Connect so they
// can wait for the server to appear.
func NewIPC(role Role, target string, opts Options) *Context {
	path := ipcPath(target)
	b := &streamBackend{
		role:    role,
		address: path,
		dial:    dialIPC,
		listen:  listenIPC,
	}
	return NewWithBackend(KindIPC, role, path, b, opts)
}
