// Package transport carries framed NetSSPI messages between peers.
//
// A Context is one logical connection. It holds a role, a target, the name
// of the transport and exactly one Backend chosen by its constructor:
//
//	NewTCP     TCP socket (connect as client, accept one peer as server)
//	NewIPC     local channel (unix socket, or a named pipe on Windows)
//	NewSerial  serial device in raw 8N1 mode (Linux)
//
// The backend is never reassigned. Open must be called once before Read or
// Write; Close releases the backend exactly once and later calls return nil.
// A Context is not safe for concurrent Read or Write from several goroutines:
// the protocol allows a single request in flight per connection. Close may be
// called from another goroutine to abort a blocked call.
//
// Listener is the server-side accept loop for TCP and IPC. Each accepted peer
// becomes an already open server Context.
package transport
