package transport

import "net"

// NewPipe returns two open Contexts joined by a synchronous in-memory pipe.
// The first plays the client, the second the server.
func NewPipe() (client, server *Context) {
	c, s := net.Pipe()
	client = newOpenContext(KindIPC, RoleClient, "pipe", connBackend(RoleClient, c), Options{})
	server = newOpenContext(KindIPC, RoleServer, "pipe", connBackend(RoleServer, s), Options{})
	return client, server
}
