// Package dispatch moves framed NetSSPI messages over a transport.
//
// SendMessage and ReceiveMessage are the two stream primitives: they loop
// over partial writes and reads so callers always see whole frames. Client
// issues one typed call per function identifier and Server runs the
// accepting side, decoding requests and handing them to a Provider.
//
// The protocol carries no correlation identifier, so there is at most one
// request in flight per connection. Client serializes its calls and Server
// processes each connection's requests in arrival order.
package dispatch
