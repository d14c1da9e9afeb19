// Package protocol implements the NetSSPI command vocabulary and message
// framing.
//
// Every message is a fixed little-endian header followed by a payload whose
// shape is selected by the header's function identifier:
//
//	Request:  TotalLength u32 | Flags u8 | FunctionId u8 | ExtFlags u32            (10 bytes)
//	Response: TotalLength u32 | Flags u8 | FunctionId u8 | ExtFlags u32 | Status u32 (14 bytes)
//
// Each supported function has a request type and a response type
// implementing Message. NewRequest and NewResponse return a zero value of
// the right type for a function identifier, and the framer uses them to
// decode payloads. The four reserved identifiers have no payload shape and
// are rejected with ErrUnsupportedFunction before any payload decode.
//
// Framing and validation failures are returned as *DecodeError. Operation
// outcomes travel in the response Status and are never turned into errors
// by this package.
package protocol
