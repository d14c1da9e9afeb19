// Package wire provides the binary codecs of the NetSSPI protocol.
//
// The package uses the same error-accumulation pattern as bufio.Scanner:
// callers perform a sequence of reads or writes and check the error once at
// the end. Once an error occurs all subsequent reads become no-ops that
// return zero values:
//
//	r := wire.NewReader(payload)
//	cred := r.ReadHandle()
//	input := r.ReadSecBufferDesc()
//	req := r.ReadUint32()
//	if err := r.Err(); err != nil {
//	    return err
//	}
//
// Three layers are provided:
//
//   - Primitives: little-endian scalars plus the Handle, Timestamp and LUID
//     records, each encoded as two consecutive scalars with no padding.
//   - Strings: a 16-bit length field whose top bit carries the encoding
//     (ANSI or wide) followed by exactly that many raw bytes.
//   - Security buffers: a typed opaque chunk (SecBuffer) and an ordered,
//     versioned sequence of chunks (SecBufferDesc).
//
// Every length or count read from the wire is checked against the bytes
// remaining in the message before any storage sized by it is allocated.
//
// All integers are little-endian to match the peer implementation.
package wire
