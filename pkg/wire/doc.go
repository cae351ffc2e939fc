// Package wire defines the text wire format of the deepstream protocol.
//
// A message is a topic token, an action token and zero or more data fields,
// joined by the ASCII unit separator (0x1f). A payload may carry several
// messages, each terminated by the ASCII record separator (0x1e):
//
//	C<US>CHR<US>wss://example.com/deepstream<RS>
//	A<US>REQ<US>{"username":"alice"}<RS>
//
// # Topics and Actions
//
// Topics are the coarse routing category (CONNECTION, AUTH, ERROR, EVENT,
// RECORD, RPC). Actions name the operation inside a topic. Both are short
// fixed tokens that must match the server byte for byte.
//
// # Data Fields
//
// Data fields are opaque strings. Structured values (authentication
// parameters, session data) are serialized as JSON by the caller using
// MarshalData and UnmarshalData; the codec never looks past the first two
// parts of a message.
package wire
