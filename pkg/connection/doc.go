// Package connection implements the connection lifecycle of a deepstream
// client: the handshake, authentication and session state of one logical
// connection, independent of the transport carrying it.
//
// # Handshake
//
//	CLOSED ──open──► AWAITING_CONNECTION ──C/CH──► CHALLENGING
//	    (send C/CHR url)                              │
//	                                                C/A
//	                                                  ▼
//	OPEN ◄──A/A── AUTHENTICATING ◄──Authenticate── AWAITING_AUTHENTICATION
//	                    │                                 ▲
//	                    └──────────── A/E ────────────────┘
//
// A Session registers itself as the listener of its transport. Transport
// events and caller commands are applied one at a time under a single
// lock; observers, the login callback and outbound sends run afterwards,
// outside the lock, in the order the transitions happened.
//
// # Authentication
//
// Every accepted Authenticate call resolves its LoginCallback exactly once:
// LoginSuccess on AUTH/ACK, LoginFailed on AUTH/ERROR or when the transport
// closes first. After the server reports TOO_MANY_AUTH_ATTEMPTS the session
// refuses all further attempts and reports IS_CLOSED to its ErrorSink.
//
// # Reconnection
//
// Reconnection policy is external. A Reconnector (Reconnect is the stock
// exponential-backoff implementation) is asked whether it will redial when
// the transport closes unexpectedly; if so the session waits in RECONNECTING
// instead of closing for good.
package connection
