// Package client is the application-facing deepstream client.
//
// A Client owns one connection: the websocket transport, the session
// state machine, the reconnect policy and the protocol capture. It is the
// error sink of its session, so errors without a caller to return to
// (server error messages, misuse of a closed connection) are logged,
// counted and forwarded to the handler set with WithErrorHandler.
//
//	c, err := client.New(cfg, client.WithErrorHandler(func(r client.ErrorReport) {
//	    log.Printf("%s: %s", r.Event, r.Message)
//	}))
//	if err := c.Connect(ctx); err != nil { ... }
//	c.AddConnectionChangeListener(connection.StateObserverFunc(func(s connection.State) {
//	    if s == connection.StateAwaitingAuthentication {
//	        c.Login(map[string]any{"username": "wolfram"}, callback)
//	    }
//	}))
package client
