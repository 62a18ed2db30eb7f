// Package api is the client for the FixitQuick REST collaborator.
//
// The session layer only needs one endpoint from it: the short-lived
// real-time token used for the auth handshake after each connect. The token
// fetch is attempted once per connection open; failures surface as an
// authentication error and are retried only on the next reconnect.
package api
