// Package replay reuses a captured browser session from plain HTTP code.
//
// The client loads the captured cookies into a cookie jar and can attach the
// captured access token as a bearer credential, so an unattended process can
// act with the session the user established interactively.
package replay
