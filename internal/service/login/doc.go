// Package login drives one OAuth2 implicit-flow login attempt.
//
// The service opens the authorization URL in a browser, watches every
// outgoing request for the redirect URI and, on the first match only,
// captures and persists the browser session. A login attempt is a single
// pass through Idle, Loading, AwaitingRedirect, Capturing and Terminated;
// nothing is retried.
package login
