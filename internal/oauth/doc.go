// Package oauth builds implicit-flow authorization URLs and recognizes
// the browser's arrival at the registered redirect URI.
//
// Everything here is pure: no network access and no process-wide state.
package oauth
