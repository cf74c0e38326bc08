// Package http provides HTTP transport decorators for replaying a captured session,
// including request/response logging with credential redaction and injection of the headers
// the browser sent during login.
package http
