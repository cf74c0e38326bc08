// Package app wires configuration, the browser, the login service and the
// session store together for the command-line entry points.
//
// Functions named Execute*Command are called by cobra commands. They report
// unrecoverable failures through logger.Fatalf, which exits with a non-zero
// status, and return normally on success.
package app
