// Package utils holds small helpers shared by the commands and transports:
// file checks, secret masking for logs, content type checks for HTTP dumps and slice mapping.
package utils
