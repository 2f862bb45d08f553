// Package client runs the one-shot operator commands of condition-ctl.
//
// Each command connects to the condition server, sends one request with the
// detected actor, retries while the server is unavailable and prints the
// resulting records.
package client
