// Package common holds helpers shared by several services.
//
// It provides a gRPC client wrapper for the condition service with call
// timeouts, record decoding and detection of the current system actor
// (hostname/username) recorded with operator commands.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
