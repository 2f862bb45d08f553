// Package condition implements the gRPC transport for the condition service.
//
// It decodes Struct requests, calls into a provided business-service
// interface and maps engine errors onto gRPC status codes.
package condition
