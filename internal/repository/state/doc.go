// Package state persists the retained conditions and branches of the
// condition server.
//
// The FileRepository stores snapshots as protobuf JSON on disk and exposes a
// Repository interface that the server service checkpoints through.
package state
