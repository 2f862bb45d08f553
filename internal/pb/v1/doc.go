// Package pb holds the ConditionService gRPC descriptor with its client and
// server stubs, and the codec between engine event records and the
// google.protobuf.Struct messages carried on the wire.
//
// Every request and response is a Struct so that optional sub-states can be
// omitted for alarms that do not support them.
package pb
