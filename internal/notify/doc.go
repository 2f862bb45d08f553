// Package notify fans published event records out to subscribers.
//
// Publishing never blocks. A subscriber whose buffer is full is evicted and
// its channel closed, so it can resubscribe and resynchronise with a refresh
// instead of silently missing transitions.
package notify
