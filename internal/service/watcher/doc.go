// Package watcher follows the condition server's event stream for condition-ctl watch.
//
// Each subscription starts with a condition refresh, so a dropped stream is
// simply reopened after a pause and the operator sees the full retained set again.
package watcher
