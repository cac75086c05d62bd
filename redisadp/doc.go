// Package redisadp provides Redis adapters for tasklane interfaces.
//
// TaskStore keeps one JSON document per task and updates it with optimistic
// WATCH/MULTI transactions, so several tasklane processes can share tasks.
// EventQueue fans task events out to per-subscriber Redis lists, so a
// resubscribe may be served by a different process than the one producing events.
// TaskLocker leases one key per running task, so only one process runs a task's handler.
package redisadp
