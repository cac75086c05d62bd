package redisadp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/redis/go-redis/v9"
)

// closeMarker ends a subscriber list when the task's stream is closed.
// Encoded events are JSON objects, so they never collide with it.
const closeMarker = "__tasklane_closed__"

// Keys of one task share the {taskID} hash tag, so the scripts below only touch
// a single cluster slot even though they derive subscriber list keys from ARGV.
//
//	<prefix>:queue:{id}               hash, field closed = 0|1
//	<prefix>:queue:{id}:subs          hash, subscriber id -> open|closed
//	<prefix>:queue:{id}:sub:<sub id>  list of encoded events
var (
	addSubscriberScript = redis.NewScript(`
local resubscribe = ARGV[2] == '1'
if redis.call('EXISTS', KEYS[1]) == 0 then
  if resubscribe then return 'no_history' end
  redis.call('HSET', KEYS[1], 'closed', '0')
elseif redis.call('HGET', KEYS[1], 'closed') == '1' then
  if resubscribe then return 'closed' end
  redis.call('HSET', KEYS[1], 'closed', '0')
end
redis.call('HSETNX', KEYS[2], ARGV[1], 'open')
return 'ok'
`)

	removeSubscriberScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 'unknown_task' end
if redis.call('HDEL', KEYS[2], ARGV[1]) == 0 then return 'unknown_subscriber' end
redis.call('DEL', KEYS[3])
if redis.call('HGET', KEYS[1], 'closed') == '1' and redis.call('HLEN', KEYS[2]) == 0 then
  redis.call('DEL', KEYS[1])
end
return 'ok'
`)

	enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 'no_subscribers' end
if redis.call('HGET', KEYS[1], 'closed') == '1' then return 'closed' end
local subs = redis.call('HGETALL', KEYS[2])
local delivered = 0
for i = 1, #subs, 2 do
  if subs[i + 1] == 'open' then
    redis.call('RPUSH', ARGV[1] .. subs[i], ARGV[2])
    delivered = delivered + 1
  end
end
if delivered == 0 then return 'no_subscribers' end
return 'ok'
`)

	dequeueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'unknown_task'} end
local state = redis.call('HGET', KEYS[2], ARGV[1])
if not state then return {'unknown_subscriber'} end
local item = redis.call('LPOP', KEYS[3])
if item then return {'item', item} end
if state == 'closed' then return {'closed'} end
return {'empty'}
`)

	closeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 'unknown_task' end
redis.call('HSET', KEYS[1], 'closed', '1')
local subs = redis.call('HGETALL', KEYS[2])
for i = 1, #subs, 2 do
  if subs[i + 1] == 'open' then
    redis.call('HSET', KEYS[2], subs[i], 'closed')
    redis.call('RPUSH', ARGV[1] .. subs[i], ARGV[2])
  end
end
if #subs == 0 then redis.call('DEL', KEYS[1]) end
return 'ok'
`)
)

var replyErrors = map[string]error{
	"no_history":         tasklane.ErrNoSubscriptionHistory,
	"closed":             tasklane.ErrQueueClosed,
	"unknown_task":       tasklane.ErrUnknownTask,
	"unknown_subscriber": tasklane.ErrUnknownSubscriber,
	"no_subscribers":     tasklane.ErrNoSubscribers,
}

// EventQueue implements tasklane.EventQueue on Redis lists.
// Every subscriber owns a list; Dequeue waits on it with BLPOP.
type EventQueue struct {
	client redis.UniversalClient
	opts   options
}

var _ tasklane.EventQueue = (*EventQueue)(nil)

// NewEventQueue creates a Redis-backed event queue.
func NewEventQueue(client redis.UniversalClient, opts ...Option) *EventQueue {
	return &EventQueue{
		client: client,
		opts:   newOptions(opts),
	}
}

func (q *EventQueue) AddSubscriber(ctx context.Context, taskID, subscriberID string, isResubscribe bool) error {
	resubscribe := "0"
	if isResubscribe {
		resubscribe = "1"
	}
	return q.run(ctx, addSubscriberScript, []string{q.metaKey(taskID), q.subsKey(taskID)}, subscriberID, resubscribe)
}

func (q *EventQueue) RemoveSubscriber(ctx context.Context, taskID, subscriberID string) error {
	return q.run(ctx, removeSubscriberScript,
		[]string{q.metaKey(taskID), q.subsKey(taskID), q.listKey(taskID, subscriberID)},
		subscriberID,
	)
}

func (q *EventQueue) Enqueue(ctx context.Context, taskID string, event a2a.TaskEvent) error {
	if event.Status == nil && event.Artifact == nil {
		return fmt.Errorf("empty task event")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return q.run(ctx, enqueueScript, []string{q.metaKey(taskID), q.subsKey(taskID)}, q.listKeyPrefix(taskID), string(data))
}

func (q *EventQueue) Dequeue(ctx context.Context, taskID, subscriberID string) (a2a.TaskEvent, error) {
	keys := []string{q.metaKey(taskID), q.subsKey(taskID), q.listKey(taskID, subscriberID)}
	for {
		if err := ctx.Err(); err != nil {
			return a2a.TaskEvent{}, err
		}
		reply, err := dequeueScript.Run(ctx, q.client, keys, subscriberID).StringSlice()
		if err != nil {
			return a2a.TaskEvent{}, fmt.Errorf("redis dequeue failed: %w", err)
		}
		switch reply[0] {
		case "item":
			return decodeItem(reply[1])
		case "empty":
		default:
			return a2a.TaskEvent{}, replyError(reply[0])
		}

		values, err := q.client.BLPop(ctx, q.opts.blockTimeout, keys[2]).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// timed out, check the context and the subscription again
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a2a.TaskEvent{}, ctxErr
			}
			return a2a.TaskEvent{}, fmt.Errorf("redis blpop failed: %w", err)
		}
		return decodeItem(values[1])
	}
}

func (q *EventQueue) Close(ctx context.Context, taskID string) error {
	return q.run(ctx, closeScript, []string{q.metaKey(taskID), q.subsKey(taskID)}, q.listKeyPrefix(taskID), closeMarker)
}

func (q *EventQueue) run(ctx context.Context, script *redis.Script, keys []string, args ...any) error {
	reply, err := script.Run(ctx, q.client, keys, args...).Text()
	if err != nil {
		return fmt.Errorf("redis script failed: %w", err)
	}
	return replyError(reply)
}

func replyError(reply string) error {
	if reply == "ok" {
		return nil
	}
	if err, ok := replyErrors[reply]; ok {
		return err
	}
	return fmt.Errorf("unexpected reply from redis: %q", reply)
}

func decodeItem(item string) (a2a.TaskEvent, error) {
	if item == closeMarker {
		return a2a.TaskEvent{}, tasklane.ErrQueueClosed
	}
	var event a2a.TaskEvent
	if err := json.Unmarshal([]byte(item), &event); err != nil {
		return a2a.TaskEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}

func (q *EventQueue) metaKey(taskID string) string {
	return q.opts.prefix + ":queue:{" + taskID + "}"
}

func (q *EventQueue) subsKey(taskID string) string {
	return q.metaKey(taskID) + ":subs"
}

func (q *EventQueue) listKeyPrefix(taskID string) string {
	return q.metaKey(taskID) + ":sub:"
}

func (q *EventQueue) listKey(taskID, subscriberID string) string {
	return q.listKeyPrefix(taskID) + subscriberID
}
