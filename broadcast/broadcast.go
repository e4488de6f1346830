// Package broadcast fans newly sequenced labels out to live subscribers,
// and replays historical labels to subscribers joining with a cursor.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/teranos/labelmaker/frame"
	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/store"
	"github.com/teranos/labelmaker/xrpcerr"
)

// subscriberQueueDepth bounds the per-subscriber delivery channel. A
// subscriber that falls this far behind is evicted with ConsumerTooSlow
// rather than blocking the sequencer's write path.
const subscriberQueueDepth = 256

// Subscriber is a live connection bound to a named stream.
type Subscriber struct {
	id       string
	messages chan []byte
	closed   chan struct{}
	once     sync.Once
}

// Messages returns the channel framed messages are delivered on. The
// channel is closed when the subscriber is removed.
func (s *Subscriber) Messages() <-chan []byte { return s.messages }

// close marks the subscriber terminated; safe to call multiple times.
func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.messages)
	})
}

// Broadcaster maintains, per stream name, the set of live subscribers and
// delivers every newly sequenced label to each of them in id order.
type Broadcaster struct {
	store store.Store

	mu      sync.Mutex
	streams map[string]map[string]*Subscriber
}

// New creates a Broadcaster backed by st for cursor replay.
func New(st store.Store) *Broadcaster {
	return &Broadcaster{store: st, streams: make(map[string]map[string]*Subscriber)}
}

// Publish is called by the sequencer immediately after a label becomes
// durable. It synthesizes a single framed #labels message and delivers it
// to every subscriber on every stream; a delivery failure (full queue) on
// one subscriber evicts only that subscriber.
func (b *Broadcaster) Publish(stored label.Stored) {
	body := frame.LabelsBody{Seq: stored.ID, Labels: []label.Formatted{label.Format(stored)}}
	msg, err := frame.EncodeMessage(body)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.streams {
		for id, sub := range subs {
			select {
			case sub.messages <- msg:
			default:
				b.evictLocked(subs, id, sub)
			}
		}
	}
}

// Subscribe implements the join protocol for streamName: if cursor is nil
// the subscriber joins the live tail immediately; otherwise it is first
// caught up via store.Scan(*cursor) before joining the live set. The
// returned Subscriber's Messages channel carries every frame (including a
// terminal error frame, after which the channel is closed).
//
// Registration happens while holding the same lock Publish uses, so no
// label can be published between the backlog snapshot and the
// subscriber's entry into the live set: replay and live delivery cover
// exactly {i : cursor < i} with no gap and no overlap.
func (b *Broadcaster) Subscribe(ctx context.Context, streamName string, cursor *int64) *Subscriber {
	sub := &Subscriber{
		id:       newSubscriberID(),
		messages: make(chan []byte, subscriberQueueDepth),
		closed:   make(chan struct{}),
	}

	if cursor == nil {
		b.mu.Lock()
		b.registerLocked(streamName, sub)
		b.mu.Unlock()
		return sub
	}

	b.joinWithReplay(ctx, streamName, *cursor, sub)
	return sub
}

func (b *Broadcaster) joinWithReplay(ctx context.Context, streamName string, cursor int64, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	maxID, err := b.store.MaxID(ctx)
	if err != nil {
		b.sendErrorAndClose(sub, xrpcerr.InternalServerError, "failed to read current position")
		return
	}
	if cursor > maxID {
		b.sendErrorAndClose(sub, xrpcerr.FutureCursor, "cursor exceeds current position")
		return
	}

	backlog, err := b.store.Scan(ctx, cursor)
	if err != nil {
		b.sendErrorAndClose(sub, xrpcerr.InternalServerError, "replay failed")
		return
	}

	for _, stored := range backlog {
		body := frame.LabelsBody{Seq: stored.ID, Labels: []label.Formatted{label.Format(stored)}}
		msg, err := frame.EncodeMessage(body)
		if err != nil {
			continue
		}
		select {
		case sub.messages <- msg:
		default:
			b.sendErrorAndClose(sub, xrpcerr.ConsumerTooSlow, "subscriber fell behind during replay")
			return
		}
	}

	b.registerLocked(streamName, sub)
}

// registerLocked adds sub to streamName's live set. Caller must hold b.mu.
func (b *Broadcaster) registerLocked(streamName string, sub *Subscriber) {
	subs, ok := b.streams[streamName]
	if !ok {
		subs = make(map[string]*Subscriber)
		b.streams[streamName] = subs
	}
	subs[sub.id] = sub
}

// Unsubscribe removes sub from streamName on transport close.
func (b *Broadcaster) Unsubscribe(streamName string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.streams[streamName]; ok {
		delete(subs, sub.id)
	}
	sub.close()
}

// evictLocked removes sub from subs and terminates it with
// ConsumerTooSlow. Caller must hold b.mu.
func (b *Broadcaster) evictLocked(subs map[string]*Subscriber, id string, sub *Subscriber) {
	delete(subs, id)
	go b.sendErrorAndClose(sub, xrpcerr.ConsumerTooSlow, "subscriber fell behind")
}

func (b *Broadcaster) sendErrorAndClose(sub *Subscriber, kind xrpcerr.Kind, message string) {
	if errFrame, err := frame.EncodeError(string(kind), message); err == nil {
		select {
		case sub.messages <- errFrame:
		default:
		}
	}
	sub.close()
}

func newSubscriberID() string {
	return uuid.New().String()
}
