package mqtt

import "log/slog"

// outMsg is a serialized message waiting for a broker connection.
type outMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected, oldest first.
// When full the oldest message is discarded. Callers hold RealPublisher.mu.
type outbox struct {
	msgs    []outMsg
	limit   int
	warned  bool // cleared by take
	dropped int
}

func newOutbox(limit int) *outbox {
	return &outbox{msgs: make([]outMsg, 0, limit), limit: limit}
}

func (o *outbox) add(m outMsg) {
	if len(o.msgs) == o.limit {
		o.discard(m.topic)
		o.msgs = o.msgs[1:]
	}
	o.msgs = append(o.msgs, m)
}

// requeue puts unsent messages back ahead of anything added since take,
// keeping publish order. Overflow still discards from the oldest end.
func (o *outbox) requeue(unsent []outMsg) {
	if len(unsent) == 0 {
		return
	}
	merged := make([]outMsg, 0, len(unsent)+len(o.msgs))
	merged = append(merged, unsent...)
	merged = append(merged, o.msgs...)
	if over := len(merged) - o.limit; over > 0 {
		for i := 0; i < over; i++ {
			o.discard(merged[i].topic)
		}
		merged = merged[over:]
	}
	o.msgs = merged
}

func (o *outbox) discard(topic string) {
	if !o.warned {
		slog.Warn("mqtt outbox full, discarding oldest", "limit", o.limit, "topic", topic)
		o.warned = true
	}
	o.dropped++
}

// take empties the outbox and returns its contents oldest first.
func (o *outbox) take() []outMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]outMsg, 0, o.limit)
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
