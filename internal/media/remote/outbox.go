package remote

import "errors"

var ErrOutboxFull = errors.New("host outbox full")

type Message struct {
	Type    string
	Payload any
}

// Outbox queues messages for the host connection. Messages sent while no host is
// attached wait until one drains the queue.
type Outbox struct {
	ch chan Message
}

func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 64
	}

	return &Outbox{ch: make(chan Message, size)}
}

func (o *Outbox) Send(msgType string, payload any) error {
	select {
	case o.ch <- Message{Type: msgType, Payload: payload}:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (o *Outbox) C() <-chan Message {
	return o.ch
}
