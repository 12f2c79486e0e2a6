package wsrouter

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/val-x/Val-X-Site-sub002/pkg/validator"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrRateLimited        = errors.New("rate limited")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// ErrorFunc receives every error produced while serving a connection. Returning a
// non-nil error stops ServeConn.
type ErrorFunc func(ctx context.Context, messageType string, err error) error

type WSRouter struct {
	routes   map[string]HandlerFunc
	validate *validator.Validator
	limiter  *rate.Limiter
	onError  ErrorFunc
}

type Option func(*WSRouter)

// WithLimiter drops inbound messages that exceed the limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *WSRouter) {
		r.limiter = l
	}
}

func WithErrorFunc(fn ErrorFunc) Option {
	return func(r *WSRouter) {
		r.onError = fn
	}
}

func New(v *validator.Validator, opts ...Option) *WSRouter {
	r := &WSRouter{
		routes:   make(map[string]HandlerFunc),
		validate: v,
		onError: func(context.Context, string, error) error {
			return nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *WSRouter) HandleRaw(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// Handle registers a typed handler. The payload is decoded into T and validated
// before the handler runs. An absent payload decodes into the zero value of T.
func Handle[T any](r *WSRouter, messageType string, handler func(ctx context.Context, input T) error) {
	r.HandleRaw(messageType, func(ctx context.Context, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidMessage, err)
			}
		}

		if r.validate != nil {
			if err := r.validate.Struct(input); err != nil {
				return err
			}
		}

		return handler(ctx, input)
	})
}

// Dispatch decodes one raw message and routes it.
func (r *WSRouter) Dispatch(ctx context.Context, data []byte) (string, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidMessage, err)
	}

	handler, exists := r.routes[msg.Type]
	if !exists {
		return msg.Type, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	return msg.Type, handler(context.WithValue(ctx, messageTypeKey, msg.Type), msg.Payload)
}

func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if r.limiter != nil && !r.limiter.Allow() {
			if err := r.onError(ctx, "", ErrRateLimited); err != nil {
				return err
			}
			continue
		}

		messageType, err := r.Dispatch(ctx, data)
		if err != nil {
			if err := r.onError(ctx, messageType, err); err != nil {
				return err
			}
		}
	}
}
