// Package remote drives a media primitive and the platform capabilities that live
// in a browser connected over a websocket.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
)

var (
	ErrHostClosed     = errors.New("host connection closed")
	ErrUnknownRequest = errors.New("unknown capability request")
)

// Sender queues one outbound message without blocking.
type Sender interface {
	Send(msgType string, payload any) error
}

// NetworkUpdate is either a new sample or the report that the host has no network
// information API.
type NetworkUpdate struct {
	Sample      quality.Sample
	Unavailable bool
}

type Host struct {
	sender  Sender
	timeout time.Duration
	log     *slog.Logger

	media   listeners[media.Event]
	network listeners[NetworkUpdate]
	chrome  listeners[FullscreenChanged]

	mu           sync.Mutex
	capabilities capability.Set
	pending      map[string]chan CapabilityResult
	closed       bool
}

// NewHost bridges sender. timeout bounds capability requests the host never answers.
func NewHost(sender Sender, timeout time.Duration, log *slog.Logger) *Host {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Host{
		sender:  sender,
		timeout: timeout,
		log:     log,
		pending: make(map[string]chan CapabilityResult),
	}
}

func (h *Host) command(cmd Command) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()

	if closed {
		return ErrHostClosed
	}

	if err := h.sender.Send(TypeMediaCommand, cmd); err != nil {
		return fmt.Errorf("failed to send %s command: %w", cmd.Op, err)
	}

	return nil
}

func (h *Host) Load(url string) error      { return h.command(Command{Op: OpLoad, URL: url}) }
func (h *Host) Play() error                { return h.command(Command{Op: OpPlay}) }
func (h *Host) Pause() error               { return h.command(Command{Op: OpPause}) }
func (h *Host) Seek(t float64) error       { return h.command(Command{Op: OpSeek, Value: t}) }
func (h *Host) SetVolume(v float64) error  { return h.command(Command{Op: OpVolume, Value: v}) }
func (h *Host) SetMuted(muted bool) error  { return h.command(Command{Op: OpMuted, Muted: muted}) }
func (h *Host) SetRate(rate float64) error { return h.command(Command{Op: OpRate, Value: rate}) }

func (h *Host) Subscribe(l media.Listener) func() {
	return h.media.add(l)
}

func (h *Host) SubscribeNetwork(f func(NetworkUpdate)) func() {
	return h.network.add(f)
}

func (h *Host) SubscribeFullscreen(f func(FullscreenChanged)) func() {
	return h.chrome.add(f)
}

// Listeners returns the number of attached listeners.
func (h *Host) Listeners() int {
	return h.media.len() + h.network.len() + h.chrome.len()
}

func (h *Host) Capabilities() capability.Set {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capabilities
}

// Invoke sends a capability request and waits for the correlated result.
func (h *Host) Invoke(ctx context.Context, kind capability.Kind, action capability.Action, data string) error {
	id := uuid.NewString()
	ch := make(chan CapabilityResult, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}
	h.pending[id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	err := h.sender.Send(TypeCapabilityRequest, CapabilityRequest{
		RequestID:  id,
		Capability: string(kind),
		Action:     string(action),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to send capability request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	select {
	case res, ok := <-ch:
		if !ok {
			return ErrHostClosed
		}
		if res.OK {
			return nil
		}
		if res.Reason == ReasonUnsupported {
			return capability.ErrUnavailable
		}
		return fmt.Errorf("%w: %s", capability.ErrDenied, res.Reason)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) HandleMediaEvent(p EventPayload) {
	h.media.emit(p.Event())
}

func (h *Host) HandleNetworkSample(s quality.Sample) {
	h.network.emit(NetworkUpdate{Sample: s})
}

func (h *Host) HandleCapabilities(set capability.Set) {
	h.mu.Lock()
	h.capabilities = set
	h.mu.Unlock()

	h.log.Debug("host capabilities", "capabilities", set)
	if !set.NetworkInformation {
		h.network.emit(NetworkUpdate{Unavailable: true})
	}
}

func (h *Host) HandleCapabilityResult(res CapabilityResult) error {
	h.mu.Lock()
	ch, ok := h.pending[res.RequestID]
	delete(h.pending, res.RequestID)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, res.RequestID)
	}

	ch <- res
	return nil
}

func (h *Host) HandleFullscreenChanged(fc FullscreenChanged) {
	h.chrome.emit(fc)
}

// Close fails outstanding capability requests and rejects further commands.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
}
