package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrUnavailable = errors.New("capability unavailable")
	ErrDenied      = errors.New("capability request denied")
)

type Kind string

const (
	Fullscreen       Kind = "fullscreen"
	PictureInPicture Kind = "pip"
	Clipboard        Kind = "clipboard"
)

type Action string

const (
	ActionRequest Action = "request"
	ActionExit    Action = "exit"
	ActionWrite   Action = "write"
)

// Set is the result of probing the platform.
type Set struct {
	Fullscreen         bool `json:"fullscreen"`
	PictureInPicture   bool `json:"pip"`
	Clipboard          bool `json:"clipboard"`
	NetworkInformation bool `json:"network_information"`
}

func (s Set) Has(k Kind) bool {
	switch k {
	case Fullscreen:
		return s.Fullscreen
	case PictureInPicture:
		return s.PictureInPicture
	case Clipboard:
		return s.Clipboard
	}

	return false
}

// Platform is the host side of the capability APIs. Invoke blocks until the
// platform resolves or rejects the request.
type Platform interface {
	Capabilities() Set
	Invoke(ctx context.Context, kind Kind, action Action, data string) error
}

// Adapter gives every capability the same probe/request/exit contract.
type Adapter struct {
	platform Platform
	log      *slog.Logger
}

func NewAdapter(platform Platform, log *slog.Logger) *Adapter {
	return &Adapter{
		platform: platform,
		log:      log,
	}
}

func (a *Adapter) Available(k Kind) bool {
	return a.platform != nil && a.platform.Capabilities().Has(k)
}

func (a *Adapter) invoke(ctx context.Context, k Kind, action Action, data string) error {
	if !a.Available(k) {
		a.log.InfoContext(ctx, "capability unavailable", "capability", k, "action", action)
		return fmt.Errorf("%w: %s", ErrUnavailable, k)
	}

	if err := a.platform.Invoke(ctx, k, action, data); err != nil {
		a.log.InfoContext(ctx, "capability request rejected", "capability", k, "action", action, "error", err)
		return fmt.Errorf("failed to %s %s: %w", action, k, err)
	}

	return nil
}

func (a *Adapter) Request(ctx context.Context, k Kind) error {
	return a.invoke(ctx, k, ActionRequest, "")
}

func (a *Adapter) Exit(ctx context.Context, k Kind) error {
	return a.invoke(ctx, k, ActionExit, "")
}

func (a *Adapter) WriteClipboard(ctx context.Context, text string) error {
	return a.invoke(ctx, Clipboard, ActionWrite, text)
}
