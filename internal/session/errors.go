package session

import "errors"

var (
	ErrClosed             = errors.New("session closed")
	ErrNoSource           = errors.New("either a media url or a playlist is required")
	ErrNoPlaylist         = errors.New("session has no playlist")
	ErrLibraryUnavailable = errors.New("library is not available for this session")
	ErrPreviewUnavailable = errors.New("scrub previews are not available for this session")
	ErrNoFallback         = errors.New("no error to fall back from")
	ErrUnknownChapter     = errors.New("unknown chapter")
)
