package quality

import (
	"errors"
	"net/url"
)

var (
	ErrUnknownTier = errors.New("unknown quality tier")
	ErrNoTiers     = errors.New("no quality tiers configured")
)

// Auto is the selection name that returns control to the network policy.
const Auto = "auto"

const EffectiveType4G = "4g"

// Tier is one rendition of the media, ordered lowest to highest.
type Tier struct {
	Name   string `json:"name" validate:"required,max=32"`
	Height int    `json:"height" validate:"gte=0"`
}

// Sample is the latest network reading. Only the most recent one is kept.
type Sample struct {
	DownlinkMbps  float64 `json:"downlink_mbps" validate:"gte=0"`
	RTTMs         float64 `json:"rtt_ms" validate:"gte=0"`
	EffectiveType string  `json:"effective_type" validate:"omitempty,oneof=slow-2g 2g 3g 4g"`
}

// Select picks the tier index for a sample.
func Select(n int, s Sample) int {
	if n == 0 {
		return -1
	}

	is4G := s.EffectiveType == EffectiveType4G
	switch {
	case is4G && s.DownlinkMbps > 5:
		return n - 1
	case is4G || s.DownlinkMbps > 2:
		return n / 2
	default:
		return 0
	}
}

// RenditionURL addresses the tier variant of base.
func RenditionURL(base string, tier Tier) string {
	u, err := url.Parse(base)
	if err != nil || tier.Name == "" {
		return base
	}

	q := u.Query()
	q.Set("quality", tier.Name)
	u.RawQuery = q.Encode()

	return u.String()
}
