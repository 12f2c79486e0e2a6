package session

import (
	"fmt"
	"math"
	"strings"
)

// ShareLink points at mediaURL with a start offset of whole seconds.
func ShareLink(mediaURL string, t float64) string {
	base, _, _ := strings.Cut(mediaURL, "#")
	if t != t || t < 0 {
		t = 0
	}

	return fmt.Sprintf("%s#t=%d", base, int64(math.Floor(t)))
}
