package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	URL    string  `json:"media_url" validate:"required,url"`
	Volume float64 `json:"volume" validate:"gte=0,lte=1"`
	Kind   string  `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	_, ok := v.Validate(sample{URL: "https://cdn.example.com/a.mp4", Volume: 0.5})
	assert.True(t, ok)

	errs, ok := v.Validate(sample{Volume: 2, Kind: "c"})
	require.False(t, ok)
	require.Len(t, errs, 3)
	assert.Equal(t, "media_url", errs[0].Field)
	assert.Equal(t, "REQUIRED", errs[0].Code)
	assert.Equal(t, "LTE", errs[1].Code)
	assert.Equal(t, "ONEOF", errs[2].Code)
}

func TestStruct(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sample{URL: "not a url"})
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "URL", verrs[0].Code)
	assert.Contains(t, err.Error(), "media_url must be a valid url")
}
