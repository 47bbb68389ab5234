package simerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/simerr"
)

func TestNewFormatsMessage(t *testing.T) {
	err := simerr.New(simerr.InvalidAgvId, "no such agv: %d", 42)
	assert.Equal(t, "InvalidAgvId: no such agv: 42", err.Error())
}

func TestWrapIncludesUnderlyingError(t *testing.T) {
	cause := errors.New("boom")
	err := simerr.Wrap(simerr.NoPath, cause, "could not route to %s", "B")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	inner := simerr.New(simerr.EmptyMap, "no nodes on this map")
	outer := fmt.Errorf("spawn failed: %w", inner)

	assert.True(t, simerr.Is(outer, simerr.EmptyMap))
	assert.False(t, simerr.Is(outer, simerr.NoPath))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, simerr.Is(errors.New("plain"), simerr.InvalidNodeId))
}

func TestKindStringRoundTrip(t *testing.T) {
	cases := map[simerr.Kind]string{
		simerr.InvalidAgvId:       "InvalidAgvId",
		simerr.InvalidNodeId:      "InvalidNodeId",
		simerr.EmptyMap:           "EmptyMap",
		simerr.NoPath:             "NoPath",
		simerr.InvalidConfigValue: "InvalidConfigValue",
		simerr.Kind(999):          "Unknown",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
