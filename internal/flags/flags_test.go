package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "known flags default on",
			registry: New(nil),
			flag:     FlagContentCache,
			expected: true,
		},
		{
			name:     "configuration overrides a default",
			registry: New(map[string]bool{FlagAutoHeight: false}),
			flag:     FlagAutoHeight,
			expected: false,
		},
		{
			name:     "configured extra flag",
			registry: New(map[string]bool{"experimental": true}),
			flag:     "experimental",
			expected: true,
		},
		{
			name:     "unknown flag returns false",
			registry: New(nil),
			flag:     "unknown-flag",
			expected: false,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagFastScrollBypass,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_All(t *testing.T) {
	r := New(map[string]bool{FlagFastScrollBypass: false})
	require.Equal(t, map[string]bool{
		FlagFastScrollBypass: false,
		FlagContentCache:     true,
		FlagAutoHeight:       true,
	}, r.All())

	var nilRegistry *Registry
	require.Empty(t, nilRegistry.All())
}

func TestRegistry_All_ReturnsDefensiveCopy(t *testing.T) {
	r := New(nil)
	cp := r.All()
	cp[FlagContentCache] = false
	cp["new-flag"] = true

	require.True(t, r.Enabled(FlagContentCache), "registry should not be affected by copy mutation")
	require.False(t, r.Enabled("new-flag"))
}

func TestNew_DoesNotAliasInput(t *testing.T) {
	in := map[string]bool{FlagAutoHeight: false}
	r := New(in)
	in[FlagAutoHeight] = true
	require.False(t, r.Enabled(FlagAutoHeight))
}
