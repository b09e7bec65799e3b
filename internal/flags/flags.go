// Package flags provides feature flags for engine behaviors that can be
// switched off from configuration. Flags are read-only after initialization.
package flags

import (
	"maps"

	"github.com/zjrosen/vgrid/internal/log"
)

// Flag names.
const (
	// FlagFastScrollBypass renders fast scrolls synchronously instead of
	// waiting for the next frame.
	FlagFastScrollBypass = "fast-scroll-bypass"

	// FlagContentCache enables the rendered content cache.
	FlagContentCache = "content-cache"

	// FlagAutoHeight enables content-driven row heights.
	FlagAutoHeight = "auto-height"
)

// Defaults returns the value of every known flag when configuration does not
// set it.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagFastScrollBypass: true,
		FlagContentCache:     true,
		FlagAutoHeight:       true,
	}
}

// Registry holds feature flag state.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from configured values layered over Defaults().
func New(configured map[string]bool) *Registry {
	flags := Defaults()
	maps.Copy(flags, configured)
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled reports whether the named flag is on. Unknown flags and a nil
// registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}
