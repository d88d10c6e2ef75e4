package pipeline

// SubdivisionDepth is the depth used when subdivision is enabled.
const SubdivisionDepth = 2

// Settings are the rendering toggles read by the pipeline every frame.
type Settings struct {
	Interpolation bool
	Subdivision   bool
	CelShading    bool

	DebugLighting bool
	DebugView     bool
	DebugNormals  bool
}

// DefaultSettings returns interpolation, subdivision and cel-shading on, debug
// overlays off.
func DefaultSettings() Settings {
	return Settings{
		Interpolation: true,
		Subdivision:   true,
		CelShading:    true,
	}
}

// Depth returns the subdivision depth for these settings.
func (s Settings) Depth() int {
	if s.Subdivision {
		return SubdivisionDepth
	}
	return 0
}

// DebugVectors reports whether any debug overlay is on.
func (s Settings) DebugVectors() bool {
	return s.DebugLighting || s.DebugView || s.DebugNormals
}
