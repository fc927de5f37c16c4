package core

// Logger interface for renderer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// VelocityField evaluates the bulk velocity of the model material at a
// position in the model frame. Supplied by the model, sampled heavily in the
// ray-tracing hot path.
type VelocityField interface {
	VelocityAt(pos Vec3) Vec3
}

// VelocityFunc adapts a plain function to the VelocityField interface
type VelocityFunc func(pos Vec3) Vec3

// VelocityAt calls f(pos)
func (f VelocityFunc) VelocityAt(pos Vec3) Vec3 {
	return f(pos)
}

// ProgressFunc receives the completed fraction of a render, in [0,1].
// Calls are throttled by the renderer; implementations need not be fast.
type ProgressFunc func(fraction float64)
