package renderer

import "context"

type Renderer interface {
	// Render until the renderer completes or ctx is cancelled.
	Render(ctx context.Context) error

	// Shutdown renderer and the attached render context.
	Close() error

	// Get render statistics.
	Stats() []FrameStats
}
