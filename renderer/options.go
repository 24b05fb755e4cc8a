package renderer

import "github.com/goksuguvendiren/optix-renderer/scene/reader"

type Options struct {
	// Frame dims. A zero value keeps the size defined by the scene.
	FrameW uint32
	FrameH uint32

	// Image file written by the one-shot renderer and by the save key in
	// interactive mode. The extension selects the format.
	OutputFile string

	// Upload frames to the display texture directly from host memory instead
	// of staging them in a pixel buffer object.
	NoPBO bool

	// Stop accumulating frames in interactive mode once this many frames
	// have been rendered for the current camera. Zero means unlimited.
	MaxFrames uint32

	// Scene file to watch for changes in interactive mode.
	WatchFile string

	// Loader used for reloading WatchFile. Defaults to reader.ReadScene.
	Loader SceneLoader
}

// Default output file for saved frames.
const DefaultOutputFile = "optixPathTracer.ppm"

func (o Options) outputFile() string {
	if o.OutputFile == "" {
		return DefaultOutputFile
	}
	return o.OutputFile
}

func (o Options) loader() SceneLoader {
	if o.Loader != nil {
		return o.Loader
	}
	return reader.ReadScene
}
