package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goksuguvendiren/optix-renderer/renderer"
	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/scene/reader"
	"github.com/goksuguvendiren/optix-renderer/tracer"
	"github.com/goksuguvendiren/optix-renderer/tracer/opencl"
	"github.com/goksuguvendiren/optix-renderer/tracer/recorder"
	"github.com/urfave/cli"
)

// Render a scene, either interactively or to an image file.
func RenderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}
	sceneFile := ctx.Args().First()

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:     uint32(ctx.Int("width")),
		FrameH:     uint32(ctx.Int("height")),
		OutputFile: ctx.String("file"),
		NoPBO:      ctx.Bool("nopbo"),
		MaxFrames:  uint32(ctx.Int("max-frames")),
	}
	if ctx.Bool("progressive") && ctx.Bool("watch") && !isRemote(sceneFile) {
		opts.WatchFile = sceneFile
	}

	factory := func(sc *scene.Scene) (*tracer.Context, error) {
		return newRenderContext(ctx, sceneFile, sc)
	}

	rc, err := factory(sc)
	if err != nil {
		return err
	}

	var r renderer.Renderer
	if ctx.Bool("progressive") {
		r, err = renderer.NewInteractive(rc, factory, opts)
	} else {
		r, err = renderer.NewOneShot(rc, opts)
	}
	if err != nil {
		rc.Close()
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err = r.Render(renderCtx); err != nil {
		return err
	}

	logger.Noticef("frame statistics\n%s", renderer.FormatStats(r.Stats()))
	return nil
}

// Open the selected device and materialize the scene on it.
func newRenderContext(ctx *cli.Context, sceneFile string, sc *scene.Scene) (*tracer.Context, error) {
	dev, err := openDevice(ctx)
	if err != nil {
		return nil, err
	}

	format := tracer.FormatFloat4
	if ctx.Bool("ubyte") {
		format = tracer.FormatUByte4
	}

	rc := tracer.NewContext(dev, tracer.Options{
		ProgramDir:   programDir(ctx.String("samples-dir"), sceneFile, sc),
		OutputFormat: format,
	})
	if err = rc.Init(sc); err != nil {
		return nil, err
	}
	return rc, nil
}

// Program files live in a folder named after the scene's sample inside the
// samples dir. When no samples dir is given the scene file folder is used.
func programDir(samplesDir, sceneFile string, sc *scene.Scene) string {
	if samplesDir == "" {
		if isRemote(sceneFile) {
			samplesDir = "."
		} else {
			samplesDir = filepath.Dir(sceneFile)
		}
	}
	return filepath.Join(samplesDir, sc.Programs.SampleName)
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Select the fastest opencl device matching the device flags or the
// in-process recorder for dry runs.
func openDevice(ctx *cli.Context) (tracer.Device, error) {
	if ctx.Bool("dry-run") {
		logger.Notice("dry run: using the recording device")
		return recorder.New(), nil
	}

	typeMask, err := opencl.ParseDeviceType(ctx.String("device-type"))
	if err != nil {
		return nil, err
	}

	devices, err := opencl.SelectDevices(typeMask, ctx.String("device"), ctx.StringSlice("blacklist")...)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, opencl.ErrNoDevices
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Speed > devices[j].Speed
	})
	logger.Infof("selected device %s (%s, %d GFlops) out of %d candidate(s)", devices[0].Name, devices[0].Type, devices[0].Speed, len(devices))

	dev, err := opencl.Open(devices[0])
	if err != nil {
		return nil, fmt.Errorf("could not open device: %w", err)
	}
	return dev, nil
}
