package main

import (
	"os"

	"github.com/goksuguvendiren/optix-renderer/cmd"
	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "optix-renderer"
	app.Usage = "render json scene descriptions using path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level (debug, info, notice, warning or error)",
			EnvVar: "GRPT_LOG_LEVEL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "inspect",
			Usage: "display scene information",
			Description: `
Parse a scene definition, load any referenced meshes and display a summary
of the scene elements. The scene is also checked for degenerate geometry and
non-finite values.`,
			ArgsUsage: "scene_file.json",
			Action:    cmd.InspectScene,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Description: `
Render a scene to an image file or, with --progressive, in an interactive
window. Scene files may be local paths or http(s) urls.

Interactive controls:
  left mouse drag   rotate camera around the look-at point
  right mouse drag  zoom
  r                 reset camera
  s                 save current frame to the output file
  q / esc           quit`,
			ArgsUsage: "scene_file.json",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Value: "optixPathTracer.ppm",
					Usage: "image file for the rendered frame; the extension selects the format (ppm, png, bmp, tiff)",
				},
				cli.BoolFlag{
					Name:  "progressive, p",
					Usage: "render progressively in an interactive window",
				},
				cli.BoolFlag{
					Name:  "nopbo, n",
					Usage: "do not use a pixel buffer object for displaying frames",
				},
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "reload the scene when the scene file changes (progressive mode only)",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "override the frame width defined by the scene",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "override the frame height defined by the scene",
				},
				cli.IntFlag{
					Name:  "max-frames",
					Usage: "stop accumulating after this many frames per camera position (0 = unlimited)",
				},
				cli.BoolFlag{
					Name:  "ubyte",
					Usage: "use an 8-bit RGBA output buffer instead of a float one",
				},
				cli.StringFlag{
					Name:   "samples-dir",
					Usage:  "folder containing the per-sample program folders; defaults to the scene file folder",
					EnvVar: "GRPT_SAMPLES_DIR",
				},
				cli.StringFlag{
					Name:   "device",
					Usage:  "only use opencl devices whose name contains this value",
					EnvVar: "GRPT_DEVICE",
				},
				cli.StringFlag{
					Name:  "device-type",
					Value: "all",
					Usage: "opencl device type to use (cpu, gpu or all)",
				},
				cli.StringSliceFlag{
					Name:  "blacklist, b",
					Value: &cli.StringSlice{},
					Usage: "blacklist opencl device whose names contain this value",
				},
				cli.BoolFlag{
					Name:  "dry-run",
					Usage: "render with an in-process device that records device calls instead of using opencl",
				},
			},
			Action: cmd.RenderScene,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("optix-renderer").Error(err)
		os.Exit(1)
	}
}
