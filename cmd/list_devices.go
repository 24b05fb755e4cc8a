package cmd

import (
	"bytes"
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/tracer/opencl"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	platforms, err := opencl.GetPlatformInfo()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Version", "Device", "Type", "Compute units", "Clock (MHz)", "Speed (GFlops)"})
	for _, p := range platforms {
		for _, d := range p.Devices {
			table.Append([]string{
				p.Name,
				p.Version,
				d.Name,
				d.Type.String(),
				fmt.Sprintf("%d", d.ComputeUnits),
				fmt.Sprintf("%d", d.ClockSpeed),
				fmt.Sprintf("%d", d.Speed),
			})
		}
	}
	table.Render()

	logger.Noticef("system provides %d opencl platform(s)\n%s", len(platforms), buf.String())
	return nil
}
