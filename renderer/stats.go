package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

type FrameStats struct {
	// Camera frame number; resets to 1 whenever the camera changes.
	Frame uint32

	Width  uint32
	Height uint32

	// Time spent in the device launch.
	RenderTime time.Duration

	// Time spent copying the output buffer to the host.
	ReadbackTime time.Duration
}

// Keeps the most recent frame stats.
type statsHistory struct {
	frames []FrameStats
	limit  int
}

func newStatsHistory(limit int) *statsHistory {
	return &statsHistory{limit: limit}
}

func (h *statsHistory) Append(s FrameStats) {
	h.frames = append(h.frames, s)
	if len(h.frames) > h.limit {
		h.frames = h.frames[len(h.frames)-h.limit:]
	}
}

func (h *statsHistory) Frames() []FrameStats {
	out := make([]FrameStats, len(h.frames))
	copy(out, h.frames)
	return out
}

// Render a table with per-frame timings and their average.
func FormatStats(stats []FrameStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Frame", "Size", "Render time", "Readback time"})

	var renderTotal, readbackTotal time.Duration
	for _, s := range stats {
		table.Append([]string{
			fmt.Sprintf("%d", s.Frame),
			fmt.Sprintf("%dx%d", s.Width, s.Height),
			s.RenderTime.String(),
			s.ReadbackTime.String(),
		})
		renderTotal += s.RenderTime
		readbackTotal += s.ReadbackTime
	}

	if len(stats) > 0 {
		n := time.Duration(len(stats))
		table.SetFooter([]string{"", "Average", (renderTotal / n).String(), (readbackTotal / n).String()})
	}

	table.Render()
	return buf.String()
}
