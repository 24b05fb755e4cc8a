package renderer

import (
	"strings"
	"testing"
	"time"
)

func TestStatsHistoryLimit(t *testing.T) {
	h := newStatsHistory(2)
	for i := uint32(1); i <= 3; i++ {
		h.Append(FrameStats{Frame: i})
	}

	frames := h.Frames()
	if len(frames) != 2 || frames[0].Frame != 2 || frames[1].Frame != 3 {
		t.Fatalf("expected frames 2 and 3; got %+v", frames)
	}

	frames[0].Frame = 100
	if h.Frames()[0].Frame != 2 {
		t.Fatal("expected Frames to return a copy")
	}
}

func TestFormatStats(t *testing.T) {
	out := FormatStats([]FrameStats{
		{Frame: 1, Width: 64, Height: 32, RenderTime: 10 * time.Millisecond, ReadbackTime: time.Millisecond},
		{Frame: 2, Width: 64, Height: 32, RenderTime: 30 * time.Millisecond, ReadbackTime: 3 * time.Millisecond},
	})

	for _, exp := range []string{"Render time", "64x32", "Average", "20ms", "2ms"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected stats table to contain %q; got:\n%s", exp, out)
		}
	}
}
