package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/tracer"
	"github.com/goksuguvendiren/optix-renderer/types"
)

// Number of frame stats kept by a session.
const statsHistorySize = 32

type MouseButton uint8

const (
	MouseNone MouseButton = iota
	MouseLeft
	MouseRight
)

// Session commands triggered by key presses.
type Key uint8

const (
	KeyUnbound Key = iota
	KeyQuit
	KeySave
	KeyReset
)

// Map a typed character to a session key.
func KeyFromRune(r rune) Key {
	switch r {
	case 'q', 'Q', 27:
		return KeyQuit
	case 's', 'S':
		return KeySave
	case 'r', 'R':
		return KeyReset
	}
	return KeyUnbound
}

// Session holds the interactive state of a render: the camera, the mouse
// state and the last rendered frame. It is driven by window events but does
// not depend on any windowing library.
type Session struct {
	logger log.Logger

	rc      *tracer.Context
	camera  *scene.Camera
	initial scene.Camera
	arcball Arcball

	width  uint32
	height uint32

	button  MouseButton
	prevPos types.Vec2

	outputFile string
	lastFrame  *tracer.Frame
	stats      *statsHistory
	quit       bool
}

// Create a session for an initialized render context.
func NewSession(rc *tracer.Context, opts Options) (*Session, error) {
	sc := rc.Scene()
	if sc == nil {
		return nil, tracer.ErrNotInitialized
	}
	cam := sc.Camera()
	if cam == nil {
		return nil, ErrNoCamera
	}

	return &Session{
		logger:     log.New("session"),
		rc:         rc,
		camera:     cam,
		initial:    *cam,
		arcball:    DefaultArcball(),
		width:      sc.Settings.Width,
		height:     sc.Settings.Height,
		outputFile: opts.outputFile(),
		stats:      newStatsHistory(statsHistorySize),
	}, nil
}

func (s *Session) Camera() *scene.Camera {
	return s.camera
}

func (s *Session) Size() (uint32, uint32) {
	return s.width, s.height
}

func (s *Session) ShouldQuit() bool {
	return s.quit
}

func (s *Session) Stats() []FrameStats {
	return s.stats.Frames()
}

// Record a mouse button transition at window position x, y.
func (s *Session) MouseButton(button MouseButton, pressed bool, x, y float32) {
	if !pressed {
		if button == s.button {
			s.button = MouseNone
		}
		return
	}
	s.button = button
	s.prevPos = types.XY(x, y)
}

// Handle a cursor move to window position x, y. Dragging with the left
// button rotates the camera around the look-at point; dragging with the
// right button zooms.
func (s *Session) CursorMoved(x, y float32) {
	pos := types.XY(x, y)
	w, h := float32(s.width), float32(s.height)

	switch s.button {
	case MouseRight:
		delta := pos.Sub(s.prevPos)
		dx, dy := delta[0]/w, delta[1]/h
		dmax := dy
		if abs32(dx) > abs32(dy) {
			dmax = dx
		}
		s.camera.Zoom(dmax)
	case MouseLeft:
		from := types.XY(s.prevPos[0]/w, s.prevPos[1]/h)
		to := types.XY(pos[0]/w, pos[1]/h)
		s.camera.Rotate(s.arcball.Rotate(to, from))
	}

	s.prevPos = pos
}

// Resize the output. Dimensions are clamped to at least one pixel.
func (s *Session) Resize(width, height int) error {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if uint32(width) == s.width && uint32(height) == s.height {
		return nil
	}

	if err := s.rc.Resize(uint32(width), uint32(height)); err != nil {
		return err
	}
	s.width, s.height = uint32(width), uint32(height)
	s.camera.SetAspect(s.width, s.height)
	s.logger.Debugf("resized output to %dx%d", s.width, s.height)
	return nil
}

// Handle a key press.
func (s *Session) KeyPressed(key Key) error {
	switch key {
	case KeyQuit:
		s.quit = true
	case KeySave:
		return s.SaveFrame()
	case KeyReset:
		*s.camera = s.initial
		s.camera.SetAspect(s.width, s.height)
		s.camera.MarkChanged()
	}
	return nil
}

// Save the last rendered frame to the session output file.
func (s *Session) SaveFrame() error {
	if s.lastFrame == nil {
		return ErrEmptyFrame
	}
	s.logger.Noticef("saving current frame to %q", s.outputFile)
	return SaveFrame(s.outputFile, s.lastFrame)
}

// Push camera changes to the device, launch and read back the output.
func (s *Session) RenderFrame(ctx context.Context) (*tracer.Frame, error) {
	if _, err := s.rc.UpdateCamera(s.camera); err != nil {
		return nil, fmt.Errorf("renderer: could not update camera: %w", err)
	}

	tick := time.Now()
	if err := s.rc.Launch(ctx); err != nil {
		return nil, err
	}
	renderTime := time.Since(tick)

	tick = time.Now()
	frame, err := s.rc.ReadOutput()
	if err != nil {
		return nil, err
	}

	s.stats.Append(FrameStats{
		Frame:        s.camera.FrameNumber,
		Width:        frame.Width,
		Height:       frame.Height,
		RenderTime:   renderTime,
		ReadbackTime: time.Since(tick),
	})
	s.lastFrame = frame
	return frame, nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
