package renderer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/tracer"
)

const windowTitle = "optixPathTracer"

func init() {
	// glfw event handling must run on the main thread.
	runtime.LockOSThread()
}

// ContextFactory creates and initializes a render context for a scene.
type ContextFactory func(sc *scene.Scene) (*tracer.Context, error)

// An interactive opengl-based renderer.
type interactiveGLRenderer struct {
	logger  log.Logger
	opts    Options
	factory ContextFactory

	rc      *tracer.Context
	session *Session
	watcher *SceneWatcher

	// opengl handles
	window  *glfw.Window
	texture uint32
	pbo     uint32
}

// Create a new interactive renderer for an initialized render context. The
// renderer takes ownership of the context. When opts.WatchFile is set the
// scene is reloaded on changes and factory is used to build a context for
// the reloaded scene.
func NewInteractive(rc *tracer.Context, factory ContextFactory, opts Options) (Renderer, error) {
	session, err := NewSession(rc, opts)
	if err != nil {
		return nil, err
	}

	r := &interactiveGLRenderer{
		logger:  log.New("interactive renderer"),
		opts:    opts,
		factory: factory,
		rc:      rc,
		session: session,
	}

	if err = r.initGL(); err != nil {
		r.Close()
		return nil, err
	}

	if opts.WatchFile != "" && factory != nil {
		if r.watcher, err = WatchScene(opts.WatchFile, opts.loader()); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

func (r *interactiveGLRenderer) initGL() error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("renderer: failed to initialize glfw: %w", err)
	}

	w, h := r.session.Size()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	r.window, err = glfw.CreateWindow(int(w), int(h), windowTitle, nil, nil)
	if err != nil {
		return fmt.Errorf("renderer: could not create opengl window: %w", err)
	}
	r.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("renderer: could not init opengl: %w", err)
	}

	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, 1, 0, 1, -1, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()
	gl.Viewport(0, 0, int32(w), int32(h))

	// Setup texture for image data
	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	if !r.opts.NoPBO {
		gl.GenBuffers(1, &r.pbo)
	}

	// Bind event callbacks
	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)
	r.window.SetFramebufferSizeCallback(r.onResizeEvent)

	return nil
}

func (r *interactiveGLRenderer) Render(ctx context.Context) error {
	for !r.window.ShouldClose() && !r.session.ShouldQuit() {
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		if err := r.pollReload(); err != nil {
			return err
		}

		// Stop accumulating once enough frames were rendered for this view
		cam := r.session.Camera()
		if r.opts.MaxFrames != 0 && !cam.Changed && cam.FrameNumber >= r.opts.MaxFrames {
			glfw.WaitEventsTimeout(0.1)
			continue
		}

		frame, err := r.session.RenderFrame(ctx)
		if err != nil {
			return err
		}
		r.display(frame)

		r.window.SwapBuffers()
		glfw.PollEvents()
	}

	r.logger.Info("\n" + FormatStats(r.session.Stats()))
	return nil
}

// Copy frame data to the display texture and draw a full-window quad.
func (r *interactiveGLRenderer) display(frame *tracer.Frame) {
	gl.BindTexture(gl.TEXTURE_2D, r.texture)

	if r.pbo != 0 {
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, r.pbo)
		gl.BufferData(gl.PIXEL_UNPACK_BUFFER, len(frame.Pix)*4, gl.Ptr(frame.Pix), gl.STREAM_DRAW)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(frame.Width), int32(frame.Height), 0, gl.RGBA, gl.FLOAT, gl.PtrOffset(0))
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(frame.Width), int32(frame.Height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(frame.Pix))
	}

	gl.Enable(gl.TEXTURE_2D)
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(0, 0)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(1, 0)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(1, 1)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(0, 1)
	gl.End()
	gl.Disable(gl.TEXTURE_2D)
}

// Swap in a new render context if the scene file was reloaded.
func (r *interactiveGLRenderer) pollReload() error {
	if r.watcher == nil {
		return nil
	}

	select {
	case err := <-r.watcher.Errors():
		r.logger.Errorf("%v", err)
	case sc := <-r.watcher.Scenes():
		w, h := r.session.Size()
		sc.Settings.Width, sc.Settings.Height = w, h
		if cam := sc.Camera(); cam != nil {
			cam.SetAspect(w, h)
		}

		rc, err := r.factory(sc)
		if err != nil {
			r.logger.Errorf("could not initialize reloaded scene: %v", err)
			return nil
		}
		session, err := NewSession(rc, r.opts)
		if err != nil {
			rc.Close()
			r.logger.Errorf("could not initialize reloaded scene: %v", err)
			return nil
		}

		if err = r.rc.Close(); err != nil {
			r.logger.Warningf("error closing previous render context: %v", err)
		}
		r.rc, r.session = rc, session
	default:
	}
	return nil
}

func (r *interactiveGLRenderer) Close() error {
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
	if r.window != nil {
		if r.pbo != 0 {
			gl.DeleteBuffers(1, &r.pbo)
			r.pbo = 0
		}
		if r.texture != 0 {
			gl.DeleteTextures(1, &r.texture)
			r.texture = 0
		}
		r.window.Destroy()
		r.window = nil
		glfw.Terminate()
	}
	return r.rc.Close()
}

func (r *interactiveGLRenderer) Stats() []FrameStats {
	return r.session.Stats()
}

func (r *interactiveGLRenderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}

	var sessionKey Key
	switch key {
	case glfw.KeyEscape, glfw.KeyQ:
		sessionKey = KeyQuit
	case glfw.KeyS:
		sessionKey = KeySave
	case glfw.KeyR:
		sessionKey = KeyReset
	default:
		return
	}

	if err := r.session.KeyPressed(sessionKey); err != nil {
		r.logger.Errorf("%v", err)
	}
}

func (r *interactiveGLRenderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	var sessionButton MouseButton
	switch button {
	case glfw.MouseButtonLeft:
		sessionButton = MouseLeft
	case glfw.MouseButtonRight:
		sessionButton = MouseRight
	default:
		return
	}

	xPos, yPos := w.GetCursorPos()
	r.session.MouseButton(sessionButton, action == glfw.Press, float32(xPos), float32(yPos))
}

func (r *interactiveGLRenderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	r.session.CursorMoved(float32(xPos), float32(yPos))
}

func (r *interactiveGLRenderer) onResizeEvent(w *glfw.Window, width, height int) {
	if err := r.session.Resize(width, height); err != nil {
		r.logger.Errorf("could not resize output: %v", err)
		return
	}
	gl.Viewport(0, 0, int32(width), int32(height))
}
