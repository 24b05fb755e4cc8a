package renderer

import (
	"context"

	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/tracer"
)

// A renderer that renders a single frame and writes it to the output file.
type oneShotRenderer struct {
	logger  log.Logger
	rc      *tracer.Context
	session *Session
	opts    Options
}

// Create a renderer that renders a single frame using an initialized
// render context. The renderer takes ownership of the context.
func NewOneShot(rc *tracer.Context, opts Options) (Renderer, error) {
	session, err := NewSession(rc, opts)
	if err != nil {
		return nil, err
	}

	if opts.FrameW != 0 && opts.FrameH != 0 {
		if err = session.Resize(int(opts.FrameW), int(opts.FrameH)); err != nil {
			return nil, err
		}
	}

	return &oneShotRenderer{
		logger:  log.New("one-shot renderer"),
		rc:      rc,
		session: session,
		opts:    opts,
	}, nil
}

func (r *oneShotRenderer) Render(ctx context.Context) error {
	if _, err := r.session.RenderFrame(ctx); err != nil {
		return err
	}
	if err := r.session.SaveFrame(); err != nil {
		return err
	}

	stats := r.session.Stats()
	last := stats[len(stats)-1]
	r.logger.Infof("rendered %dx%d frame in %s", last.Width, last.Height, last.RenderTime)
	return nil
}

func (r *oneShotRenderer) Close() error {
	return r.rc.Close()
}

func (r *oneShotRenderer) Stats() []FrameStats {
	return r.session.Stats()
}
