package renderer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/scene"
)

const (
	reloadInitialInterval = 50 * time.Millisecond
	reloadMaxElapsedTime  = 5 * time.Second
)

// SceneLoader loads a scene from a path.
type SceneLoader func(path string) (*scene.Scene, error)

// SceneWatcher reloads a scene file whenever it changes on disk. Editors
// tend to write files in several steps so failed loads are retried with an
// exponential backoff before being reported.
type SceneWatcher struct {
	logger  log.Logger
	watcher *fsnotify.Watcher
	path    string
	load    SceneLoader

	scenes chan *scene.Scene
	errs   chan error

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Watch path for changes and reload it with load.
func WatchScene(path string, load SceneLoader) (*SceneWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("renderer: could not create file watcher: %w", err)
	}

	// Watch the folder so that atomic replaces (rename over the file) are
	// also picked up.
	if err = fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("renderer: could not watch %s: %w", absPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &SceneWatcher{
		logger:  log.New("scene watcher"),
		watcher: fsw,
		path:    absPath,
		load:    load,
		scenes:  make(chan *scene.Scene, 1),
		errs:    make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Scenes returns a channel that receives each successfully reloaded scene.
func (w *SceneWatcher) Scenes() <-chan *scene.Scene {
	return w.scenes
}

// Errors returns a channel that receives reload errors.
func (w *SceneWatcher) Errors() <-chan error {
	return w.errs
}

func (w *SceneWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *SceneWatcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.publishErr(err)
		}
	}
}

func (w *SceneWatcher) reload() {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = reloadInitialInterval
	policy.MaxElapsedTime = reloadMaxElapsedTime

	var sc *scene.Scene
	err := backoff.RetryNotify(
		func() error {
			var loadErr error
			sc, loadErr = w.load(w.path)
			return loadErr
		},
		backoff.WithContext(policy, w.ctx),
		func(err error, next time.Duration) {
			w.logger.Debugf("reload of %s failed; retrying in %s: %v", w.path, next, err)
		},
	)
	if err != nil {
		if w.ctx.Err() == nil {
			w.publishErr(fmt.Errorf("renderer: could not reload %s: %w", w.path, err))
		}
		return
	}

	w.logger.Noticef("reloaded %s", w.path)

	// Only the most recent scene matters.
	select {
	case <-w.scenes:
	default:
	}
	select {
	case w.scenes <- sc:
	case <-w.ctx.Done():
	}
}

func (w *SceneWatcher) publishErr(err error) {
	select {
	case w.errs <- err:
	default:
		w.logger.Warningf("dropping watcher error: %v", err)
	}
}
