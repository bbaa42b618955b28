package assets

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkframe/engine/core"
)

// ShaderWatcher flags compiled shaders that changed on disk. The render loop
// polls Changed and rebuilds the pipelines when it reports true.
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	ext      string
	changed  atomic.Bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewShaderWatcher watches dir for writes to files ending in ext.
func NewShaderWatcher(dir, ext string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	sw := &ShaderWatcher{
		fsnotify: fsWatch,
		ext:      ext,
		done:     make(chan struct{}),
	}
	sw.wg.Add(1)
	go sw.start()
	core.LogInfo("watching %s for *%s changes", dir, ext)
	return sw, nil
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handle(e)
		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)
		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) handle(e fsnotify.Event) {
	if filepath.Ext(e.Name) != sw.ext {
		return
	}
	// Editors and compilers replace files as often as they rewrite them.
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	core.LogDebug("shader changed: %s", e.Name)
	sw.changed.Store(true)
}

// Changed reports whether a shader changed since the last call.
func (sw *ShaderWatcher) Changed() bool {
	return sw.changed.Swap(false)
}

func (sw *ShaderWatcher) Close() error {
	err := errors.New("shader watcher already closed")
	sw.closeOnce.Do(func() {
		close(sw.done)
		err = sw.fsnotify.Close()
		sw.wg.Wait()
	})
	return err
}
