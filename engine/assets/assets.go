package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Kobazaaa/Ashen/engine/core"
)

const shaderExt = ".spv"

type ShaderInfo struct {
	Path        string
	LastChanged time.Time
}

// ShaderWatcher indexes the compiled shaders under a directory and signals on
// Dirty whenever one of them is created or rewritten. Signals coalesce: any
// number of writes between two reads of Dirty produce a single value.
type ShaderWatcher struct {
	shaders map[string]ShaderInfo
	mutex   sync.RWMutex

	fsnotify *fsnotify.Watcher
	dirty    chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

func NewShaderWatcher(shaderDir string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sw := &ShaderWatcher{
		shaders:  make(map[string]ShaderInfo),
		fsnotify: fsWatch,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if err := sw.watchRecursive(shaderDir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go sw.start()
	core.LogInfo("watching %s for shader changes", shaderDir)
	return sw, nil
}

// Dirty delivers one value per batch of shader changes.
func (sw *ShaderWatcher) Dirty() <-chan struct{} {
	return sw.dirty
}

// Shaders returns a snapshot of the indexed shader files.
func (sw *ShaderWatcher) Shaders() []ShaderInfo {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	out := make([]ShaderInfo, 0, len(sw.shaders))
	for _, info := range sw.shaders {
		out = append(out, info)
	}
	return out
}

func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return errors.New("shader watcher already closed")
	}
	sw.isClosed = true
	sw.mutex.Unlock()

	close(sw.done)
	<-sw.stopped
	return nil
}

func (sw *ShaderWatcher) start() {
	defer close(sw.stopped)
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-sw.done:
			sw.fsnotify.Close()
			return
		}
	}
}

func (sw *ShaderWatcher) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := sw.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
			return
		}
	}

	if filepath.Ext(e.Name) != shaderExt {
		return
	}
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		sw.index(e.Name)
		core.LogDebug("shader changed: %s", e.Name)
		sw.markDirty()
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		sw.mutex.Lock()
		delete(sw.shaders, e.Name)
		sw.mutex.Unlock()
	}
}

func (sw *ShaderWatcher) markDirty() {
	select {
	case sw.dirty <- struct{}{}:
	default:
	}
}

func (sw *ShaderWatcher) index(path string) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()
	sw.shaders[path] = ShaderInfo{Path: path, LastChanged: time.Now()}
}

// watchRecursive adds the directory and all of its sub-directories to the watch
// list and indexes the shaders already present.
func (sw *ShaderWatcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(path)
		}
		if filepath.Ext(path) == shaderExt {
			sw.index(path)
		}
		return nil
	})
}
