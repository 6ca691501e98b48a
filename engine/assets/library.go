package assets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/platform"
)

const shaderExt = ".spv"

type ShaderInfo struct {
	Path       string
	LastLoaded time.Time
}

// ShaderLibrary serves compiled shaders from a directory tree. A shader is
// named by its path relative to the root without the .spv extension, so
// "triangle.vert.spv" is loaded as "triangle.vert".
type ShaderLibrary struct {
	root    string
	shaders map[string]ShaderInfo
	mutex   sync.RWMutex

	reload   *platform.Event
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

func NewShaderLibrary(root string) (*ShaderLibrary, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "shader library")
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("shader library: %s is not a directory", root)
	}
	sl := &ShaderLibrary{
		root:    root,
		shaders: make(map[string]ShaderInfo),
		reload:  platform.NewEvent(true),
	}
	if err := sl.walk(root, nil); err != nil {
		return nil, err
	}
	core.LogDebug("shader library indexed %d shaders under %s", len(sl.shaders), root)
	return sl, nil
}

// Reload is set whenever a shader file is created, written or removed while
// the library is watching. It resets itself when a wait reports it.
func (sl *ShaderLibrary) Reload() *platform.Event {
	return sl.reload
}

// Watch starts following the directory tree for changes.
func (sl *ShaderLibrary) Watch() error {
	sl.mutex.RLock()
	closed, watching := sl.isClosed, sl.fsnotify != nil
	sl.mutex.RUnlock()
	if closed {
		return errors.New("shader library already closed")
	}
	if watching {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "shader watcher")
	}
	if err := sl.walk(sl.root, w); err != nil {
		w.Close()
		return err
	}

	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	if sl.isClosed || sl.fsnotify != nil {
		w.Close()
		return nil
	}
	sl.fsnotify = w
	sl.done = make(chan struct{})
	sl.stopped = make(chan struct{})
	go sl.start(w, sl.done, sl.stopped)
	return nil
}

func (sl *ShaderLibrary) Close() error {
	sl.mutex.Lock()
	if sl.isClosed {
		sl.mutex.Unlock()
		return nil
	}
	sl.isClosed = true
	done, stopped := sl.done, sl.stopped
	sl.mutex.Unlock()

	if done != nil {
		close(done)
		<-stopped
	}
	return nil
}

func (sl *ShaderLibrary) LoadShader(name, entryPoint string) (ShaderCode, error) {
	sl.mutex.RLock()
	info, ok := sl.shaders[name]
	sl.mutex.RUnlock()
	if !ok {
		err := errors.Errorf("shader %q not found under %s", name, sl.root)
		core.LogError("%s", err)
		return ShaderCode{}, err
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		return ShaderCode{}, errors.Wrapf(err, "load shader %s", name)
	}
	words, err := DecodeSPIRV(data)
	if err != nil {
		return ShaderCode{}, errors.Wrapf(err, "load shader %s", name)
	}

	sl.mutex.Lock()
	info.LastLoaded = time.Now()
	sl.shaders[name] = info
	sl.mutex.Unlock()

	if entryPoint == "" {
		entryPoint = "main"
	}
	return ShaderCode{Name: name, EntryPoint: entryPoint, Words: words}, nil
}

func (sl *ShaderLibrary) Names() []string {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	names := make([]string, 0, len(sl.shaders))
	for n := range sl.shaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (sl *ShaderLibrary) Info(name string) (ShaderInfo, bool) {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	info, ok := sl.shaders[name]
	return info, ok
}

func (sl *ShaderLibrary) start(w *fsnotify.Watcher, done, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			sl.handle(w, e)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-done:
			w.Close()
			return
		}
	}
}

func (sl *ShaderLibrary) handle(w *fsnotify.Watcher, e fsnotify.Event) {
	changed := false
	if e.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
			if err := sl.walk(e.Name, w); err != nil {
				core.LogWarn("shader watcher: %s", err)
			}
			changed = true
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && sl.index(e.Name) {
		changed = true
	}
	// A removed or renamed path may be a directory; nothing can be stat'ed, so
	// drop everything below it.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && sl.forget(e.Name) {
		changed = true
	}
	if changed {
		core.LogDebug("shader change: %s", e)
		sl.reload.Set()
	}
}

// walk indexes every shader under path and, when w is set, watches every
// directory.
func (sl *ShaderLibrary) walk(path string, w *fsnotify.Watcher) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if w != nil {
				return w.Add(walkPath)
			}
			return nil
		}
		sl.index(walkPath)
		return nil
	})
}

func (sl *ShaderLibrary) index(path string) bool {
	name, ok := sl.nameOf(path)
	if !ok {
		return false
	}
	sl.mutex.Lock()
	sl.shaders[name] = ShaderInfo{Path: path}
	sl.mutex.Unlock()
	return true
}

func (sl *ShaderLibrary) forget(path string) bool {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	removed := false
	prefix := path + string(filepath.Separator)
	for name, info := range sl.shaders {
		if info.Path == path || strings.HasPrefix(info.Path, prefix) {
			delete(sl.shaders, name)
			removed = true
		}
	}
	return removed
}

func (sl *ShaderLibrary) nameOf(path string) (string, bool) {
	if filepath.Ext(path) != shaderExt {
		return "", false
	}
	rel, err := filepath.Rel(sl.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, shaderExt)), true
}
