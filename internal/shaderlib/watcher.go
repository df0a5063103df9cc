package shaderlib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"Gopher3DCore/internal/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const chunkExt = ".glsl"

// LoadFile reads one override file into the library. A file containing
// "// @chunk" markers may define several chunks; otherwise the file name
// without extension names the chunk. It returns how many chunks changed.
func (l *Library) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read chunk %s: %w", path, err)
	}
	src := string(data)
	chunks := ParseChunks(src)
	if len(chunks) == 0 {
		name := strings.TrimSuffix(filepath.Base(path), chunkExt)
		chunks = map[string]string{name: src}
	}
	changed := 0
	for name, body := range chunks {
		if l.SetChunk(name, body) {
			changed++
		}
	}
	return changed, nil
}

// LoadDir applies every *.glsl file in dir as an override.
func (l *Library) LoadDir(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+chunkExt))
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	total := 0
	for _, m := range matches {
		n, err := l.LoadFile(m)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Watcher reloads chunk overrides from a directory whenever a file in it is
// written or created.
type Watcher struct {
	lib     *Library
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	onLoad  func(revision uint64)
}

// Watch loads dir into lib and starts watching it. onReload may be nil; it is
// called from the watcher goroutine after a reload changed at least one chunk.
func Watch(lib *Library, dir string, onReload func(revision uint64)) (*Watcher, error) {
	if _, err := lib.LoadDir(dir); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{lib: lib, dir: dir, watcher: fw, done: make(chan struct{}), onLoad: onReload}
	w.wg.Add(1)
	go w.loop()
	logger.Log.Info("Watching shader chunks", zap.String("dir", dir))
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != chunkExt {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("Shader watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(path string) {
	n, err := w.lib.LoadFile(path)
	if err != nil {
		logger.Log.Warn("Failed to reload shader chunk", zap.String("path", path), zap.Error(err))
		return
	}
	if n == 0 {
		return
	}
	rev := w.lib.Revision()
	logger.Log.Info("Reloaded shader chunk",
		zap.String("path", path),
		zap.Int("chunks", n),
		zap.Uint64("revision", rev))
	if w.onLoad != nil {
		w.onLoad(rev)
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
