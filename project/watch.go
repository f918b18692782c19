package project

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jshufro/componentgen/script"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 200 * time.Millisecond

var watchedExt = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".did":  true,
}

// watchDirs lists the project root, the interfaces directory and every
// directory holding a manifest.
func (a *Assembler) watchDirs() []string {
	seen := map[string]bool{}
	dirs := []string{}
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	add(a.project.Dir())
	add(a.project.Path(InterfacesDir))
	for i := range a.project.Components {
		add(filepath.Dir(a.project.ManifestPath(i)))
	}
	return dirs
}

// Watch runs the project, then runs it again whenever a manifest, the
// project file, the id table or an interface file changes. Generation
// failures are logged and do not stop watching. Watch returns when ctx is
// done.
func (a *Assembler) Watch(ctx context.Context, network script.Network, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := map[string]bool{}
	rewatch := func() {
		for _, dir := range a.watchDirs() {
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				a.logger.Debug("not watching", zap.String("dir", dir), zap.Error(err))
				continue
			}
			watched[dir] = true
		}
	}
	rewatch()

	runOnce := func() {
		if err := a.Run(ctx, network); err != nil {
			a.logger.Error("generation failed", zap.String("network", string(network)), zap.Error(err))
			return
		}
		a.logger.Info("project generated", zap.String("network", string(network)))
	}
	runOnce()

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	interfaces := filepath.Clean(a.project.Path(InterfacesDir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", zap.Error(err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watchedExt[filepath.Ext(ev.Name)] || ev.Op == fsnotify.Chmod {
				continue
			}
			if filepath.Dir(ev.Name) == interfaces {
				a.interfaces.Invalidate(filepath.Base(ev.Name))
			}
			a.logger.Debug("change", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(debounce)
		case <-timer.C:
			if err := a.reload(a.project.Dir()); err != nil {
				a.logger.Error("error reloading project", zap.Error(err))
				continue
			}
			rewatch()
			runOnce()
		}
	}
}
