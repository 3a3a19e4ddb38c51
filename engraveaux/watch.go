package engraveaux

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soypat/engrave"
)

// Watch calls fn once and then again every time one of files is written or
// recreated, until ctx is done. Bursts of events within debounce coalesce into
// a single call. Errors returned by fn are logged and do not stop watching.
func Watch(ctx context.Context, files []string, debounce time.Duration, fn func() error) error {
	if len(files) == 0 {
		return errors.New("no files to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Editors replace files on save, so directories are watched and events filtered by name.
	watched := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
		err = w.Add(filepath.Dir(abs))
		if err != nil {
			return err
		}
	}
	log := engrave.Logger()
	run := func() {
		start := time.Now()
		err := fn()
		if err != nil {
			log.Error("watch callback failed", "err", err)
			return
		}
		log.Info("rebuilt", "elapsed", time.Since(start))
	}
	run()
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(e.Name)
			if !watched[abs] || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("file changed", "file", e.Name, "op", e.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher", "err", err)
		case <-timer.C:
			run()
		}
	}
}
