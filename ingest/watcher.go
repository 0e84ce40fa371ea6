package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/clearpath/clearpath/errs"
)

// DefaultDebounce is how long a PDF must stay quiet before it is
// ingested; uploads arrive as bursts of write events.
const DefaultDebounce = 2 * time.Second

// Watcher auto-ingests PDFs dropped into a directory.
type Watcher struct {
	dir      string
	service  *Service
	debounce time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher watches dir for new or rewritten *.pdf files.
func NewWatcher(dir string, service *Service, log zerolog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		service:  service,
		debounce: DefaultDebounce,
		log:      log,
		timers:   make(map[string]*time.Timer),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Internal("create fs watcher", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return errs.Internal("watch pdf dir", err)
	}
	w.log.Info().Str("dir", w.dir).Msg("watching for new PDFs")

	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".pdf" {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("fs watcher error")
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.service.IngestPDF(ctx, path); err != nil {
			w.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("auto-ingest failed")
		}
	})
}

func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
