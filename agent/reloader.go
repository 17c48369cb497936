package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nstehr/skirmish/content"
	"github.com/nstehr/skirmish/rules"
)

// Source builds a fresh catalog from wherever content lives.
type Source func(ctx context.Context) (*content.Catalog, error)

// DirSource reads the YAML definitions under dir. When store is non-nil
// they are imported into it first and the catalog is built from the
// store. Deleting a file does not delete its definitions from the store.
func DirSource(dir string, store *content.SQLiteStore) Source {
	return func(ctx context.Context) (*content.Catalog, error) {
		mem, err := content.LoadDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return content.Build(ctx, mem)
		}
		if _, err := store.Import(ctx, mem); err != nil {
			return nil, err
		}
		return content.Build(ctx, store)
	}
}

// Reloader runs in the background and swaps the runtime's catalog or
// doctrine whenever the files behind them change. A reload that fails
// keeps the previous catalog in service.
type Reloader struct {
	rt       *Runtime
	source   Source
	doctrine string // cleaned path, empty when no doctrine file is used
}

func NewReloader(rt *Runtime, source Source, doctrineFile string) *Reloader {
	if doctrineFile != "" {
		doctrineFile = filepath.Clean(doctrineFile)
	}
	return &Reloader{rt: rt, source: source, doctrine: doctrineFile}
}

// Reload rebuilds the catalog and swaps it in.
func (r *Reloader) Reload(ctx context.Context) error {
	cat, err := r.source(ctx)
	if err != nil {
		return fmt.Errorf("reload content: %w", err)
	}
	r.rt.Swap(cat)
	return nil
}

// ReloadDoctrine recompiles the doctrine file into the rule engine.
func (r *Reloader) ReloadDoctrine() error {
	if r.doctrine == "" {
		return nil
	}
	if r.rt.Doctrine == nil {
		return fmt.Errorf("doctrine %s: no rule engine", r.doctrine)
	}
	d, err := LoadDoctrine(r.doctrine)
	if err != nil {
		return err
	}
	if err := r.rt.Doctrine.Swap(rules.CompileDoctrine(d)); err != nil {
		return fmt.Errorf("doctrine %s: %w", r.doctrine, err)
	}
	slog.Info("doctrine loaded",
		"name", d.Name,
		"aggression", d.Aggression,
		"focusFire", d.FocusFire,
		"selfPreservation", d.SelfPreservation,
		"support", d.Support,
		"thrift", d.Thrift,
		"teamwork", d.Teamwork)
	return nil
}

// Start consumes w's events until ctx is cancelled or w closes.
func (r *Reloader) Start(ctx context.Context, w *content.Watcher) {
	slog.Info("content reloader started", "doctrine", r.doctrine)
	for {
		select {
		case <-ctx.Done():
			slog.Info("content reloader stopped")
			return
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			r.changed(ctx, path)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("content watcher error", "error", err)
		}
	}
}

func (r *Reloader) changed(ctx context.Context, path string) {
	if r.doctrine != "" && filepath.Clean(path) == r.doctrine {
		if err := r.ReloadDoctrine(); err != nil {
			slog.Error("doctrine reload failed", "path", path, "error", err)
		}
		return
	}
	slog.Debug("content changed", "path", path)
	if err := r.Reload(ctx); err != nil {
		slog.Error("content reload failed", "path", path, "error", err)
	}
}

// LoadDoctrine reads a YAML doctrine file.
func LoadDoctrine(path string) (rules.Doctrine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Doctrine{}, fmt.Errorf("read doctrine: %w", err)
	}
	return rules.ParseDoctrine(data)
}
