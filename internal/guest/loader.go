package guest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/orgcreds-wasm/internal/wasm"
)

// Loader handles loading guests from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new guest loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "guest-loader")),
	}
}

// LoadGuest loads a single guest from a directory and runs the static ABI
// checks. A guest that fails them is still returned; callers decide what to
// do with a non-conforming guest.
func (l *Loader) LoadGuest(ctx context.Context, dir string) (*Guest, error) {
	l.logger.Debug("Loading guest", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading guest",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.String("abi_version", manifest.ABIVersion),
	)

	// Cache compiled modules by guest name so instances can be created by name.
	compiled, err := l.moduleLoader.LoadModule(ctx, &wasm.FileModuleSource{
		Path:       manifest.WasmPath(),
		ModuleName: manifest.Name,
	})
	if err != nil {
		return nil, &LoadError{
			GuestName: manifest.Name,
			Err:       err,
		}
	}

	g := &Guest{
		Manifest: manifest,
		Compiled: compiled,
		Checks:   wasm.CheckABI(compiled),
		LoadedAt: time.Now(),
	}

	if !g.Conforms() {
		l.logger.Warn("Guest does not conform to the boundary ABI",
			zap.String("name", manifest.Name),
		)
	}

	l.logger.Info("Guest loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
		zap.Bool("conforms", g.Conforms()),
	)

	return g, nil
}

// DiscoverGuests scans directories for guests.
func (l *Loader) DiscoverGuests(ctx context.Context, paths []string) ([]*Guest, error) {
	var guests []*Guest
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning guest directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Guest path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			guestDir := filepath.Join(basePath, entry.Name())

			g, err := l.LoadGuest(ctx, guestDir)
			if err != nil {
				l.logger.Error("Failed to load guest",
					zap.String("dir", guestDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			guests = append(guests, g)
		}
	}

	if len(guests) > 0 && len(errs) > 0 {
		l.logger.Warn("Some guests failed to load",
			zap.Int("loaded", len(guests)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(guests) == 0 {
		return nil, &NoGuestsFoundError{Paths: paths}
	}

	return guests, nil
}
