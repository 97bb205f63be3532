// Package harness runs the boundary conformance checks over configured guests.
package harness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
	"github.com/woxQAQ/orgcreds-wasm/internal/config"
	"github.com/woxQAQ/orgcreds-wasm/internal/credentials"
	"github.com/woxQAQ/orgcreds-wasm/internal/guest"
	"github.com/woxQAQ/orgcreds-wasm/internal/wasm"
	"github.com/woxQAQ/orgcreds-wasm/pkg/report"
)

type Harness struct {
	cfg         *config.HarnessConfig
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	loader      *wasm.ModuleLoader
	instances   *wasm.InstanceManager
	guests      *guest.Manager
}

func NewHarness(ctx context.Context, cfg *config.HarnessConfig, logger *zap.Logger) (*Harness, error) {
	creds, err := NewCredentialSource(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: cfg.Wasm.Timeout(),
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	hostFuncs := wasm.NewHostFunctions(logger, creds)

	logger.Info("Harness initialized",
		zap.Strings("guest_paths", cfg.GuestPaths),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
	)

	return &Harness{
		cfg:         cfg,
		logger:      logger,
		wasmRuntime: wasmRuntime,
		loader:      wasm.NewModuleLoader(wasmRuntime, logger),
		instances:   wasm.NewInstanceManager(wasmRuntime, hostFuncs, logger),
		guests:      guest.NewManager(cfg.GuestPaths, wasmRuntime, hostFuncs, logger),
	}, nil
}

// NewCredentialSource builds the source served to guests. An org file takes
// precedence over inline values; a configured instance URL overrides
// whatever the base source reports.
func NewCredentialSource(cfg config.CredentialsConfig) (abi.CredentialSource, error) {
	var base abi.CredentialSource
	if cfg.OrgFile != "" {
		org, err := credentials.LoadOrgFile(cfg.OrgFile)
		if err != nil {
			return nil, err
		}
		base = org
	} else {
		base = &credentials.Static{Token: cfg.AccessToken}
	}
	return credentials.Override(base, cfg.InstanceURL), nil
}

// Run loads every guest under the configured paths and checks each one.
func (h *Harness) Run(ctx context.Context) (*report.Report, error) {
	if !h.guests.IsLoaded() {
		if err := h.guests.LoadAll(ctx); err != nil {
			return nil, err
		}
	}

	rep := newReport()
	for _, g := range h.guests.Registry().List() {
		gr := h.check(ctx, g.Compiled, g.Checks)
		gr.Version = g.Version()
		gr.ABIVersion = g.ABIVersion()
		rep.Guests = append(rep.Guests, gr)
	}

	h.logger.Info("Harness run complete",
		zap.Int("guests", len(rep.Guests)),
		zap.Bool("passed", rep.Passed()),
	)

	return rep, nil
}

// CheckFile checks a single Wasm file that has no manifest.
func (h *Harness) CheckFile(ctx context.Context, path string) (*report.Report, error) {
	compiled, err := h.loader.LoadModule(ctx, &wasm.FileModuleSource{Path: path})
	if err != nil {
		return nil, err
	}

	rep := newReport()
	rep.Guests = append(rep.Guests, h.check(ctx, compiled, wasm.CheckABI(compiled)))
	return rep, nil
}

// check records the static checks and, when they all pass, probes a live
// instance. Dynamic checks are skipped for guests that fail statically.
func (h *Harness) check(ctx context.Context, compiled *wasm.CompiledModule, static []wasm.Check) report.GuestReport {
	gr := report.GuestReport{
		Name:   compiled.Name,
		Source: compiled.Source,
		Digest: compiled.Digest,
	}

	conforms := true
	for _, c := range static {
		gr.Checks = append(gr.Checks, result(c, report.KindStatic))
		conforms = conforms && c.Passed()
	}

	if !conforms {
		gr.Checks = append(gr.Checks, report.CheckResult{
			Name:    "probe",
			Kind:    report.KindDynamic,
			Status:  report.StatusSkip,
			Message: "static checks failed",
		})
		return gr
	}

	inst, err := h.instances.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: compiled.Name})
	if err != nil {
		gr.Checks = append(gr.Checks, result(wasm.Check{Name: "instantiate", Err: err}, report.KindDynamic))
		return gr
	}
	defer func() {
		if err := inst.Close(ctx); err != nil {
			h.logger.Warn("Failed to close instance", zap.String("instance_id", inst.ID), zap.Error(err))
		}
	}()

	for _, c := range wasm.ProbeAllocator(ctx, inst, h.cfg.Probe.Sizes) {
		gr.Checks = append(gr.Checks, result(c, report.KindDynamic))
	}

	return gr
}

func result(c wasm.Check, kind report.Kind) report.CheckResult {
	r := report.CheckResult{Name: c.Name, Kind: kind, Status: report.StatusPass}
	if !c.Passed() {
		r.Status = report.StatusFail
		r.Message = c.Err.Error()
	}
	return r
}

func newReport() *report.Report {
	return &report.Report{
		ABIVersion:  abi.ABIVersion,
		GeneratedAt: time.Now().UTC(),
	}
}

// Close gracefully shuts down the harness.
func (h *Harness) Close(ctx context.Context) error {
	h.logger.Info("Shutting down harness")

	if err := h.guests.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown guests", zap.Error(err))
		return err
	}

	h.logger.Info("Harness shutdown complete")
	return nil
}
