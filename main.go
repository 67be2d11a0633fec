package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/joho/godotenv/autoload"
	"github.com/meza/manifest-fetcher/cmd/mfetch"
	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/lifecycle"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

const (
	perfLifecycleStartup  = "app.lifecycle.startup"
	perfLifecycleExecute  = "app.lifecycle.execute"
	perfLifecycleShutdown = "app.lifecycle.shutdown"
)

type shutdownTrigger string

const (
	shutdownTriggerExit   shutdownTrigger = "exit"
	shutdownTriggerSignal shutdownTrigger = "signal"
)

type runDeps struct {
	execute    func(ctx context.Context) error
	register   func(lifecycle.Handler) lifecycle.HandlerID
	unregister func(lifecycle.HandlerID)
	args       []string
	fs         afero.Fs
	cwd        string
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	os.Exit(runWithDeps(runDeps{
		execute: func(ctx context.Context) error {
			return mfetch.Command().ExecuteContext(ctx)
		},
		register:   lifecycle.Register,
		unregister: lifecycle.Unregister,
		args:       os.Args[1:],
		fs:         afero.NewOsFs(),
		cwd:        cwd,
	}))
}

func runWithDeps(deps runDeps) int {
	exportCfg := perfExportConfigFromArgs(deps.args, deps.cwd)
	if err := perf.Init(perf.Config{Enabled: exportCfg.enabled}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: perf disabled: %v\n", constants.CommandName, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, startup := perf.StartSpan(ctx, perfLifecycleStartup)
	var shutdownOnce sync.Once
	shutdown := func(trigger shutdownTrigger, attrs ...attribute.KeyValue) {
		shutdownOnce.Do(func() {
			_, span := perf.StartSpan(context.Background(), perfLifecycleShutdown,
				perf.WithAttributes(append([]attribute.KeyValue{attribute.String("trigger", string(trigger))}, attrs...)...))
			span.End()
			exportPerf(deps.fs, exportCfg)
		})
	}
	id := deps.register(func(sig os.Signal) {
		cancel()
		shutdown(shutdownTriggerSignal, attribute.String("signal", sig.String()))
	})
	defer deps.unregister(id)
	startup.End()

	execCtx, execute := perf.StartSpan(ctx, perfLifecycleExecute)
	err := deps.execute(execCtx)
	execute.SetAttributes(attribute.Bool("success", err == nil))
	execute.End()

	shutdown(shutdownTriggerExit)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

type perfExportConfig struct {
	enabled bool
	debug   bool
	baseDir string
	outDir  string
}

// perfExportConfigFromArgs reads the flags that matter before cobra parses anything. The export
// lands next to the config file unless --perf-out-dir says otherwise.
func perfExportConfigFromArgs(args []string, cwd string) perfExportConfig {
	cfg := perfExportConfig{}
	configPath := constants.DefaultConfigFile
	perfOutDir := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--perf":
			cfg.enabled = true
		case arg == "--debug":
			cfg.debug = true
		case arg == "--config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--perf-out-dir" && i+1 < len(args):
			perfOutDir = args[i+1]
			i++
		case strings.HasPrefix(arg, "--perf-out-dir="):
			perfOutDir = strings.TrimPrefix(arg, "--perf-out-dir=")
		}
	}

	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(cwd, configPath)
	}
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	cfg.baseDir = filepath.Dir(configPath)
	cfg.outDir = cfg.baseDir
	if perfOutDir != "" {
		if filepath.IsAbs(perfOutDir) {
			cfg.outDir = perfOutDir
		} else {
			cfg.outDir = filepath.Join(cfg.baseDir, perfOutDir)
		}
	}
	return cfg
}

func exportPerf(fs afero.Fs, cfg perfExportConfig) {
	if !cfg.enabled || !perf.Enabled() || fs == nil {
		return
	}
	if err := perf.Shutdown(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: perf flush failed: %v\n", constants.CommandName, err)
	}
	spans, err := perf.GetSpans()
	if err != nil {
		return
	}
	path, err := perf.ExportToFile(fs, cfg.outDir, spans)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: perf export failed: %v\n", constants.CommandName, err)
		return
	}
	if cfg.debug {
		_, _ = fmt.Fprintf(os.Stderr, "%s: perf written to %s\n", constants.CommandName, path)
	}
}
