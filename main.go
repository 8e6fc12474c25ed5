package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/qlabel/config"
	"github.com/ByLCY/qlabel/designer"
	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/logging"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	input := flag.String("in", "label.yaml", "label request file")
	output := flag.String("out", "label.png", "preview output path")
	format := flag.String("format", designer.FormatPNG, "preview format: png, base64 or pdf")
	debug := flag.String("debug", "", "layout debug JSON output path (- for stdout)")
	doPrint := flag.Bool("print", false, "print the label instead of writing a preview")
	doStatus := flag.Bool("status", false, "print the printer status as JSON")
	watch := flag.Bool("watch", false, "re-render the preview whenever the request file changes")
	offline := flag.Bool("offline", false, "never talk to the printer")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *offline {
		cfg.Printer.Offline = true
	}
	logging.SetLogger(logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openFonts(ctx, cfg)
	if err != nil {
		log.Fatalf("load fonts: %v", err)
	}
	svc, err := designer.NewService(cfg, store)
	if err != nil {
		log.Fatalf("create service: %v", err)
	}

	switch {
	case *doStatus:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(svc.ProbeStatus(ctx)); err != nil {
			log.Fatalf("write status: %v", err)
		}
	case *doPrint:
		if err := printLabel(ctx, svc, *input); err != nil {
			log.Fatalf("print: %v", err)
		}
		fmt.Println("label sent to printer")
	default:
		if err := preview(svc, *input, *output, *format, *debug); err != nil {
			log.Fatalf("render preview: %v", err)
		}
		fmt.Printf("preview written to %s\n", *output)
		if *watch {
			if err := watchRequest(ctx, *input, func() error {
				return preview(svc, *input, *output, *format, *debug)
			}); err != nil && !errors.Is(err, context.Canceled) {
				log.Fatalf("watch: %v", err)
			}
		}
	}
}

// openFonts builds the font registry and, when configured, keeps it in sync
// with the font folders until ctx ends.
func openFonts(ctx context.Context, cfg config.Config) (*fonts.Store, error) {
	opts := cfg.FontOptions()
	reg, err := fonts.NewRegistry(opts)
	if err != nil {
		return nil, err
	}
	store := fonts.NewStore(reg)
	if cfg.Fonts.Watch && len(opts.Dirs) > 0 {
		w, err := fonts.NewWatcher(store, opts)
		if err != nil {
			logging.Logger().Warn("font folders not watched", "err", err)
			return store, nil
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Logger().Error("font watcher stopped", "err", err)
			}
		}()
	}
	return store, nil
}

// preview renders the request at inputPath to outputPath.
func preview(svc *designer.Service, inputPath, outputPath, format, debugPath string) error {
	req, err := designer.LoadRequest(inputPath)
	if err != nil {
		return err
	}
	if debugPath != "" {
		res, err := svc.Layout(req)
		if err != nil {
			return fmt.Errorf("layout: %w", err)
		}
		if err := writeDebug(res, debugPath); err != nil {
			return err
		}
	}
	data, _, err := svc.RenderPreview(req, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

func printLabel(ctx context.Context, svc *designer.Service, inputPath string) error {
	req, err := designer.LoadRequest(inputPath)
	if err != nil {
		return err
	}
	ok, err := svc.Print(ctx, req)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("printer did not confirm the job")
	}
	return nil
}

func writeDebug(res *layout.Result, debugPath string) error {
	if debugPath != "-" {
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
	}
	if err := layout.WriteDebugJSON(res, debugPath); err != nil {
		return fmt.Errorf("write debug JSON: %w", err)
	}
	return nil
}

// watchRequest calls render after every change to path. Editors often
// replace files instead of writing them, so the parent directory is watched.
func watchRequest(ctx context.Context, path string, render func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger := logging.Logger().With("file", abs)
	logger.Info("watching request")

	const debounce = 200 * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-fire:
			fire = nil
			if err := render(); err != nil {
				logger.Error("render failed", "err", err)
				continue
			}
			logger.Info("preview updated")
		}
	}
}
