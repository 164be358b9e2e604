package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/moodflix/internal/app"
	"github.com/ayusman/moodflix/internal/config"
	"github.com/ayusman/moodflix/internal/detector"
	"github.com/ayusman/moodflix/internal/log"
	"github.com/ayusman/moodflix/internal/server"
	"github.com/ayusman/moodflix/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error(context.Background(), "moodflix exited", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting moodflix", "addr", cfg.Addr, "camera", cfg.CameraID, "tick", cfg.TickInterval)

	a := app.New(app.Config{
		CameraID:     cfg.CameraID,
		TickInterval: cfg.TickInterval,
		HookDir:      cfg.HookDir,
		HookTimeout:  cfg.HookTimeout,
		Detector: detector.Config{
			InputSize:      cfg.InputSize,
			ScoreThreshold: cfg.ScoreThreshold,
			Script:         cfg.DetectorScript,
		},
	})
	if err := a.DiscoverHooks(); err != nil {
		log.Warn(ctx, "some hooks could not be loaded", "dir", cfg.HookDir, "err", err)
	}
	log.Info(ctx, "hooks loaded", "count", len(a.HookManager().List()))

	// The page reports a camera failure from the mood state, so keep serving.
	if err := a.Start(); err != nil {
		log.Error(ctx, "camera unavailable", "camera", cfg.CameraID, "err", err)
	}
	defer a.Stop()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Info(ctx, "serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{App: a, StaticDir: webDir})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "http server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Tray {
		runTray(gctx, g, a, stop, pageURL(cfg.Addr))
	}

	err = g.Wait()
	log.Info(context.Background(), "shutting down")
	return err
}

// runTray blocks on the tray loop, which has to own the main goroutine.
func runTray(ctx context.Context, g *errgroup.Group, a *app.App, quit func(), url string) {
	t := tray.New()
	t.SetMood(a.Mood().Label())
	t.Follow(a.IsEnabled)
	t.OnToggle(a.SetEnabled)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Warn(ctx, "could not open browser", "url", url, "err", err)
		}
	})
	t.OnQuit(quit)

	unsubscribe := a.Subscribe(func(ev app.MoodEvent) {
		t.SetMood(ev.Label)
	})
	defer unsubscribe()

	g.Go(func() error {
		<-ctx.Done()
		t.Quit()
		return nil
	})

	t.Run()
}

// pageURL turns a listen address into a browsable URL.
func pageURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.moodflix/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
