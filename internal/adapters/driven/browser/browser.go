// Package browser shows the authorization page to the user.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"

	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.UserAgent = (*Browser)(nil)
	_ driven.UserAgent = (*Printer)(nil)
)

// ErrNoBrowser is returned when neither open-golang nor a platform command could open the URL.
var ErrNoBrowser = errors.New("no browser available")

var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// Browser opens URLs in the system browser.
type Browser struct {
	open     func(string) error
	fallback func(ctx context.Context, url string) error
	logger   *slog.Logger
}

// New creates a Browser that tries open-golang and then platform commands.
func New(logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{open: open.Run, fallback: openPlatformSpecific, logger: logger}
}

// Open launches the browser. It returns once the launcher has started, not when the page loads.
func (b *Browser) Open(ctx context.Context, url string) error {
	err := b.open(url)
	if err == nil {
		return nil
	}
	b.logger.Debug("open-golang failed, trying platform command", "error", err)

	if ferr := b.fallback(ctx, url); ferr != nil {
		return fmt.Errorf("%w: %w", ErrNoBrowser, ferr)
	}
	return nil
}

// openPlatformSpecific starts the launcher without waiting for it. The command
// is not bound to ctx: the browser must outlive the request that opened it.
func openPlatformSpecific(_ context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, name := range linuxBrowsers {
			if path, err := exec.LookPath(name); err == nil {
				cmd = exec.Command(path, url)
				break
			}
		}
		if cmd == nil {
			return errors.New("no browser command found in PATH")
		}
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the launcher so it does not linger as a zombie
	go func() { _ = cmd.Wait() }()
	return nil
}

// Printer is a UserAgent for headless hosts: it writes the URL for the user to open.
type Printer struct {
	w      io.Writer
	logger *slog.Logger
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Printer{w: w, logger: logger}
}

func (p *Printer) Open(_ context.Context, url string) error {
	if _, err := fmt.Fprintf(p.w, "Open this URL to connect your account:\n\n  %s\n\n", url); err != nil {
		return fmt.Errorf("print authorization url: %w", err)
	}
	p.logger.Info("authorization url printed")
	return nil
}
