// Package media hands record links to the desktop's opener.
package media

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/validation"
)

type Launcher struct {
	command []string
	urls    *validation.URLValidator
	start   func(*exec.Cmd) error
}

// NewLauncher uses ui.open_command when set, the platform opener otherwise.
// The command may carry arguments; the URL is appended last.
func NewLauncher(cfg *config.Config) *Launcher {
	command := strings.Fields(cfg.UI.OpenCommand)
	if len(command) == 0 {
		command = defaultOpener(runtime.GOOS)
	}
	return &Launcher{
		command: command,
		urls:    validation.NewPermissiveURLValidator(),
		start:   startDetached,
	}
}

// Command is the opener without the URL.
func (l *Launcher) Command() []string {
	return append([]string(nil), l.command...)
}

func (l *Launcher) Open(rawURL string) error {
	if len(l.command) == 0 {
		return fmt.Errorf("no application found to open URL")
	}
	u, err := l.urls.ValidateAndNormalize(rawURL)
	if err != nil {
		return fmt.Errorf("refusing to open %q: %w", rawURL, err)
	}

	args := append(l.command[1:len(l.command):len(l.command)], u)
	cmd := exec.Command(l.command[0], args...)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.command[0], err)
	}
	debuglog.Debugf("opened %s with %s", u, l.command[0])
	return nil
}

func defaultOpener(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

// startDetached starts GUI applications without waiting on them.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
