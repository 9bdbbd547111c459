// Package browser opens committee pages in the desktop browser of the
// machine running the server.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Commander starts an external program
type Commander interface {
	Start(name string, args ...string) error
}

// ExecCommander starts programs with os/exec
type ExecCommander struct{}

// Start launches the program without waiting for it
func (ExecCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Opener launches URLs with the platform's URL handler
type Opener struct {
	commander Commander
	goos      string
}

// NewOpener returns an Opener for the running platform
func NewOpener() *Opener {
	return &Opener{commander: ExecCommander{}, goos: runtime.GOOS}
}

// NewOpenerFor returns an Opener that pretends to run on goos
func NewOpenerFor(commander Commander, goos string) *Opener {
	return &Opener{commander: commander, goos: goos}
}

// Open launches rawURL. Only absolute http and https URLs are accepted.
func (o *Opener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}

	name, args, err := command(o.goos, u.String())
	if err != nil {
		return err
	}
	return o.commander.Start(name, args...)
}

func command(goos, target string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "darwin":
		return "open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	}
	return "", nil, fmt.Errorf("unsupported platform: %s", goos)
}
