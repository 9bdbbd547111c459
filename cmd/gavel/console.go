package main

import (
	"fmt"
	"strings"

	"github.com/abrezinsky/gavel/internal/browser"
	"github.com/abrezinsky/gavel/internal/logger"
)

// console turns single key presses into server actions
type console struct {
	pageURL string
	log     *logger.SlogLogger
	opener  *browser.Opener
	quit    func()
}

func newConsole(pageURL string, log *logger.SlogLogger, quit func()) *console {
	return &console{pageURL: pageURL, log: log, opener: browser.NewOpener(), quit: quit}
}

// handle runs the action bound to key and reports whether to stop listening
func (c *console) handle(key byte) bool {
	switch strings.ToLower(string(key)) {
	case "o":
		fmt.Printf("%sOpening %s in browser...%s\n", cyan, c.pageURL, reset)
		if err := c.opener.Open(c.pageURL); err != nil {
			fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		cycleLogLevel(c.log)
	case "?":
		printKeyboardHelp()
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		fmt.Printf("%sShutting down server...%s\n", yellow, reset)
		c.quit()
		return true
	}
	return false
}
