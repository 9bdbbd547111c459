//go:build windows

package main

import "os"

// listenForKeyboard reads key presses from the console. Windows keeps line
// buffering, so each key needs Enter.
func listenForKeyboard(c *console) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 1 && c.handle(buf[0]) {
			return
		}
	}
}
