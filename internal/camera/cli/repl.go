// Package cli is the interactive control surface of the camera unit. On the
// physical device the buttons drive the session controller directly; on a
// development rig the same operations are issued from this read-eval-print
// loop, including fingerprint matches fed into the channel scanner.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/photolock/photolock/internal/camera/session"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// controlIface defines the minimal command surface the REPL needs to operate.
// The real session.Controller satisfies this interface; tests can provide a
// lightweight stub.
type controlIface interface {
	Status() session.Status
	ToggleMode() error
	CaptureStill(ctx context.Context) error
	StartVideo(ctx context.Context) error
	StopVideo(ctx context.Context) error
	SignOut()
}

// runREPL starts a simple read-eval-print loop for the camera unit.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'c'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//	help           — show available commands
//	auth <slot>    — simulate a fingerprint match on the given slot
//	capture        — take a still image (image mode only)
//	record         — start a video recording (video mode only)
//	stop           — stop the running recording
//	mode           — toggle between image and video mode
//	status         — print the session snapshot
//	signout        — clear the session
//	exit | quit    — leave the program
//
// Errors returned by command handlers are printed and the loop continues,
// keeping the REPL resilient and focused on I/O.
func runREPL(ctx context.Context, c controlIface, offerMatch func(int) bool, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cam> %s > ", statusLine(c.Status())))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: auth <slot>, capture, record, stop, mode, status, signout, exit")

		case "auth":
			if len(args) == 0 {
				printlnFn("Usage: auth <slot>")
				continue
			}
			slot, err := strconv.Atoi(args[0])
			if err != nil {
				printlnFn("Slot must be an integer:", args[0])
				continue
			}
			if !offerMatch(slot) {
				printlnFn("Scanner busy; already authenticated?")
			}

		case "capture":
			report(c.CaptureStill(ctx))

		case "record":
			report(c.StartVideo(ctx))

		case "stop":
			report(c.StopVideo(ctx))

		case "mode":
			report(c.ToggleMode())

		case "status":
			printlnFn(statusLine(c.Status()))

		case "signout":
			c.SignOut()

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	if err != nil {
		printlnFn("Error:", err.Error())
	}
}

func statusLine(st session.Status) string {
	identity := st.Identity
	if identity == "" {
		identity = "locked"
	}

	mode := "image"
	if st.VideoMode {
		mode = "video"
	}

	link := "offline"
	if st.Online {
		link = "online"
	}

	fix := "no fix"
	if st.GPSFix {
		fix = "fix"
	}

	s := fmt.Sprintf("%s | %s | %s | %s | taken %d", identity, mode, link, fix, st.MediaTaken)
	if st.Recording {
		s += " | REC"
	}
	return s
}
