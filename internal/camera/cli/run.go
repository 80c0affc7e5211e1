package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/photolock/photolock/internal/camera/biometric"
	"github.com/photolock/photolock/internal/camera/session"
)

// Run drives the REPL from stdin until EOF or an exit command. Simulated
// fingerprint matches are offered to the channel scanner; a refused offer
// means the authentication monitor is not listening.
func Run(ctx context.Context, c *session.Controller, scanner *biometric.ChanScanner) {
	runREPL(ctx, c, scanner.Offer, bufio.NewScanner(os.Stdin))
}
