// Command cameractl enrolls a camera with the verifier: it uploads the
// device's exported RSA public key to the admin API. The admin secret is
// prompted without echo and exchanged for a short-lived bearer token.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/verifier/auth"
	"golang.org/x/term"
)

func main() {
	server := flag.String("s", "http://127.0.0.1:8080", "verifier base URL")
	number := flag.String("n", "", "camera number to enroll")
	keyPath := flag.String("f", "", "path to the PEM public key")
	flag.Parse()

	if *number == "" || *keyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: cameractl -n <camera-number> -f <public-key.pem> [-s <server>]")
		os.Exit(2)
	}

	if err := run(*server, *number, *keyPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(server, number, keyPath string) error {
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return err
	}

	// Fail locally before bothering the server.
	if _, err := envelope.ParsePublicKeyPEM(pemBytes); err != nil {
		return fmt.Errorf("%s is not an rsa public key: %w", keyPath, err)
	}

	fmt.Print("Admin secret: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken("cameractl", secret, 5*time.Minute)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/cameras/%s", server, number)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(pemBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-pem-file")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server answered %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	fmt.Printf("camera %s enrolled\n", number)
	return nil
}
