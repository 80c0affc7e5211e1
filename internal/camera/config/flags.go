package config

import (
	"flag"
	"os"
	"time"

	"github.com/photolock/photolock/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-n string   camera number stamped into signed records
//	-q string   queue root directory
//	-a string   upload probe URL
//	-i int      drain interval in seconds
//	-o int      connectivity probe interval in seconds
//	-k string   TPM persistent key handle
//	-l string   local PEM key path (development signer)
//	-g string   GPS serial device
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-n", "-q", "-a", "-i", "-o", "-k", "-l", "-g", "-u", "-p", "-b", "-r", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.CameraNumber, "n", cfg.CameraNumber, "camera number")
	fs.StringVar(&cfg.QueueRoot, "q", cfg.QueueRoot, "queue root directory")
	fs.StringVar(&cfg.UploadURL, "a", cfg.UploadURL, "upload probe URL")

	drainInterval := fs.Int("i", int(cfg.DrainInterval.Seconds()), "queue drain interval (in seconds)")
	probeInterval := fs.Int("o", int(cfg.ProbeInterval.Seconds()), "connectivity probe interval (in seconds)")

	fs.StringVar(&cfg.TPMKeyHandle, "k", cfg.TPMKeyHandle, "TPM persistent key handle")
	fs.StringVar(&cfg.LocalKeyPath, "l", cfg.LocalKeyPath, "local PEM key path")
	fs.StringVar(&cfg.GPSDevice, "g", cfg.GPSDevice, "GPS serial device")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "r", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DrainInterval = time.Duration(*drainInterval) * time.Second
	cfg.ProbeInterval = time.Duration(*probeInterval) * time.Second
}
