// Package config handles configuration for the camera unit, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the camera unit.
//
// Fields:
//   - CameraNumber: identifier stamped into every signed record.
//   - QueueRoot: directory holding the pending media directories.
//   - UploadURL: connectivity probe target; a 200 response means online.
//   - DrainInterval / ProbeInterval: background loop cadences.
//   - MaxUploadAttempts: bound on retries for an immediate upload.
//   - TPMKeyHandle: persistent handle of the signing key ("0x81000001").
//     When LocalKeyPath is set instead, signing runs in process from a
//     PEM key; meant for rigs without a TPM.
//   - GPSDevice / GPSReadTimeout: serial receiver path and fix deadline.
//   - VideoDevice / AudioDevice: capture device paths for the recorder.
//   - Roster: fingerprint slot to operator name.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings, same shape as on the verifier side.
type Config struct {
	CameraNumber      string
	QueueRoot         string
	UploadURL         string
	DrainInterval     time.Duration
	ProbeInterval     time.Duration
	MaxUploadAttempts int
	TPMKeyHandle      string
	LocalKeyPath      string
	GPSDevice         string
	GPSReadTimeout    time.Duration
	VideoDevice       string
	AudioDevice       string
	Roster            map[int]string
	S3RootUser        string
	S3RootPassword    string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.CameraNumber = "1"
	c.QueueRoot = "."
	c.UploadURL = "http://127.0.0.1:8080/healthz"
	c.DrainInterval = 10 * time.Second
	c.ProbeInterval = 5 * time.Second
	c.MaxUploadAttempts = 3
	c.TPMKeyHandle = "0x81000001"
	c.GPSDevice = "/dev/ttyAMA0"
	c.GPSReadTimeout = 3 * time.Second
	c.VideoDevice = "/dev/video0"
	c.AudioDevice = "hw:1,0"
	c.Roster = map[int]string{}
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "evidence"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
