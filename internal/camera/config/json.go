package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/photolock/photolock/internal/flagx"
	"github.com/photolock/photolock/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "10s" or as integer nanoseconds, and carries the roster
// with string keys because JSON object keys are always strings. After
// parsing, values are copied into the runtime Config.
type JsonConfig struct {
	CameraNumber      string            `json:"camera_number"`
	QueueRoot         string            `json:"queue_root"`
	UploadURL         string            `json:"upload_url"`
	DrainInterval     timex.Duration    `json:"drain_interval"`
	ProbeInterval     timex.Duration    `json:"probe_interval"`
	MaxUploadAttempts int               `json:"max_upload_attempts"`
	TPMKeyHandle      string            `json:"tpm_key_handle"`
	LocalKeyPath      string            `json:"local_key_path"`
	GPSDevice         string            `json:"gps_device"`
	GPSReadTimeout    timex.Duration    `json:"gps_read_timeout"`
	VideoDevice       string            `json:"video_device"`
	AudioDevice       string            `json:"audio_device"`
	Roster            map[string]string `json:"roster"`
	S3RootUser        string            `json:"s3_root_user"`
	S3RootPassword    string            `json:"s3_root_password"`
	S3Bucket          string            `json:"s3_bucket"`
	S3Region          string            `json:"s3_region"`
	S3BaseEndpoint    string            `json:"s3_base_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Panics on read or unmarshal errors, and on roster keys that are not
// integers. Intended usage is: defaults -> parseJson -> parseFlags, where
// later stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.CameraNumber = jc.CameraNumber
	cfg.QueueRoot = jc.QueueRoot
	cfg.UploadURL = jc.UploadURL
	cfg.DrainInterval = time.Duration(jc.DrainInterval.Duration)
	cfg.ProbeInterval = time.Duration(jc.ProbeInterval.Duration)
	cfg.MaxUploadAttempts = jc.MaxUploadAttempts
	cfg.TPMKeyHandle = jc.TPMKeyHandle
	cfg.LocalKeyPath = jc.LocalKeyPath
	cfg.GPSDevice = jc.GPSDevice
	cfg.GPSReadTimeout = time.Duration(jc.GPSReadTimeout.Duration)
	cfg.VideoDevice = jc.VideoDevice
	cfg.AudioDevice = jc.AudioDevice
	cfg.S3RootUser = jc.S3RootUser
	cfg.S3RootPassword = jc.S3RootPassword
	cfg.S3Bucket = jc.S3Bucket
	cfg.S3Region = jc.S3Region
	cfg.S3BaseEndpoint = jc.S3BaseEndpoint

	if jc.Roster != nil {
		roster := make(map[int]string, len(jc.Roster))
		for slot, name := range jc.Roster {
			n, err := strconv.Atoi(slot)
			if err != nil {
				panic(err)
			}
			roster[n] = name
		}
		cfg.Roster = roster
	}
}
