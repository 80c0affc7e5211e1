package config

import (
	"encoding/json"
	"os"

	"github.com/photolock/photolock/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. After
// parsing, values are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr   string `json:"endpoint_addr"`
	DatabaseDSN    string `json:"database_dsn"`
	SecretKey      string `json:"secret_key"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	SMSGatewayURL  string `json:"sms_gateway_url"`
	SMSAccountSID  string `json:"sms_account_sid"`
	SMSAuthToken   string `json:"sms_auth_token"`
	SMSFrom        string `json:"sms_from"`
}

// parseJson overlays Config with values loaded from a JSON file found via
// the -c or -config flags. No file, no overlay. Panics on read or
// unmarshal errors.
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

	cfg.EndpointAddr = jc.EndpointAddr
	cfg.DatabaseDSN = jc.DatabaseDSN
	cfg.SecretKey = jc.SecretKey
	cfg.S3RootUser = jc.S3RootUser
	cfg.S3RootPassword = jc.S3RootPassword
	cfg.S3Region = jc.S3Region
	cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	cfg.SMSGatewayURL = jc.SMSGatewayURL
	cfg.SMSAccountSID = jc.SMSAccountSID
	cfg.SMSAuthToken = jc.SMSAuthToken
	cfg.SMSFrom = jc.SMSFrom
}
