package models

import "time"

// Camera is an enrolled capture device. PublicKey holds the PEM encoded
// RSA public key exported from the device TPM.
type Camera struct {
	Number    string
	PublicKey []byte
	CreatedAt time.Time
}
