package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Record is the metadata record created once per capture. It travels as a
// JSON sidecar file in the pending queue, as S3 object metadata on immediate
// upload, and as the content-hash-indexed verification record on the server.
// All three renderings round-trip into the same logical record.
type Record struct {
	Fingerprint  string `json:"Fingerprint"`
	CameraNumber string `json:"CameraNumber"`
	Date         string `json:"Date"`
	Time         string `json:"Time"`
	Location     string `json:"Location"`
	// Signature carries the detached signature as base64 text.
	Signature string `json:"Signature"`
}

// NewRecord assembles a record from envelope fields and a raw signature.
func NewRecord(f Fields, signature []byte) Record {
	return Record{
		Fingerprint:  f.Fingerprint,
		CameraNumber: f.CameraNumber,
		Date:         f.Date,
		Time:         f.Time,
		Location:     f.Location,
		Signature:    base64.StdEncoding.EncodeToString(signature),
	}
}

// Fields returns the envelope fields of the record.
func (r Record) Fields() Fields {
	return Fields{
		Fingerprint:  r.Fingerprint,
		CameraNumber: r.CameraNumber,
		Date:         r.Date,
		Time:         r.Time,
		Location:     r.Location,
	}
}

// SignatureBytes decodes the base64 signature.
func (r Record) SignatureBytes() ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return sig, nil
}

// ObjectMetadata renders the record as S3 object metadata. Keys are
// lowercase because S3 lowercases user metadata keys on the way back.
func (r Record) ObjectMetadata() map[string]string {
	return map[string]string{
		"fingerprint":  r.Fingerprint,
		"cameranumber": r.CameraNumber,
		"date":         r.Date,
		"time":         r.Time,
		"location":     r.Location,
		"signature":    r.Signature,
	}
}

// RecordFromObjectMetadata rebuilds a record from S3 object metadata.
func RecordFromObjectMetadata(md map[string]string) Record {
	return Record{
		Fingerprint:  md["fingerprint"],
		CameraNumber: md["cameranumber"],
		Date:         md["date"],
		Time:         md["time"],
		Location:     md["location"],
		Signature:    md["signature"],
	}
}

// MarshalRecord renders the record as the canonical JSON blob used for queue
// sidecar files and verification records.
func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord parses the canonical JSON blob.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}
