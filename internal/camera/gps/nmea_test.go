package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const validSentence = "$GNGGA,190322.00,4219.8000,N,07106.0000,W,1,08,1.0,10.0,M,0.0,M,,*5C"

func TestParseSentenceValid(t *testing.T) {
	fix, ok := ParseSentence(validSentence, testNow)

	assert.True(t, ok)
	assert.True(t, fix.Valid)
	assert.InDelta(t, 42.33, fix.Latitude, 1e-9)
	assert.InDelta(t, -71.10, fix.Longitude, 1e-9)
	assert.Equal(t, "14:03:22", fix.Time)
	assert.Equal(t, "2024-05-01", fix.Date)
	assert.Equal(t, "42.3300, -71.1000", fix.Location())
}

func TestParseSentenceHemispheres(t *testing.T) {
	fix, ok := ParseSentence("$GNGGA,190322.00,4219.8000,S,07106.0000,E,1,08,1.0,10.0,M,0.0,M,,*5C", testNow)

	assert.True(t, ok)
	assert.InDelta(t, -42.33, fix.Latitude, 1e-9)
	assert.InDelta(t, 71.10, fix.Longitude, 1e-9)
}

func TestParseSentenceRejects(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
	}{
		{"wrong type", "$GNRMC,190322.00,A,4219.8000,N,07106.0000,W"},
		{"no fix quality", "$GNGGA,190322.00,4219.8000,N,07106.0000,W,0,08,1.0,10.0,M,0.0,M,,*5C"},
		{"empty quality", "$GNGGA,190322.00,4219.8000,N,07106.0000,W,,08"},
		{"bad time", "$GNGGA,notatime,4219.8000,N,07106.0000,W,1,08"},
		{"bad latitude", "$GNGGA,190322.00,xx,N,07106.0000,W,1,08"},
		{"bad longitude", "$GNGGA,190322.00,4219.8000,N,xx,W,1,08"},
		{"truncated", "$GNGGA,190322.00"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseSentence(tt.sentence, testNow)
			assert.False(t, ok)
		})
	}
}

func TestNoFixRendering(t *testing.T) {
	assert.Equal(t, "None", NoFix.Time)
	assert.Equal(t, "None", NoFix.Date)
	assert.Equal(t, "None, None", NoFix.Location())
}
