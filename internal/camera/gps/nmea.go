// Package gps reads a position/time fix from a serial NMEA source. A read
// that produces no valid sentence before the timeout yields the sentinel
// no-fix result instead of blocking the capture pipeline.
package gps

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/photolock/photolock/internal/common"
)

// Fix is a parsed GNSS position and UTC-adjusted wall time.
type Fix struct {
	Latitude  float64
	Longitude float64
	Time      string // "15:04:05", receiver time shifted to local zone
	Date      string // "2006-01-02", taken from the system clock
	Valid     bool
}

// NoFix is the sentinel returned when no valid sentence arrived in time.
// Its rendered fields are part of the signed envelope contract.
var NoFix = Fix{
	Time: common.NoFixValue,
	Date: common.NoFixValue,
}

// Location renders the fix position with fixed four-decimal formatting.
// The verifier rebuilds the envelope from this exact string, so the
// formatting must never change.
func (f Fix) Location() string {
	if !f.Valid {
		return common.NoFixValue + ", " + common.NoFixValue
	}
	return fmt.Sprintf("%.4f, %.4f", f.Latitude, f.Longitude)
}

// timeZoneShift converts receiver UTC to the device's local zone.
const timeZoneShift = -5 * time.Hour

// ParseSentence parses a $GNGGA NMEA sentence. It returns (NoFix, false)
// for other sentence types, invalid fixes and malformed fields.
func ParseSentence(sentence string, now time.Time) (Fix, bool) {
	parts := strings.Split(strings.TrimSpace(sentence), ",")
	if len(parts) < 7 || parts[0] != "$GNGGA" {
		return NoFix, false
	}

	// Field 6 is fix quality; "0" means no fix.
	if parts[6] == "" || parts[6] == "0" {
		return NoFix, false
	}

	t, err := time.Parse("150405.00", parts[1])
	if err != nil {
		return NoFix, false
	}

	lat, err := parseCoordinate(parts[2], parts[3], "S")
	if err != nil {
		return NoFix, false
	}
	lon, err := parseCoordinate(parts[4], parts[5], "W")
	if err != nil {
		return NoFix, false
	}

	return Fix{
		Latitude:  lat,
		Longitude: lon,
		Time:      t.Add(timeZoneShift).Format("15:04:05"),
		Date:      now.Format("2006-01-02"),
		Valid:     true,
	}, true
}

// parseCoordinate converts an NMEA ddmm.mmmm value and hemisphere letter
// into signed decimal degrees.
func parseCoordinate(value, hemisphere, negative string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	degrees := float64(int(v / 100))
	minutes := v - degrees*100
	decimal := degrees + minutes/60

	if hemisphere == negative {
		decimal = -decimal
	}
	return decimal, nil
}
