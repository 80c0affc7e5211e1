// Package common contains shared constants and sentinel errors used across
// PhotoLock components.
package common

// NoFixValue is the sentinel string carried in the time, date and location
// fields when the GPS read times out without a fix. It is part of the signed
// envelope contract: both sides must render an absent fix identically.
const NoFixValue = "None"

// AuthHeaderName is the HTTP header carrying the bearer token on admin
// requests to the verifier.
const AuthHeaderName = "Authorization"
