package hifi

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned whenever the upstream proxy answers 429. The
// extension never retries past it; the host decides whether to re-invoke.
var ErrRateLimited = errors.New("rate limited by upstream (HTTP 429)")

// ConfigurationError indicates a required setting is missing. Fatal, never retried.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required setting %q", e.Key)
}

// UpstreamError is a non-2xx upstream response that isn't otherwise classified.
type UpstreamError struct {
	Status      int
	Detail      string
	UserMessage string
	SubStatus   int
}

func (e *UpstreamError) Error() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if e.Detail != "" {
		return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("upstream error (status %d)", e.Status)
}

// MalformedResponseError is a 2xx response whose body doesn't carry the
// expected shape. Retrying a successful-but-broken response is futile, so
// callers surface this immediately.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed upstream response: " + e.Reason
}

// DashUnavailableError means the dash endpoint reported "not found" or
// returned a payload that is neither DASH XML nor a FLAC-URL JSON object.
type DashUnavailableError struct {
	TrackID int
	Reason  string
}

func (e *DashUnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no dash manifest available for track %d", e.TrackID)
	}
	return fmt.Sprintf("no dash manifest available for track %d: %s", e.TrackID, e.Reason)
}

// UnresolvedStreamError means every resolution strategy (direct URL, manifest
// decode, dash fallback) was exhausted without producing a playable URL.
type UnresolvedStreamError struct {
	TrackID  int
	Attempts int
}

func (e *UnresolvedStreamError) Error() string {
	return fmt.Sprintf("could not resolve a stream URL for track %d after %d attempts", e.TrackID, e.Attempts)
}

// ArtistNotFoundError means neither the discography scan nor the basic artist
// endpoint yielded an artist record.
type ArtistNotFoundError struct {
	ArtistID int
}

func (e *ArtistNotFoundError) Error() string {
	return fmt.Sprintf("artist %d not found in discography or basic lookup", e.ArtistID)
}
