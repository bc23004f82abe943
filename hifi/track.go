package hifi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/RunTheBot/echo-HiFi-extension/config"
)

const (
	maxAttempts = 3
	backoffUnit = 200 * time.Millisecond

	// subStatus the upstream sends on a 401 when its own auth token expired
	// mid-session. A bare retry of the same request is expected to succeed.
	tokenExpiredSubStatus = 11002
)

// Client is the upstream API client. One instance serves the whole
// extension; it holds no per-request state.
type Client struct {
	gw     *Gateway
	wait   func(ctx context.Context, d time.Duration) error
	logger *log.Entry
}

func NewClient(cfg *config.Config, transport Transport) *Client {
	return &Client{
		gw:     NewGateway(cfg, transport),
		wait:   sleepContext,
		logger: log.WithFields(log.Fields{"module": "hifi"}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(attempt) * backoffUnit
}

type errorEnvelope struct {
	Detail      string `json:"detail"`
	UserMessage string `json:"userMessage"`
	SubStatus   int    `json:"subStatus"`
}

// parseErrorEnvelope is best-effort; a body that isn't the error shape just
// yields an empty envelope.
func parseErrorEnvelope(body []byte) errorEnvelope {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	return env
}

func newUpstreamError(status int, env errorEnvelope, tokenRetry bool) *UpstreamError {
	e := &UpstreamError{Status: status, Detail: env.Detail, SubStatus: env.SubStatus}
	if tokenRetry {
		e.UserMessage = env.UserMessage
	}
	return e
}

// GetTrack fetches a track's metadata and playback descriptor. Token-expiry
// 401s, transient "quality not found" details and 5xx responses are retried
// up to three times with linear backoff; everything else surfaces at once.
func (c *Client) GetTrack(ctx context.Context, id int, quality Quality) (*TrackLookup, error) {
	// The track endpoint does not accept Atmos; coerce to LOW like the
	// upstream clients do.
	if quality == QualityDolbyAtmos {
		quality = QualityLow
	}

	url, err := c.gw.BuildURL(fmt.Sprintf("/track/?id=%d&quality=%s", id, quality))
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetTrack", "track_id": id, "quality": quality})

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.gw.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := c.gw.EnsureNotRateLimited(resp); err != nil {
			return nil, err
		}

		if resp.OK() {
			return parseTrackLookup(resp.Body)
		}

		env := parseErrorEnvelope(resp.Body)
		isTokenRetry := resp.Status == http.StatusUnauthorized && env.SubStatus == tokenExpiredSubStatus
		shouldRetry := isTokenRetry ||
			strings.Contains(strings.ToLower(env.Detail), "quality not found") ||
			resp.Status >= 500

		if attempt == maxAttempts || !shouldRetry {
			logger.Errorf("track fetch failed with status %d: %s", resp.Status, env.Detail)
			return nil, newUpstreamError(resp.Status, env, isTokenRetry)
		}

		logger.WithFields(log.Fields{
			"attempt":     attempt,
			"status":      resp.Status,
			"token_retry": isTokenRetry,
		}).Warn("retrying track fetch")
		if err := c.wait(ctx, backoffDelay(attempt)); err != nil {
			return nil, err
		}
	}

	// Unreachable by construction; the loop either returns or errors out.
	return nil, &UpstreamError{Detail: "track fetch fell through retry loop"}
}

// parseTrackLookup scans the mixed-type response array for the track payload
// (album+artist+duration keys), the playback descriptor (manifest key) and an
// optional direct URL (OriginalTrackUrl key). Elements matching no rule are
// ignored.
func parseTrackLookup(body []byte) (*TrackLookup, error) {
	var elements []any
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, &MalformedResponseError{Reason: "track response is not a JSON array"}
	}

	var lookup TrackLookup
	var haveTrack, haveInfo bool

	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}

		if lookup.OriginalTrackURL == "" {
			if u, ok := obj["OriginalTrackUrl"].(string); ok {
				lookup.OriginalTrackURL = strings.TrimSpace(u)
			}
		}

		if !haveTrack && hasKeys(obj, "album", "artist", "duration") {
			track, err := decodeAs[Track](obj)
			if err != nil {
				return nil, &MalformedResponseError{Reason: "undecodable track element: " + err.Error()}
			}
			lookup.Track = NormalizeTrack(track)
			haveTrack = true
			continue
		}

		if !haveInfo {
			if _, ok := obj["manifest"]; ok {
				info, err := decodeAs[TrackInfo](obj)
				if err != nil {
					return nil, &MalformedResponseError{Reason: "undecodable track info element: " + err.Error()}
				}
				lookup.Info = info
				haveInfo = true
			}
		}
	}

	if !haveTrack {
		return nil, &MalformedResponseError{Reason: "no track element in response array"}
	}
	if !haveInfo {
		return nil, &MalformedResponseError{Reason: "no track info element in response array"}
	}
	return &lookup, nil
}

func hasKeys(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// DashURL builds the dash endpoint URL without issuing a request. An empty
// quality defaults to the highest supported tier.
func (c *Client) DashURL(trackID int, quality Quality) (string, error) {
	if quality == "" {
		quality = QualityHiResLossless
	}
	return c.gw.BuildURL(fmt.Sprintf("/dash/?id=%d&quality=%s", trackID, quality))
}

// GetDashManifest resolves the dash endpoint's answer into either a raw DASH
// XML document or a list of direct FLAC URLs. "not found" and unclassifiable
// payloads are retried; the last recorded error surfaces once attempts run
// out.
func (c *Client) GetDashManifest(ctx context.Context, trackID int, quality Quality) (*DashManifest, error) {
	url, err := c.DashURL(trackID, quality)
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetDashManifest", "track_id": trackID})

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.gw.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := c.gw.EnsureNotRateLimited(resp); err != nil {
			return nil, err
		}

		manifest, candidate := classifyDashResponse(trackID, resp)
		if manifest != nil {
			return manifest, nil
		}
		lastErr = candidate
		logger.WithFields(log.Fields{"attempt": attempt, "status": resp.Status}).
			Warnf("dash manifest attempt failed: %v", candidate)

		if attempt < maxAttempts {
			if err := c.wait(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}

	if lastErr == nil {
		lastErr = &DashUnavailableError{TrackID: trackID}
	}
	return nil, lastErr
}

// classifyDashResponse applies the classification order: rate limits
// are handled by the caller, XML-ish payloads are a dash manifest, JSON-ish
// payloads carry either a "not found" detail or a urls list, and anything
// else gets one last sniff before being declared unexpected.
func classifyDashResponse(trackID int, resp *Response) (*DashManifest, error) {
	payload := string(resp.Body)

	if !resp.OK() {
		env := parseErrorEnvelope(resp.Body)
		if resp.Status == http.StatusNotFound && strings.EqualFold(env.Detail, "not found") {
			return nil, &DashUnavailableError{TrackID: trackID, Reason: "upstream reports not found"}
		}
		return nil, newUpstreamError(resp.Status, env, false)
	}

	if LooksLikeXMLContentType(resp.ContentType) || LooksLikeDashXML(payload, resp.ContentType) {
		return &DashManifest{Kind: ManifestKindDash, Manifest: payload}, nil
	}

	if LooksLikeJSONContentType(resp.ContentType) || strings.HasPrefix(strings.TrimSpace(payload), "{") {
		var obj map[string]any
		if err := json.Unmarshal(resp.Body, &obj); err == nil {
			if detail, ok := obj["detail"].(string); ok && strings.EqualFold(detail, "not found") {
				return nil, &DashUnavailableError{TrackID: trackID, Reason: "upstream reports not found"}
			}
			return &DashManifest{Kind: ManifestKindFlac, URLs: ExtractURLsFromJSONManifest(resp.Body)}, nil
		}
		return nil, &DashUnavailableError{TrackID: trackID, Reason: "unparsable JSON payload"}
	}

	// Ambiguous content type: one more XML sniff on the payload itself, then
	// try URL extraction before giving up.
	if LooksLikeDashXML(payload, "") {
		return &DashManifest{Kind: ManifestKindDash, Manifest: payload}, nil
	}
	if urls := ExtractURLsFromJSONManifest(resp.Body); len(urls) > 0 {
		return &DashManifest{Kind: ManifestKindFlac, URLs: urls}, nil
	}
	return nil, &DashUnavailableError{TrackID: trackID, Reason: "unexpected payload"}
}

// GetStreamURL resolves a playable URL for a track. The top tier goes through
// the dash endpoint and fails explicitly when no direct FLAC URL comes back
// (no silent downgrade); lower tiers try the direct URL, then the manifest,
// then retry.
func (c *Client) GetStreamURL(ctx context.Context, trackID int, quality Quality) (string, error) {
	if quality == QualityHiResLossless {
		manifest, err := c.GetDashManifest(ctx, trackID, quality)
		if err != nil {
			return "", err
		}
		if manifest.Kind == ManifestKindFlac {
			for _, u := range manifest.URLs {
				if u != "" {
					return u, nil
				}
			}
		}
		// A raw MPD document is not a playable URL; synthesizing one from
		// XML is out of scope.
		return "", &UnresolvedStreamError{TrackID: trackID, Attempts: 1}
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetStreamURL", "track_id": trackID})

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lookup, err := c.GetTrack(ctx, trackID, quality)
		if err != nil {
			var confErr *ConfigurationError
			if errors.Is(err, ErrRateLimited) || errors.As(err, &confErr) || ctx.Err() != nil {
				return "", err
			}
			logger.WithFields(log.Fields{"attempt": attempt}).Warnf("track lookup failed: %v", err)
		} else {
			if lookup.OriginalTrackURL != "" {
				return lookup.OriginalTrackURL, nil
			}
			if u := DecodeManifestURL(lookup.Info.Manifest); u != "" {
				return u, nil
			}
			logger.WithFields(log.Fields{"attempt": attempt}).Warn("lookup yielded no playable URL")
		}

		if attempt < maxAttempts {
			if err := c.wait(ctx, backoffDelay(attempt)); err != nil {
				return "", err
			}
		}
	}

	return "", &UnresolvedStreamError{TrackID: trackID, Attempts: maxAttempts}
}
