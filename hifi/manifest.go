package hifi

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	urlTokenRegex = regexp.MustCompile(`https?://[^\s"'<>\\]+`)
	xmlDeclRegex  = regexp.MustCompile(`(?i)^\s*<\?xml`)
	mpdRootRegex  = regexp.MustCompile(`(?i)^\s*<MPD[\s>]`)
	anyTagRegex   = regexp.MustCompile(`(?i)^\s*<[a-z][a-z0-9:_-]*[\s>/]`)
)

type jsonManifest struct {
	URLs []string `json:"urls"`
}

// DecodeManifestURL base64-decodes a manifest payload and recovers a media
// URL from it. JSON with a "urls" array wins; otherwise a regex scan for the
// first http(s) token in the decoded text. Returns "" when neither works —
// the caller decides whether that is fatal.
func DecodeManifestURL(manifest string) string {
	if manifest == "" {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(manifest)
	if err != nil {
		// Some proxies emit URL-safe base64 without padding.
		decoded, err = base64.RawURLEncoding.DecodeString(manifest)
		if err != nil {
			log.Tracef("manifest is not valid base64: %v", err)
			return ""
		}
	}

	var parsed jsonManifest
	if err := json.Unmarshal(decoded, &parsed); err == nil {
		for _, u := range parsed.URLs {
			u = strings.TrimSpace(u)
			if u != "" {
				return u
			}
		}
	}

	if match := urlTokenRegex.FindString(string(decoded)); match != "" {
		log.Tracef("recovered manifest URL via regex fallback")
		return match
	}
	return ""
}

// LooksLikeDashXML sniffs whether payload is a DASH XML document. An XML
// content type plus a leading '<' is decisive; otherwise the payload itself
// is tested against an XML declaration, an MPD root, or any opening tag.
func LooksLikeDashXML(payload, contentType string) bool {
	trimmed := strings.TrimSpace(payload)
	if LooksLikeXMLContentType(contentType) && strings.HasPrefix(trimmed, "<") {
		return true
	}
	return xmlDeclRegex.MatchString(trimmed) ||
		mpdRootRegex.MatchString(trimmed) ||
		anyTagRegex.MatchString(trimmed)
}

// LooksLikeXMLContentType reports whether the header names an XML-ish media
// type.
func LooksLikeXMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") ||
		strings.Contains(ct, "dash+xml") ||
		strings.Contains(ct, "mpd")
}

// LooksLikeJSONContentType reports whether the header names a JSON-ish media
// type, including the proxy's vendor type.
func LooksLikeJSONContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "json") ||
		strings.Contains(ct, "vnd.tidal")
}

// ExtractURLsFromJSONManifest pulls the "urls" array of strings out of a JSON
// object, trimming and discarding blanks. Any other shape yields an empty
// list.
func ExtractURLsFromJSONManifest(payload []byte) []string {
	var parsed jsonManifest
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil
	}
	urls := make([]string, 0, len(parsed.URLs))
	for _, u := range parsed.URLs {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
