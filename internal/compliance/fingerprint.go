package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeviceFingerprint is a weak provenance signal derived from request
// headers. It is not an authentication credential.
type DeviceFingerprint struct {
	Hash     string `json:"hash"`
	Platform string `json:"platform"`
	Browser  string `json:"browser"`
}

type uaRule struct {
	substring string
	name      string
}

// Ordered; first match wins. Android must precede Linux and iOS must
// precede macOS because those user agents contain both tokens.
var platformRules = []uaRule{
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Android", "Android"},
	{"Windows", "Windows"},
	{"Macintosh", "macOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
	{"CrOS", "ChromeOS"},
}

// Ordered; Edge and Opera embed "Chrome", Chrome embeds "Safari".
var browserRules = []uaRule{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"Opera", "Opera"},
	{"Chrome/", "Chrome"},
	{"Firefox/", "Firefox"},
	{"Safari/", "Safari"},
	{"MSIE", "Internet Explorer"},
	{"Trident/", "Internet Explorer"},
}

// Fingerprint hashes the identifying request headers and extracts platform
// and browser from the user-agent string.
func Fingerprint(userAgent, acceptLanguage, acceptEncoding string) DeviceFingerprint {
	payload := strings.Join([]string{userAgent, acceptLanguage, acceptEncoding}, "|")
	sum := sha256.Sum256([]byte(payload))

	return DeviceFingerprint{
		Hash:     hex.EncodeToString(sum[:]),
		Platform: matchRule(userAgent, platformRules),
		Browser:  matchRule(userAgent, browserRules),
	}
}

func matchRule(userAgent string, rules []uaRule) string {
	for _, rule := range rules {
		if strings.Contains(userAgent, rule.substring) {
			return rule.name
		}
	}
	return "Unknown"
}
