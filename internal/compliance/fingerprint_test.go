package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	edgeWindowsUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	chromeAndroidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(chromeWindowsUA, "en-US", "gzip, deflate, br")
	b := Fingerprint(chromeWindowsUA, "en-US", "gzip, deflate, br")

	assert.Equal(t, a.Hash, b.Hash)
	assert.Len(t, a.Hash, 64)
}

func TestFingerprintVariesWithHeaders(t *testing.T) {
	a := Fingerprint(chromeWindowsUA, "en-US", "gzip")
	b := Fingerprint(chromeWindowsUA, "de-DE", "gzip")

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestFingerprintPlatformAndBrowser(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		platform string
		browser  string
	}{
		{"chrome on windows", chromeWindowsUA, "Windows", "Chrome"},
		{"safari on iphone", safariIPhoneUA, "iOS", "Safari"},
		{"edge wins over embedded chrome token", edgeWindowsUA, "Windows", "Edge"},
		{"firefox on linux", firefoxLinuxUA, "Linux", "Firefox"},
		{"android wins over embedded linux token", chromeAndroidUA, "Android", "Chrome"},
		{"unmatched agent", "curl/8.4.0", "Unknown", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := Fingerprint(tt.ua, "en-US", "gzip")
			assert.Equal(t, tt.platform, fp.Platform)
			assert.Equal(t, tt.browser, fp.Browser)
		})
	}
}
