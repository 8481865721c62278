package session

import (
	"net/http"
	"strings"

	"github.com/guardkit/guardkit/pkg/clientip"
)

// Device type labels stored on sessions and shown in active-session lists.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// DeviceMetaFromRequest captures the client attributes for session creation:
// resolved client IP, raw user agent, and a coarse device class.
func DeviceMetaFromRequest(r *http.Request) DeviceMeta {
	ua := r.UserAgent()
	return DeviceMeta{
		Device:    classifyDevice(ua),
		IP:        clientip.FromRequest(r),
		UserAgent: ua,
	}
}

var botMarkers = []string{"bot", "spider", "crawler", "slurp", "fetcher", "scraper", "monitor", "lighthouse"}

// classifyDevice is a coarse user-agent classifier. It only needs to be good
// enough for the security report's active-session listing, not analytics.
func classifyDevice(ua string) string {
	if ua == "" {
		return DeviceUnknown
	}
	lower := strings.ToLower(ua)

	// iOS identifiers are unambiguous and common, check them first.
	if strings.Contains(lower, "ipad") {
		return DeviceTablet
	}
	if strings.Contains(lower, "iphone") {
		return DeviceMobile
	}

	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return DeviceBot
		}
	}

	// Android tablets omit the "mobile" keyword, phones carry it.
	if strings.Contains(lower, "android") {
		if strings.Contains(lower, "mobile") {
			return DeviceMobile
		}
		return DeviceTablet
	}
	if strings.Contains(lower, "tablet") || strings.Contains(lower, "kindle") {
		return DeviceTablet
	}
	if strings.Contains(lower, "mobile") || strings.Contains(lower, "blackberry") {
		return DeviceMobile
	}

	for _, marker := range []string{"windows", "macintosh", "mac os x", "linux", "x11", "cros"} {
		if strings.Contains(lower, marker) {
			return DeviceDesktop
		}
	}
	return DeviceUnknown
}
