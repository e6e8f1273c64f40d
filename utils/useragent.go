package utils

import (
	"strings"

	"devfolio/api/models"
)

// ClassifyDevice infers the device class from a User-Agent string. Tablets
// are checked before phones since their markers overlap; anything
// unrecognized counts as desktop.
func ClassifyDevice(userAgent string) models.DeviceType {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return models.DeviceTablet
	}
	// Android tablets omit "Mobile" from the UA, Android phones carry it.
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return models.DeviceTablet
	}
	if strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "ipod") || strings.Contains(ua, "android") {
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}

// ClassifyBrowser infers the browser family from a User-Agent string.
// Most-specific marker wins: Edge and Chrome both advertise "Chrome", Chrome
// and Safari both advertise "Safari".
func ClassifyBrowser(userAgent string) models.Browser {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"), strings.Contains(ua, "edgios"), strings.Contains(ua, "edga"):
		return models.BrowserEdge
	case strings.Contains(ua, "firefox"), strings.Contains(ua, "fxios"):
		return models.BrowserFirefox
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"), strings.Contains(ua, "chromium"):
		return models.BrowserChrome
	case strings.Contains(ua, "safari"):
		return models.BrowserSafari
	default:
		return models.BrowserOther
	}
}

// ClassifyOS infers the operating system family from a User-Agent string.
// iOS is checked before macOS because iPads can advertise "Mac OS X", and
// Android before Linux because Android UAs contain "Linux".
func ClassifyOS(userAgent string) models.OperatingSystem {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return models.OSIOS
	case strings.Contains(ua, "android"):
		return models.OSAndroid
	case strings.Contains(ua, "windows"):
		return models.OSWindows
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		return models.OSMacOS
	case strings.Contains(ua, "linux"), strings.Contains(ua, "x11"):
		return models.OSLinux
	default:
		return models.OSOther
	}
}
