package session

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// DeviceLabel turns a User-Agent header into a short "Browser on OS" label
// for connection logs.
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	osName := ua.OS()
	if osName == "" {
		osName = ua.Platform()
	}
	if browser == "" && osName == "" {
		return unknownDevice
	}
	if browser == "" {
		browser = "Unknown"
	}
	if osName == "" {
		osName = "Unknown"
	}
	return strings.TrimSpace(browser + " on " + osName)
}
