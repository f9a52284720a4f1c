package platforms

import (
	"strings"

	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

// ConfigString returns the trimmed string value for key from platform.Config or a fallback.
func ConfigString(p Platform, key, fallback string) string {
	if p.Config != nil {
		if raw, ok := p.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// ConfigBool returns the boolean value for key from platform.Config or a fallback.
func ConfigBool(p Platform, key string, fallback bool) bool {
	if p.Config == nil {
		return fallback
	}
	switch v := p.Config[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey         = "user_agent"
	ConfigAcceptKey            = "accept"
	ConfigAcceptLanguageKey    = "accept_language"
	ConfigAttachmentDirKey     = "attachment_dir"
	ConfigFirstPageKey         = "first_page"
	ConfigResourcePathKey      = "resource_path"
	ConfigFallbackImageScanKey = "fallback_image_scan"
)

// Headers builds the session identity headers: the browser defaults with
// any per-platform overrides applied.
func Headers(p Platform) map[string]string {
	headers := httpclient.BrowserHeaders()

	if v := ConfigString(p, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(p, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(p, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}

	return headers
}
