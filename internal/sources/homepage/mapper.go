package homepage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
)

// widgetServices maps Homepage widget types to catalog service names.
var widgetServices = map[string]string{
	"radarr":      "radarr",
	"sonarr":      "sonarr",
	"jellyfin":    "jellyfin",
	"jellyseerr":  "jellyseerr",
	"overseerr":   "jellyseerr",
	"qbittorrent": "qbittorrent",
}

// credentialStyle tells how a service authenticates.
type credentialStyle int

const (
	apiKeyCredential credentialStyle = iota
	loginCredential
)

var serviceCredentials = map[string]credentialStyle{
	"radarr":      apiKeyCredential,
	"sonarr":      apiKeyCredential,
	"jellyfin":    apiKeyCredential,
	"jellyseerr":  apiKeyCredential,
	"qbittorrent": loginCredential,
}

// Mapper converts Homepage widgets to service configurations
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapServices extracts one configuration per supported widget for userID.
// Entries without a supported widget, a usable URL or credentials are
// skipped. When a service appears twice the first entry wins.
func (m *Mapper) MapServices(config ServicesConfig, userID string) ([]domain.ServiceConfiguration, error) {
	var configs []domain.ServiceConfiguration
	seen := make(map[string]bool)

	for _, groupMap := range config {
		for _, servicesList := range groupMap {
			for _, serviceMap := range servicesList {
				for _, props := range serviceMap {
					cfg, ok := mapWidget(props, userID)
					if !ok || seen[cfg.ServiceName] {
						continue
					}
					seen[cfg.ServiceName] = true
					configs = append(configs, cfg)
				}
			}
		}
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no supported service widgets found in homepage config")
	}

	return configs, nil
}

func mapWidget(props ServiceProps, userID string) (domain.ServiceConfiguration, bool) {
	serviceName, ok := widgetServices[strings.ToLower(strings.TrimSpace(props.Widget.Type))]
	if !ok {
		return domain.ServiceConfiguration{}, false
	}

	// Widgets usually point at the internal address; href is the fallback.
	baseURL := strings.TrimSpace(props.Widget.URL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(props.Href)
	}
	if !validBaseURL(baseURL) {
		return domain.ServiceConfiguration{}, false
	}

	cfg := domain.ServiceConfiguration{
		UserID:      userID,
		ServiceName: serviceName,
		BaseURL:     baseURL,
		IsEnabled:   true,
	}

	switch serviceCredentials[serviceName] {
	case loginCredential:
		if props.Widget.Username == "" || props.Widget.Password == "" {
			return domain.ServiceConfiguration{}, false
		}
		cfg.APIKey = props.Widget.Username + ":" + props.Widget.Password
	default:
		if strings.TrimSpace(props.Widget.Key) == "" {
			return domain.ServiceConfiguration{}, false
		}
		cfg.APIKey = strings.TrimSpace(props.Widget.Key)
	}

	return cfg, true
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
