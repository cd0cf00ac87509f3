package registry

// Capability categories.
const (
	CategorySearch    = "search"
	CategoryLibrary   = "library"
	CategoryDownloads = "downloads"
	CategoryRequests  = "requests"
	CategoryPlayback  = "playback"
	CategorySchedule  = "schedule"
)

// DefaultCatalog returns the integrated services in display order.
func DefaultCatalog() []ServiceDefinition {
	return []ServiceDefinition{
		radarrDefinition(),
		sonarrDefinition(),
		jellyfinDefinition(),
		jellyseerrDefinition(),
		qbittorrentDefinition(),
	}
}
