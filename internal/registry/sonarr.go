package registry

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/client"
)

// Series is the subset of a Sonarr series resource returned to callers.
type Series struct {
	ID               int    `json:"id,omitempty"`
	Title            string `json:"title"`
	Year             int    `json:"year,omitempty"`
	TvdbID           int    `json:"tvdbId"`
	Overview         string `json:"overview,omitempty"`
	Status           string `json:"status,omitempty"`
	Monitored        bool   `json:"monitored"`
	TitleSlug        string `json:"titleSlug,omitempty"`
	QualityProfileID int    `json:"qualityProfileId,omitempty"`
	RootFolderPath   string `json:"rootFolderPath,omitempty"`
	Images           []any  `json:"images,omitempty"`
	Seasons          []any  `json:"seasons,omitempty"`
}

// Episode is one calendar entry.
type Episode struct {
	SeriesID      int    `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	AirDateUTC    string `json:"airDateUtc,omitempty"`
	HasFile       bool   `json:"hasFile"`
	Series        *struct {
		Title string `json:"title"`
	} `json:"series,omitempty"`
}

type calendarArgs struct {
	Days int `json:"days"`
}

type addSeriesArgs struct {
	TvdbID           int    `json:"tvdbId"`
	QualityProfileID int    `json:"qualityProfileId"`
	RootFolderPath   string `json:"rootFolderPath"`
	Monitored        *bool  `json:"monitored,omitempty"`
	SearchNow        bool   `json:"searchNow"`
}

const (
	defaultCalendarDays = 7
	maxCalendarDays     = 60
)

func sonarrDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:             "sonarr",
		DisplayName:      "Sonarr",
		Auth:             auth.APIKeyHeader("X-Api-Key"),
		APIVersionPrefix: "/api/v3",
		RequireAPIKey:    true,
		StatusEndpoint:   "/system/status",
		Capabilities: []Capability{
			{
				Name:        "sonarr_search_series",
				Description: "Search for TV series by title.",
				Category:    CategorySearch,
				Operation:   "search series",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a searchArgs) ([]Series, error) {
						if strings.TrimSpace(a.Term) == "" {
							return nil, argError("term is required")
						}
						return client.Request[[]Series](ctx, c, userID, "/series/lookup", client.RequestOptions{
							Query: url.Values{"term": {a.Term}},
						})
					})
				},
			},
			{
				Name:        "sonarr_list_series",
				Description: "List the series in the library.",
				Category:    CategoryLibrary,
				Operation:   "list series",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, _ noArgs) ([]Series, error) {
						return client.Request[[]Series](ctx, c, userID, "/series", client.RequestOptions{})
					})
				},
			},
			{
				Name:        "sonarr_get_calendar",
				Description: "List episodes airing in the next days (default 7).",
				Category:    CategorySchedule,
				Operation:   "get calendar",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a calendarArgs) ([]Episode, error) {
						days := a.Days
						if days <= 0 {
							days = defaultCalendarDays
						}
						days = min(days, maxCalendarDays)
						start := time.Now().UTC()
						return client.Request[[]Episode](ctx, c, userID, "/calendar", client.RequestOptions{
							Query: url.Values{
								"start":         {start.Format(time.RFC3339)},
								"end":           {start.AddDate(0, 0, days).Format(time.RFC3339)},
								"includeSeries": {"true"},
							},
						})
					})
				},
			},
			{
				Name:             "sonarr_add_series",
				Description:      "Add a series to the library by TVDB id.",
				Category:         CategoryLibrary,
				RequiresApproval: true,
				Operation:        "add series",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a addSeriesArgs) (*Series, error) {
						return addSeries(ctx, c, userID, a)
					})
				},
			},
		},
	}
}

func addSeries(ctx context.Context, c *client.Client, userID string, a addSeriesArgs) (*Series, error) {
	if a.TvdbID <= 0 {
		return nil, argError("tvdbId is required")
	}
	if a.QualityProfileID <= 0 || a.RootFolderPath == "" {
		return nil, argError("qualityProfileId and rootFolderPath are required")
	}

	found, err := client.Request[[]Series](ctx, c, userID, "/series/lookup", client.RequestOptions{
		Query: url.Values{"term": {"tvdb:" + strconv.Itoa(a.TvdbID)}},
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, argError("no series found for tvdbId %d", a.TvdbID)
	}
	series := found[0]

	monitored := true
	if a.Monitored != nil {
		monitored = *a.Monitored
	}

	body := map[string]any{
		"title":            series.Title,
		"year":             series.Year,
		"tvdbId":           a.TvdbID,
		"titleSlug":        series.TitleSlug,
		"images":           series.Images,
		"seasons":          series.Seasons,
		"qualityProfileId": a.QualityProfileID,
		"rootFolderPath":   a.RootFolderPath,
		"monitored":        monitored,
		"addOptions":       map[string]any{"searchForMissingEpisodes": a.SearchNow},
	}
	added, err := client.Request[Series](ctx, c, userID, "/series", client.RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}
