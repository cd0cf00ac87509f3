package registry

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/client"
)

// Movie is the subset of a Radarr movie resource returned to callers.
type Movie struct {
	ID               int    `json:"id,omitempty"`
	Title            string `json:"title"`
	Year             int    `json:"year,omitempty"`
	TmdbID           int    `json:"tmdbId"`
	Overview         string `json:"overview,omitempty"`
	Monitored        bool   `json:"monitored"`
	HasFile          bool   `json:"hasFile"`
	QualityProfileID int    `json:"qualityProfileId,omitempty"`
	RootFolderPath   string `json:"rootFolderPath,omitempty"`
	TitleSlug        string `json:"titleSlug,omitempty"`
	Images           []any  `json:"images,omitempty"`
}

// QueueItem is one entry of the Radarr or Sonarr download queue.
type QueueItem struct {
	ID                    int     `json:"id"`
	Title                 string  `json:"title"`
	Status                string  `json:"status"`
	TrackedDownloadState  string  `json:"trackedDownloadState,omitempty"`
	Size                  float64 `json:"size"`
	SizeLeft              float64 `json:"sizeleft"`
	TimeLeft              string  `json:"timeleft,omitempty"`
	DownloadClient        string  `json:"downloadClient,omitempty"`
	EstimatedCompletionAt string  `json:"estimatedCompletionTime,omitempty"`
}

type queuePage struct {
	TotalRecords int         `json:"totalRecords"`
	Records      []QueueItem `json:"records"`
}

type searchArgs struct {
	Term string `json:"term"`
}

type addMovieArgs struct {
	TmdbID           int    `json:"tmdbId"`
	QualityProfileID int    `json:"qualityProfileId"`
	RootFolderPath   string `json:"rootFolderPath"`
	Monitored        *bool  `json:"monitored,omitempty"`
	SearchNow        bool   `json:"searchNow"`
}

type deleteMovieArgs struct {
	ID          int  `json:"id"`
	DeleteFiles bool `json:"deleteFiles"`
}

type noArgs struct{}

func radarrDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:             "radarr",
		DisplayName:      "Radarr",
		Auth:             auth.APIKeyHeader("X-Api-Key"),
		APIVersionPrefix: "/api/v3",
		RequireAPIKey:    true,
		StatusEndpoint:   "/system/status",
		Capabilities: []Capability{
			{
				Name:        "radarr_search_movies",
				Description: "Search for movies by title to find ones that can be added.",
				Category:    CategorySearch,
				Operation:   "search movies",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a searchArgs) ([]Movie, error) {
						if strings.TrimSpace(a.Term) == "" {
							return nil, argError("term is required")
						}
						return client.Request[[]Movie](ctx, c, userID, "/movie/lookup", client.RequestOptions{
							Query: url.Values{"term": {a.Term}},
						})
					})
				},
			},
			{
				Name:        "radarr_list_movies",
				Description: "List the movies in the library.",
				Category:    CategoryLibrary,
				Operation:   "list movies",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, _ noArgs) ([]Movie, error) {
						return client.Request[[]Movie](ctx, c, userID, "/movie", client.RequestOptions{})
					})
				},
			},
			{
				Name:        "radarr_get_queue",
				Description: "Show movies currently downloading.",
				Category:    CategoryDownloads,
				Operation:   "get download queue",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, _ noArgs) ([]QueueItem, error) {
						page, err := client.Request[queuePage](ctx, c, userID, "/queue", client.RequestOptions{
							Query: url.Values{"pageSize": {"50"}},
						})
						return page.Records, err
					})
				},
			},
			{
				Name:             "radarr_add_movie",
				Description:      "Add a movie to the library by TMDB id.",
				Category:         CategoryLibrary,
				RequiresApproval: true,
				Operation:        "add movie",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a addMovieArgs) (*Movie, error) {
						return addMovie(ctx, c, userID, a)
					})
				},
			},
			{
				Name:             "radarr_delete_movie",
				Description:      "Remove a movie from the library, optionally deleting its files.",
				Category:         CategoryLibrary,
				RequiresApproval: true,
				Operation:        "delete movie",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a deleteMovieArgs) (map[string]any, error) {
						if a.ID <= 0 {
							return nil, argError("id is required")
						}
						_, err := c.Do(ctx, userID, "/movie/"+strconv.Itoa(a.ID), client.RequestOptions{
							Method: http.MethodDelete,
							Query:  url.Values{"deleteFiles": {strconv.FormatBool(a.DeleteFiles)}},
						})
						if err != nil {
							return nil, err
						}
						return map[string]any{"deleted": a.ID}, nil
					})
				},
			},
		},
	}
}

func addMovie(ctx context.Context, c *client.Client, userID string, a addMovieArgs) (*Movie, error) {
	if a.TmdbID <= 0 {
		return nil, argError("tmdbId is required")
	}
	if a.QualityProfileID <= 0 || a.RootFolderPath == "" {
		return nil, argError("qualityProfileId and rootFolderPath are required")
	}

	movie, err := client.Request[Movie](ctx, c, userID, "/movie/lookup/tmdb", client.RequestOptions{
		Query: url.Values{"tmdbId": {strconv.Itoa(a.TmdbID)}},
	})
	if err != nil {
		return nil, err
	}

	monitored := true
	if a.Monitored != nil {
		monitored = *a.Monitored
	}

	body := map[string]any{
		"title":            movie.Title,
		"year":             movie.Year,
		"tmdbId":           a.TmdbID,
		"titleSlug":        movie.TitleSlug,
		"images":           movie.Images,
		"qualityProfileId": a.QualityProfileID,
		"rootFolderPath":   a.RootFolderPath,
		"monitored":        monitored,
		"addOptions":       map[string]any{"searchForMovie": a.SearchNow},
	}
	added, err := client.Request[Movie](ctx, c, userID, "/movie", client.RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}
