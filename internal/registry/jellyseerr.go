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

// SearchResult is one Jellyseerr search hit.
type SearchResult struct {
	ID           int    `json:"id"`
	MediaType    string `json:"mediaType"`
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"releaseDate,omitempty"`
	FirstAirDate string `json:"firstAirDate,omitempty"`
	Overview     string `json:"overview,omitempty"`
}

type searchPage struct {
	Page         int            `json:"page"`
	TotalResults int            `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// MediaRequest is one Jellyseerr request.
type MediaRequest struct {
	ID     int    `json:"id"`
	Status int    `json:"status"`
	Type   string `json:"type"`
	Media  struct {
		TmdbID int `json:"tmdbId"`
		Status int `json:"status"`
	} `json:"media"`
	RequestedBy struct {
		DisplayName string `json:"displayName"`
	} `json:"requestedBy"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type requestsPage struct {
	PageInfo struct {
		Pages   int `json:"pages"`
		Results int `json:"results"`
	} `json:"pageInfo"`
	Results []MediaRequest `json:"results"`
}

type overseerrSearchArgs struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

type listRequestsArgs struct {
	Take   int    `json:"take"`
	Skip   int    `json:"skip"`
	Filter string `json:"filter"`
}

type createRequestArgs struct {
	MediaType string `json:"mediaType"`
	MediaID   int    `json:"mediaId"`
	Seasons   []int  `json:"seasons,omitempty"`
}

func jellyseerrDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:             "jellyseerr",
		DisplayName:      "Jellyseerr",
		Auth:             auth.APIKeyHeader("X-Api-Key"),
		APIVersionPrefix: "/api/v1",
		RequireAPIKey:    true,
		StatusEndpoint:   "/status",
		Capabilities: []Capability{
			{
				Name:        "jellyseerr_search",
				Description: "Search movies and shows that can be requested.",
				Category:    CategorySearch,
				Operation:   "search",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a overseerrSearchArgs) ([]SearchResult, error) {
						if strings.TrimSpace(a.Query) == "" {
							return nil, argError("query is required")
						}
						page := max(a.Page, 1)
						// Jellyseerr rejects "+" for spaces, so the query is path-escaped.
						endpoint := "/search?query=" + url.PathEscape(a.Query) + "&page=" + strconv.Itoa(page)
						res, err := client.Request[searchPage](ctx, c, userID, endpoint, client.RequestOptions{})
						return res.Results, err
					})
				},
			},
			{
				Name:        "jellyseerr_list_requests",
				Description: "List media requests and their status.",
				Category:    CategoryRequests,
				Operation:   "list requests",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a listRequestsArgs) ([]MediaRequest, error) {
						q := url.Values{
							"take": {strconv.Itoa(limitOr(a.Take, defaultMediaLimit))},
							"skip": {strconv.Itoa(max(a.Skip, 0))},
						}
						if a.Filter != "" {
							q.Set("filter", a.Filter)
						}
						res, err := client.Request[requestsPage](ctx, c, userID, "/request", client.RequestOptions{Query: q})
						return res.Results, err
					})
				},
			},
			{
				Name:             "jellyseerr_create_request",
				Description:      "Request a movie or series by TMDB id.",
				Category:         CategoryRequests,
				RequiresApproval: true,
				Operation:        "create request",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a createRequestArgs) (*MediaRequest, error) {
						if a.MediaType != "movie" && a.MediaType != "tv" {
							return nil, argError("mediaType must be movie or tv")
						}
						if a.MediaID <= 0 {
							return nil, argError("mediaId is required")
						}
						body := map[string]any{"mediaType": a.MediaType, "mediaId": a.MediaID}
						if a.MediaType == "tv" {
							if len(a.Seasons) > 0 {
								body["seasons"] = a.Seasons
							} else {
								body["seasons"] = "all"
							}
						}
						req, err := client.Request[MediaRequest](ctx, c, userID, "/request", client.RequestOptions{
							Method: http.MethodPost,
							Body:   body,
						})
						if err != nil {
							return nil, err
						}
						return &req, nil
					})
				},
			},
		},
	}
}
