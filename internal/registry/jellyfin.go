package registry

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/client"
)

// MediaItem is the subset of a Jellyfin BaseItemDto returned to callers.
type MediaItem struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	Type           string `json:"Type"`
	ProductionYear int    `json:"ProductionYear,omitempty"`
	SeriesName     string `json:"SeriesName,omitempty"`
}

type itemsPage struct {
	Items            []MediaItem `json:"Items"`
	TotalRecordCount int         `json:"TotalRecordCount"`
}

// PlaybackSession is one active Jellyfin session.
type PlaybackSession struct {
	UserName       string     `json:"UserName"`
	Client         string     `json:"Client"`
	DeviceName     string     `json:"DeviceName"`
	NowPlayingItem *MediaItem `json:"NowPlayingItem,omitempty"`
}

type jellyfinUser struct {
	ID     string `json:"Id"`
	Name   string `json:"Name"`
	Policy struct {
		IsAdministrator bool `json:"IsAdministrator"`
	} `json:"Policy"`
}

type mediaSearchArgs struct {
	Term  string `json:"term"`
	Limit int    `json:"limit"`
}

type latestArgs struct {
	UserID string `json:"userId"`
	Limit  int    `json:"limit"`
}

const defaultMediaLimit = 20

func jellyfinDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:           "jellyfin",
		DisplayName:    "Jellyfin",
		Auth:           auth.BearerToken(`MediaBrowser Token="{apiKey}"`),
		RequireAPIKey:  true,
		StatusEndpoint: "/System/Info",
		Capabilities: []Capability{
			{
				Name:        "jellyfin_search_media",
				Description: "Search the media server for movies, series and episodes.",
				Category:    CategorySearch,
				Operation:   "search media",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a mediaSearchArgs) ([]MediaItem, error) {
						if strings.TrimSpace(a.Term) == "" {
							return nil, argError("term is required")
						}
						page, err := client.Request[itemsPage](ctx, c, userID, "/Items", client.RequestOptions{
							Query: url.Values{
								"searchTerm":       {a.Term},
								"Recursive":        {"true"},
								"IncludeItemTypes": {"Movie,Series,Episode"},
								"Limit":            {strconv.Itoa(limitOr(a.Limit, defaultMediaLimit))},
							},
						})
						return page.Items, err
					})
				},
			},
			{
				Name:        "jellyfin_get_sessions",
				Description: "Show who is watching what right now.",
				Category:    CategoryPlayback,
				Operation:   "get sessions",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, _ noArgs) ([]PlaybackSession, error) {
						sessions, err := client.Request[[]PlaybackSession](ctx, c, userID, "/Sessions", client.RequestOptions{
							Query: url.Values{"activeWithinSeconds": {"960"}},
						})
						if err != nil {
							return nil, err
						}
						playing := sessions[:0]
						for _, s := range sessions {
							if s.NowPlayingItem != nil {
								playing = append(playing, s)
							}
						}
						return playing, nil
					})
				},
			},
			{
				Name:        "jellyfin_get_latest",
				Description: "List recently added media.",
				Category:    CategoryLibrary,
				Operation:   "get latest media",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a latestArgs) ([]MediaItem, error) {
						return latestMedia(ctx, c, userID, a)
					})
				},
			},
		},
	}
}

// latestMedia resolves a Jellyfin user when none is given, since API-key
// requests carry no user context.
func latestMedia(ctx context.Context, c *client.Client, userID string, a latestArgs) ([]MediaItem, error) {
	jfUser := a.UserID
	if jfUser == "" {
		users, err := client.Request[[]jellyfinUser](ctx, c, userID, "/Users", client.RequestOptions{})
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if u.Policy.IsAdministrator {
				jfUser = u.ID
				break
			}
		}
		if jfUser == "" && len(users) > 0 {
			jfUser = users[0].ID
		}
		if jfUser == "" {
			return nil, argError("no Jellyfin user available")
		}
	}

	return client.Request[[]MediaItem](ctx, c, userID, "/Items/Latest", client.RequestOptions{
		Query: url.Values{
			"userId": {jfUser},
			"Limit":  {strconv.Itoa(limitOr(a.Limit, defaultMediaLimit))},
		},
	})
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return min(n, 100)
}
