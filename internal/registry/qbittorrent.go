package registry

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/client"
)

// Torrent is the subset of qBittorrent torrent info returned to callers.
type Torrent struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Size     int64   `json:"size"`
	DlSpeed  int64   `json:"dlspeed"`
	UpSpeed  int64   `json:"upspeed"`
	ETA      int64   `json:"eta"`
	Category string  `json:"category,omitempty"`
}

type listTorrentsArgs struct {
	Filter   string `json:"filter"`
	Category string `json:"category"`
}

type hashesArgs struct {
	Hashes      []string `json:"hashes"`
	DeleteFiles bool     `json:"deleteFiles"`
}

func (a hashesArgs) joined() (string, error) {
	if len(a.Hashes) == 0 {
		return "", argError("hashes is required (use [\"all\"] for every torrent)")
	}
	return strings.Join(a.Hashes, "|"), nil
}

func qbittorrentDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:             "qbittorrent",
		DisplayName:      "qBittorrent",
		Auth:             auth.FormSession(),
		APIVersionPrefix: "/api/v2",
		RequireAPIKey:    true,
		Capabilities: []Capability{
			{
				Name:        "qbittorrent_list_torrents",
				Description: "List torrents, optionally filtered by state or category.",
				Category:    CategoryDownloads,
				Operation:   "list torrents",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a listTorrentsArgs) ([]Torrent, error) {
						q := url.Values{}
						if a.Filter != "" {
							q.Set("filter", a.Filter)
						}
						if a.Category != "" {
							q.Set("category", a.Category)
						}
						return client.Request[[]Torrent](ctx, c, userID, "/torrents/info", client.RequestOptions{Query: q})
					})
				},
			},
			{
				Name:             "qbittorrent_pause_torrents",
				Description:      "Pause torrents by hash.",
				Category:         CategoryDownloads,
				RequiresApproval: true,
				Operation:        "pause torrents",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a hashesArgs) (map[string]any, error) {
						return torrentAction(ctx, c, userID, a, "/torrents/stop", "/torrents/pause")
					})
				},
			},
			{
				Name:             "qbittorrent_resume_torrents",
				Description:      "Resume torrents by hash.",
				Category:         CategoryDownloads,
				RequiresApproval: true,
				Operation:        "resume torrents",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a hashesArgs) (map[string]any, error) {
						return torrentAction(ctx, c, userID, a, "/torrents/start", "/torrents/resume")
					})
				},
			},
			{
				Name:             "qbittorrent_delete_torrents",
				Description:      "Delete torrents by hash, optionally with their data.",
				Category:         CategoryDownloads,
				RequiresApproval: true,
				Operation:        "delete torrents",
				Bind: func(c *client.Client, userID string) Handler {
					return handle(func(ctx context.Context, a hashesArgs) (map[string]any, error) {
						hashes, err := a.joined()
						if err != nil {
							return nil, err
						}
						_, err = c.Do(ctx, userID, "/torrents/delete", client.RequestOptions{
							Method: http.MethodPost,
							Form: url.Values{
								"hashes":      {hashes},
								"deleteFiles": {strconv.FormatBool(a.DeleteFiles)},
							},
						})
						if err != nil {
							return nil, err
						}
						return map[string]any{"deleted": a.Hashes}, nil
					})
				},
			},
		},
	}
}

// torrentAction posts hashes to endpoint. qBittorrent 5 renamed pause and
// resume to stop and start; legacy is tried when endpoint is missing.
func torrentAction(ctx context.Context, c *client.Client, userID string, a hashesArgs, endpoint, legacy string) (map[string]any, error) {
	hashes, err := a.joined()
	if err != nil {
		return nil, err
	}
	opts := client.RequestOptions{
		Method: http.MethodPost,
		Form:   url.Values{"hashes": {hashes}},
	}

	_, err = c.Do(ctx, userID, endpoint, opts)
	if apierr.StatusCode(err) == http.StatusNotFound {
		_, err = c.Do(ctx, userID, legacy, opts)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"hashes": a.Hashes}, nil
}
