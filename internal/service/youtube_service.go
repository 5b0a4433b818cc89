package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidlearn_backend/internal/config"
	"vidlearn_backend/internal/util"
	"vidlearn_backend/pkg/logger"

	"go.uber.org/zap"
)

const maxVideoIDsPerRequest = 50 // videos.list 单次请求的 id 上限

// YouTubeService YouTube Data API v3 客户端，负责播放列表检索与时长查询
type YouTubeService struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewYouTubeService(cfg *config.YouTubeConfig) *YouTubeService {
	return &YouTubeService{
		APIKey:  cfg.APIKey,
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// PlaylistInfo 播放列表元信息
type PlaylistInfo struct {
	PlaylistID   string `json:"playlistId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ItemCount    int    `json:"itemCount"`
}

// PlaylistVideo 播放列表中的单个视频条目
type PlaylistVideo struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Position     int    `json:"position"`
	Duration     int    `json:"duration"`
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytThumbnails struct {
	Medium  ytThumbnail `json:"medium"`
	High    ytThumbnail `json:"high"`
	Default ytThumbnail `json:"default"`
}

func (t ytThumbnails) best() string {
	if t.High.URL != "" {
		return t.High.URL
	}
	if t.Medium.URL != "" {
		return t.Medium.URL
	}
	return t.Default.URL
}

type ytErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *YouTubeService) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("key", s.APIKey)
	reqURL := fmt.Sprintf("%s/%s?%s", s.BaseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr ytErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("youtube api %s: %d %s", endpoint, apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("youtube api %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// SearchPlaylists 按关键词搜索播放列表
func (s *YouTubeService) SearchPlaylists(ctx context.Context, query string, maxResults int) ([]PlaylistInfo, error) {
	if maxResults <= 0 || maxResults > 25 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "playlist")
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))

	var body struct {
		Items []struct {
			ID struct {
				PlaylistID string `json:"playlistId"`
			} `json:"id"`
			Snippet struct {
				Title        string       `json:"title"`
				Description  string       `json:"description"`
				ChannelTitle string       `json:"channelTitle"`
				Thumbnails   ytThumbnails `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := s.get(ctx, "search", params, &body); err != nil {
		return nil, err
	}

	results := make([]PlaylistInfo, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, PlaylistInfo{
			PlaylistID:   item.ID.PlaylistID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			ThumbnailURL: item.Snippet.Thumbnails.best(),
		})
	}
	return results, nil
}

// FetchPlaylist 获取播放列表元信息，不存在时返回 ErrPlaylistNotFound
func (s *YouTubeService) FetchPlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", playlistID)

	var body struct {
		Items []struct {
			Snippet struct {
				Title        string       `json:"title"`
				Description  string       `json:"description"`
				ChannelTitle string       `json:"channelTitle"`
				Thumbnails   ytThumbnails `json:"thumbnails"`
			} `json:"snippet"`
			ContentDetails struct {
				ItemCount int `json:"itemCount"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := s.get(ctx, "playlists", params, &body); err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, util.ErrPlaylistNotFound
	}

	item := body.Items[0]
	return &PlaylistInfo{
		PlaylistID:   playlistID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ChannelTitle: item.Snippet.ChannelTitle,
		ThumbnailURL: item.Snippet.Thumbnails.best(),
		ItemCount:    item.ContentDetails.ItemCount,
	}, nil
}

// FetchPlaylistItems 拉取播放列表的全部视频条目，翻页直到取完并回填时长
func (s *YouTubeService) FetchPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistVideo, error) {
	var videos []PlaylistVideo
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("part", "snippet,contentDetails")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", "50")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var body struct {
			NextPageToken string `json:"nextPageToken"`
			Items         []struct {
				Snippet struct {
					Title       string       `json:"title"`
					Description string       `json:"description"`
					Position    int          `json:"position"`
					Thumbnails  ytThumbnails `json:"thumbnails"`
				} `json:"snippet"`
				ContentDetails struct {
					VideoID string `json:"videoId"`
				} `json:"contentDetails"`
			} `json:"items"`
		}
		if err := s.get(ctx, "playlistItems", params, &body); err != nil {
			return nil, err
		}

		for _, item := range body.Items {
			// 已下架或私享的视频没有可播放的条目，跳过
			if item.ContentDetails.VideoID == "" || item.Snippet.Title == "Private video" || item.Snippet.Title == "Deleted video" {
				continue
			}
			videos = append(videos, PlaylistVideo{
				VideoID:      item.ContentDetails.VideoID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				ThumbnailURL: item.Snippet.Thumbnails.best(),
				Position:     item.Snippet.Position,
			})
		}

		if body.NextPageToken == "" {
			break
		}
		pageToken = body.NextPageToken
	}

	if len(videos) == 0 {
		return nil, util.ErrPlaylistEmpty
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.VideoID)
	}
	durations, err := s.FetchVideoDurations(ctx, ids)
	if err != nil {
		// 时长拿不到也继续导入，进度计算会按最小时长兜底
		logger.Log.Warn("video duration fetch failed", zap.String("playlistId", playlistID), zap.Error(err))
	} else {
		for i := range videos {
			videos[i].Duration = durations[videos[i].VideoID]
		}
	}

	return videos, nil
}

// FetchVideoDurations 批量查询视频时长，每次请求最多 50 个 id
func (s *YouTubeService) FetchVideoDurations(ctx context.Context, videoIDs []string) (map[string]int, error) {
	durations := make(map[string]int, len(videoIDs))

	for start := 0; start < len(videoIDs); start += maxVideoIDsPerRequest {
		end := start + maxVideoIDsPerRequest
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("id", strings.Join(videoIDs[start:end], ","))

		var body struct {
			Items []struct {
				ID             string `json:"id"`
				ContentDetails struct {
					Duration string `json:"duration"`
				} `json:"contentDetails"`
			} `json:"items"`
		}
		if err := s.get(ctx, "videos", params, &body); err != nil {
			return nil, err
		}

		for _, item := range body.Items {
			seconds := util.ParseISODuration(item.ContentDetails.Duration)
			if seconds == 0 {
				logger.Log.Warn("unparsable video duration",
					zap.String("videoId", item.ID),
					zap.String("duration", item.ContentDetails.Duration))
			}
			durations[item.ID] = seconds
		}
	}

	return durations, nil
}
