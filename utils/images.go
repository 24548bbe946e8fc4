package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driveFilesEndpoint = "https://www.googleapis.com/drive/v3/files"
	imageCacheKeyFmt   = "kringbot:imgcache:%s"
	imageCacheTTL      = 24 * time.Hour
)

// ImageProvider resolves a Drive folder identifier to a random image URL.
// Folder listings are cached in Redis (when configured) so restarts don't
// refetch the folder, with an in-memory copy as the fast path.
type ImageProvider struct {
	apiKey string
	client *http.Client
	redis  *redis.Client

	mu       sync.RWMutex
	listings map[string][]string
}

// Images is the global image provider, nil when the image feature is not
// configured.
var Images *ImageProvider

// SetupImageProvider wires the provider, optionally backed by Redis.
func SetupImageProvider(apiKey, redisURL string) error {
	provider := &ImageProvider{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
		listings: make(map[string][]string),
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		provider.redis = client
	}

	Images = provider
	return nil
}

// CloseImageProvider releases the Redis connection if one was opened.
func CloseImageProvider() {
	if Images != nil && Images.redis != nil {
		Images.redis.Close()
	}
	Images = nil
}

// RandomImageURL returns a random image URL from the folder, loading the
// listing from cache or the Drive API as needed.
func (ip *ImageProvider) RandomImageURL(folderID string) (string, error) {
	urls, err := ip.folderListing(folderID)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("no images found in folder %s", folderID)
	}
	return urls[rand.Intn(len(urls))], nil
}

// RefreshFolderCache refetches the folder listing from the Drive API and
// replaces both cache layers.
func (ip *ImageProvider) RefreshFolderCache(folderID string) error {
	urls, err := ip.fetchListing(folderID)
	if err != nil {
		return err
	}
	ip.storeListing(folderID, urls)
	return nil
}

func (ip *ImageProvider) folderListing(folderID string) ([]string, error) {
	ip.mu.RLock()
	urls, ok := ip.listings[folderID]
	ip.mu.RUnlock()
	if ok {
		return urls, nil
	}

	if ip.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		data, err := ip.redis.Get(ctx, fmt.Sprintf(imageCacheKeyFmt, folderID)).Result()
		if err == nil {
			var cached []string
			if err := json.Unmarshal([]byte(data), &cached); err == nil && len(cached) > 0 {
				ip.mu.Lock()
				ip.listings[folderID] = cached
				ip.mu.Unlock()
				return cached, nil
			}
		} else if err != redis.Nil {
			BotLogf("IMAGES", "Redis cache read failed: %v", err)
		}
	}

	urls, err := ip.fetchListing(folderID)
	if err != nil {
		return nil, err
	}
	ip.storeListing(folderID, urls)
	return urls, nil
}

func (ip *ImageProvider) storeListing(folderID string, urls []string) {
	ip.mu.Lock()
	ip.listings[folderID] = urls
	ip.mu.Unlock()

	if ip.redis != nil {
		data, err := json.Marshal(urls)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ip.redis.Set(ctx, fmt.Sprintf(imageCacheKeyFmt, folderID), data, imageCacheTTL).Err(); err != nil {
			BotLogf("IMAGES", "Redis cache write failed: %v", err)
		}
	}
}

type driveFileList struct {
	Files []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
	} `json:"files"`
}

// fetchListing lists the folder via the Drive API and maps file IDs to
// direct-view URLs.
func (ip *ImageProvider) fetchListing(folderID string) ([]string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("'%s' in parents and mimeType contains 'image/'", folderID))
	params.Set("fields", "files(id,name,mimeType)")
	params.Set("pageSize", "1000")
	params.Set("key", ip.apiKey)

	resp, err := ip.client.Get(driveFilesEndpoint + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("folder listing returned status %d", resp.StatusCode)
	}

	var list driveFileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode folder listing: %w", err)
	}

	urls := make([]string, 0, len(list.Files))
	for _, f := range list.Files {
		urls = append(urls, fmt.Sprintf("https://drive.google.com/uc?id=%s", f.ID))
	}
	return urls, nil
}
