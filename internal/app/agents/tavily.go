package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// ActivitySource supplies candidate activities for a destination. The
// itinerary planner only depends on this interface.
type ActivitySource interface {
	Attractions(ctx context.Context, destination string) ([]models.Activity, error)
	Restaurants(ctx context.Context, destination string) ([]models.Activity, error)
	Experiences(ctx context.Context, destination string) ([]models.Activity, error)
}

// TavilyClient searches Tavily for attractions, restaurants and
// experiences. Without a key it degrades to empty result sets so the
// itinerary agent still produces days.
type TavilyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	logger  *zap.Logger
}

func NewTavilyClient(apiKey string, logger *zap.Logger) *TavilyClient {
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
		http:    &http.Client{Timeout: searchTimeout},
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		logger:  logger,
	}
}

func (c *TavilyClient) Attractions(ctx context.Context, destination string) ([]models.Activity, error) {
	return c.search(ctx, destination, "top attractions in "+destination, models.CategoryAttraction)
}

func (c *TavilyClient) Restaurants(ctx context.Context, destination string) ([]models.Activity, error) {
	return c.search(ctx, destination, "best restaurants in "+destination, models.CategoryRestaurant)
}

func (c *TavilyClient) Experiences(ctx context.Context, destination string) ([]models.Activity, error) {
	return c.search(ctx, destination, "unique experiences in "+destination, models.CategoryExperience)
}

func (c *TavilyClient) search(ctx context.Context, destination, query string, category models.ActivityCategory) ([]models.Activity, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	key := string(category) + ":" + strings.ToLower(destination)
	if cached, found := c.cache.Get(key); found {
		return cached.([]models.Activity), nil
	}

	reqBody, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": 10,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding activity search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "building activity search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "activity search")
	}
	body, err := readAllAndClose(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("activity search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding activity search response")
	}

	activities := make([]models.Activity, 0, len(payload.Results))
	for _, r := range payload.Results {
		name := cleanActivityTitle(r.Title)
		if name == "" {
			continue
		}
		activities = append(activities, models.Activity{
			Name:        name,
			Category:    category,
			Description: truncate(r.Content, 200),
			MapLink:     r.URL,
		})
	}

	c.cache.Set(key, activities, cache.DefaultExpiration)
	return activities, nil
}

// cleanActivityTitle strips common listicle noise from result titles.
func cleanActivityTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range []string{" | ", " - ", " — "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
