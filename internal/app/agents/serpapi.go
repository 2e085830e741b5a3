// Package agents holds the sub-agent search clients invoked by the plan
// supervisor: SerpAPI for flights and hotels, Tavily for activities, and
// the itinerary day planner built on top of them.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

const (
	serpAPIBaseURL    = "https://serpapi.com/search.json"
	searchMaxAttempts = 3
	searchTimeout     = 30 * time.Second
	maxFlightOptions  = 5
	maxHotelOptions   = 5
)

// SerpAPIClient queries SerpAPI's Google Flights and Google Hotels
// engines. Results are cached briefly per query; transient failures are
// retried with exponential backoff.
type SerpAPIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	logger  *zap.Logger
}

func NewSerpAPIClient(apiKey string, logger *zap.Logger) *SerpAPIClient {
	return &SerpAPIClient{
		apiKey:  apiKey,
		baseURL: serpAPIBaseURL,
		http:    &http.Client{Timeout: searchTimeout},
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		logger:  logger,
	}
}

func (c *SerpAPIClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < searchMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building search request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("Search request failed, retrying",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		body, readErr := readAllAndClose(resp)
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("search provider returned status %d", resp.StatusCode)
			if resp.StatusCode < 500 {
				return nil, lastErr
			}
			continue
		}
		return body, nil
	}
	return nil, errors.Wrap(lastErr, "search request exhausted retries")
}

// looseString tolerates numbers or strings in provider payloads, decoding
// once at the boundary into a plain string.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num == float64(int64(num)) {
			*s = looseString(fmt.Sprintf("%d", int64(num)))
		} else {
			*s = looseString(fmt.Sprintf("%.2f", num))
		}
		return nil
	}
	*s = ""
	return nil
}

// SearchFlights returns up to five flight options for the request. A
// missing credential is an agent failure, not a crash.
func (c *SerpAPIClient) SearchFlights(ctx context.Context, req models.TripRequest) ([]models.Flight, error) {
	if c.apiKey == "" {
		return nil, errors.New("flight search unavailable: SERPAPI_KEY is not configured")
	}

	key := "flights:" + req.Origin + ":" + req.Destination + ":" + req.DepartDate + ":" + req.ReturnDate
	if cached, found := c.cache.Get(key); found {
		return cached.([]models.Flight), nil
	}

	params := url.Values{}
	params.Set("engine", "google_flights")
	params.Set("departure_id", req.Origin)
	params.Set("arrival_id", req.Destination)
	params.Set("outbound_date", req.DepartDate)
	params.Set("adults", fmt.Sprintf("%d", req.AdultCount))
	if req.ReturnDate != "" {
		params.Set("return_date", req.ReturnDate)
	} else {
		params.Set("type", "2") // one-way
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "flight search")
	}

	var payload struct {
		BestFlights  []serpFlightOption `json:"best_flights"`
		OtherFlights []serpFlightOption `json:"other_flights"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding flight search response")
	}

	options := append(payload.BestFlights, payload.OtherFlights...)
	flights := make([]models.Flight, 0, maxFlightOptions)
	for _, opt := range options {
		if len(flights) == maxFlightOptions {
			break
		}
		if f, ok := opt.toFlight(); ok {
			flights = append(flights, f)
		}
	}

	c.cache.Set(key, flights, cache.DefaultExpiration)
	return flights, nil
}

type serpFlightOption struct {
	Flights []struct {
		Airline          string `json:"airline"`
		DepartureAirport struct {
			Time string `json:"time"`
		} `json:"departure_airport"`
		ArrivalAirport struct {
			Time string `json:"time"`
		} `json:"arrival_airport"`
	} `json:"flights"`
	TotalDuration int         `json:"total_duration"`
	Price         looseString `json:"price"`
}

func (o serpFlightOption) toFlight() (models.Flight, bool) {
	if len(o.Flights) == 0 {
		return models.Flight{}, false
	}
	first := o.Flights[0]
	last := o.Flights[len(o.Flights)-1]

	f := models.Flight{
		Airline:       first.Airline,
		Price:         string(o.Price),
		DepartureTime: first.DepartureAirport.Time,
		ArrivalTime:   last.ArrivalAirport.Time,
		Stops:         len(o.Flights) - 1,
	}
	if o.TotalDuration > 0 {
		f.Duration = fmt.Sprintf("%dh %dm", o.TotalDuration/60, o.TotalDuration%60)
	}
	return f, true
}

// SearchHotels returns up to five hotel options plus a short reasoning
// line describing the search scope.
func (c *SerpAPIClient) SearchHotels(ctx context.Context, req models.TripRequest) ([]models.Hotel, string, error) {
	if c.apiKey == "" {
		return nil, "", errors.New("hotel search unavailable: SERPAPI_KEY is not configured")
	}

	key := "hotels:" + req.Destination + ":" + req.DepartDate + ":" + req.ReturnDate
	if cached, found := c.cache.Get(key); found {
		hit := cached.(hotelResult)
		return hit.hotels, hit.reasoning, nil
	}

	checkOut := req.ReturnDate
	if checkOut == "" {
		if d, err := time.Parse("2006-01-02", req.DepartDate); err == nil {
			checkOut = d.AddDate(0, 0, 1).Format("2006-01-02")
		}
	}

	params := url.Values{}
	params.Set("engine", "google_hotels")
	params.Set("q", req.Destination+" hotels")
	params.Set("check_in_date", req.DepartDate)
	params.Set("check_out_date", checkOut)
	params.Set("adults", fmt.Sprintf("%d", req.AdultCount))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, "", errors.Wrap(err, "hotel search")
	}

	var payload struct {
		Properties []struct {
			Name         string `json:"name"`
			RatePerNight struct {
				Lowest looseString `json:"lowest"`
			} `json:"rate_per_night"`
			OverallRating looseString `json:"overall_rating"`
			Link          string      `json:"link"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", errors.Wrap(err, "decoding hotel search response")
	}

	hotels := make([]models.Hotel, 0, maxHotelOptions)
	for _, p := range payload.Properties {
		if len(hotels) == maxHotelOptions {
			break
		}
		if p.Name == "" {
			continue
		}
		hotels = append(hotels, models.Hotel{
			Name:          p.Name,
			PricePerNight: string(p.RatePerNight.Lowest),
			Rating:        string(p.OverallRating),
			Link:          p.Link,
		})
	}

	reasoning := fmt.Sprintf("Top stays in %s from %s to %s", req.Destination, req.DepartDate, checkOut)
	c.cache.Set(key, hotelResult{hotels: hotels, reasoning: reasoning}, cache.DefaultExpiration)
	return hotels, reasoning, nil
}

type hotelResult struct {
	hotels    []models.Hotel
	reasoning string
}

func readAllAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return body, nil
}
