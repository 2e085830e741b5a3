package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

const maxItineraryDays = 14

// UsedNames tracks activity names already placed on other days, keyed by
// lower-cased trimmed name. Restaurants are tracked separately from
// everything else and may repeat only when the candidate pool runs dry.
type UsedNames struct {
	Activities  map[string]bool
	Restaurants map[string]bool
}

func NewUsedNames() UsedNames {
	return UsedNames{
		Activities:  make(map[string]bool),
		Restaurants: make(map[string]bool),
	}
}

// CollectFrom marks every activity name appearing in days as used.
func (u UsedNames) CollectFrom(days []models.Day) {
	for _, day := range days {
		for _, block := range day.Blocks {
			for _, act := range block.Activities {
				if act.Category == models.CategoryRestaurant {
					u.Restaurants[act.NameKey()] = true
				} else {
					u.Activities[act.NameKey()] = true
				}
			}
		}
	}
}

// ItineraryPlanner distributes destination activities into per-day
// morning/afternoon/evening blocks, one day at a time.
type ItineraryPlanner struct {
	source ActivitySource
	logger *zap.Logger
}

func NewItineraryPlanner(source ActivitySource, logger *zap.Logger) *ItineraryPlanner {
	return &ItineraryPlanner{source: source, logger: logger}
}

// TripDates expands the request into the ordered list of itinerary dates:
// departure through return inclusive, or trip_length days from departure.
func TripDates(req models.TripRequest) ([]string, error) {
	depart, err := time.Parse("2006-01-02", req.DepartDate)
	if err != nil {
		return nil, errors.Wrap(err, "itinerary requires a departure date")
	}

	var count int
	if req.ReturnDate != "" {
		ret, err := time.Parse("2006-01-02", req.ReturnDate)
		if err != nil {
			return nil, errors.Wrap(err, "invalid return date")
		}
		count = int(ret.Sub(depart).Hours()/24) + 1
	} else if n, ok := req.TripLength(); ok {
		count = n
	} else {
		return nil, errors.New("itinerary requires a return date or trip length")
	}

	if count < 1 {
		return nil, errors.New("itinerary spans no days")
	}
	if count > maxItineraryDays {
		count = maxItineraryDays
	}

	dates := make([]string, count)
	for i := range dates {
		dates[i] = depart.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates, nil
}

// PlanDays builds the full itinerary. After each completed day, onDay is
// invoked with a snapshot of the growing day list.
func (p *ItineraryPlanner) PlanDays(ctx context.Context, req models.TripRequest, onDay func(days []models.Day)) ([]models.Day, error) {
	dates, err := TripDates(req)
	if err != nil {
		return nil, err
	}

	used := NewUsedNames()
	days := make([]models.Day, 0, len(dates))
	for _, date := range dates {
		day, err := p.BuildDay(ctx, req, date, used)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
		if onDay != nil {
			snapshot := make([]models.Day, len(days))
			copy(snapshot, days)
			onDay(snapshot)
		}
	}
	return days, nil
}

// BuildDay assembles one day from candidates not yet used elsewhere,
// marking picks in used as it goes.
func (p *ItineraryPlanner) BuildDay(ctx context.Context, req models.TripRequest, date string, used UsedNames) (models.Day, error) {
	var attractions, experiences, restaurants []models.Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attractions = p.fetch(gctx, req.Destination, p.source.Attractions)
		return nil
	})
	g.Go(func() error {
		experiences = p.fetch(gctx, req.Destination, p.source.Experiences)
		return nil
	})
	g.Go(func() error {
		restaurants = p.fetch(gctx, req.Destination, p.source.Restaurants)
		return nil
	})
	// fetch already downgrades failures to empty pools.
	_ = g.Wait()

	morning := pickUnused(attractions, 2, used.Activities)
	if len(morning) == 0 {
		morning = []models.Activity{{
			Name:     fmt.Sprintf("Explore %s (%s)", req.Destination, date),
			Category: models.CategoryAttraction,
		}}
		markUsed(morning, used.Activities)
	}

	afternoon := pickUnused(experiences, 1, used.Activities)
	if len(afternoon) == 0 {
		afternoon = pickUnused(attractions, 1, used.Activities)
	}
	if len(afternoon) == 0 {
		afternoon = []models.Activity{{
			Name:     fmt.Sprintf("Stroll through %s (%s)", req.Destination, date),
			Category: models.CategoryExperience,
		}}
		markUsed(afternoon, used.Activities)
	}

	evening := pickUnused(restaurants, 1, used.Restaurants)
	if len(evening) == 0 && len(restaurants) > 0 {
		// Pool exhausted: restaurants may repeat across days.
		evening = []models.Activity{restaurants[0]}
	}
	if len(evening) == 0 {
		evening = []models.Activity{{
			Name:     fmt.Sprintf("Local dining in %s", req.Destination),
			Category: models.CategoryRestaurant,
		}}
	}

	return models.Day{
		Date: date,
		Blocks: []models.Block{
			{TimeLabel: "morning", Activities: morning},
			{TimeLabel: "afternoon", Activities: afternoon},
			{TimeLabel: "evening", Activities: evening},
		},
	}, nil
}

type fetchFunc func(ctx context.Context, destination string) ([]models.Activity, error)

func (p *ItineraryPlanner) fetch(ctx context.Context, destination string, fn fetchFunc) []models.Activity {
	activities, err := fn(ctx, destination)
	if err != nil {
		p.logger.Warn("Activity lookup failed, continuing with empty pool",
			zap.String("destination", destination), zap.Error(err))
		return nil
	}
	return activities
}

func pickUnused(pool []models.Activity, n int, used map[string]bool) []models.Activity {
	var picked []models.Activity
	for _, candidate := range pool {
		if len(picked) == n {
			break
		}
		key := candidate.NameKey()
		if key == "" || used[key] {
			continue
		}
		used[key] = true
		picked = append(picked, candidate)
	}
	return picked
}

func markUsed(activities []models.Activity, used map[string]bool) {
	for _, a := range activities {
		used[a.NameKey()] = true
	}
}
