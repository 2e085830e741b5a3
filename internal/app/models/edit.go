package models

// EditType tags which kind of plan mutation a follow-up message wants.
type EditType string

const (
	EditNone              EditType = "none"
	EditDates             EditType = "dates"
	EditFlights           EditType = "flights"
	EditHotels            EditType = "hotels"
	EditItineraryDay      EditType = "itinerary_day"
	EditItineraryRemove   EditType = "itinerary_remove"
	EditItineraryActivity EditType = "itinerary_activity"
	EditItinerarySwap     EditType = "itinerary_swap"
	EditFull              EditType = "full"
)

// EditIntent is the classified description of what part of an existing
// plan a follow-up message wants changed. Day numbers are 1-based; zero
// means absent.
type EditIntent struct {
	Type         EditType `json:"edit_type"`
	DayNumber    int      `json:"day_number,omitempty"`
	TargetDate   string   `json:"target_date,omitempty"`
	ActivityName string   `json:"activity_name,omitempty"`
	SourceDay    int      `json:"source_day,omitempty"`
	TargetDay    int      `json:"target_day,omitempty"`
}
