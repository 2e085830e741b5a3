package models

// SegmentType labels one discrete unit pushed to the streaming sink.
type SegmentType string

const (
	SegmentText      SegmentType = "TEXT"
	SegmentFlights   SegmentType = "FLIGHTS"
	SegmentHotels    SegmentType = "HOTELS"
	SegmentItinerary SegmentType = "ITINERARY"
	SegmentSummary   SegmentType = "SUMMARY"
	SegmentError     SegmentType = "ERROR"
	SegmentDone      SegmentType = "DONE"
)

// Segment is one streamed update within a conversation turn. Seq increases
// monotonically per turn; Final marks the last segment of the turn.
type Segment struct {
	Type  SegmentType `json:"type"`
	Data  any         `json:"data,omitempty"`
	Seq   int64       `json:"seq"`
	Final bool        `json:"final,omitempty"`
}
