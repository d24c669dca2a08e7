package model

import (
	"strings"

	"github.com/google/uuid"
)

// ItemType tags a timeline entry with what kind of activity it is.
type ItemType string

const (
	ItemSpot      ItemType = "spot"
	ItemFood      ItemType = "food"
	ItemShop      ItemType = "shop"
	ItemTransport ItemType = "transport"
	ItemFlight    ItemType = "flight"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemSpot, ItemFood, ItemShop, ItemTransport, ItemFlight:
		return true
	}
	return false
}

// TripItem is a single entry on a day's timeline.
type TripItem struct {
	Time     string   `json:"time"`
	Type     ItemType `json:"type"`
	Activity string   `json:"activity"`
	Location string   `json:"location"`
	Note     string   `json:"note"`
}

// FlightInfo describes the flight attached to a day, if any.
// ArrivalOffset is the day delta of the landing time: 0, +1 or -1.
type FlightInfo struct {
	StartTime     string `json:"startTime"`
	StartAirport  string `json:"startAirport"`
	Number        string `json:"number"`
	EndTime       string `json:"endTime"`
	EndAirport    string `json:"endAirport"`
	ArrivalOffset int    `json:"arrivalOffset"`
}

// DayPlan is one day of a trip. Date is the display form ("01/02 (Mon)"),
// ShortDate the compact form ("1/2") and FullDate the ISO form ("2006-01-02").
type DayPlan struct {
	Date      string      `json:"date"`
	ShortDate string      `json:"shortDate"`
	FullDate  string      `json:"fullDate"`
	Title     string      `json:"title"`
	Items     []TripItem  `json:"items"`
	Flight    *FlightInfo `json:"flight"`
}

// TripMeta is the trip-switcher index entry for a trip.
type TripMeta struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
	DaysCount   int    `json:"daysCount"`
}

// SetupConfig holds the per-trip configuration entered at creation time
// (or detected afterwards via the lookup endpoints).
type SetupConfig struct {
	Destination string  `json:"destination"`
	StartDate   string  `json:"startDate"`
	Days        int     `json:"days"`
	Rate        float64 `json:"rate"`
	Currency    string  `json:"currency"`
	LangCode    string  `json:"langCode"`
	LangName    string  `json:"langName"`
}

// NewTripID returns a fresh opaque trip identifier.
func NewTripID() string {
	return "trip_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
