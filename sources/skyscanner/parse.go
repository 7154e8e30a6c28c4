package skyscanner

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/wayfarer/core"
)

type pricingResponse struct {
	Status      string            `json:"Status"`
	Itineraries []json.RawMessage `json:"Itineraries"`
	Legs        []json.RawMessage `json:"Legs"`
	Carriers    []json.RawMessage `json:"Carriers"`
	Places      []json.RawMessage `json:"Places"`
}

type leg struct {
	ID                 flexID   `json:"Id"`
	OriginStation      flexID   `json:"OriginStation"`
	DestinationStation flexID   `json:"DestinationStation"`
	Departure          string   `json:"Departure"`
	Arrival            string   `json:"Arrival"`
	Duration           float64  `json:"Duration"`
	Carriers           []flexID `json:"Carriers"`
	Stops              []flexID `json:"Stops"`
}

type carrier struct {
	ID   flexID `json:"Id"`
	Name string `json:"Name"`
}

type place struct {
	ID   flexID `json:"Id"`
	Name string `json:"Name"`
}

type pricingOption struct {
	Price       float64 `json:"Price"`
	DeeplinkURL string  `json:"DeeplinkUrl"`
}

type itinerary struct {
	OutboundLegID  flexID          `json:"OutboundLegId"`
	PricingOptions []pricingOption `json:"PricingOptions"`
}

// decodeEach decodes every entry on its own, logging and skipping the ones
// that fail.
func decodeEach[T any](a *Adapter, kind string, items []json.RawMessage, visit func(T)) {
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			a.logger.Error("error parsing flight "+kind, "index", i, "err", err)
			continue
		}
		visit(v)
	}
}

// parseFlights joins itineraries with their outbound leg, carriers and places.
// An itinerary, leg, carrier or place that fails to decode is skipped, as is
// an itinerary with no outbound leg ID.
func (a *Adapter) parseFlights(page pricingResponse, now time.Time) []core.RawRecord {
	legs := make(map[flexID]leg, len(page.Legs))
	decodeEach(a, "leg", page.Legs, func(l leg) { legs[l.ID] = l })
	carriers := make(map[flexID]string, len(page.Carriers))
	decodeEach(a, "carrier", page.Carriers, func(c carrier) { carriers[c.ID] = c.Name })
	places := make(map[flexID]string, len(page.Places))
	decodeEach(a, "place", page.Places, func(p place) { places[p.ID] = p.Name })

	flights := make([]core.RawRecord, 0, len(page.Itineraries))
	for i, item := range page.Itineraries {
		var it itinerary
		if err := json.Unmarshal(item, &it); err != nil {
			a.logger.Error("error parsing flight itinerary", "index", i, "err", err)
			continue
		}
		if it.OutboundLegID == "" {
			a.logger.Error("error parsing flight itinerary", "index", i, "err", "missing outbound leg")
			continue
		}

		outbound := legs[it.OutboundLegID]
		origin := places[outbound.OriginStation]
		destination := places[outbound.DestinationStation]

		carrierNames := make([]string, 0, len(outbound.Carriers))
		for _, id := range outbound.Carriers {
			carrierNames = append(carrierNames, carriers[id])
		}

		var price float64
		var deeplink string
		if len(it.PricingOptions) > 0 {
			price = it.PricingOptions[0].Price
			deeplink = it.PricingOptions[0].DeeplinkURL
		}

		var raw map[string]any
		_ = json.Unmarshal(item, &raw)

		flights = append(flights, core.RawRecord{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Flight from " + origin + " to " + destination,
			core.FieldDescription: "Flight operated by " + strings.Join(carrierNames, ", ") + " with duration " + core.AsText(outbound.Duration) + " minutes",
			core.FieldOrigin:      origin,
			core.FieldDestination: destination,
			"departure_time":      outbound.Departure,
			"arrival_time":        outbound.Arrival,
			"duration":            outbound.Duration,
			"carriers":            carrierNames,
			"price":               price,
			"currency":            "USD",
			"stops":               len(outbound.Stops),
			core.FieldCategories:  []string{"flight", "transport"},
			core.FieldSourceURL:   deeplink,
			core.FieldRawData:     raw,
			core.FieldExtractedAt: now.Format(time.RFC3339Nano),
		})
	}
	return flights
}
