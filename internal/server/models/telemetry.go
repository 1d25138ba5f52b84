package models

import "time"

// Reading is any representation of a telemetry record that can be returned
// to a caller: the full record or a role-restricted projection of it.
type Reading interface {
	ReadingID() int64
}

// Telemetry is a single buoy reading. BuoyID and Timestamp are fixed at
// creation; Timestamp decides which calendar quarter the record belongs to.
type Telemetry struct {
	ID          int64     `json:"id"`
	BuoyID      int64     `json:"buoy_id"`
	Salinity    float64   `json:"salinity"`
	Temperature float64   `json:"temperature"`
	PH          float64   `json:"pH"`
	Pollutants  *string   `json:"pollutants"`
	Location    *string   `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

func (t *Telemetry) ReadingID() int64 { return t.ID }

// TelemetrySummary is the reduced view of a record shown to consumers.
type TelemetrySummary struct {
	ID        int64     `json:"id"`
	Salinity  float64   `json:"salinity"`
	PH        float64   `json:"pH"`
	Timestamp time.Time `json:"timestamp"`
}

func (t *TelemetrySummary) ReadingID() int64 { return t.ID }

// NewTelemetry is the create payload. Pointers distinguish a missing
// measurement from a zero one.
type NewTelemetry struct {
	BuoyID      *int64   `json:"buoy_id" validate:"required"`
	Salinity    *float64 `json:"salinity" validate:"required"`
	Temperature *float64 `json:"temperature" validate:"required"`
	PH          *float64 `json:"pH" validate:"required"`
	Pollutants  *string  `json:"pollutants"`
	Location    *string  `json:"location"`
}

// Record builds the row to insert, stamped with ts.
func (n *NewTelemetry) Record(ts time.Time) *Telemetry {
	return &Telemetry{
		BuoyID:      *n.BuoyID,
		Salinity:    *n.Salinity,
		Temperature: *n.Temperature,
		PH:          *n.PH,
		Pollutants:  n.Pollutants,
		Location:    n.Location,
		Timestamp:   ts,
	}
}

// TelemetryPatch holds the mutable fields of a record. A nil field, whether
// omitted or sent as null, leaves the stored value unchanged.
type TelemetryPatch struct {
	Salinity    *float64 `json:"salinity"`
	Temperature *float64 `json:"temperature"`
	PH          *float64 `json:"pH"`
	Pollutants  *string  `json:"pollutants"`
	Location    *string  `json:"location"`
}

// Apply copies the present fields of p onto t.
func (p *TelemetryPatch) Apply(t *Telemetry) {
	if p.Salinity != nil {
		t.Salinity = *p.Salinity
	}
	if p.Temperature != nil {
		t.Temperature = *p.Temperature
	}
	if p.PH != nil {
		t.PH = *p.PH
	}
	if p.Pollutants != nil {
		t.Pollutants = p.Pollutants
	}
	if p.Location != nil {
		t.Location = p.Location
	}
}

// TelemetryPatchEntry is one element of a bulk update. ID is a pointer so a
// missing id can be told apart from id 0.
type TelemetryPatchEntry struct {
	ID *int64 `json:"id"`
	TelemetryPatch
}
