package zones

import (
	"context"
)

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Zone is a named pickup area managed by the zone API.
// Field names follow the zone API's JSON.
type Zone struct {
	ID          string      `json:"_id"`
	ZoneName    string      `json:"zone_name"`
	IsActive    bool        `json:"is_active"`
	Coordinates Coordinates `json:"coordinates"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

// ZoneInput is the body of a create request
type ZoneInput struct {
	ZoneName    string      `json:"zone_name"`
	IsActive    bool        `json:"is_active"`
	Coordinates Coordinates `json:"coordinates"`
}

// ZonePatch is a partial update; nil fields are left unchanged
type ZonePatch struct {
	ZoneName    *string      `json:"zone_name,omitempty"`
	IsActive    *bool        `json:"is_active,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Apply returns z with the patch's non-nil fields copied over
func (p ZonePatch) Apply(z Zone) Zone {
	if p.ZoneName != nil {
		z.ZoneName = *p.ZoneName
	}
	if p.IsActive != nil {
		z.IsActive = *p.IsActive
	}
	if p.Coordinates != nil {
		z.Coordinates = *p.Coordinates
	}
	return z
}

// Envelope is the zone API's response wrapper
type Envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
	Count   *int   `json:"count,omitempty"`
}

// Success messages returned by the zone API
const (
	MsgCreated   = "Zone created successfully"
	MsgListed    = "Zones retrieved successfully"
	MsgRetrieved = "Zone retrieved successfully"
	MsgUpdated   = "Zone updated successfully"
	MsgDeleted   = "Zone deleted successfully"
	MsgActive    = "Active zones retrieved successfully"
)

// Store is a zone backend
type Store interface {
	Create(ctx context.Context, in ZoneInput) (Envelope[Zone], error)
	List(ctx context.Context) (Envelope[[]Zone], error)
	Get(ctx context.Context, id string) (Envelope[Zone], error)
	Update(ctx context.Context, id string, patch ZonePatch) (Envelope[Zone], error)
	Delete(ctx context.Context, id string) (Envelope[Zone], error)
	ListActive(ctx context.Context) (Envelope[[]Zone], error)
}

// ListEnvelope wraps a zone list with its count
func ListEnvelope(message string, zones []Zone) Envelope[[]Zone] {
	if zones == nil {
		zones = []Zone{}
	}
	n := len(zones)
	return Envelope[[]Zone]{Message: message, Data: zones, Count: &n}
}
