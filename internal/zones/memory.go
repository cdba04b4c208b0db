package zones

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps zones in process. It is the default local store.
type MemoryStore struct {
	mu    sync.RWMutex
	zones []Zone
	now   func() time.Time
}

// NewMemoryStore creates a store holding a copy of seed
func NewMemoryStore(seed []Zone) *MemoryStore {
	return &MemoryStore{
		zones: slices.Clone(seed),
		now:   time.Now,
	}
}

// SeedZones returns the zones a fresh local store starts with
func SeedZones() []Zone {
	return []Zone{
		{
			ID: "6541abc123def456789", ZoneName: "Marina Bay", IsActive: true,
			Coordinates: Coordinates{Lat: 1.28, Lng: 103.86},
			CreatedAt:   "2025-10-27T10:00:00.000Z", UpdatedAt: "2025-10-27T10:00:00.000Z",
		},
		{
			ID: "6541abc123def456790", ZoneName: "Orchard Road", IsActive: true,
			Coordinates: Coordinates{Lat: 1.304, Lng: 103.832},
			CreatedAt:   "2025-10-27T11:00:00.000Z", UpdatedAt: "2025-10-27T11:00:00.000Z",
		},
		{
			ID: "6541abc123def456791", ZoneName: "Sentosa", IsActive: false,
			Coordinates: Coordinates{Lat: 1.249, Lng: 103.83},
			CreatedAt:   "2025-10-27T12:00:00.000Z", UpdatedAt: "2025-10-27T12:00:00.000Z",
		},
		{
			ID: "6541abc123def456792", ZoneName: "Changi Airport", IsActive: true,
			Coordinates: Coordinates{Lat: 1.364, Lng: 103.991},
			CreatedAt:   "2025-10-27T13:00:00.000Z", UpdatedAt: "2025-10-27T13:00:00.000Z",
		},
	}
}

// Timestamp formats t the way the zone API does
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (m *MemoryStore) Create(ctx context.Context, in ZoneInput) (Envelope[Zone], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := Timestamp(m.now())
	z := Zone{
		ID:          uuid.NewString(),
		ZoneName:    in.ZoneName,
		IsActive:    in.IsActive,
		Coordinates: in.Coordinates,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	m.zones = append(m.zones, z)
	return Envelope[Zone]{Message: MsgCreated, Data: z}, nil
}

func (m *MemoryStore) List(ctx context.Context) (Envelope[[]Zone], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ListEnvelope(MsgListed, slices.Clone(m.zones)), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return Envelope[Zone]{}, NotFound()
	}
	return Envelope[Zone]{Message: MsgRetrieved, Data: m.zones[i]}, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, patch ZonePatch) (Envelope[Zone], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return Envelope[Zone]{}, NotFound()
	}
	z := patch.Apply(m.zones[i])
	z.UpdatedAt = Timestamp(m.now())
	m.zones[i] = z
	return Envelope[Zone]{Message: MsgUpdated, Data: z}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) (Envelope[Zone], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return Envelope[Zone]{}, NotFound()
	}
	z := m.zones[i]
	m.zones = slices.Delete(m.zones, i, i+1)
	return Envelope[Zone]{Message: MsgDeleted, Data: z}, nil
}

func (m *MemoryStore) ListActive(ctx context.Context) (Envelope[[]Zone], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]Zone, 0, len(m.zones))
	for _, z := range m.zones {
		if z.IsActive {
			active = append(active, z)
		}
	}
	return ListEnvelope(MsgActive, active), nil
}

func (m *MemoryStore) indexOf(id string) int {
	return slices.IndexFunc(m.zones, func(z Zone) bool { return z.ID == id })
}
