package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/driverops/internal/zones"
	"github.com/yegors/driverops/pkg/logger"
)

// ZoneStorage is a SQLite-backed zones.Store
type ZoneStorage struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

// NewZoneStorage creates the zones table if needed. When the table is empty
// it is filled with seed.
func NewZoneStorage(db *sql.DB, seed []zones.Zone, log *logger.Logger) (*ZoneStorage, error) {
	s := &ZoneStorage{
		db:     db,
		logger: log.Named("sqlite-zones"),
		now:    time.Now,
	}

	if err := s.initDB(); err != nil {
		return nil, err
	}
	if err := s.seed(seed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ZoneStorage) initDB() error {
	s.logger.Info("Initializing zones schema")

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS zones (
			id TEXT PRIMARY KEY,
			zone_name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			seq INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create zones table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_zones_active ON zones(is_active)`)
	if err != nil {
		return fmt.Errorf("failed to create zones index: %w", err)
	}
	return nil
}

func (s *ZoneStorage) seed(seed []zones.Zone) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM zones`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count zones: %w", err)
	}
	if n > 0 || len(seed) == 0 {
		return nil
	}

	for _, z := range seed {
		if err := s.insert(context.Background(), z); err != nil {
			return fmt.Errorf("failed to seed zone %q: %w", z.ZoneName, err)
		}
	}
	s.logger.Info("Seeded zones table", logger.Int("count", len(seed)))
	return nil
}

// insert keeps insertion order in seq so listings match the memory store
func (s *ZoneStorage) insert(ctx context.Context, z zones.Zone) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO zones (id, zone_name, is_active, lat, lng, created_at, updated_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM zones))`,
		z.ID, z.ZoneName, z.IsActive, z.Coordinates.Lat, z.Coordinates.Lng, z.CreatedAt, z.UpdatedAt)
	return err
}

const zoneColumns = `id, zone_name, is_active, lat, lng, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (zones.Zone, error) {
	var z zones.Zone
	err := row.Scan(&z.ID, &z.ZoneName, &z.IsActive, &z.Coordinates.Lat, &z.Coordinates.Lng, &z.CreatedAt, &z.UpdatedAt)
	return z, err
}

func (s *ZoneStorage) query(ctx context.Context, where string, args ...any) ([]zones.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+zoneColumns+` FROM zones `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var out []zones.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *ZoneStorage) get(ctx context.Context, id string) (zones.Zone, error) {
	z, err := scanZone(s.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return zones.Zone{}, zones.NotFound()
	}
	if err != nil {
		return zones.Zone{}, fmt.Errorf("failed to load zone: %w", err)
	}
	return z, nil
}

func (s *ZoneStorage) Create(ctx context.Context, in zones.ZoneInput) (zones.Envelope[zones.Zone], error) {
	ts := zones.Timestamp(s.now())
	z := zones.Zone{
		ID:          uuid.NewString(),
		ZoneName:    in.ZoneName,
		IsActive:    in.IsActive,
		Coordinates: in.Coordinates,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.insert(ctx, z); err != nil {
		return zones.Envelope[zones.Zone]{}, fmt.Errorf("failed to insert zone: %w", err)
	}
	return zones.Envelope[zones.Zone]{Message: zones.MsgCreated, Data: z}, nil
}

func (s *ZoneStorage) List(ctx context.Context) (zones.Envelope[[]zones.Zone], error) {
	all, err := s.query(ctx, "")
	if err != nil {
		return zones.Envelope[[]zones.Zone]{}, err
	}
	return zones.ListEnvelope(zones.MsgListed, all), nil
}

func (s *ZoneStorage) ListActive(ctx context.Context) (zones.Envelope[[]zones.Zone], error) {
	active, err := s.query(ctx, "WHERE is_active = 1")
	if err != nil {
		return zones.Envelope[[]zones.Zone]{}, err
	}
	return zones.ListEnvelope(zones.MsgActive, active), nil
}

func (s *ZoneStorage) Get(ctx context.Context, id string) (zones.Envelope[zones.Zone], error) {
	z, err := s.get(ctx, id)
	if err != nil {
		return zones.Envelope[zones.Zone]{}, err
	}
	return zones.Envelope[zones.Zone]{Message: zones.MsgRetrieved, Data: z}, nil
}

func (s *ZoneStorage) Update(ctx context.Context, id string, patch zones.ZonePatch) (zones.Envelope[zones.Zone], error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return zones.Envelope[zones.Zone]{}, err
	}

	z := patch.Apply(current)
	z.UpdatedAt = zones.Timestamp(s.now())

	_, err = s.db.ExecContext(ctx, `
		UPDATE zones SET zone_name = ?, is_active = ?, lat = ?, lng = ?, updated_at = ?
		WHERE id = ?`,
		z.ZoneName, z.IsActive, z.Coordinates.Lat, z.Coordinates.Lng, z.UpdatedAt, id)
	if err != nil {
		return zones.Envelope[zones.Zone]{}, fmt.Errorf("failed to update zone: %w", err)
	}
	return zones.Envelope[zones.Zone]{Message: zones.MsgUpdated, Data: z}, nil
}

func (s *ZoneStorage) Delete(ctx context.Context, id string) (zones.Envelope[zones.Zone], error) {
	z, err := s.get(ctx, id)
	if err != nil {
		return zones.Envelope[zones.Zone]{}, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id); err != nil {
		return zones.Envelope[zones.Zone]{}, fmt.Errorf("failed to delete zone: %w", err)
	}
	return zones.Envelope[zones.Zone]{Message: zones.MsgDeleted, Data: z}, nil
}

var _ zones.Store = (*ZoneStorage)(nil)
