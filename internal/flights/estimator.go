package flights

import (
	"math/rand/v2"
	"sync"
)

// AircraftType is a type with its typical seat count
type AircraftType struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Catalog lists the aircraft types commonly seen arriving at Changi
var Catalog = []AircraftType{
	{Name: "Boeing 777-300ER", Capacity: 340},
	{Name: "Airbus A380", Capacity: 471},
	{Name: "Airbus A350-900", Capacity: 253},
	{Name: "Boeing 787-10", Capacity: 337},
	{Name: "Airbus A330-300", Capacity: 285},
	{Name: "Boeing 737-8", Capacity: 162},
}

// Load factor bounds in percent, inclusive
const (
	MinLoadFactor = 75
	MaxLoadFactor = 95
)

// Estimator supplies the aircraft type and load factor for a flight.
// OpenSky state vectors carry neither, so these are estimates.
type Estimator interface {
	Aircraft() AircraftType
	LoadFactor() int
}

// RandomEstimator draws uniformly from the catalog and load factor range
type RandomEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomEstimator creates an estimator; the same seed yields the same sequence
func NewRandomEstimator(seed uint64) *RandomEstimator {
	return &RandomEstimator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Aircraft returns a random catalog entry
func (e *RandomEstimator) Aircraft() AircraftType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Catalog[e.rng.IntN(len(Catalog))]
}

// LoadFactor returns a random load factor in [MinLoadFactor, MaxLoadFactor]
func (e *RandomEstimator) LoadFactor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MinLoadFactor + e.rng.IntN(MaxLoadFactor-MinLoadFactor+1)
}

// FixedEstimator always returns the same values
type FixedEstimator struct {
	Type AircraftType
	Load int
}

func (e FixedEstimator) Aircraft() AircraftType { return e.Type }
func (e FixedEstimator) LoadFactor() int        { return e.Load }
