package simulator

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
)

// ErrInvalidRoute is returned when a route has fewer than two coordinates.
// This is a configuration error and is fatal for the unit that needs the route.
var ErrInvalidRoute = errors.New("route requires at least two coordinates")

// Point is one lat/lon vertex of a route polyline.
type Point struct {
	Lat float64
	Lon float64
}

// Rough Dubai-area routes to keep simulated buses localized.
var Routes = [][]Point{
	// Downtown / Business Bay
	{{25.2048, 55.2708}, {25.1983, 55.2750}, {25.1905, 55.2639}, {25.2058, 55.2526}},
	// Dubai Marina / JBR
	{{25.0797, 55.1402}, {25.0916, 55.1469}, {25.1007, 55.1544}, {25.0755, 55.1549}},
	// Jumeirah / City Walk
	{{25.2155, 55.2462}, {25.2074, 55.2580}, {25.1991, 55.2465}, {25.2103, 55.2386}},
	// Deira / Creek
	{{25.2705, 55.3152}, {25.2716, 55.2991}, {25.2620, 55.2841}, {25.2492, 55.3066}},
	// Academic City / Silicon Oasis
	{{25.1189, 55.4090}, {25.0985, 55.3912}, {25.0841, 55.3685}, {25.0719, 55.3496}},
}

// RouteForBus picks the fixed route assigned to a bus id such as "bus-7".
// Any parsed number maps deterministically, wrapping so that "bus-0" lands
// on the last route; ids without a trailing number draw a random assignment.
func RouteForBus(busID string, rng *rand.Rand) []Point {
	idx := (extractBusNumber(busID, rng) - 1) % len(Routes)
	if idx < 0 {
		idx += len(Routes)
	}
	return Routes[idx]
}

func extractBusNumber(busID string, rng *rand.Rand) int {
	parts := strings.Split(busID, "-")
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return rng.Intn(99) + 1
	}
	return n
}

// RouteWalker walks a closed polyline with smooth interpolation and jitter.
// Progress stays in [0,1) and the segment index wraps around the route, so a
// walker never runs off the end regardless of how many draws it has consumed.
type RouteWalker struct {
	route        []Point
	segmentIndex int
	progress     float64
	rng          *rand.Rand
}

// NewRouteWalker validates the route and builds a walker over it.
func NewRouteWalker(route []Point, rng *rand.Rand) (*RouteWalker, error) {
	if len(route) < 2 {
		return nil, ErrInvalidRoute
	}
	return &RouteWalker{route: route, rng: rng}, nil
}

// Next advances along the route and returns the next jittered position.
func (w *RouteWalker) Next() (lat, lon float64) {
	w.progress += uniform(w.rng, 0.08, 0.25)
	for w.progress >= 1.0 {
		w.progress -= 1.0
		w.segmentIndex = (w.segmentIndex + 1) % len(w.route)
	}

	start := w.route[w.segmentIndex]
	end := w.route[(w.segmentIndex+1)%len(w.route)]
	lat = start.Lat + (end.Lat-start.Lat)*w.progress
	lon = start.Lon + (end.Lon-start.Lon)*w.progress
	return lat + uniform(w.rng, -0.0005, 0.0005), lon + uniform(w.rng, -0.0005, 0.0005)
}

// NextStationary returns the route's first point with a small jitter, for
// buses parked at their depot.
func (w *RouteWalker) NextStationary() (lat, lon float64) {
	start := w.route[0]
	return start.Lat + uniform(w.rng, -0.0001, 0.0001), start.Lon + uniform(w.rng, -0.0001, 0.0001)
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
