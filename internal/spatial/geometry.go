// Package spatial provides the pure geometry used by radar scans and
// directional guidance: Euclidean distance, compass bucketing, and
// range-limited proximity queries. Nothing here holds state.
package spatial

import (
	"math"
	"sort"

	"github.com/voiceflowhq/collab/domain/entities"
)

// CompassDirection is one of the eight compass sectors, or Unknown when
// the two points coincide.
type CompassDirection string

const (
	North     CompassDirection = "North"
	Northeast CompassDirection = "Northeast"
	East      CompassDirection = "East"
	Southeast CompassDirection = "Southeast"
	South     CompassDirection = "South"
	Southwest CompassDirection = "Southwest"
	West      CompassDirection = "West"
	Northwest CompassDirection = "Northwest"
	Unknown   CompassDirection = "Unknown"
)

// Distance returns the Euclidean distance between two positions.
func Distance(a, b entities.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Direction buckets the bearing from one position to another into eight
// 45°-wide compass sectors on the X/Z plane. The angle comes from
// atan2(dz, dx) in degrees; East is the sector [-22.5°, 22.5°) and the
// sectors follow the layout's screen-space convention where +z points
// South. Returns Unknown when the points coincide on that plane.
func Direction(from, to entities.Position) CompassDirection {
	dx := to.X - from.X
	dz := to.Z - from.Z
	if dx == 0 && dz == 0 {
		return Unknown
	}

	angle := math.Atan2(dz, dx) * (180 / math.Pi)

	switch {
	case angle >= -22.5 && angle < 22.5:
		return East
	case angle >= 22.5 && angle < 67.5:
		return Southeast
	case angle >= 67.5 && angle < 112.5:
		return South
	case angle >= 112.5 && angle < 157.5:
		return Southwest
	case angle >= 157.5 || angle < -157.5:
		return West
	case angle >= -157.5 && angle < -112.5:
		return Northwest
	case angle >= -112.5 && angle < -67.5:
		return North
	default: // [-67.5, -22.5)
		return Northeast
	}
}

// Contact is a candidate for a radar scan: anything with an identity and
// a position.
type Contact struct {
	ID       string
	Position entities.Position
}

// Echo is one radar scan result.
type Echo struct {
	Contact   Contact
	Distance  float64
	Direction CompassDirection
}

// RadarScan filters contacts within rangeLimit of origin and returns them
// ordered by ascending distance, ties broken by contact ID. The result is
// a fresh slice each call; nothing persists between scans, so callers may
// re-invoke with an updated origin at any time.
func RadarScan(origin entities.Position, contacts []Contact, rangeLimit float64) []Echo {
	echoes := make([]Echo, 0, len(contacts))
	for _, c := range contacts {
		d := Distance(origin, c.Position)
		if d > rangeLimit {
			continue
		}
		echoes = append(echoes, Echo{
			Contact:   c,
			Distance:  d,
			Direction: Direction(origin, c.Position),
		})
	}

	sort.Slice(echoes, func(i, j int) bool {
		if echoes[i].Distance != echoes[j].Distance {
			return echoes[i].Distance < echoes[j].Distance
		}
		return echoes[i].Contact.ID < echoes[j].Contact.ID
	})

	return echoes
}
