// Package sphere holds the small amount of spherical geometry the skymap codecs need.
//
// Angles are in degrees throughout. Right ascension is wrapped into [0, 360),
// declination lies in [-90, 90].
package sphere

import "math"

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// Vec is a 3-component vector. Points on the sphere are unit vectors.
type Vec [3]float64

// Dot returns the scalar product.
func (v Vec) Dot(o Vec) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the vector product v x o.
func (v Vec) Cross(o Vec) Vec {
	return Vec{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length.
func (v Vec) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// WrapRA maps any angle onto [0, 360).
//
// The encoder and decoder of the ring-optimized format both reconstruct
// right ascensions through this function, so it must stay bit-stable.
func WrapRA(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	if w >= 360 {
		w = 0
	}
	return w
}

// ToVector converts (ra, dec) in degrees to a unit vector.
func ToVector(ra, dec float64) Vec {
	sra, cra := math.Sincos(ra * deg2rad)
	sdec, cdec := math.Sincos(dec * deg2rad)
	return Vec{cdec * cra, cdec * sra, sdec}
}

// FromVector converts a (not necessarily normalised) vector to (ra, dec) in degrees.
// The zero vector maps to (0, 0).
func FromVector(v Vec) (ra, dec float64) {
	if v[0] == 0 && v[1] == 0 && v[2] == 0 {
		return 0, 0
	}
	ra = WrapRA(math.Atan2(v[1], v[0]) * rad2deg)
	dec = math.Atan2(v[2], math.Hypot(v[0], v[1])) * rad2deg
	return ra, dec
}

// Separation returns the great-circle distance in degrees between two points.
//
// Uses the Vincenty form, which is well conditioned for both tiny and
// near-antipodal separations.
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	dra := (ra2 - ra1) * deg2rad
	sd1, cd1 := math.Sincos(dec1 * deg2rad)
	sd2, cd2 := math.Sincos(dec2 * deg2rad)
	sdra, cdra := math.Sincos(dra)

	num1 := cd2 * sdra
	num2 := cd1*sd2 - sd1*cd2*cdra
	den := sd1*sd2 + cd1*cd2*cdra
	return math.Atan2(math.Hypot(num1, num2), den) * rad2deg
}

// DeltaRA returns the signed RA difference b-a folded into (-180, 180].
func DeltaRA(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// ConvexContains reports whether p lies inside the convex spherical polygon
// whose vertices are given in order. Either winding is accepted; points on an
// edge count as inside.
func ConvexContains(poly []Vec, p Vec) bool {
	if len(poly) < 3 {
		return false
	}
	var sign float64
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		s := a.Cross(b).Dot(p)
		if math.Abs(s) < 1e-15 {
			continue
		}
		if sign == 0 {
			sign = s
			continue
		}
		if (s > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// EnclosedPole returns +1 or -1 when the closed RA/Dec ring winds once around
// the north or south pole, and 0 otherwise.
func EnclosedPole(ras, decs []float64) int {
	if len(ras) < 3 {
		return 0
	}
	var sum, decSum float64
	for i := range ras {
		sum += DeltaRA(ras[i], ras[(i+1)%len(ras)])
		decSum += decs[i]
	}
	if math.Abs(math.Abs(sum)-360) > 1e-6 {
		return 0
	}
	if decSum >= 0 {
		return 1
	}
	return -1
}
