// Package color holds the perceptual color math the game is built on:
// CIELAB <-> sRGB conversions, the gamut check used to keep picks displayable,
// and the seeded palette generator.
package color

import "math"

// Color is a point in CIELAB space. Equality is component-wise.
type Color struct {
	Lightness float64 `json:"lightness"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

// Lab coordinate bounds accepted from clients.
const (
	MinLightness = 0
	MaxLightness = 100
	MinAB        = -128
	MaxAB        = 128
)

// InRange reports whether c lies inside the accepted Lab coordinate box.
func (c Color) InRange() bool {
	return c.Lightness >= MinLightness && c.Lightness <= MaxLightness &&
		c.A >= MinAB && c.A <= MaxAB &&
		c.B >= MinAB && c.B <= MaxAB
}

// Distance is the Euclidean distance between two Lab colors.
func Distance(c1, c2 Color) float64 {
	dl := c1.Lightness - c2.Lightness
	da := c1.A - c2.A
	db := c1.B - c2.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// D65 reference white.
const (
	refX = 95.047
	refY = 100.0
	refZ = 108.883
)

// LabToRGB converts a Lab color to sRGB channels rounded and clamped to [0,255].
func LabToRGB(l, a, b float64) (int, int, int) {
	y := (l + 16) / 116
	x := a/500 + y
	z := y - b/200

	x = refX * finv(x)
	y = refY * finv(y)
	z = refZ * finv(z)

	x /= 100
	y /= 100
	z /= 100

	red := x*3.2406 + y*-1.5372 + z*-0.4986
	green := x*-0.9689 + y*1.8758 + z*0.0415
	blue := x*0.0557 + y*-0.204 + z*1.057

	return clamp255(compand(red)), clamp255(compand(green)), clamp255(compand(blue))
}

// RGBToLab converts sRGB channels in [0,255] back to Lab.
func RGBToLab(r, g, b int) (float64, float64, float64) {
	rl := linearize(float64(r) / 255)
	gl := linearize(float64(g) / 255)
	bl := linearize(float64(b) / 255)

	x := (rl*0.4124 + gl*0.3576 + bl*0.1805) * 100 / refX
	y := (rl*0.2126 + gl*0.7152 + bl*0.0722) * 100 / refY
	z := (rl*0.0193 + gl*0.1192 + bl*0.9505) * 100 / refZ

	fx := fwd(x)
	fy := fwd(y)
	fz := fwd(z)

	return 116*fy - 16, 500 * (fx - fy), 200 * (fy - fz)
}

// RGBToHSL converts sRGB channels in [0,255] to hue in degrees [0,360) and
// saturation/lightness in [0,1].
func RGBToHSL(r, g, b int) (float64, float64, float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	l := (max + min) / 2

	if max == min {
		return 0, 0, l
	}

	d := max - min
	var s float64
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	var h float64
	switch max {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}

	return h * 60, s, l
}

// Tolerances for the round-trip gamut check.
const (
	gamutTolL  = 5
	gamutTolAB = 9
)

// IsGamutSafe reports whether c renders in sRGB without clipping: converting
// to RGB and back must reproduce the original triple within tolerance.
func IsGamutSafe(c Color) bool {
	r, g, b := LabToRGB(c.Lightness, c.A, c.B)
	l2, a2, b2 := RGBToLab(r, g, b)
	return math.Abs(c.Lightness-l2) <= gamutTolL &&
		math.Abs(c.A-a2) <= gamutTolAB &&
		math.Abs(c.B-b2) <= gamutTolAB
}

const epsilon = 0.008856 // (6/29)^3

func finv(t float64) float64 {
	if t*t*t > epsilon {
		return t * t * t
	}
	return (t - 16.0/116) / 7.787
}

func fwd(t float64) float64 {
	if t > epsilon {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116
}

func compand(v float64) float64 {
	if v > 0.0031308 {
		return 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return 12.92 * v
}

func linearize(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func clamp255(v float64) int {
	return int(math.Max(0, math.Min(255, math.Round(v*255))))
}
