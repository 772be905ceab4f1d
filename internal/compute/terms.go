package compute

import "math"

const (
	TypeLennardJones = "LJ"
	TypeSpring       = "spring"
	TypeConstant     = "constant"
	TypeChargeSelf   = "charge_self"
)

type model struct {
	bodies int
	params int
}

var models = map[string]model{
	TypeLennardJones: {bodies: 2, params: 2},
	TypeSpring:       {bodies: 2, params: 2},
	TypeConstant:     {bodies: 1, params: 1},
	TypeChargeSelf:   {bodies: 1, params: 2},
}

// Supports returns the number of bodies and parameters of a potential type.
func Supports(typ string) (bodies, params int, ok bool) {
	m, ok := models[typ]
	return m.bodies, m.params, ok
}

// pair returns the energy of a pair at distance r and its radial derivative.
func pair(typ string, r float64, p []float64) (v, dv float64) {
	switch typ {
	case TypeLennardJones:
		eps, sigma := p[0], p[1]
		sr6 := math.Pow(sigma/r, 6)
		v = 4 * eps * (sr6*sr6 - sr6)
		dv = -24 * eps * (2*sr6*sr6 - sr6) / r
	case TypeSpring:
		k, r0 := p[0], p[1]
		v = 0.5 * k * (r - r0) * (r - r0)
		dv = k * (r - r0)
	}
	return v, dv
}

// single returns the energy of one atom with charge q and its charge derivative.
func single(typ string, q float64, p []float64) (v, dq float64) {
	switch typ {
	case TypeConstant:
		return p[0], 0
	case TypeChargeSelf:
		chi0, hardness := p[0], p[1]
		return chi0*q + 0.5*hardness*q*q, chi0 + hardness*q
	}
	return 0, 0
}

// smoothen is the cosine switch from 1 at soft to 0 at hard and its
// derivative.
func smoothen(r, soft, hard float64) (f, df float64) {
	if soft >= hard || r <= soft {
		return 1, 0
	}
	if r >= hard {
		return 0, 0
	}
	w := math.Pi / (hard - soft)
	x := w * (r - soft)
	return 0.5 * (1 + math.Cos(x)), -0.5 * w * math.Sin(x)
}

// screened is erfc(r/(√2σ))/r and its radial derivative.
func screened(r, sigma float64) (g, dg float64) {
	a := r / (math.Sqrt2 * sigma)
	g = math.Erfc(a) / r
	dg = -g/r - math.Sqrt(2/math.Pi)/sigma*math.Exp(-a*a)/r
	return g, dg
}
