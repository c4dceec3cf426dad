package geometry

import "math"

// Vector2 is a point in the (u,v) parameter space of a surface
type Vector2 struct {
	U, V float64
}

// NewVector2 creates a new parameter space point
func NewVector2(u, v float64) Vector2 {
	return Vector2{U: u, V: v}
}

// Add returns the sum of two vectors
func (p Vector2) Add(other Vector2) Vector2 {
	return Vector2{U: p.U + other.U, V: p.V + other.V}
}

// Sub returns the difference between two vectors
func (p Vector2) Sub(other Vector2) Vector2 {
	return Vector2{U: p.U - other.U, V: p.V - other.V}
}

// Mul multiplies the vector by a scalar
func (p Vector2) Mul(scalar float64) Vector2 {
	return Vector2{U: p.U * scalar, V: p.V * scalar}
}

// Dot returns the dot product of two vectors
func (p Vector2) Dot(other Vector2) float64 {
	return p.U*other.U + p.V*other.V
}

// Cross returns the z component of the 3D cross product
func (p Vector2) Cross(other Vector2) float64 {
	return p.U*other.V - p.V*other.U
}

// Length returns the magnitude of the vector
func (p Vector2) Length() float64 {
	return math.Hypot(p.U, p.V)
}

// Lerp interpolates linearly between p (t=0) and other (t=1)
func (p Vector2) Lerp(other Vector2, t float64) Vector2 {
	return Vector2{U: p.U + (other.U-p.U)*t, V: p.V + (other.V-p.V)*t}
}
