package core

import "math"

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float64
}

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Subtract returns the difference of two vectors
func (v Vec3) Subtract(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Multiply returns the vector scaled by a scalar
func (v Vec3) Multiply(scalar float64) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// Length returns the magnitude of the vector
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthSquared returns the squared magnitude of the vector
func (v Vec3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Dot returns the dot product of two vectors
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of two vectors
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Normalize returns a unit vector in the same direction
func (v Vec3) Normalize() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{0, 0, 0}
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

// Negate returns the negative of the vector
func (v Vec3) Negate() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Ray represents a ray with an origin and direction
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay creates a new ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// Matrix3 is a 3x3 rotation matrix stored row-major. It rotates observer-frame
// (pixel plane) coordinates into the model frame; its transpose performs the
// inverse rotation.
type Matrix3 [3][3]float64

// Identity returns the identity transform
func Identity() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// NewRotation builds a rotation matrix from an inclination about the x axis
// followed by a position-angle rotation about the z axis, both in radians.
// Inclination 0 views the model face-on down the z axis.
func NewRotation(incl, posAng float64) Matrix3 {
	ci, si := math.Cos(incl), math.Sin(incl)
	cp, sp := math.Cos(posAng), math.Sin(posAng)
	// Rz(posAng) * Rx(incl)
	return Matrix3{
		{cp, -sp * ci, sp * si},
		{sp, cp * ci, -cp * si},
		{0, si, ci},
	}
}

// Apply rotates a vector from the observer frame into the model frame
func (m Matrix3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Column returns the i-th column of the matrix as a vector
func (m Matrix3) Column(i int) Vec3 {
	return Vec3{X: m[0][i], Y: m[1][i], Z: m[2][i]}
}

// ProjectXY applies the transpose (inverse) rotation to a model-frame point
// and returns the two pixel-plane components. Used when binning model points
// into image pixels.
func (m Matrix3) ProjectXY(v Vec3) (float64, float64) {
	x := v.X*m[0][0] + v.Y*m[1][0] + v.Z*m[2][0]
	y := v.X*m[0][1] + v.Y*m[1][1] + v.Z*m[2][1]
	return x, y
}
