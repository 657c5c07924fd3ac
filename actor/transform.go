package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a position in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Matrix returns the homogeneous rigid transform E = [R p; 0 1]
func (t Transform) Matrix() mgl64.Mat4 {
	rotation := t.Rotation
	if rotation.Len() == 0 {
		rotation = mgl64.QuatIdent()
	}
	return homogeneous(rotation.Normalize().Mat4().Mat3(), t.Position)
}

// Twist is a rigid velocity in the obstacle frame, linear part first then angular.
type Twist [6]float64

func NewTwist(linear, angular mgl64.Vec3) Twist {
	return Twist{linear[0], linear[1], linear[2], angular[0], angular[1], angular[2]}
}

func (v Twist) Linear() mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func (v Twist) Angular() mgl64.Vec3 {
	return mgl64.Vec3{v[3], v[4], v[5]}
}

// IsZero reports whether both the linear and the angular parts vanish
func (v Twist) IsZero() bool {
	return v.Linear().Len() == 0.0 && v.Angular().Len() == 0.0
}

// Integrate advances the rigid transform E by the twist v over h using the
// SE(3) exponential map: E' = E * exp(h * [w v]^).
func Integrate(E mgl64.Mat4, v Twist, h float64) mgl64.Mat4 {
	w := v.Angular().Mul(h)
	u := v.Linear().Mul(h)
	theta := w.Len()

	R := mgl64.Ident3()
	V := mgl64.Ident3()
	if theta > 1e-12 {
		K := skew(w)
		K2 := K.Mul3(K)
		sin, cos := math.Sin(theta), math.Cos(theta)
		a := sin / theta
		b := (1.0 - cos) / (theta * theta)
		c := (theta - sin) / (theta * theta * theta)

		// Rodrigues for the rotation, left Jacobian for the translation
		R = R.Add(K.Mul(a)).Add(K2.Mul(b))
		V = V.Add(K.Mul(b)).Add(K2.Mul(c))
	}

	return E.Mul4(homogeneous(R, V.Mul3x1(u)))
}

// skew returns K such that K*x = w × x
func skew(w mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, w.Z(), -w.Y(),
		-w.Z(), 0, w.X(),
		w.Y(), -w.X(), 0,
	}
}

func homogeneous(R mgl64.Mat3, p mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Mat4{
		R[0], R[1], R[2], 0,
		R[3], R[4], R[5], 0,
		R[6], R[7], R[8], 0,
		p.X(), p.Y(), p.Z(), 1,
	}
}
