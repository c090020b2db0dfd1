package builtins

import (
	"context"
	"math"

	"github.com/wippyai/qcvm-bridge/codec"
)

const (
	pitch = 0
	yaw   = 1
	roll  = 2
)

// InstallVector registers vector math builtins. Several return extra
// vectors through later parameter slots.
func InstallVector(r *Registry) error {
	return r.registerAll([]Builtin{
		{Name: "AngleVectors", Params: params(tVector), Fn: angleVectorsBuiltin},
		{Name: "VectorNormalize", Params: params(tVector), Fn: vectorNormalizeBuiltin},
		{Name: "vectoangles", Params: params(tVector), Fn: vectoanglesBuiltin},
		{Name: "CrossProduct", Params: params(tVector, tVector), Fn: crossProductBuiltin},
		{Name: "VectorLength", Params: params(tVector), Fn: vectorLengthBuiltin},
		{Name: "AddPointToBounds", Params: params(tVector, tVector, tVector), Fn: addPointToBoundsBuiltin},
	})
}

// AngleVectors converts pitch/yaw/roll degrees to forward, right and up
// unit vectors.
func AngleVectors(angles codec.Vec3) (forward, right, up codec.Vec3) {
	deg := math.Pi * 2 / 360
	sy, cy := math.Sincos(float64(angles[yaw]) * deg)
	sp, cp := math.Sincos(float64(angles[pitch]) * deg)
	sr, cr := math.Sincos(float64(angles[roll]) * deg)

	forward = codec.Vec3{float32(cp * cy), float32(cp * sy), float32(-sp)}
	right = codec.Vec3{
		float32(-sr*sp*cy + cr*sy),
		float32(-sr*sp*sy - cr*cy),
		float32(-sr * cp),
	}
	up = codec.Vec3{
		float32(cr*sp*cy + sr*sy),
		float32(cr*sp*sy - sr*cy),
		float32(cr * cp),
	}
	return forward, right, up
}

// VectorLength returns the Euclidean length of v.
func VectorLength(v codec.Vec3) float32 {
	return float32(math.Sqrt(float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1]) + float64(v[2])*float64(v[2])))
}

// VectorNormalize scales v to unit length and returns the original length.
// A zero vector is returned unchanged.
func VectorNormalize(v codec.Vec3) (codec.Vec3, float32) {
	length := VectorLength(v)
	if length == 0 {
		return v, 0
	}
	inv := 1 / length
	return codec.Vec3{v[0] * inv, v[1] * inv, v[2] * inv}, length
}

// VecToAngles returns the pitch/yaw angles pointing along v. Pitch is
// negated to match view angle conventions.
func VecToAngles(v codec.Vec3) codec.Vec3 {
	var y, p float64
	if v[1] == 0 && v[0] == 0 {
		if v[2] > 0 {
			p = 90
		} else {
			p = 270
		}
	} else {
		switch {
		case v[0] != 0:
			y = math.Atan2(float64(v[1]), float64(v[0])) * 180 / math.Pi
		case v[1] > 0:
			y = 90
		default:
			y = 270
		}
		if y < 0 {
			y += 360
		}
		forward := math.Sqrt(float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1]))
		p = math.Atan2(float64(v[2]), forward) * 180 / math.Pi
		if p < 0 {
			p += 360
		}
	}
	return codec.Vec3{float32(-p), float32(y), 0}
}

// CrossProduct returns a × b.
func CrossProduct(a, b codec.Vec3) codec.Vec3 {
	return codec.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// AddPointToBounds grows mins and maxs to include v.
func AddPointToBounds(v, mins, maxs codec.Vec3) (codec.Vec3, codec.Vec3) {
	for i := range v {
		mins[i] = min(mins[i], v[i])
		maxs[i] = max(maxs[i], v[i])
	}
	return mins, maxs
}

func angleVectorsBuiltin(_ context.Context, f *Frame) error {
	angles, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	forward, right, up := AngleVectors(angles)
	if err := f.SetParmVector(1, forward); err != nil {
		return err
	}
	if err := f.SetParmVector(2, right); err != nil {
		return err
	}
	return f.SetParmVector(3, up)
}

func vectorNormalizeBuiltin(_ context.Context, f *Frame) error {
	v, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	n, length := VectorNormalize(v)
	if err := f.ReturnFloat(length); err != nil {
		return err
	}
	return f.SetParmVector(0, n)
}

func vectoanglesBuiltin(_ context.Context, f *Frame) error {
	v, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	return f.SetParmVector(1, VecToAngles(v))
}

func crossProductBuiltin(_ context.Context, f *Frame) error {
	a, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	b, err := f.ArgVector(1)
	if err != nil {
		return err
	}
	return f.SetParmVector(2, CrossProduct(a, b))
}

func vectorLengthBuiltin(_ context.Context, f *Frame) error {
	v, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	return f.ReturnFloat(VectorLength(v))
}

func addPointToBoundsBuiltin(_ context.Context, f *Frame) error {
	v, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	mins, err := f.ArgVector(1)
	if err != nil {
		return err
	}
	maxs, err := f.ArgVector(2)
	if err != nil {
		return err
	}
	mins, maxs = AddPointToBounds(v, mins, maxs)
	if err := f.SetParmVector(1, mins); err != nil {
		return err
	}
	return f.SetParmVector(2, maxs)
}
