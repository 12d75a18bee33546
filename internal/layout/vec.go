package layout

// Vec3 is a world-space point or direction. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Placement is where one card should be at one instant. The renderer
// interpolates toward it; it is a target, not a jump.
type Placement struct {
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`
	Tilt     float64 `json:"tilt"`
	Roll     float64 `json:"roll"`
	FaceUp   bool    `json:"face_up"`
}
