package actor

import "github.com/go-gl/mathgl/mgl64"

// Points are static obstacle points, each carrying the outward normal used for contact rows
type Points struct {
	Positions []mgl64.Vec3
	Normals   []mgl64.Vec3
}

func (p *Points) Len() int {
	return len(p.Positions)
}

func (p *Points) Add(position, normal mgl64.Vec3) {
	p.Positions = append(p.Positions, position)
	p.Normals = append(p.Normals, normal.Normalize())
}

// Obstacles is the ordered set of collidable obstacles. Order matters: it fixes
// the column layout of the contact-feature table.
type Obstacles struct {
	Points Points
	Boxes  []*Box
}

func (o *Obstacles) AddBox(box *Box) {
	o.Boxes = append(o.Boxes, box)
}

func (o *Obstacles) AddPoint(position, normal mgl64.Vec3) {
	o.Points.Add(position, normal)
}

// Advance integrates every moving box over h
func (o *Obstacles) Advance(h float64) {
	for _, box := range o.Boxes {
		box.Advance(h)
	}
}
