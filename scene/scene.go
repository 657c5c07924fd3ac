// Package scene loads a cloth-and-obstacles setup from YAML and builds the
// World that replays it.
package scene

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/eolcloth"
	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/config"
	"github.com/akmonengine/eolcloth/constraint"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/akmonengine/eolcloth/remesh"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid scene")

type Vec3 [3]float64

func (v Vec3) vec() mgl64.Vec3 { return mgl64.Vec3(v) }

// Cloth is a rectangular sheet of Nx x Ny cells lying flat at height Z
type Cloth struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Nx       int     `yaml:"nx"`
	Ny       int     `yaml:"ny"`
	Z        float64 `yaml:"z"`
	Velocity Vec3    `yaml:"velocity"`
}

type Box struct {
	HalfExtents Vec3 `yaml:"half_extents"`
	Position    Vec3 `yaml:"position"`
	// Axis and Angle give the orientation; a zero axis leaves the box aligned
	Axis    Vec3    `yaml:"axis"`
	Angle   float64 `yaml:"angle"`
	Linear  Vec3    `yaml:"linear"`
	Angular Vec3    `yaml:"angular"`
}

type Point struct {
	Position Vec3 `yaml:"position"`
	Normal   Vec3 `yaml:"normal"`
}

type Pin struct {
	Node   int     `yaml:"node"`
	Select [3]bool `yaml:"select"`
	Offset Vec3    `yaml:"offset"`
}

type Probe struct {
	Thickness float64 `yaml:"thickness"`
	Inset     float64 `yaml:"inset"`
	CellSize  float64 `yaml:"cell_size"`
}

type Scene struct {
	Name   string         `yaml:"name"`
	Steps  int            `yaml:"steps"`
	Dt     float64        `yaml:"dt"`
	Config *config.Config `yaml:"config"`
	Probe  Probe          `yaml:"probe"`
	Cloth  Cloth          `yaml:"cloth"`
	Boxes  []Box          `yaml:"boxes"`
	Points []Point        `yaml:"points"`
	Pins   []Pin          `yaml:"pins"`
}

// Default returns a scene with default config and probe settings but no
// cloth; Parse and Load decode over it.
func Default() *Scene {
	return &Scene{
		Steps:  1,
		Dt:     0.01,
		Config: config.Default(),
		Probe: Probe{
			Thickness: 0.01,
			Inset:     0.001,
		},
	}
}

func Parse(data []byte) (*Scene, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Scene) Validate() error {
	if s.Config == nil {
		s.Config = config.Default()
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}

	c := s.Cloth
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("cloth size %vx%v: %w", c.Width, c.Height, ErrInvalid)
	case c.Nx < 1 || c.Ny < 1:
		return fmt.Errorf("cloth resolution %dx%d: %w", c.Nx, c.Ny, ErrInvalid)
	case s.Dt <= 0:
		return fmt.Errorf("dt %v: %w", s.Dt, ErrInvalid)
	case s.Steps < 0:
		return fmt.Errorf("steps %d: %w", s.Steps, ErrInvalid)
	case s.Probe.Thickness <= 0 || s.Probe.Inset < 0:
		return fmt.Errorf("probe thickness %v inset %v: %w", s.Probe.Thickness, s.Probe.Inset, ErrInvalid)
	case len(s.Pins) > constraint.MaxFixed:
		return fmt.Errorf("%d pins: %w", len(s.Pins), ErrInvalid)
	}

	for i, b := range s.Boxes {
		h := b.HalfExtents
		if h[0] <= 0 || h[1] <= 0 || h[2] <= 0 {
			return fmt.Errorf("box %d half extents %v: %w", i, h, ErrInvalid)
		}
	}
	for i, p := range s.Points {
		if p.Normal.vec().Len() == 0 {
			return fmt.Errorf("point %d has no normal: %w", i, ErrInvalid)
		}
	}

	nodes := (c.Nx + 1) * (c.Ny + 1)
	for i, p := range s.Pins {
		if p.Node < 0 || p.Node >= nodes {
			return fmt.Errorf("pin %d on node %d of %d: %w", i, p.Node, nodes, ErrInvalid)
		}
	}
	return nil
}

func (b Box) transform() actor.Transform {
	t := actor.NewTransform()
	t.Position = b.Position.vec()
	if axis := b.Axis.vec(); axis.Len() > 0 {
		t.Rotation = mgl64.QuatRotate(b.Angle, axis.Normalize())
	}
	return t
}

// Obstacles builds the obstacle set: points first, then boxes, in file order
func (s *Scene) Obstacles() *actor.Obstacles {
	obs := &actor.Obstacles{}
	for _, p := range s.Points {
		obs.AddPoint(p.Position.vec(), p.Normal.vec())
	}
	for _, b := range s.Boxes {
		box := actor.NewBox(b.HalfExtents.vec(), b.transform())
		box.V = actor.NewTwist(b.Linear.vec(), b.Angular.vec())
		obs.AddBox(box)
	}
	return obs
}

// Mesh builds the cloth sheet with every node moving at the cloth velocity
func (s *Scene) Mesh() *mesh.Mesh {
	c := s.Cloth
	m := mesh.NewSheet(c.Width, c.Height, c.Nx, c.Ny, func(u mgl64.Vec2) mgl64.Vec3 {
		return mgl64.Vec3{u.X(), u.Y(), c.Z}
	})
	for _, id := range m.Nodes() {
		m.Node(id).V = c.Velocity.vec()
	}
	return m
}

// Build assembles the World of the scene
func (s *Scene) Build(logger *zap.Logger) (*eolcloth.World, error) {
	probe := collision.NewProbe(s.Probe.Thickness, s.Probe.Inset)
	probe.CellSize = s.Probe.CellSize

	boundary := remesh.Rectangle(s.Cloth.Width, s.Cloth.Height)
	w := eolcloth.NewWorld(s.Config, s.Mesh(), s.Obstacles(), boundary, probe, logger)

	for i, p := range s.Pins {
		if err := w.Pin(mesh.NodeID(p.Node), p.Select, p.Offset.vec()); err != nil {
			return nil, fmt.Errorf("pin %d: %w", i, err)
		}
	}
	return w, nil
}
