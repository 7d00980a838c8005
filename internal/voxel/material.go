package voxel

import (
	"fmt"
	"image/color"
	"strings"
)

// Material tags the contents of a voxel. Values at or above customBase carry
// a user-defined material id in the low byte.
type Material uint16

const (
	Air Material = iota
	Solid
	Liquid
	Gas
	Light
	Stone
	Wood
	Metal
	Glass
	Concrete
	Brick
)

const customBase Material = 0x100

// Built-in custom ids used by terrain generation.
const (
	CustomDirtID  uint8 = 1
	CustomGrassID uint8 = 2
)

// Custom returns the material for a user-defined id.
func Custom(id uint8) Material {
	return customBase + Material(id)
}

func (m Material) IsCustom() bool {
	return m >= customBase
}

// CustomID reports the user-defined id for custom materials.
func (m Material) CustomID() (uint8, bool) {
	if !m.IsCustom() {
		return 0, false
	}
	return uint8(m - customBase), true
}

var materialNames = map[Material]string{
	Air:      "air",
	Solid:    "solid",
	Liquid:   "liquid",
	Gas:      "gas",
	Light:    "light",
	Stone:    "stone",
	Wood:     "wood",
	Metal:    "metal",
	Glass:    "glass",
	Concrete: "concrete",
	Brick:    "brick",
}

func (m Material) String() string {
	if id, ok := m.CustomID(); ok {
		return fmt.Sprintf("custom(%d)", id)
	}
	if name, ok := materialNames[m]; ok {
		return name
	}
	return fmt.Sprintf("material(%d)", uint16(m))
}

// ParseMaterial accepts the names produced by String, including "custom(N)".
func ParseMaterial(s string) (Material, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range materialNames {
		if n == name {
			return m, nil
		}
	}
	var id uint8
	if _, err := fmt.Sscanf(name, "custom(%d)", &id); err == nil {
		return Custom(id), nil
	}
	return Air, fmt.Errorf("unknown material %q", s)
}

// Properties is the single per-material table consulted by both the damage
// model and the integrity analysis.
type Properties struct {
	DestructionResistance float32
	StructuralIntegrity   float32
	SupportContribution   float32
	Color                 color.NRGBA
}

var materialProperties = map[Material]Properties{
	Air:      {DestructionResistance: 0, StructuralIntegrity: 0, SupportContribution: 0.5, Color: rgb(0, 0, 0)},
	Solid:    {DestructionResistance: 40, StructuralIntegrity: 40, SupportContribution: 0.5, Color: rgb(0x80, 0x80, 0x80)},
	Liquid:   {DestructionResistance: 1, StructuralIntegrity: 5, SupportContribution: 0.5, Color: rgb(0x2a, 0x5d, 0xb0)},
	Gas:      {DestructionResistance: 0.1, StructuralIntegrity: 1, SupportContribution: 0.5, Color: rgb(0xc8, 0xd0, 0xd8)},
	Light:    {DestructionResistance: 0, StructuralIntegrity: 0, SupportContribution: 0.5, Color: rgb(0xff, 0xf4, 0xc0)},
	Stone:    {DestructionResistance: 80, StructuralIntegrity: 80, SupportContribution: 3, Color: rgb(0x8a, 0x8a, 0x8a)},
	Wood:     {DestructionResistance: 30, StructuralIntegrity: 40, SupportContribution: 1, Color: rgb(0x9c, 0x6b, 0x3a)},
	Metal:    {DestructionResistance: 120, StructuralIntegrity: 120, SupportContribution: 5, Color: rgb(0xb0, 0xb8, 0xc0)},
	Glass:    {DestructionResistance: 5, StructuralIntegrity: 10, SupportContribution: 0.5, Color: rgb(0xa8, 0xe0, 0xf0)},
	Concrete: {DestructionResistance: 100, StructuralIntegrity: 100, SupportContribution: 4, Color: rgb(0xa0, 0xa0, 0x98)},
	Brick:    {DestructionResistance: 60, StructuralIntegrity: 60, SupportContribution: 2, Color: rgb(0xb2, 0x4a, 0x32)},
}

var customProperties = Properties{
	DestructionResistance: 50,
	StructuralIntegrity:   50,
	SupportContribution:   0.5,
	Color:                 rgb(0x80, 0x80, 0x80),
}

var customColors = map[uint8]color.NRGBA{
	CustomDirtID:  rgb(0x8b, 0x5a, 0x2b),
	CustomGrassID: rgb(0x5d, 0x9b, 0x3d),
}

// Properties returns the table entry for m. Unknown and custom materials
// share the custom fallback row.
func (m Material) Properties() Properties {
	if props, ok := materialProperties[m]; ok {
		return props
	}
	props := customProperties
	if id, ok := m.CustomID(); ok {
		if col, ok := customColors[id]; ok {
			props.Color = col
		}
	}
	return props
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
