/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package deck

import (
	"math"

	"github.com/Seednode/gamechain/game"
)

const (
	columns  = 4
	spacingX = 2.2
	spacingY = 3.2

	orbitRadius = 2.0
	orbitLift   = 0.5
	stackDepth  = 0.02

	hoverTiltX = 0.2
	hoverTiltY = 0.1
)

var (
	parked = Vec3{0, 10, 0}
	front  = Vec3{0, 0, 2}

	faceUp   = Vec3{0, math.Pi, 0}
	faceDown = Vec3{}
)

// Target is where card index should be heading at scene time t (seconds).
func Target(index int, phase game.Phase, flipped, hovered bool, t float64) Pose {
	return Pose{
		Position: targetPosition(index, phase, flipped, t),
		Rotation: targetRotation(phase, flipped, hovered),
	}
}

func targetPosition(index int, phase game.Phase, flipped bool, t float64) Vec3 {
	i := float64(index)

	switch phase {
	case game.PhaseShuffling:
		return Vec3{
			X: math.Sin(t*5+i) * orbitRadius,
			Y: math.Sin(t*3+i) * orbitLift,
			Z: -i*stackDepth + math.Cos(t*5+i)*orbitRadius,
		}
	case game.PhasePreview, game.PhaseSelection:
		if flipped && phase == game.PhaseSelection {
			return front
		}
		row := index / columns
		col := index % columns
		return Vec3{
			X: (float64(col) - 1.5) * spacingX,
			Y: (0.5 - float64(row)) * spacingY,
		}
	}

	return parked
}

func targetRotation(phase game.Phase, flipped, hovered bool) Vec3 {
	if flipped || phase == game.PhasePreview {
		return faceUp
	}
	if phase == game.PhaseSelection && hovered {
		return Vec3{X: hoverTiltX, Y: hoverTiltY}
	}
	return faceDown
}
