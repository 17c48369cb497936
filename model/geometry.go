package model

import "fmt"

// FeetPerCell is the edge length of one grid square.
const FeetPerCell = 5

// Point is a grid coordinate. X is the column, Y the row.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy int) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Distance returns the number of squares between a and b using the
// five-foot diagonal rule (Chebyshev distance).
func Distance(a, b Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	return max(dx, dy)
}

// DistanceFeet is Distance expressed in feet.
func DistanceFeet(a, b Point) int { return Distance(a, b) * FeetPerCell }

// Adjacent reports whether a and b touch, diagonals included.
func Adjacent(a, b Point) bool { return a != b && Distance(a, b) == 1 }

// Neighbours lists the eight surrounding cells in a fixed order
// (row by row, left to right).
func Neighbours(p Point) [8]Point {
	return [8]Point{
		p.Add(-1, -1), p.Add(0, -1), p.Add(1, -1),
		p.Add(-1, 0), p.Add(1, 0),
		p.Add(-1, 1), p.Add(0, 1), p.Add(1, 1),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
