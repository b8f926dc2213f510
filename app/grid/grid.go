// Package grid lays a plan out on the 9x9 Harada chart.
//
// The chart is nine 3x3 blocks in reading order. The centre block holds the
// goal with the eight pillar titles around it; each outer block holds one
// pillar title in its centre surrounded by that pillar's eight tasks.
package grid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

const (
	Size        = 9
	PillarCount = 8
	TasksPer    = 8
	centerBlock = 4
)

type Kind string

const (
	KindGoal   Kind = "goal"
	KindPillar Kind = "pillar"
	KindTask   Kind = "task"
)

// Cell is one square of the chart. Pillar and Task are -1 when not applicable.
type Cell struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Kind   Kind   `json:"kind"`
	Pillar int    `json:"pillar"`
	Task   int    `json:"task"`
	Text   string `json:"text"`
}

// Pillar is the input for one outer block.
type Pillar struct {
	Title string
	Tasks []string
}

type Grid struct {
	Cells [Size][Size]Cell
}

var ErrPillarCount = errors.New("grid needs exactly 8 pillars")

// ring lists the eight non-centre cells of a 3x3 block, in fill order.
var ring = [TasksPer][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 2}, {2, 0}, {2, 1}, {2, 2}}

// BlockFor returns the block index (0-8, reading order) holding pillar p.
func BlockFor(p int) int {
	if p < centerBlock {
		return p
	}
	return p + 1
}

func blockOrigin(block int) (int, int) {
	return (block / 3) * 3, (block % 3) * 3
}

// Build maps the goal and pillars onto the chart. Pillars with fewer than 8
// tasks leave the remaining task cells empty.
func Build(goal string, pillars []Pillar) (Grid, error) {
	var g Grid
	if len(pillars) != PillarCount {
		return g, fmt.Errorf("%w: got %d", ErrPillarCount, len(pillars))
	}

	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			g.Cells[r][c] = Cell{Row: r, Col: c, Kind: KindTask, Pillar: -1, Task: -1}
		}
	}

	g.set(4, 4, Cell{Kind: KindGoal, Pillar: -1, Task: -1, Text: goal})

	cr, cc := blockOrigin(centerBlock)
	for p, pillar := range pillars {
		if len(pillar.Tasks) > TasksPer {
			return Grid{}, fmt.Errorf("pillar %d has %d tasks, max %d", p, len(pillar.Tasks), TasksPer)
		}

		// centre block ring mirrors the pillar titles
		g.set(cr+ring[p][0], cc+ring[p][1], Cell{Kind: KindPillar, Pillar: p, Task: -1, Text: pillar.Title})

		br, bc := blockOrigin(BlockFor(p))
		g.set(br+1, bc+1, Cell{Kind: KindPillar, Pillar: p, Task: -1, Text: pillar.Title})
		for t := 0; t < TasksPer; t++ {
			text := ""
			if t < len(pillar.Tasks) {
				text = pillar.Tasks[t]
			}
			g.set(br+ring[t][0], bc+ring[t][1], Cell{Kind: KindTask, Pillar: p, Task: t, Text: text})
		}
	}

	return g, nil
}

func (g *Grid) set(r, c int, cell Cell) {
	cell.Row, cell.Col = r, c
	g.Cells[r][c] = cell
}

// Rows returns the chart text row by row.
func (g Grid) Rows() [][]string {
	out := make([][]string, Size)
	for r := 0; r < Size; r++ {
		row := make([]string, Size)
		for c := 0; c < Size; c++ {
			row[c] = g.Cells[r][c].Text
		}
		out[r] = row
	}
	return out
}

// WriteCSV writes the chart as nine CSV records of nine fields.
func (g Grid) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(g.Rows()); err != nil {
		return err
	}
	return cw.Error()
}
