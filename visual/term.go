package visual

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Terminal rasterizes draw requests onto a grid of character cells, sampling
// each cell at its centre, and prints the grid with background colours on
// Flush.
type Terminal struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	cols     int
	rows     int
	cellW    float64
	cellH    float64

	cells  []colorful.Color
	styles map[string]lipgloss.Style
	status func() string
	err    error
}

// NewTerminal maps a width x height canvas onto cols x rows cells.
func NewTerminal(out io.Writer, width, height float64, cols, rows int) *Terminal {
	return &Terminal{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		cols:     cols,
		rows:     rows,
		cellW:    width / float64(cols),
		cellH:    height / float64(rows),
		cells:    make([]colorful.Color, cols*rows),
		styles:   make(map[string]lipgloss.Style),
	}
}

// cover calls fn for every cell whose centre lies inside r.
func (t *Terminal) cover(r Rect, fn func(i int, x float64)) {
	for row := 0; row < t.rows; row++ {
		y := (float64(row) + 0.5) * t.cellH
		if y < r.Y || y >= r.Y+r.H {
			continue
		}
		for col := 0; col < t.cols; col++ {
			x := (float64(col) + 0.5) * t.cellW
			if x < r.X || x >= r.X+r.W {
				continue
			}
			fn(row*t.cols+col, x)
		}
	}
}

func (t *Terminal) FillRect(r Rect, c colorful.Color) {
	t.cover(r, func(i int, _ float64) {
		t.cells[i] = c
	})
}

func (t *Terminal) FillGradient(r Rect, g Gradient) {
	t.cover(r, func(i int, x float64) {
		c, alpha := g.At(x)
		t.cells[i] = t.cells[i].BlendRgb(c, alpha).Clamped()
	})
}

// SetStatus sets the source of the line printed under the grid. It is
// called on every Flush.
func (t *Terminal) SetStatus(fn func() string) {
	t.status = fn
}

// Cell returns the colour of a cell as of the last draw request.
func (t *Terminal) Cell(col, row int) colorful.Color {
	return t.cells[row*t.cols+col]
}

func (t *Terminal) style(hex string) lipgloss.Style {
	s, ok := t.styles[hex]
	if !ok {
		s = t.renderer.NewStyle().Background(lipgloss.Color(hex))
		t.styles[hex] = s
	}
	return s
}

func (t *Terminal) Flush() {
	var sb strings.Builder
	// home the cursor so frames overwrite each other
	sb.WriteString("\x1b[H")
	for row := 0; row < t.rows; row++ {
		for col := 0; col < t.cols; col++ {
			sb.WriteString(t.style(t.Cell(col, row).Hex()).Render(" "))
		}
		sb.WriteByte('\n')
	}
	if t.status != nil {
		sb.WriteString(t.status())
	}
	sb.WriteString("\x1b[K\n")

	if _, err := io.WriteString(t.out, sb.String()); err != nil && t.err == nil {
		t.err = err
	}
}

// Err returns the first write error, if any.
func (t *Terminal) Err() error {
	return t.err
}
