package extractor

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Table is one extracted table: rows of cell text. Empty cells are "".
type Table [][]string

// Text returns all cell text joined by spaces.
func (t Table) Text() string {
	var sb strings.Builder
	for _, row := range t {
		for _, cell := range row {
			if cell == "" {
				continue
			}
			sb.WriteString(cell)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// MaxColumns returns the widest row length.
func (t Table) MaxColumns() int {
	maxCols := 0
	for _, row := range t {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	return maxCols
}

// word is a run of glyphs on one line.
type word struct {
	x, right, y, size float64
	text              string
}

func (w word) center() float64 {
	return (w.x + w.right) / 2
}

type line struct {
	y     float64
	words []word
}

// ruling is a drawn table border.
type ruling struct {
	horizontal bool
	pos        float64 // y of a horizontal ruling, x of a vertical one
	from, to   float64 // extent along the other axis
}

// Page is the layout of one PDF page.
type Page struct {
	lines  []line
	tables []Table
}

// Text returns the page text, one line per visual line, top to bottom.
func (p *Page) Text() string {
	out := make([]string, 0, len(p.lines))
	for _, l := range p.lines {
		parts := make([]string, len(l.words))
		for i, w := range l.words {
			parts[i] = w.text
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.Join(out, "\n")
}

// Tables returns the tables found on the page, top to bottom.
func (p *Page) Tables() []Table {
	return p.tables
}

// Layout turns positioned glyphs and drawn rectangles into text lines and tables.
type Layout struct {
	cfg Config
}

// NewLayout creates a layout analyzer.
func NewLayout(cfg Config) *Layout {
	return &Layout{cfg: cfg}
}

// Analyze builds the page layout. Tables are read from ruled grids first;
// pages without rulings fall back to column alignment of text chunks.
func (l *Layout) Analyze(texts []pdf.Text, rects []pdf.Rect) *Page {
	lines := l.lines(texts)
	page := &Page{lines: lines}

	grids := l.grids(l.rulings(rects))
	type placed struct {
		top   float64
		table Table
	}
	var found []placed
	for _, g := range grids {
		if t := l.fillGrid(g, lines); len(t) > 0 {
			found = append(found, placed{top: g.ys[0], table: t})
		}
	}

	if len(found) == 0 {
		for _, b := range l.alignedBlocks(lines) {
			found = append(found, placed{top: b.top, table: b.table})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].top > found[j].top })
	for _, f := range found {
		page.tables = append(page.tables, f.table)
	}
	return page
}

// lines groups glyphs into visual lines by baseline and merges them into words.
func (l *Layout) lines(texts []pdf.Text) []line {
	type bucket struct {
		yMin, yMax float64
		glyphs     []pdf.Text
	}
	var buckets []bucket

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		found := false
		for i := range buckets {
			if t.Y >= buckets[i].yMin-l.cfg.RowTolerance && t.Y <= buckets[i].yMax+l.cfg.RowTolerance {
				buckets[i].glyphs = append(buckets[i].glyphs, t)
				buckets[i].yMin = math.Min(buckets[i].yMin, t.Y)
				buckets[i].yMax = math.Max(buckets[i].yMax, t.Y)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{yMin: t.Y, yMax: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].yMax > buckets[j].yMax })

	out := make([]line, 0, len(buckets))
	for _, b := range buckets {
		words := l.words(b.glyphs)
		if len(words) == 0 {
			continue
		}
		out = append(out, line{y: b.yMax, words: words})
	}
	return out
}

func (l *Layout) words(glyphs []pdf.Text) []word {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var (
		out []word
		cur *word
	)
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.text) != "" {
			cur.text = strings.TrimSpace(cur.text)
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		if cur != nil && g.X-cur.right <= l.cfg.WordGap*size {
			cur.text += g.S
			cur.right = math.Max(cur.right, g.X+g.W)
			continue
		}
		flush()
		cur = &word{x: g.X, right: g.X + g.W, y: g.Y, size: size, text: g.S}
	}
	flush()
	return out
}

// rulings classifies drawn rectangles as horizontal and vertical borders.
// Boxes contribute their four edges.
func (l *Layout) rulings(rects []pdf.Rect) []ruling {
	thin := l.cfg.RuleThickness
	var out []ruling
	for _, r := range rects {
		x0, x1 := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
		y0, y1 := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
		w, h := x1-x0, y1-y0

		switch {
		case w <= thin && h > thin:
			out = append(out, ruling{pos: (x0 + x1) / 2, from: y0, to: y1})
		case h <= thin && w > thin:
			out = append(out, ruling{horizontal: true, pos: (y0 + y1) / 2, from: x0, to: x1})
		case w > thin && h > thin:
			out = append(out,
				ruling{horizontal: true, pos: y0, from: x0, to: x1},
				ruling{horizontal: true, pos: y1, from: x0, to: x1},
				ruling{pos: x0, from: y0, to: y1},
				ruling{pos: x1, from: y0, to: y1},
			)
		}
	}
	return out
}

type grid struct {
	xs       []float64 // column borders, left to right
	ys       []float64 // row borders, top to bottom
	vertical []ruling
}

// grids splits rulings into connected components; each component with at
// least two rows of cells' worth of borders is a table grid.
func (l *Layout) grids(rulings []ruling) []grid {
	tol := l.cfg.GridTolerance
	parent := make([]int, len(rulings))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := range rulings {
		for j := i + 1; j < len(rulings); j++ {
			a, b := rulings[i], rulings[j]
			if a.horizontal == b.horizontal {
				continue
			}
			h, v := a, b
			if !a.horizontal {
				h, v = b, a
			}
			if v.pos >= h.from-tol && v.pos <= h.to+tol && h.pos >= v.from-tol && h.pos <= v.to+tol {
				parent[find(i)] = find(j)
			}
		}
	}

	components := make(map[int][]ruling)
	var roots []int
	for i, r := range rulings {
		root := find(i)
		if _, ok := components[root]; !ok {
			roots = append(roots, root)
		}
		components[root] = append(components[root], r)
	}

	var out []grid
	for _, root := range roots {
		var xs, ys []float64
		var vertical []ruling
		for _, r := range components[root] {
			if r.horizontal {
				ys = append(ys, r.pos)
			} else {
				xs = append(xs, r.pos)
				vertical = append(vertical, r)
			}
		}
		xs = cluster(xs, tol)
		ys = cluster(ys, tol)
		if len(xs) < 3 || len(ys) < 2 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
		out = append(out, grid{xs: xs, ys: ys, vertical: vertical})
	}
	return out
}

// fillGrid places words into grid cells. A border missing from a band merges
// the cells on both sides; the text goes to the leftmost cell of the span and
// the others stay empty, so every row has the same width.
func (l *Layout) fillGrid(g grid, lines []line) Table {
	tol := l.cfg.GridTolerance
	cols := len(g.xs) - 1
	left, right := g.xs[0], g.xs[len(g.xs)-1]

	var table Table
	for band := 0; band+1 < len(g.ys); band++ {
		top, bottom := g.ys[band], g.ys[band+1]
		if top-bottom <= tol {
			continue
		}

		present := make([]bool, len(g.xs))
		for j, x := range g.xs {
			present[j] = j == 0 || j == len(g.xs)-1
			for _, v := range g.vertical {
				if math.Abs(v.pos-x) <= tol && v.from <= bottom+tol && v.to >= top-tol {
					present[j] = true
					break
				}
			}
		}

		cells := make([][]word, cols)
		for _, ln := range lines {
			if ln.y <= bottom || ln.y >= top {
				continue
			}
			for _, w := range ln.words {
				c := w.center()
				if c < left || c > right {
					continue
				}
				j := sort.SearchFloat64s(g.xs, c) - 1
				if j < 0 {
					j = 0
				}
				if j >= cols {
					j = cols - 1
				}
				for j > 0 && !present[j] {
					j--
				}
				cells[j] = append(cells[j], w)
			}
		}

		row := make([]string, cols)
		empty := true
		for j, ws := range cells {
			row[j] = l.cellText(ws)
			if row[j] != "" {
				empty = false
			}
		}
		if !empty {
			table = append(table, row)
		}
	}
	return table
}

// cellText joins words on one line with spaces and separate lines with "\n".
func (l *Layout) cellText(ws []word) string {
	if len(ws) == 0 {
		return ""
	}
	var lines []string
	var cur []string
	y := ws[0].y
	for _, w := range ws {
		if math.Abs(w.y-y) > l.cfg.RowTolerance {
			lines = append(lines, strings.Join(cur, " "))
			cur = nil
			y = w.y
		}
		cur = append(cur, w.text)
	}
	lines = append(lines, strings.Join(cur, " "))
	return strings.Join(lines, "\n")
}

type chunk struct {
	x    float64
	text string
}

type alignedBlock struct {
	top   float64
	table Table
}

// alignedBlocks finds runs of consecutive lines that split into several
// widely spaced chunks and aligns the chunks into columns by their left edge.
func (l *Layout) alignedBlocks(lines []line) []alignedBlock {
	var (
		out   []alignedBlock
		block [][]chunk
		top   float64
	)

	emit := func() {
		if len(block) >= 2 {
			out = append(out, alignedBlock{top: top, table: l.alignChunks(block)})
		}
		block = nil
	}

	for _, ln := range lines {
		chunks := l.chunks(ln)
		if len(chunks) < l.cfg.MinAlignedColumns {
			emit()
			continue
		}
		if len(block) == 0 {
			top = ln.y
		}
		block = append(block, chunks)
	}
	emit()
	return out
}

func (l *Layout) chunks(ln line) []chunk {
	var out []chunk
	for i, w := range ln.words {
		if i > 0 && w.x-ln.words[i-1].right <= l.cfg.ChunkGap*w.size {
			out[len(out)-1].text += " " + w.text
			continue
		}
		out = append(out, chunk{x: w.x, text: w.text})
	}
	return out
}

func (l *Layout) alignChunks(block [][]chunk) Table {
	var starts []float64
	for _, row := range block {
		for _, c := range row {
			starts = append(starts, c.x)
		}
	}
	starts = cluster(starts, l.cfg.ColumnTolerance)

	table := make(Table, 0, len(block))
	for _, row := range block {
		cells := make([]string, len(starts))
		for _, c := range row {
			j := sort.SearchFloat64s(starts, c.x+l.cfg.ColumnTolerance) - 1
			if j < 0 {
				j = 0
			}
			if cells[j] != "" {
				cells[j] += " "
			}
			cells[j] += c.text
		}
		table = append(table, cells)
	}
	return table
}

// cluster sorts values and merges those closer than tol into their mean.
func cluster(values []float64, tol float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	sum, n := sorted[0], 1
	for _, v := range sorted[1:] {
		if v-sum/float64(n) <= tol {
			sum += v
			n++
			continue
		}
		out = append(out, sum/float64(n))
		sum, n = v, 1
	}
	return append(out, sum/float64(n))
}
