package extractor

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// glyphs lays s out one rune per 5pt glyph starting at x.
func glyphs(x, y float64, s string) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{Font: "Arial", FontSize: 10, X: x, Y: y, W: 5, S: string(r)})
		x += 5
	}
	return out
}

func vline(x, y0, y1 float64) pdf.Rect {
	return pdf.Rect{Min: pdf.Point{X: x, Y: y0}, Max: pdf.Point{X: x + 0.5, Y: y1}}
}

func hline(y, x0, x1 float64) pdf.Rect {
	return pdf.Rect{Min: pdf.Point{X: x0, Y: y}, Max: pdf.Point{X: x1, Y: y + 0.5}}
}

func collect(parts ...[]pdf.Text) []pdf.Text {
	var out []pdf.Text
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestLayout_PageText(t *testing.T) {
	layout := NewLayout(DefaultConfig())

	texts := collect(
		glyphs(20, 780, "Адрес: ул. Примерная"),
		glyphs(20, 800, "ФИО: Иванов Иван"),
		glyphs(20, 760.8, "Лицевой"),
		glyphs(70, 760, "счет 81234567"),
	)

	page := layout.Analyze(texts, nil)
	assert.Equal(t, "ФИО: Иванов Иван\nАдрес: ул. Примерная\nЛицевой счет 81234567", page.Text())
	assert.Empty(t, page.Tables())
}

func TestLayout_RuledGrid(t *testing.T) {
	layout := NewLayout(DefaultConfig())

	rects := []pdf.Rect{
		hline(700, 0, 300), hline(680, 0, 300), hline(640, 0, 300),
		vline(0, 640, 700), vline(100, 640, 700), vline(200, 640, 700), vline(300, 640, 700),
	}
	texts := collect(
		glyphs(10, 688, "Виды"),
		glyphs(110, 688, "Тариф"),
		glyphs(210, 688, "Итого"),
		glyphs(10, 665, "ОТОПЛЕНИЕ"),
		glyphs(110, 665, "40,06"),
		glyphs(210, 670, "0,00"),
		glyphs(210, 655, "1 243,09"),
	)

	page := layout.Analyze(texts, rects)
	require.Len(t, page.Tables(), 1)

	table := page.Tables()[0]
	assert.Equal(t, Table{
		{"Виды", "Тариф", "Итого"},
		{"ОТОПЛЕНИЕ", "40,06", "0,00\n1 243,09"},
	}, table)
	assert.Equal(t, 3, table.MaxColumns())
}

func TestLayout_MergedHeaderCell(t *testing.T) {
	layout := NewLayout(DefaultConfig())

	rects := []pdf.Rect{
		hline(700, 0, 300), hline(680, 0, 300), hline(660, 0, 300),
		vline(0, 660, 700), vline(100, 660, 700), vline(300, 660, 700),
		// the border between the last two columns only exists in the lower band
		vline(200, 660, 680),
	}
	texts := collect(
		glyphs(10, 688, "Виды"),
		glyphs(170, 688, "Начислено"),
		glyphs(110, 668, "руб"),
		glyphs(210, 668, "коп"),
	)

	page := layout.Analyze(texts, rects)
	require.Len(t, page.Tables(), 1)
	assert.Equal(t, Table{
		{"Виды", "Начислено", ""},
		{"", "руб", "коп"},
	}, page.Tables()[0])
}

func TestLayout_SeparateGridsAreSeparateTables(t *testing.T) {
	layout := NewLayout(DefaultConfig())

	rects := []pdf.Rect{
		// upper table
		hline(700, 0, 200), hline(680, 0, 200),
		vline(0, 680, 700), vline(100, 680, 700), vline(200, 680, 700),
		// lower table, not touching the upper one
		hline(500, 0, 200), hline(480, 0, 200),
		vline(0, 480, 500), vline(100, 480, 500), vline(200, 480, 500),
	}
	texts := collect(
		glyphs(10, 488, "низ"),
		glyphs(110, 488, "2"),
		glyphs(10, 688, "верх"),
		glyphs(110, 688, "1"),
	)

	page := layout.Analyze(texts, rects)
	require.Len(t, page.Tables(), 2)
	assert.Equal(t, Table{{"верх", "1"}}, page.Tables()[0])
	assert.Equal(t, Table{{"низ", "2"}}, page.Tables()[1])
}

func TestLayout_AlignedColumnsWithoutRulings(t *testing.T) {
	layout := NewLayout(DefaultConfig())

	texts := collect(
		glyphs(0, 520, "ФИО: Иванов"),
		glyphs(0, 500, "Услуга"), glyphs(100, 500, "Тариф"), glyphs(200, 500, "Итого"),
		glyphs(0, 490, "ОТОПЛЕНИЕ"), glyphs(100, 490, "40,06"), glyphs(200, 490, "1 243,09"),
		glyphs(0, 480, "ГАЗ"), glyphs(200, 480, "10,00"),
	)

	page := layout.Analyze(texts, nil)
	require.Len(t, page.Tables(), 1)
	assert.Equal(t, Table{
		{"Услуга", "Тариф", "Итого"},
		{"ОТОПЛЕНИЕ", "40,06", "1 243,09"},
	}, page.Tables()[0])
}

func TestCluster(t *testing.T) {
	assert.Nil(t, cluster(nil, 2))
	assert.Equal(t, []float64{1, 100}, cluster([]float64{100, 0, 2, 1}, 2.5))
}

func TestTable_Text(t *testing.T) {
	table := Table{{"Виды услуг", ""}, {"тариф", "начислено"}}
	assert.Equal(t, "Виды услуг тариф начислено ", table.Text())
}
