package pdf

import (
	"math"
	"strings"
	"testing"
)

func sum(ws []float64) float64 {
	total := 0.0
	for _, w := range ws {
		total += w
	}
	return total
}

func TestDistributeWidthsGrowsProportionally(t *testing.T) {
	got := distributeWidths([]float64{20, 40}, 180, 14)
	if math.Abs(sum(got)-180) > 1e-9 {
		t.Fatalf("sum = %v", sum(got))
	}
	if math.Abs(got[1]-2*got[0]) > 1e-9 {
		t.Fatalf("widths not proportional: %v", got)
	}
}

func TestDistributeWidthsShrinksWithMinimum(t *testing.T) {
	got := distributeWidths([]float64{300, 15, 15, 60}, 180, 14)
	if math.Abs(sum(got)-180) > 1e-9 {
		t.Fatalf("sum = %v (%v)", sum(got), got)
	}
	for i, w := range got {
		if w < 14-1e-9 {
			t.Fatalf("column %d below minimum: %v", i, got)
		}
	}
	if got[0] <= got[3] {
		t.Fatalf("widest content should keep the widest column: %v", got)
	}
}

func TestDistributeWidthsTooManyColumns(t *testing.T) {
	got := distributeWidths([]float64{10, 10, 10}, 30, 14)
	for _, w := range got {
		if w != 10 {
			t.Fatalf("expected even split, got %v", got)
		}
	}
	if len(distributeWidths(nil, 180, 14)) != 0 {
		t.Fatalf("no columns, no widths")
	}
}

func TestFitTextKeepsSizeWhenItFits(t *testing.T) {
	c := newCanvas("test")
	c.setFont("", tableFontSize)

	size, text := c.fitText("pH", 40, tableFontSize)
	if size != tableFontSize || text != "pH" {
		t.Fatalf("got %v %q", size, text)
	}
}

func TestFitTextShrinksFont(t *testing.T) {
	c := newCanvas("test")
	c.setFont("", tableFontSize)

	text := "Conductivity after softener"
	natural := c.textWidth(text)
	width := natural*0.85 + 2*cellPadding

	size, encoded := c.fitText(text, width, tableFontSize)
	if size >= tableFontSize || size < minFontSize {
		t.Fatalf("size = %v", size)
	}
	if encoded != text {
		t.Fatalf("text should not be truncated, got %q", encoded)
	}
	if math.Mod(tableFontSize-size, fontStep) != 0 {
		t.Fatalf("size %v is not a multiple of the step", size)
	}
}

func TestFitTextTruncatesBelowMinimum(t *testing.T) {
	c := newCanvas("test")
	c.setFont("", tableFontSize)

	text := strings.Repeat("very long serial number ", 10)
	size, encoded := c.fitText(text, 30, tableFontSize)
	if size != minFontSize {
		t.Fatalf("size = %v, want minimum", size)
	}
	if !strings.HasSuffix(encoded, ellipsis) {
		t.Fatalf("expected ellipsis, got %q", encoded)
	}
	if w := c.pdf.GetStringWidth(encoded); w > 30-2*cellPadding {
		t.Fatalf("truncated text still too wide: %v", w)
	}
}

func TestEnsureSpaceStartsNewPage(t *testing.T) {
	c := newCanvas("test")
	continued := 0
	c.continuation = func() { continued++ }

	if c.ensureSpace(50) {
		t.Fatalf("fresh page has room")
	}
	c.y = c.bottom() - 5
	if !c.ensureSpace(10) {
		t.Fatalf("expected a page break")
	}
	if c.pdf.PageNo() != 2 || c.y != margin || continued != 1 {
		t.Fatalf("page=%d y=%v continued=%d", c.pdf.PageNo(), c.y, continued)
	}
}

func TestTableRepeatsHeaderAcrossPages(t *testing.T) {
	c := newCanvas("test")
	rows := make([][]string, 80)
	for i := range rows {
		rows[i] = []string{"row", "1"}
	}
	c.table([]column{{"Name", "L"}, {"Value", "R"}}, rows)

	if c.pdf.PageNo() < 2 {
		t.Fatalf("80 rows should overflow onto a second page")
	}
	if c.y >= pageHeight {
		t.Fatalf("cursor left the page: %v", c.y)
	}
}

func TestKeyValueGridSkipsEmpty(t *testing.T) {
	c := newCanvas("test")
	start := c.y
	c.keyValueGrid([]kv{{"A", ""}, {"B", "  "}})
	if c.y != start {
		t.Fatalf("empty grid must not move the cursor")
	}
	c.keyValueGrid([]kv{{"A", "1"}, {"B", "2"}, {"C", "3"}})
	if c.y != start+2*rowHeight {
		t.Fatalf("three pairs should take two rows, y moved %v", c.y-start)
	}
}
