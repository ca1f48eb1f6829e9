package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// PDF REPORT — KPI summary page + one bar chart page per layout section
// ============================================================================

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	kpiRowHeight  = 0.32 * vg.Inch
	labelColWidth = 3.2 * vg.Inch
	valueColWidth = 1.6 * vg.Inch
)

var (
	chartBlue  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	upGreen    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	downRed    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	mutedGray  = color.Gray{Y: 100}
	ruleGray   = color.Gray{Y: 180}
	headerGray = color.Gray{Y: 80}
)

// WritePDF renders b as a multi-page PDF report.
func WritePDF(w io.Writer, b *engine.Bundle, symbol string) error {
	if b == nil || b.Config == nil {
		return fmt.Errorf("render: bundle has no config")
	}
	if b.Config.Currency != "" {
		symbol = b.Config.Currency
	}

	c := vgpdf.New(pageWidth, pageHeight)
	drawSummaryPage(c, b)

	for _, id := range b.Config.Layout.Sections {
		sec, ok := engine.LookupSection(id)
		if !ok {
			continue
		}
		c.NextPage()
		drawSectionPage(c, sec, b.ChartData[string(id)], symbol)
	}

	_, err := c.WriteTo(w)
	return err
}

// ── Summary ──

func drawSummaryPage(c *vgpdf.Canvas, b *engine.Bundle) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	usableW := pageWidth - 2*pdfMargin

	y := area.Max.Y - vg.Points(16)
	fillText(area, sanitize(b.Config.Name), vg.Points(16), area.Min.X, y, color.Black)
	y -= 0.3 * vg.Inch
	fillText(area, sanitize("Period: "+b.Period), vg.Points(10), area.Min.X, y, mutedGray)

	y -= 0.45 * vg.Inch
	fillText(area, "KPI", vg.Points(10), area.Min.X, y, headerGray)
	fillText(area, "Value", vg.Points(10), area.Min.X+labelColWidth, y, headerGray)
	fillText(area, "Change", vg.Points(10), area.Min.X+labelColWidth+valueColWidth, y, headerGray)
	y -= vg.Points(6)
	strokeHLine(area, area.Min.X, area.Min.X+usableW, y, ruleGray)

	for _, k := range b.KPIs {
		y -= kpiRowHeight
		if y < area.Min.Y+kpiRowHeight {
			break
		}
		fillText(area, sanitize(k.Label), vg.Points(10), area.Min.X, y, color.Black)
		fillText(area, sanitize(k.Value), vg.Points(10), area.Min.X+labelColWidth, y, color.Black)
		fillText(area, sanitize(k.Change), vg.Points(10), area.Min.X+labelColWidth+valueColWidth, y, changeColor(k))
	}

	notes := make([]string, 0, len(b.Warnings)+1)
	if len(b.MissingSources) > 0 {
		notes = append(notes, "Missing data sources: "+strings.Join(b.MissingSources, ", "))
	}
	notes = append(notes, b.Warnings...)
	if len(notes) == 0 {
		return
	}

	y -= 0.5 * vg.Inch
	fillText(area, "Notes", vg.Points(10), area.Min.X, y, headerGray)
	for _, n := range notes {
		y -= vg.Points(14)
		if y < area.Min.Y {
			return
		}
		fillText(area, sanitize(n), vg.Points(8), area.Min.X, y, mutedGray)
	}
}

// changeColor is green for movement in the good direction, red otherwise.
func changeColor(k engine.KpiResult) color.Color {
	if k.ChangeRaw == 0 || k.Degraded {
		return mutedGray
	}
	if (k.ChangeRaw > 0) != k.DownBetter {
		return upGreen
	}
	return downRed
}

// ── Chart pages ──

func drawSectionPage(c *vgpdf.Canvas, sec engine.Section, points []engine.ChartPoint, symbol string) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

	if len(points) == 0 {
		fillText(area, sec.Title, vg.Points(12), area.Min.X, area.Max.Y-vg.Points(12), color.Black)
		fillText(area, "No data", vg.Points(10), area.Min.X, area.Max.Y-0.4*vg.Inch, mutedGray)
		return
	}

	p, err := barPlot(sec, points, symbol)
	if err != nil {
		fillText(area, sec.Title+": "+err.Error(), vg.Points(10), area.Min.X, area.Max.Y-vg.Points(12), mutedGray)
		return
	}
	p.Draw(area)
}

func barPlot(sec engine.Section, points []engine.ChartPoint, symbol string) (*plot.Plot, error) {
	values := make(plotter.Values, len(points))
	names := make([]string, len(points))
	for i, pt := range points {
		values[i] = pt.Value
		names[i] = sanitize(pt.Label)
	}

	p := plot.New()
	p.Title.Text = sec.Title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White

	width := vg.Points(math.Max(8, math.Min(40, 360/float64(len(points)))))
	bars, err := plotter.NewBarChart(values, width)
	if err != nil {
		return nil, err
	}
	bars.Color = chartBlue
	bars.LineStyle.Width = 0

	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)
	if len(names) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Min = 0
	p.Y.Tick.Marker = valueTicks{format: sec.Format, symbol: symbol}
	p.Y.Label.Text = axisLabel(sec)
	return p, nil
}

func axisLabel(sec engine.Section) string {
	if sec.Aggregation == "count" {
		return "Count"
	}
	return "Amount"
}

type valueTicks struct {
	format engine.Format
	symbol string
}

func (v valueTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = engine.FormatValue(ticks[i].Value, v.format, v.symbol)
		}
	}
	return ticks
}

// ── Drawing helpers ──

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}

// sanitize replaces dashes the embedded font has no glyph for.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "—", "-")
	return strings.ReplaceAll(s, "–", "-")
}

// SectionTitles lists chart page titles in layout order, for callers that
// print a table of contents.
func SectionTitles(sections []schema.SectionID) []string {
	var titles []string
	for _, id := range sections {
		if sec, ok := engine.LookupSection(id); ok {
			titles = append(titles, sec.Title)
		}
	}
	return titles
}
