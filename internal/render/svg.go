// Package render draws the building registry as an SVG floor plan and caches
// rendered images per building version.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"housebot/internal/i18n"
	"housebot/pkg/domain"
)

// Layout constants, in SVG user units.
const (
	cellWidth          = 140 // horizontal pitch of an apartment cell
	rectWidth          = 130 // drawn width, leaving a 10 unit gutter
	cellHeight         = 110
	cellGap            = 10 // vertical gap between the two cell rows
	gridColumns        = 3
	gridRows           = 2
	margin             = 20
	textOffset         = 24 // floor label baseline below the block top
	apartmentsOffsetY  = 32 // cells start this far below the label baseline
	floorBottomPadding = 30
	nameLineHeight     = 16

	blockWidth  = gridColumns * cellWidth
	blockHeight = textOffset + apartmentsOffsetY + gridRows*cellHeight + (gridRows-1)*cellGap + floorBottomPadding

	// MaxApartmentsPerFloor is how many cells a floor block holds; further
	// apartments are not drawn.
	MaxApartmentsPerFloor = gridColumns * gridRows
	// DefaultColumns is the number of floor blocks per row.
	DefaultColumns = 2
)

const (
	colorOccupied = "#6ee7b7"
	colorEmpty    = "#f4f5f7"
	colorText     = "#22223b"
	colorBorder   = "#b5b5c3"
	fontFamily    = "Segoe UI, Arial, sans-serif"
)

const defs = `  <defs>
    <linearGradient id="bgGradient" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%" stop-color="#fdf6e3"/>
      <stop offset="100%" stop-color="#e0c3fc"/>
    </linearGradient>
    <filter id="shadow" x="-20%" y="-20%" width="140%" height="140%">
      <feDropShadow dx="0" dy="2" stdDeviation="2" flood-color="#b0b0b0" flood-opacity="0.18"/>
    </filter>
  </defs>
`

// Labels supplies the localized text drawn into the plan.
type Labels struct {
	Floor     func(floor string) string
	Apartment func(apartment string) string
	Residents func(count int) string
}

// LocaleLabels builds Labels from a locale table.
func LocaleLabels(l *i18n.Locale) Labels {
	return Labels{
		Floor:     func(f string) string { return l.T("svgFloor", "floor", f) },
		Apartment: func(a string) string { return l.T("svgApartment", "apartmentNumber", a) },
		Residents: l.ResidentCount,
	}
}

// Options selects what to draw.
type Options struct {
	// SingleFloor limits the image to Floor.
	SingleFloor bool
	Floor       int
}

// Renderer turns a building schema into SVG markup. It is stateless and safe
// for concurrent use.
type Renderer struct {
	labels  Labels
	columns int
}

// NewRenderer returns a renderer placing columns floors per row; values below
// one select DefaultColumns.
func NewRenderer(labels Labels, columns int) *Renderer {
	if columns < 1 {
		columns = DefaultColumns
	}
	return &Renderer{labels: labels, columns: columns}
}

// Render draws the schema. It never fails: an empty schema, or a missing
// floor in single floor mode, yields an image holding only the background.
func (r *Renderer) Render(schema map[string]domain.Floor, opts Options) string {
	floors := (&domain.Building{Schema: schema}).SortedFloors()
	if opts.SingleFloor {
		key := strconv.Itoa(opts.Floor)
		floors = floors[:0]
		if _, ok := schema[key]; ok {
			floors = append(floors, key)
		}
	}

	columns := min(r.columns, len(floors))
	rows := 0
	if columns > 0 {
		rows = (len(floors) + columns - 1) / columns
	}
	width := 2 * margin
	if columns > 0 {
		width += columns*blockWidth + (columns-1)*margin
	}
	height := 2*margin + rows*blockHeight

	var sb strings.Builder
	fmt.Fprintf(&sb, "<svg width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\" xmlns=\"http://www.w3.org/2000/svg\">\n", width, height, width, height)
	sb.WriteString(defs)
	fmt.Fprintf(&sb, "  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"url(#bgGradient)\" rx=\"24\" ry=\"24\" filter=\"url(#shadow)\"/>\n", width, height)
	for i, floor := range floors {
		x := margin + (i%max(columns, 1))*(blockWidth+margin)
		y := margin + (i/max(columns, 1))*blockHeight
		r.drawFloor(&sb, floor, schema[floor], x, y)
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func (r *Renderer) drawFloor(sb *strings.Builder, floor string, apartments domain.Floor, x0, y0 int) {
	fmt.Fprintf(sb, "  <text class=\"floor\" x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"%s\" font-size=\"18\" font-weight=\"bold\">%s</text>\n",
		x0, y0+textOffset, colorText, fontFamily, html.EscapeString(r.label(r.labels.Floor, floor)))
	keys := apartments.SortedApartments()
	if len(keys) > MaxApartmentsPerFloor {
		keys = keys[:MaxApartmentsPerFloor]
	}
	for i, key := range keys {
		x := x0 + (i%gridColumns)*cellWidth
		y := y0 + textOffset + apartmentsOffsetY + (i/gridColumns)*(cellHeight+cellGap)
		r.drawApartment(sb, key, apartments[key], x, y)
	}
}

func (r *Renderer) drawApartment(sb *strings.Builder, number string, a *domain.Apartment, x, y int) {
	occupied := a != nil && a.Occupied()
	class, fill := "apt empty", colorEmpty
	if occupied {
		class, fill = "apt occupied", colorOccupied
	}
	fmt.Fprintf(sb, "  <rect class=\"%s\" x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" rx=\"14\" ry=\"14\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1.5\" filter=\"url(#shadow)\"/>\n",
		class, x, y, rectWidth, cellHeight, fill, colorBorder)
	fmt.Fprintf(sb, "  <text class=\"number\" x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"%s\" font-size=\"13\" font-weight=\"bold\">%s</text>\n",
		x+10, y+24, colorText, fontFamily, html.EscapeString(r.label(r.labels.Apartment, number)))
	if !occupied {
		return
	}
	count := strconv.Itoa(len(a.Residents))
	if r.labels.Residents != nil {
		count = r.labels.Residents(len(a.Residents))
	}
	fmt.Fprintf(sb, "  <text class=\"count\" x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"%s\" font-size=\"13\" font-weight=\"bold\">%s</text>\n",
		x+10, y+44, colorText, fontFamily, html.EscapeString(count))
	for i, name := range a.Residents {
		fmt.Fprintf(sb, "  <text class=\"resident\" x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"%s\" font-size=\"12\">%s</text>\n",
			x+10, y+64+i*nameLineHeight, colorText, fontFamily, html.EscapeString(name))
	}
}

func (r *Renderer) label(fn func(string) string, v string) string {
	if fn == nil {
		return v
	}
	return fn(v)
}
