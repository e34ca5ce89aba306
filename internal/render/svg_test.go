package render

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"housebot/internal/i18n"
	"housebot/pkg/domain"
)

func schemaOf(t *testing.T, doc string) map[string]domain.Floor {
	t.Helper()
	b, err := domain.DecodeBuilding([]byte(doc), "test")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b.Schema
}

// wellFormed parses the markup with encoding/xml.
func wellFormed(t *testing.T, svg string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("svg is not well-formed: %v\n%s", err, svg)
		}
	}
}

func TestRenderColorsByOccupancy(t *testing.T) {
	r := NewRenderer(LocaleLabels(i18n.MustLoad("en")), 0)
	svg := r.Render(schemaOf(t, `{"version":1,"schema":{"3":{"301":{"residents":["alice"],"numbers":[]},"302":{"residents":[],"numbers":[]}}}}`), Options{})
	wellFormed(t, svg)
	if strings.Count(svg, `class="apt occupied"`) != 1 || strings.Count(svg, `class="apt empty"`) != 1 {
		t.Fatalf("unexpected cell classes:\n%s", svg)
	}
	for _, want := range []string{colorOccupied, colorEmpty, "Floor 3", "Apt. 301", "Apt. 302", "1 resident", ">alice<"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRenderSortsAndCapsApartments(t *testing.T) {
	r := NewRenderer(Labels{}, 2)
	svg := r.Render(schemaOf(t, `{"version":1,"schema":{"10":{"1007":[],"1001":[],"1002":[],"1003":[],"1004":[],"1005":[],"1006":[]},"9":{"901":[]}}}`), Options{})
	if strings.Contains(svg, ">1007<") {
		t.Fatal("seventh apartment must not be drawn")
	}
	if strings.Index(svg, ">9<") > strings.Index(svg, ">10<") {
		t.Fatal("floors must be ordered numerically")
	}
	if strings.Index(svg, ">1001<") > strings.Index(svg, ">1002<") {
		t.Fatal("apartments must be ordered numerically")
	}
}

func TestRenderSingleFloorShrinks(t *testing.T) {
	r := NewRenderer(Labels{}, 2)
	schema := schemaOf(t, `{"version":1,"schema":{"2":{"201":[]},"3":{"301":["bob"]},"4":{"401":[]}}}`)
	svg := r.Render(schema, Options{SingleFloor: true, Floor: 3})
	wellFormed(t, svg)
	if strings.Contains(svg, ">201<") || strings.Contains(svg, ">401<") {
		t.Fatal("single floor image must not contain other floors")
	}
	wantHeader := `<svg width="460" height="356"`
	if !strings.HasPrefix(svg, wantHeader) {
		t.Fatalf("unexpected dimensions: %s", svg[:60])
	}
	whole := r.Render(schema, Options{})
	if !strings.HasPrefix(whole, `<svg width="900" height="672"`) {
		t.Fatalf("unexpected building dimensions: %s", whole[:60])
	}
}

func TestRenderDegradesGracefully(t *testing.T) {
	r := NewRenderer(Labels{}, 2)
	for name, svg := range map[string]string{
		"empty":         r.Render(nil, Options{}),
		"missing floor": r.Render(schemaOf(t, `{"version":1,"schema":{"2":{}}}`), Options{SingleFloor: true, Floor: 7}),
	} {
		wellFormed(t, svg)
		if strings.Contains(svg, "<text") {
			t.Errorf("%s: expected background only", name)
		}
	}
}

func TestRenderEscapesNames(t *testing.T) {
	r := NewRenderer(Labels{}, 2)
	svg := r.Render(schemaOf(t, `{"version":1,"schema":{"5":{"501":["<script>&\"x\""]}}}`), Options{})
	wellFormed(t, svg)
	if strings.Contains(svg, "<script>") {
		t.Fatal("resident names must be escaped")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer(LocaleLabels(i18n.MustLoad("ru")), 3)
	schema := domain.NewBuilding(2, 9, 6).Schema
	first := r.Render(schema, Options{})
	for i := 0; i < 5; i++ {
		if r.Render(schema, Options{}) != first {
			t.Fatal("render output differs between runs")
		}
	}
}

func TestRenderRussianPlurals(t *testing.T) {
	r := NewRenderer(LocaleLabels(i18n.MustLoad("ru")), 2)
	svg := r.Render(schemaOf(t, `{"version":1,"schema":{"2":{"201":["a","b"],"202":["c","d","e","f","g"]}}}`), Options{})
	for _, want := range []string{"2 жильца", "5 жильцов", "Этаж 2", "Кв. 201"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}
