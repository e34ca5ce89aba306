package i18n

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSupported(t *testing.T) {
	if diff := cmp.Diff([]string{"en", "ru"}, Supported()); diff != "" {
		t.Fatalf("Supported mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadUnknownLocale(t *testing.T) {
	if _, err := Load("de"); err == nil {
		t.Fatal("expected error for unknown locale")
	}
}

func TestLocalesShareKeys(t *testing.T) {
	en := MustLoad("en")
	ru := MustLoad("ru")
	if diff := cmp.Diff(en.MessageKeys(), ru.MessageKeys()); diff != "" {
		t.Fatalf("message keys differ (-en +ru):\n%s", diff)
	}
	enLabels, ruLabels := en.Labels(), ru.Labels()
	for cmd := range enLabels {
		if ruLabels[cmd] == "" {
			t.Errorf("ru missing label for %s", cmd)
		}
	}
	if len(enLabels) != len(ruLabels) {
		t.Errorf("label count differs: en=%d ru=%d", len(enLabels), len(ruLabels))
	}
}

func TestLabelsAreDistinct(t *testing.T) {
	for _, tag := range Supported() {
		l := MustLoad(tag)
		seen := map[string]string{}
		for cmd, label := range l.Labels() {
			if prev, ok := seen[label]; ok {
				t.Errorf("%s: label %q used by %s and %s", tag, label, prev, cmd)
			}
			seen[label] = cmd
		}
	}
}

func TestTReplacesPlaceholders(t *testing.T) {
	l := MustLoad("en")
	got := l.T("residentAdded", "residentName", "alice", "apartmentNumber", "301", "floor", "3")
	want := "alice added to apartment 301 on floor 3."
	if got != want {
		t.Fatalf("T = %q, want %q", got, want)
	}
	if got := l.T("noSuchKey"); got != "noSuchKey" {
		t.Fatalf("unknown key rendered as %q", got)
	}
}

func TestCancelLabels(t *testing.T) {
	if got := MustLoad("en").Cancel(); got != "Cancel" {
		t.Fatalf("en cancel = %q", got)
	}
	if got := MustLoad("ru").Cancel(); got != "Отмена" {
		t.Fatalf("ru cancel = %q", got)
	}
}

func TestSlavicPlural(t *testing.T) {
	ru := MustLoad("ru")
	cases := map[int]string{
		1:   "1 жилец",
		2:   "2 жильца",
		4:   "4 жильца",
		5:   "5 жильцов",
		11:  "11 жильцов",
		12:  "12 жильцов",
		14:  "14 жильцов",
		21:  "21 жилец",
		22:  "22 жильца",
		111: "111 жильцов",
	}
	for n, want := range cases {
		if got := ru.ResidentCount(n); got != want {
			t.Errorf("ResidentCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEnglishPlural(t *testing.T) {
	en := MustLoad("en")
	if got := en.ResidentCount(1); got != "1 resident" {
		t.Errorf("ResidentCount(1) = %q", got)
	}
	for _, n := range []int{0, 2, 11, 21} {
		if en.PluralForm(n) != Many {
			t.Errorf("PluralForm(%d) should be Many", n)
		}
	}
}
