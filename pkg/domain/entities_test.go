package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleBuilding() *Building {
	return &Building{
		Version: 1,
		Schema: map[string]Floor{
			"10": {"1001": {Residents: []string{"zed"}, Numbers: []string{}}},
			"3": {
				"302": {Residents: []string{}, Numbers: []string{}},
				"301": {Residents: []string{"alice"}, Numbers: []string{"111", "222", "111"}},
			},
		},
	}
}

func TestSortedFloorsNumeric(t *testing.T) {
	b := sampleBuilding()
	b.Schema["roof"] = Floor{}
	got := b.SortedFloors()
	want := []string{"3", "10", "roof"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("floor order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"301", "302"}, b.Schema["3"].SortedApartments()); diff != "" {
		t.Fatalf("apartment order (-want +got):\n%s", diff)
	}
}

func TestLocate(t *testing.T) {
	b := sampleBuilding()
	floor, apt, err := b.Locate(301)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if floor != "3" || !cmp.Equal(apt.Residents, []string{"alice"}) {
		t.Fatalf("unexpected match floor=%s apt=%+v", floor, apt)
	}
	if _, _, err := b.Locate(999); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocateFirstMatchIsLowestFloor(t *testing.T) {
	b := sampleBuilding()
	b.Schema["2"] = Floor{"301": {Residents: []string{"shadow"}, Numbers: []string{}}}
	floor, apt, err := b.Locate(301)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if floor != "2" || apt.Residents[0] != "shadow" {
		t.Fatalf("expected lowest floor to win, got floor %s", floor)
	}
}

func TestLocateOnFloor(t *testing.T) {
	b := sampleBuilding()
	if _, err := b.LocateOnFloor(3, 302); err != nil {
		t.Fatalf("locate on floor: %v", err)
	}
	var nf ErrNotFound
	_, err := b.LocateOnFloor(4, 301)
	if !errors.As(err, &nf) || nf.Entity != EntityFloor {
		t.Fatalf("expected floor not found, got %v", err)
	}
	_, err = b.LocateOnFloor(3, 1001)
	if !errors.As(err, &nf) || nf.Entity != EntityApartment {
		t.Fatalf("expected apartment not found, got %v", err)
	}
}

func TestApartmentNumbers(t *testing.T) {
	if diff := cmp.Diff([]int{301, 302, 1001}, sampleBuilding().ApartmentNumbers()); diff != "" {
		t.Fatalf("apartment numbers (-want +got):\n%s", diff)
	}
}

func TestResidentMutations(t *testing.T) {
	apt := &Apartment{Residents: []string{}, Numbers: []string{}}
	if err := apt.AddResident("alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := apt.AddResident("bob"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := apt.AddResident("alice"); !errors.Is(err, ErrAlreadyResident) {
		t.Fatalf("expected ErrAlreadyResident, got %v", err)
	}
	if err := apt.RemoveResident("carol"); !errors.Is(err, ErrNotResident) {
		t.Fatalf("expected ErrNotResident, got %v", err)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, apt.Residents); diff != "" {
		t.Fatalf("failed removal must leave list unchanged (-want +got):\n%s", diff)
	}
	if err := apt.RemoveResident("alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"bob"}, apt.Residents); diff != "" {
		t.Fatalf("residents after removal (-want +got):\n%s", diff)
	}
	if !apt.Occupied() {
		t.Fatalf("expected apartment to be occupied")
	}
}

func TestNumberMutations(t *testing.T) {
	apt := sampleBuilding().Schema["3"]["301"]
	apt.AddNumber("111")
	if err := apt.RemoveNumber("111"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"222", "111", "111"}, apt.Numbers); diff != "" {
		t.Fatalf("only the first match is removed (-want +got):\n%s", diff)
	}
	if err := apt.RemoveNumber("333"); !errors.Is(err, ErrNumberNotFound) {
		t.Fatalf("expected ErrNumberNotFound, got %v", err)
	}
}

func TestNewBuilding(t *testing.T) {
	b := NewBuilding(2, 4, 6)
	if b.Version != 1 {
		t.Fatalf("expected version 1, got %d", b.Version)
	}
	if len(b.Schema) != 3 || len(b.Schema["4"]) != 6 {
		t.Fatalf("unexpected layout %v", b.SortedFloors())
	}
	if _, ok := b.Schema["4"]["406"]; !ok {
		t.Fatalf("expected apartment 406 on floor 4")
	}
}
