// Package domain defines the building registry persisted by housebot: floors,
// apartments, their residents and phone numbers, plus the typed errors shared
// by the storage and chat layers.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// EntityType identifies the kind of record referenced by an error.
type EntityType string

const (
	// EntityApartment identifies an apartment inside the building schema.
	EntityApartment EntityType = "apartment"
	// EntityFloor identifies a floor inside the building schema.
	EntityFloor EntityType = "floor"
	// EntityDocument identifies the persisted building document.
	EntityDocument EntityType = "building document"
	// EntityBackup identifies a remote backup object.
	EntityBackup EntityType = "backup"
)

// Apartment holds the residents and phone numbers registered for one apartment.
// Residents keep registration order.
type Apartment struct {
	Residents []string `json:"residents"`
	Numbers   []string `json:"numbers"`
}

// Floor maps apartment numbers (decimal strings) to apartments.
type Floor map[string]*Apartment

// Building is the whole persisted registry.
type Building struct {
	// Version is bumped by exactly one on every save. Zero means the document
	// predates versioning.
	Version int              `json:"version"`
	Schema  map[string]Floor `json:"schema"`
}

// UnmarshalJSON accepts the current object form and the legacy bare array of
// resident names.
func (a *Apartment) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return err
		}
		*a = Apartment{Residents: names}
		return nil
	}
	type plain Apartment
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*a = Apartment(p)
	return nil
}

// UnmarshalJSON accepts both the versioned document and the legacy layout in
// which floors sit at the top level.
func (b *Building) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe == nil {
		return fmt.Errorf("building document is null")
	}
	_, hasSchema := probe["schema"]
	_, hasVersion := probe["version"]
	if hasSchema || hasVersion {
		type plain Building
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*b = Building(p)
		b.normalize()
		return nil
	}
	schema := make(map[string]Floor, len(probe))
	for key, raw := range probe {
		if _, err := strconv.Atoi(key); err != nil {
			return fmt.Errorf("unexpected top-level key %q", key)
		}
		var floor Floor
		if err := json.Unmarshal(raw, &floor); err != nil {
			return fmt.Errorf("floor %s: %w", key, err)
		}
		schema[key] = floor
	}
	*b = Building{Schema: schema}
	b.normalize()
	return nil
}

// normalize replaces nil maps, apartments and slices with empty values so that
// encoding always yields arrays rather than nulls.
func (b *Building) normalize() {
	if b.Schema == nil {
		b.Schema = make(map[string]Floor)
	}
	for key, floor := range b.Schema {
		if floor == nil {
			floor = make(Floor)
			b.Schema[key] = floor
		}
		for apt, a := range floor {
			if a == nil {
				a = &Apartment{}
				floor[apt] = a
			}
			if a.Residents == nil {
				a.Residents = []string{}
			}
			if a.Numbers == nil {
				a.Numbers = []string{}
			}
		}
	}
}

// NewBuilding generates a version 1 building with perFloor apartments on every
// floor in [floorMin, floorMax], numbered floor*100+i.
func NewBuilding(floorMin, floorMax, perFloor int) *Building {
	b := &Building{Version: 1, Schema: make(map[string]Floor)}
	for floor := floorMin; floor <= floorMax; floor++ {
		f := make(Floor, perFloor)
		for i := 1; i <= perFloor; i++ {
			f[strconv.Itoa(floor*100+i)] = &Apartment{Residents: []string{}, Numbers: []string{}}
		}
		b.Schema[strconv.Itoa(floor)] = f
	}
	return b
}

// DecodeBuilding parses a building document. Failures are reported as ErrParse
// tagged with source.
func DecodeBuilding(data []byte, source string) (*Building, error) {
	var b Building
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, ErrParse{Source: source, Err: err}
	}
	b.normalize()
	return &b, nil
}

// EncodeBuilding serializes the building with two-space indentation.
func EncodeBuilding(b *Building) ([]byte, error) {
	b.normalize()
	return json.MarshalIndent(b, "", "  ")
}

// SortedFloors returns floor identifiers in ascending numeric order. Keys that
// are not numbers sort after numeric ones, lexically.
func (b *Building) SortedFloors() []string {
	keys := make([]string, 0, len(b.Schema))
	for k := range b.Schema {
		keys = append(keys, k)
	}
	sortNumeric(keys)
	return keys
}

// SortedApartments returns apartment numbers on the floor in ascending numeric order.
func (f Floor) SortedApartments() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sortNumeric(keys)
	return keys
}

// Floor returns the floor with the given number.
func (b *Building) Floor(number int) (Floor, bool) {
	f, ok := b.Schema[strconv.Itoa(number)]
	return f, ok
}

// Locate finds an apartment by number across all floors. Floors are scanned in
// ascending order and the first match wins.
func (b *Building) Locate(apartment int) (string, *Apartment, error) {
	key := strconv.Itoa(apartment)
	for _, floor := range b.SortedFloors() {
		if a, ok := b.Schema[floor][key]; ok {
			return floor, a, nil
		}
	}
	return "", nil, ErrNotFound{Entity: EntityApartment, ID: key}
}

// LocateOnFloor finds an apartment on one specific floor.
func (b *Building) LocateOnFloor(floor, apartment int) (*Apartment, error) {
	f, ok := b.Floor(floor)
	if !ok {
		return nil, ErrNotFound{Entity: EntityFloor, ID: strconv.Itoa(floor)}
	}
	a, ok := f[strconv.Itoa(apartment)]
	if !ok {
		return nil, ErrNotFound{Entity: EntityApartment, ID: strconv.Itoa(apartment)}
	}
	return a, nil
}

// ApartmentNumbers lists every numeric apartment number in the building, ascending.
func (b *Building) ApartmentNumbers() []int {
	var out []int
	for _, floor := range b.Schema {
		for key := range floor {
			if n, err := strconv.Atoi(key); err == nil {
				out = append(out, n)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Occupied reports whether anyone lives in the apartment.
func (a *Apartment) Occupied() bool { return len(a.Residents) > 0 }

// HasResident reports whether name is registered, by exact string equality.
func (a *Apartment) HasResident(name string) bool {
	return slices.Contains(a.Residents, name)
}

// AddResident appends name. A name already present yields ErrAlreadyResident.
func (a *Apartment) AddResident(name string) error {
	if a.HasResident(name) {
		return ErrAlreadyResident
	}
	a.Residents = append(a.Residents, name)
	return nil
}

// RemoveResident deletes name, keeping the order of the remaining residents.
func (a *Apartment) RemoveResident(name string) error {
	idx := slices.Index(a.Residents, name)
	if idx < 0 {
		return ErrNotResident
	}
	a.Residents = slices.Delete(a.Residents, idx, idx+1)
	return nil
}

// AddNumber appends a phone number. Duplicates are allowed.
func (a *Apartment) AddNumber(number string) {
	a.Numbers = append(a.Numbers, number)
}

// RemoveNumber deletes the first exact match of number.
func (a *Apartment) RemoveNumber(number string) error {
	idx := slices.Index(a.Numbers, number)
	if idx < 0 {
		return ErrNumberNotFound
	}
	a.Numbers = slices.Delete(a.Numbers, idx, idx+1)
	return nil
}

func sortNumeric(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(keys[i])
		nj, ej := strconv.Atoi(keys[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
