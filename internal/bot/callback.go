package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackKind tags inline keyboard data.
type CallbackKind string

const (
	CallbackFloor     CallbackKind = "floor"
	CallbackRange     CallbackKind = "aptrange"
	CallbackSelect    CallbackKind = "aptselect"
	CallbackApartment CallbackKind = "apt"
)

// CallbackData is decoded inline keyboard data:
//
//	floor_<floor>
//	aptrange_<start>_<end>
//	aptselect_<apartment>
//	apt_<floor>_<apartment>
type CallbackData struct {
	Kind      CallbackKind
	Floor     int
	Apartment int
	Start     int
	End       int
}

// Encode serializes d.
func (d CallbackData) Encode() string {
	switch d.Kind {
	case CallbackFloor:
		return fmt.Sprintf("floor_%d", d.Floor)
	case CallbackRange:
		return fmt.Sprintf("aptrange_%d_%d", d.Start, d.End)
	case CallbackSelect:
		return fmt.Sprintf("aptselect_%d", d.Apartment)
	case CallbackApartment:
		return fmt.Sprintf("apt_%d_%d", d.Floor, d.Apartment)
	default:
		return ""
	}
}

// ParseCallback decodes inline keyboard data.
func ParseCallback(data string) (CallbackData, error) {
	parts := strings.Split(data, "_")
	args := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return CallbackData{}, fmt.Errorf("callback %q: bad argument %q", data, p)
		}
		args = append(args, n)
	}
	kind := CallbackKind(parts[0])
	want := map[CallbackKind]int{CallbackFloor: 1, CallbackRange: 2, CallbackSelect: 1, CallbackApartment: 2}
	n, ok := want[kind]
	if !ok {
		return CallbackData{}, fmt.Errorf("callback %q: unknown tag", data)
	}
	if len(args) != n {
		return CallbackData{}, fmt.Errorf("callback %q: want %d arguments, got %d", data, n, len(args))
	}
	d := CallbackData{Kind: kind}
	switch kind {
	case CallbackFloor:
		d.Floor = args[0]
	case CallbackRange:
		d.Start, d.End = args[0], args[1]
		if d.Start > d.End {
			return CallbackData{}, fmt.Errorf("callback %q: empty range", data)
		}
	case CallbackSelect:
		d.Apartment = args[0]
	case CallbackApartment:
		d.Floor, d.Apartment = args[0], args[1]
	}
	return d, nil
}
