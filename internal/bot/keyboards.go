package bot

import (
	"fmt"
	"strconv"
)

const (
	floorsPerRow     = 4
	apartmentsPerRow = 3
)

// FloorPicker lists floors lo..hi, floorsPerRow buttons per row.
func FloorPicker(lo, hi int) *Markup {
	var buttons []Button
	for f := lo; f <= hi; f++ {
		buttons = append(buttons, Button{Text: strconv.Itoa(f), Data: CallbackData{Kind: CallbackFloor, Floor: f}.Encode()})
	}
	return &Markup{Inline: rows(buttons, floorsPerRow)}
}

// RangePicker splits the sorted apartment numbers into pages of perPage and
// offers one button per page.
func RangePicker(apartments []int, perPage int) *Markup {
	if perPage < 1 {
		perPage = 1
	}
	var buttons []Button
	for i := 0; i < len(apartments); i += perPage {
		page := apartments[i:min(i+perPage, len(apartments))]
		start, end := page[0], page[len(page)-1]
		text := strconv.Itoa(start)
		if end != start {
			text = fmt.Sprintf("%d–%d", start, end)
		}
		buttons = append(buttons, Button{Text: text, Data: CallbackData{Kind: CallbackRange, Start: start, End: end}.Encode()})
	}
	return &Markup{Inline: rows(buttons, apartmentsPerRow)}
}

// ApartmentPicker offers one building-wide lookup button per apartment.
func ApartmentPicker(apartments []int) *Markup {
	return apartmentButtons(apartments, func(n int) CallbackData {
		return CallbackData{Kind: CallbackSelect, Apartment: n}
	})
}

// FloorApartmentPicker offers one button per apartment of floor.
func FloorApartmentPicker(floor int, apartments []int) *Markup {
	return apartmentButtons(apartments, func(n int) CallbackData {
		return CallbackData{Kind: CallbackApartment, Floor: floor, Apartment: n}
	})
}

func apartmentButtons(apartments []int, data func(int) CallbackData) *Markup {
	buttons := make([]Button, 0, len(apartments))
	for _, n := range apartments {
		buttons = append(buttons, Button{Text: strconv.Itoa(n), Data: data(n).Encode()})
	}
	return &Markup{Inline: rows(buttons, apartmentsPerRow)}
}

func rows(buttons []Button, perRow int) [][]Button {
	var out [][]Button
	for i := 0; i < len(buttons); i += perRow {
		out = append(out, buttons[i:min(i+perRow, len(buttons))])
	}
	return out
}
