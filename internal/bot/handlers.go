package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"housebot/internal/dialog"
	"housebot/pkg/domain"
)

// Telegram rejects longer text messages.
const maxMessageLength = 4096

var outcomeKeys = []struct {
	err error
	key string
}{
	{domain.ErrAlreadyResident, "alreadyResident"},
	{domain.ErrNotResident, "notResident"},
	{domain.ErrNumberNotFound, "numberNotFound"},
}

func (r *Router) run(ctx context.Context, cmd Command, msg Message) error {
	chat := msg.ChatID
	switch cmd {
	case CommandStart:
		r.send(ctx, chat, r.locale.T("welcome"), r.commands.MainKeyboard())
	case CommandHelp:
		r.send(ctx, chat, r.locale.T("help", "cancel", r.locale.Cancel()), r.commands.MainKeyboard())
	case CommandCancel:
		r.send(ctx, chat, r.locale.T("operationCanceled"), r.commands.MainKeyboard())
	case CommandAddMe, CommandRemoveMe:
		add := cmd == CommandAddMe
		r.askApartment(ctx, msg, func(ctx context.Context, apt int) {
			r.changeResident(ctx, chat, apt, msg.From.DisplayName(), add)
		})
	case CommandAddResident, CommandRemoveResident:
		add := cmd == CommandAddResident
		r.askApartment(ctx, msg, func(ctx context.Context, apt int) {
			if !r.apartmentExists(ctx, chat, apt) {
				return
			}
			r.askText(ctx, msg, dialog.StepResidentName, "enterResidentName", "invalidResidentName", r.validate.Name,
				func(ctx context.Context, input string) {
					r.changeResident(ctx, chat, apt, normalizeName(input), add)
				})
		})
	case CommandAddNumber, CommandRemoveNumber:
		add := cmd == CommandAddNumber
		r.askApartment(ctx, msg, func(ctx context.Context, apt int) {
			if !r.apartmentExists(ctx, chat, apt) {
				return
			}
			r.askText(ctx, msg, dialog.StepPhoneNumber, "enterPhoneNumber", "invalidPhoneNumber", r.validate.Phone,
				func(ctx context.Context, input string) {
					r.changeNumber(ctx, chat, apt, normalizePhone(input), add)
				})
		})
	case CommandListResidents:
		return r.report(ctx, chat, "residentsHeader", "residentsEmpty", func(a *domain.Apartment) []string { return a.Residents })
	case CommandListNumbers:
		return r.report(ctx, chat, "numbersHeader", "numbersEmpty", func(a *domain.Apartment) []string { return a.Numbers })
	case CommandShowBuilding:
		return r.showBuilding(ctx, chat)
	case CommandShowFloor:
		r.send(ctx, chat, r.locale.T("chooseFloor"), FloorPicker(r.cfg.FloorMin, r.cfg.FloorMax))
	case CommandFindApartment:
		return r.findApartment(ctx, chat)
	default:
		return fmt.Errorf("unhandled command %s", cmd)
	}
	return nil
}

func (r *Router) askApartment(ctx context.Context, msg Message, next func(context.Context, int)) {
	r.askText(ctx, msg, dialog.StepApartment, "enterApartmentNumber", "invalidApartmentNumber", r.validate.Apartment,
		func(ctx context.Context, input string) {
			apt, err := strconv.Atoi(normalizeApartment(input))
			if err != nil {
				// out of int range despite passing validation
				r.send(ctx, msg.ChatID, r.locale.T("apartmentNotFound", "apartmentNumber", normalizeApartment(input)), r.commands.MainKeyboard())
				return
			}
			next(ctx, apt)
		})
}

func (r *Router) askText(ctx context.Context, msg Message, step dialog.Step, promptKey, invalidKey string, validate func(string) error, next func(context.Context, string)) {
	chat := msg.ChatID
	r.tracker.Ask(keyOf(msg), dialog.Prompt{
		Step:     step,
		Validate: validate,
		OnValid:  next,
		OnInvalid: func(ctx context.Context, err error) {
			r.log.Debug("invalid dialog input", "step", step.String(), "chat_id", chat, "error", err)
			r.send(ctx, chat, r.locale.T(invalidKey), r.commands.CancelKeyboard())
		},
	})
	r.send(ctx, chat, r.locale.T(promptKey), r.commands.CancelKeyboard())
}

// apartmentExists replies "not found" and reports false when apt is absent.
func (r *Router) apartmentExists(ctx context.Context, chat int64, apt int) bool {
	b, err := r.store.Load(ctx)
	if err != nil {
		r.log.Error("load building failed", "error", err)
		r.send(ctx, chat, r.locale.T("saveFailed"), r.commands.MainKeyboard())
		return false
	}
	if _, _, err := b.Locate(apt); err != nil {
		r.send(ctx, chat, r.locale.T("apartmentNotFound", "apartmentNumber", strconv.Itoa(apt)), r.commands.MainKeyboard())
		return false
	}
	return true
}

func (r *Router) changeResident(ctx context.Context, chat int64, apt int, name string, add bool) {
	op, done := "resident_remove", "residentRemoved"
	if add {
		op, done = "resident_add", "residentAdded"
	}
	r.mutate(ctx, chat, op, apt, done, func(a *domain.Apartment) error {
		if add {
			return a.AddResident(name)
		}
		return a.RemoveResident(name)
	}, "residentName", name)
}

func (r *Router) changeNumber(ctx context.Context, chat int64, apt int, number string, add bool) {
	op, done := "number_remove", "numberRemoved"
	if add {
		op, done = "number_add", "numberAdded"
	}
	r.mutate(ctx, chat, op, apt, done, func(a *domain.Apartment) error {
		if add {
			a.AddNumber(number)
			return nil
		}
		return a.RemoveNumber(number)
	}, "phoneNumber", number)
}

// mutate applies change to the first apartment numbered apt and replies with
// the localized outcome. Rejected changes are not saved.
func (r *Router) mutate(ctx context.Context, chat int64, op string, apt int, done string, change func(*domain.Apartment) error, args ...string) {
	start := time.Now()
	var floor string
	_, err := r.store.Update(ctx, func(b *domain.Building) error {
		f, a, err := b.Locate(apt)
		if err != nil {
			return err
		}
		floor = f
		return change(a)
	})
	args = append(args, "apartmentNumber", strconv.Itoa(apt), "floor", floor)

	key := done
	var failure error
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		key = "apartmentNotFound"
	default:
		key = ""
		for _, o := range outcomeKeys {
			if errors.Is(err, o.err) {
				key = o.key
				break
			}
		}
		if key == "" {
			key, failure = "saveFailed", err
			r.log.Error("building update failed", "operation", op, "apartment", apt, "error", err)
		}
	}
	r.observe(ctx, op, failure, start)
	r.send(ctx, chat, r.locale.T(key, args...), r.commands.MainKeyboard())
}

func (r *Router) report(ctx context.Context, chat int64, headerKey, emptyKey string, entries func(*domain.Apartment) []string) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	var lines []string
	for _, floor := range b.SortedFloors() {
		apartments := b.Schema[floor]
		for _, apt := range apartments.SortedApartments() {
			e := entries(apartments[apt])
			if len(e) == 0 {
				continue
			}
			lines = append(lines, r.locale.T("reportLine", "floor", floor, "apartmentNumber", apt, "entries", strings.Join(e, ", ")))
		}
	}
	if len(lines) == 0 {
		r.send(ctx, chat, r.locale.T(emptyKey), nil)
		return nil
	}
	for _, text := range chunkLines(r.locale.T(headerKey), lines, maxMessageLength) {
		r.send(ctx, chat, text, nil)
	}
	return nil
}

// chunkLines joins header and lines with newlines into messages no longer
// than limit bytes. A single oversized line is sent on its own.
func chunkLines(header string, lines []string, limit int) []string {
	var out []string
	var sb strings.Builder
	sb.WriteString(header)
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+1+len(line) > limit {
			out = append(out, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}

func (r *Router) showBuilding(ctx context.Context, chat int64) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		r.send(ctx, chat, r.locale.T("renderFailed"), nil)
		return err
	}
	art, err := r.images.Building(ctx, b)
	if err != nil {
		r.send(ctx, chat, r.locale.T("renderFailed"), nil)
		return err
	}
	return r.sendArtifact(ctx, chat, art, r.locale.T("buildingCaption", "version", strconv.Itoa(b.Version)))
}

func (r *Router) findApartment(ctx context.Context, chat int64) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	numbers := b.ApartmentNumbers()
	if len(numbers) == 0 {
		r.send(ctx, chat, r.locale.T("buildingEmpty"), nil)
		return nil
	}
	r.send(ctx, chat, r.locale.T("chooseApartmentRange"), RangePicker(numbers, r.cfg.ApartmentsPerPage))
	return nil
}

func (r *Router) showFloorPlan(ctx context.Context, chat int64, floor int) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	apartments, ok := b.Floor(floor)
	if !ok {
		r.send(ctx, chat, r.locale.T("floorNotFound", "floor", strconv.Itoa(floor)), nil)
		return nil
	}
	art, err := r.images.Floor(ctx, b, floor)
	if err != nil {
		r.send(ctx, chat, r.locale.T("renderFailed"), nil)
		return err
	}
	if err := r.sendArtifact(ctx, chat, art, r.locale.T("floorCaption", "floor", strconv.Itoa(floor))); err != nil {
		return err
	}
	var numbers []int
	for _, key := range apartments.SortedApartments() {
		if n, err := strconv.Atoi(key); err == nil {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) > 0 {
		r.send(ctx, chat, r.locale.T("chooseApartment"), FloorApartmentPicker(floor, numbers))
	}
	return nil
}

func (r *Router) showRange(ctx context.Context, chat int64, start, end int) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	var numbers []int
	for _, n := range b.ApartmentNumbers() {
		if n >= start && n <= end {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		r.send(ctx, chat, r.locale.T("apartmentNotFound", "apartmentNumber", fmt.Sprintf("%d–%d", start, end)), nil)
		return nil
	}
	r.send(ctx, chat, r.locale.T("chooseApartment"), ApartmentPicker(numbers))
	return nil
}

func (r *Router) showApartment(ctx context.Context, chat int64, apt int) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	floor, a, err := b.Locate(apt)
	if err != nil {
		r.send(ctx, chat, r.locale.T("apartmentNotFound", "apartmentNumber", strconv.Itoa(apt)), nil)
		return nil
	}
	r.send(ctx, chat, r.details(floor, apt, a), nil)
	return nil
}

func (r *Router) showApartmentOnFloor(ctx context.Context, chat int64, floor, apt int) error {
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	a, err := b.LocateOnFloor(floor, apt)
	if err != nil {
		r.send(ctx, chat, r.locale.T("apartmentNotFound", "apartmentNumber", strconv.Itoa(apt)), nil)
		return nil
	}
	r.send(ctx, chat, r.details(strconv.Itoa(floor), apt, a), nil)
	return nil
}

func (r *Router) details(floor string, apt int, a *domain.Apartment) string {
	list := func(items []string) string {
		if len(items) == 0 {
			return r.locale.T("noEntries")
		}
		return strings.Join(items, ", ")
	}
	return r.locale.T("apartmentDetails",
		"apartmentNumber", strconv.Itoa(apt),
		"floor", floor,
		"residents", list(a.Residents),
		"numbers", list(a.Numbers))
}
