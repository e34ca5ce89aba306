package bot

import (
	"context"
	"errors"
	"time"

	"housebot/internal/dialog"
	"housebot/internal/i18n"
	"housebot/internal/logging"
	"housebot/internal/render"
	"housebot/pkg/domain"
)

// Store is the building registry used by the router.
type Store interface {
	Load(ctx context.Context) (*domain.Building, error)
	Update(ctx context.Context, fn func(*domain.Building) error) (*domain.Building, error)
}

// Images renders floor plans.
type Images interface {
	Building(ctx context.Context, b *domain.Building) (render.Artifact, error)
	Floor(ctx context.Context, b *domain.Building, floor int) (render.Artifact, error)
}

// Metrics receives per-operation timings and dialog gauges.
type Metrics interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	dialog.Metrics
}

// Config carries the router settings.
type Config struct {
	Locale            *i18n.Locale
	FloorMin          int
	FloorMax          int
	ApartmentsPerPage int
	// DialogTimeout is the idle time after which a pending step expires.
	// Zero keeps steps forever.
	DialogTimeout time.Duration
}

// Router dispatches inbound messages and callbacks. Handlers for different
// users may run concurrently.
type Router struct {
	cfg      Config
	locale   *i18n.Locale
	commands *Commands
	store    Store
	images   Images
	out      Messenger
	tracker  *dialog.Tracker
	validate *inputValidator
	log      logging.Logger
	metrics  Metrics
	dialogs  []dialog.Option
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option { return func(r *Router) { r.log = l } }

// WithMetrics reports command, callback and dialog metrics.
func WithMetrics(m Metrics) Option { return func(r *Router) { r.metrics = m } }

// WithDialogOptions passes extra options to the dialog tracker.
func WithDialogOptions(opts ...dialog.Option) Option {
	return func(r *Router) { r.dialogs = append(r.dialogs, opts...) }
}

// NewRouter wires a router and its dialog tracker.
func NewRouter(cfg Config, store Store, images Images, out Messenger, opts ...Option) (*Router, error) {
	if cfg.Locale == nil {
		return nil, errors.New("bot: locale is required")
	}
	if store == nil || images == nil || out == nil {
		return nil, errors.New("bot: store, images and messenger are required")
	}
	if cfg.ApartmentsPerPage < 1 {
		cfg.ApartmentsPerPage = 6
	}
	r := &Router{
		cfg:      cfg,
		locale:   cfg.Locale,
		commands: ResolveCommands(cfg.Locale),
		store:    store,
		images:   images,
		out:      out,
		validate: newInputValidator(),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	trackerOpts := []dialog.Option{
		dialog.WithCancelAck(r.ackCancel),
		dialog.WithTimeout(cfg.DialogTimeout),
	}
	if r.metrics != nil {
		trackerOpts = append(trackerOpts, dialog.WithMetrics(r.metrics))
	}
	r.tracker = dialog.NewTracker(cfg.Locale.Cancel(), append(trackerOpts, r.dialogs...)...)
	return r, nil
}

// Tracker exposes the dialog tracker, for scheduling its expiry sweep.
func (r *Router) Tracker() *dialog.Tracker { return r.tracker }

// Commands exposes the resolved command table.
func (r *Router) Commands() *Commands { return r.commands }

// HandleMessage routes one text message: a pending dialog step takes it
// first, then the command table. Unmatched text is ignored.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	if r.tracker.Dispatch(ctx, keyOf(msg), msg.Text) {
		return
	}
	cmd := r.commands.Match(msg.Text)
	if cmd == CommandUnknown {
		r.log.Debug("ignoring unmatched text", "chat_id", msg.ChatID, "user_id", msg.From.ID)
		return
	}
	if cmd.Restricted() && !msg.ChatKind.Private() {
		r.redirectPrivate(ctx, msg, cmd)
		return
	}
	start := time.Now()
	err := r.run(ctx, cmd, msg)
	r.observe(ctx, "command_"+cmd.Key(), err, start)
	if err != nil {
		r.log.Error("command failed", "command", cmd.Key(), "chat_id", msg.ChatID, "error", err)
	}
}

// HandleCallback routes one inline keyboard selection. The callback is always
// answered and its keyboard message deleted, even when the data is malformed.
func (r *Router) HandleCallback(ctx context.Context, cb Callback) {
	if err := r.out.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.log.Warn("answer callback failed", "callback_id", cb.ID, "error", err)
	}
	defer r.deleteKeyboard(ctx, cb)
	data, err := ParseCallback(cb.Data)
	if err != nil {
		r.log.Warn("ignoring callback", "data", cb.Data, "error", err)
		return
	}
	start := time.Now()
	switch data.Kind {
	case CallbackFloor:
		err = r.showFloorPlan(ctx, cb.ChatID, data.Floor)
	case CallbackRange:
		err = r.showRange(ctx, cb.ChatID, data.Start, data.End)
	case CallbackSelect:
		err = r.showApartment(ctx, cb.ChatID, data.Apartment)
	case CallbackApartment:
		err = r.showApartmentOnFloor(ctx, cb.ChatID, data.Floor, data.Apartment)
	}
	r.observe(ctx, "callback_"+string(data.Kind), err, start)
	if err != nil {
		r.log.Error("callback failed", "data", cb.Data, "chat_id", cb.ChatID, "error", err)
	}
}

func (r *Router) deleteKeyboard(ctx context.Context, cb Callback) {
	if err := r.out.DeleteMessage(ctx, cb.ChatID, cb.MessageID); err != nil {
		r.log.Warn("delete keyboard message failed", "chat_id", cb.ChatID, "message_id", cb.MessageID, "error", err)
	}
}

// NotifyExpired tells the owner of an expired dialog step that it was dropped.
func (r *Router) NotifyExpired(ctx context.Context, key dialog.Key) {
	r.log.Info("dialog expired", "chat_id", key.ChatID, "user_id", key.UserID)
	r.send(ctx, key.ChatID, r.locale.T("dialogExpired"), r.commands.MainKeyboard())
}

func (r *Router) ackCancel(ctx context.Context, key dialog.Key) {
	r.send(ctx, key.ChatID, r.locale.T("operationCanceled"), r.commands.MainKeyboard())
}

func (r *Router) redirectPrivate(ctx context.Context, msg Message, cmd Command) {
	r.log.Info("restricted command outside private chat", "command", cmd.Key(), "chat_id", msg.ChatID, "user_id", msg.From.ID)
	r.observe(ctx, "privacy_redirect", nil, time.Now())
	r.send(ctx, msg.From.ID, r.locale.T("privateOnly", "command", r.commands.Label(cmd)), r.commands.MainKeyboard())
	r.send(ctx, msg.ChatID, r.locale.T("privateOnlyGroupHint", "residentName", msg.From.DisplayName()), nil)
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup *Markup) {
	if err := r.out.SendText(ctx, chatID, text, markup); err != nil {
		r.log.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) sendArtifact(ctx context.Context, chatID int64, art render.Artifact, caption string) error {
	if art.Raster != "" {
		return r.out.SendImage(ctx, chatID, art.Raster, caption)
	}
	return r.out.SendDocument(ctx, chatID, art.Vector, caption)
}

func (r *Router) observe(ctx context.Context, op string, err error, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

func keyOf(msg Message) dialog.Key {
	return dialog.Key{ChatID: msg.ChatID, UserID: msg.From.ID}
}
