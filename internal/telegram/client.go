// Package telegram connects the bot router to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"housebot/internal/bot"
	"housebot/internal/logging"
)

// pollTimeout is the long polling timeout for getUpdates, in seconds.
const pollTimeout = 60

// Handler consumes converted updates.
type Handler interface {
	HandleMessage(ctx context.Context, msg bot.Message)
	HandleCallback(ctx context.Context, cb bot.Callback)
}

// Client implements bot.Messenger on top of the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
	log logging.Logger
}

var _ bot.Messenger = (*Client)(nil)

type options struct {
	endpoint string
	client   *http.Client
	log      logging.Logger
}

// Option configures New.
type Option func(*options)

// WithEndpoint overrides the API endpoint format (see tgbotapi.APIEndpoint).
func WithEndpoint(endpoint string) Option { return func(o *options) { o.endpoint = endpoint } }

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithLogger sets the client logger. It also receives the library's own log lines.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.log = l } }

// New authenticates with token and returns a client.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: token is required")
	}
	o := options{endpoint: tgbotapi.APIEndpoint, client: &http.Client{}, log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	_ = tgbotapi.SetLogger(libraryLogger{o.log})
	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	o.log.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api, log: o.log}, nil
}

// Username is the bot's Telegram username.
func (c *Client) Username() string { return c.api.Self.UserName }

// Run long-polls updates and hands them to h one at a time until ctx is done.
func (c *Client) Run(ctx context.Context, h Handler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return errors.New("telegram: update channel closed")
			}
			c.dispatch(ctx, h, u)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h Handler, u tgbotapi.Update) {
	if msg, ok := convertMessage(u.Message); ok {
		h.HandleMessage(ctx, msg)
		return
	}
	if cb, ok := convertCallback(u.CallbackQuery); ok {
		h.HandleCallback(ctx, cb)
		return
	}
	c.log.Debug("skipping update", "update_id", u.UpdateID)
}

// SendText sends a text message with an optional keyboard.
func (c *Client) SendText(_ context.Context, chatID int64, text string, markup *bot.Markup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if m := replyMarkup(markup); m != nil {
		msg.ReplyMarkup = m
	}
	_, err := c.api.Send(msg)
	return wrap("sendMessage", err)
}

// SendImage uploads a raster image.
func (c *Client) SendImage(_ context.Context, chatID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	_, err := c.api.Send(photo)
	return wrap("sendPhoto", err)
}

// SendDocument uploads a file as a document.
func (c *Client) SendDocument(_ context.Context, chatID int64, path, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	_, err := c.api.Send(doc)
	return wrap("sendDocument", err)
}

// DeleteMessage removes a message the bot sent.
func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return wrap("deleteMessage", err)
}

// AnswerCallback stops the client's loading indicator for a callback.
func (c *Client) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return wrap("answerCallbackQuery", err)
}

func wrap(method string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}

// libraryLogger forwards tgbotapi's log lines at debug level.
type libraryLogger struct{ log logging.Logger }

func (l libraryLogger) Println(v ...any) { l.log.Debug(fmt.Sprint(v...)) }

func (l libraryLogger) Printf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
