package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"housebot/internal/bot"
)

const token = "123:abc"

type call struct {
	Method string
	Form   map[string]string
	File   string
}

// fakeAPI answers Bot API methods and records every call except getMe and getUpdates.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	updates []string
	failing map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+token+"/")
	c := call{Method: method, Form: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				c.Form[k] = v[0]
			}
			for k := range r.MultipartForm.File {
				c.File = k
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			c.Form[k] = v[0]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"House","username":"house_bot"}}`))
		return
	case "getUpdates":
		f.mu.Lock()
		batch := "[]"
		if len(f.updates) > 0 {
			batch = "[" + strings.Join(f.updates, ",") + "]"
			f.updates = nil
		}
		f.mu.Unlock()
		if batch == "[]" {
			time.Sleep(20 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":` + batch + `}`))
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	failing := f.failing[method]
	f.mu.Unlock()
	if failing {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message can't be deleted"}`))
		return
	}
	switch method {
	case "deleteMessage", "answerCallbackQuery":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}
}

func (f *fakeAPI) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := New(token, WithEndpoint(srv.URL+"/bot%s/%s"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSendTextWithKeyboards(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)
	if c.Username() != "house_bot" {
		t.Fatalf("unexpected username %q", c.Username())
	}
	ctx := context.Background()
	if err := c.SendText(ctx, 5, "hello", &bot.Markup{Keyboard: [][]string{{"Cancel"}}}); err != nil {
		t.Fatalf("send reply keyboard: %v", err)
	}
	if err := c.SendText(ctx, 5, "pick", &bot.Markup{Inline: [][]bot.Button{{{Text: "3", Data: "floor_3"}}}}); err != nil {
		t.Fatalf("send inline keyboard: %v", err)
	}
	if err := c.SendText(ctx, 5, "plain", nil); err != nil {
		t.Fatalf("send plain: %v", err)
	}
	calls := api.recorded()
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %+v", calls)
	}

	var reply struct {
		Keyboard [][]struct {
			Text string `json:"text"`
		} `json:"keyboard"`
		Resize bool `json:"resize_keyboard"`
	}
	if err := json.Unmarshal([]byte(calls[0].Form["reply_markup"]), &reply); err != nil {
		t.Fatalf("decode reply markup: %v", err)
	}
	if len(reply.Keyboard) != 1 || reply.Keyboard[0][0].Text != "Cancel" || !reply.Resize {
		t.Fatalf("unexpected reply keyboard %+v", reply)
	}

	var inline struct {
		Rows [][]struct {
			Text string `json:"text"`
			Data string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	if err := json.Unmarshal([]byte(calls[1].Form["reply_markup"]), &inline); err != nil {
		t.Fatalf("decode inline markup: %v", err)
	}
	if inline.Rows[0][0].Data != "floor_3" {
		t.Fatalf("unexpected inline keyboard %+v", inline)
	}
	if _, ok := calls[2].Form["reply_markup"]; ok {
		t.Fatal("plain message must not carry markup")
	}
	if calls[2].Form["chat_id"] != "5" || calls[2].Form["text"] != "plain" {
		t.Fatalf("unexpected form %v", calls[2].Form)
	}
}

func TestSendFiles(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)
	dir := t.TempDir()
	png := filepath.Join(dir, "plan.png")
	svg := filepath.Join(dir, "plan.svg")
	for _, p := range []string{png, svg} {
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := c.SendImage(context.Background(), 9, png, "Floor 3"); err != nil {
		t.Fatalf("send image: %v", err)
	}
	if err := c.SendDocument(context.Background(), 9, svg, "Building plan"); err != nil {
		t.Fatalf("send document: %v", err)
	}
	calls := api.recorded()
	got := []call{{Method: calls[0].Method, File: calls[0].File}, {Method: calls[1].Method, File: calls[1].File}}
	want := []call{{Method: "sendPhoto", File: "photo"}, {Method: "sendDocument", File: "document"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if calls[0].Form["caption"] != "Floor 3" {
		t.Fatalf("caption missing: %v", calls[0].Form)
	}
}

func TestDeleteAndAnswer(t *testing.T) {
	api := &fakeAPI{failing: map[string]bool{"deleteMessage": true}}
	c := newClient(t, api)
	if err := c.AnswerCallback(context.Background(), "cb-1", ""); err != nil {
		t.Fatalf("answer: %v", err)
	}
	err := c.DeleteMessage(context.Background(), 3, 44)
	if err == nil || !strings.Contains(err.Error(), "deleteMessage") {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
	calls := api.recorded()
	if calls[0].Form["callback_query_id"] != "cb-1" || calls[1].Form["message_id"] != "44" {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

type recordingHandler struct {
	mu        sync.Mutex
	messages  []bot.Message
	callbacks []bot.Callback
	done      chan struct{}
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg bot.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	h.check()
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb bot.Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, cb)
	h.check()
}

func (h *recordingHandler) check() {
	if len(h.messages) == 1 && len(h.callbacks) == 1 {
		close(h.done)
	}
}

func TestRunDispatchesUpdates(t *testing.T) {
	api := &fakeAPI{updates: []string{
		`{"update_id":1,"message":{"message_id":10,"date":0,"text":"301","chat":{"id":-100,"type":"supergroup"},"from":{"id":42,"is_bot":false,"first_name":"Alice","username":"alice"}}}`,
		`{"update_id":2,"message":{"message_id":11,"date":0,"chat":{"id":-100,"type":"supergroup"},"from":{"id":42,"is_bot":false,"first_name":"Alice"}}}`,
		`{"update_id":3,"callback_query":{"id":"q1","data":"floor_3","from":{"id":42,"is_bot":false,"first_name":"Alice"},"message":{"message_id":12,"date":0,"chat":{"id":42,"type":"private"}}}}`,
	}}
	c := newClient(t, api)
	h := &recordingHandler{done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, h) }()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("updates were not dispatched")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}

	wantMsg := bot.Message{ChatID: -100, ChatKind: bot.ChatSupergroup, MessageID: 10, From: bot.User{ID: 42, Username: "alice", FirstName: "Alice"}, Text: "301"}
	if diff := cmp.Diff([]bot.Message{wantMsg}, h.messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	wantCb := bot.Callback{ID: "q1", ChatID: 42, ChatKind: bot.ChatPrivate, MessageID: 12, From: bot.User{ID: 42, FirstName: "Alice"}, Data: "floor_3"}
	if diff := cmp.Diff([]bot.Callback{wantCb}, h.callbacks); diff != "" {
		t.Fatalf("callbacks mismatch (-want +got):\n%s", diff)
	}
}
