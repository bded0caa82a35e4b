package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"nuclight.org/suggest-tg-bot/app/registry"
	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

type call struct {
	op        string
	chatID    int64
	messageID int
	text      string
	att       e.Attachment
	album     []e.Attachment
	replyTo   int
	buttons   []e.Button
}

type fakeGateway struct {
	mu     sync.Mutex
	nextID int
	calls  []call

	// sendErr makes every send operation fail
	sendErr error
}

func (g *fakeGateway) record(c call) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	c.messageID = g.nextID
	g.calls = append(g.calls, c)
	return g.nextID
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string) (int, error) {
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	return g.record(call{op: "text", chatID: chatID, text: text}), nil
}

func (g *fakeGateway) SendTextReply(_ context.Context, chatID int64, text string, replyTo int) (int, error) {
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	return g.record(call{op: "reply", chatID: chatID, text: text, replyTo: replyTo}), nil
}

func (g *fakeGateway) SendButtons(_ context.Context, chatID int64, text string, buttons []e.Button) (int, error) {
	return g.record(call{op: "buttons", chatID: chatID, text: text, buttons: buttons}), nil
}

func (g *fakeGateway) SendAttachment(_ context.Context, chatID int64, att e.Attachment, caption string) (int, error) {
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	return g.record(call{op: "attachment", chatID: chatID, att: att, text: caption}), nil
}

func (g *fakeGateway) SendAlbum(_ context.Context, chatID int64, album []e.Attachment, caption string) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.record(call{op: "album", chatID: chatID, album: album, text: caption})
	return nil
}

func (g *fakeGateway) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{op: "edit", chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (g *fakeGateway) EditButtons(_ context.Context, chatID int64, messageID int, text string, buttons []e.Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{op: "editButtons", chatID: chatID, messageID: messageID, text: text, buttons: buttons})
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{op: "delete", chatID: chatID, messageID: messageID})
	return nil
}

func (g *fakeGateway) snapshot() []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]call(nil), g.calls...)
}

func (g *fakeGateway) callsOf(op string) []call {
	var out []call
	for _, c := range g.snapshot() {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) lastOf(op string) (call, bool) {
	calls := g.callsOf(op)
	if len(calls) == 0 {
		return call{}, false
	}
	return calls[len(calls)-1], true
}

type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	byTgID map[int64]int64
	users  map[int64]e.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byTgID: make(map[int64]int64),
		users:  make(map[int64]e.User),
	}
}

func (s *fakeStore) FindOrCreateUser(_ context.Context, tgID int64, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byTgID[tgID]; ok {
		return id, nil
	}
	s.nextID++
	s.byTgID[tgID] = s.nextID
	s.users[s.nextID] = e.User{ID: s.nextID, TgID: tgID, Username: username}
	return s.nextID, nil
}

func (s *fakeStore) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *fakeStore) ListUsers(_ context.Context) ([]e.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]e.User, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

type fakeBanStore struct {
	mu   sync.Mutex
	bans map[int64]e.Ban
}

func newFakeBanStore() *fakeBanStore {
	return &fakeBanStore{bans: make(map[int64]e.Ban)}
}

func (s *fakeBanStore) GetBan(_ context.Context, userID int64) (*e.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ban, ok := s.bans[userID]
	if !ok {
		return nil, nil
	}
	return &ban, nil
}

func (s *fakeBanStore) PutBan(_ context.Context, ban e.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[ban.UserID] = ban
	return nil
}

func (s *fakeBanStore) DeleteBan(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bans[userID]
	delete(s.bans, userID)
	return ok, nil
}

func (s *fakeBanStore) ListBans(_ context.Context) ([]e.BanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []e.BanRecord
	for _, ban := range s.bans {
		records = append(records, e.BanRecord{Ban: ban})
	}
	return records, nil
}

const (
	testChannelID = int64(-1001)
	testAdminID   = int64(900)
	testUserChat  = int64(100)
)

type testEnv struct {
	svc     *Service
	gateway *fakeGateway
	store   *fakeStore
	bans    *fakeBanStore
}

func newTestEnv() *testEnv {
	gateway := &fakeGateway{}
	store := newFakeStore()
	bans := newFakeBanStore()

	svc := &Service{
		Log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gateway:        gateway,
		Store:          store,
		Bans:           &registry.Registry{Store: bans},
		ChannelID:      testChannelID,
		AdminID:        testAdminID,
		SettleDelay:    settleDelay,
		ConfirmTimeout: time.Minute,
	}

	return &testEnv{svc: svc, gateway: gateway, store: store, bans: bans}
}

// startCompose walks the user through /start and the compose button,
// leaving the session awaiting input.
func (env *testEnv) startCompose(tgID int64) error {
	ctx := context.Background()
	sender := e.Sender{TgID: tgID, Username: "user"}

	err := env.svc.HandleCommand(ctx, e.Command{Sender: sender, ChatID: testUserChat, Name: "start"})
	if err != nil {
		return err
	}

	start, ok := env.gateway.lastOf("buttons")
	if !ok {
		return fmt.Errorf("no start prompt sent")
	}

	return env.svc.HandleCallback(ctx, e.Callback{
		Sender:    sender,
		ChatID:    testUserChat,
		MessageID: start.messageID,
		Data:      callbackCompose,
	})
}

// confirmPrompt returns the live confirmation prompt message.
func (env *testEnv) confirmPrompt() (call, bool) {
	calls := env.gateway.callsOf("buttons")
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].text == textConfirmPrompt {
			return calls[i], true
		}
	}
	return call{}, false
}
