package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/xaenox/readlater-bot/internal/models"
	"github.com/xaenox/readlater-bot/internal/notion"
)

type fakeWorkspace struct {
	mu          sync.Mutex
	validToken  string
	validDB     string
	notes       []*models.NoteItem
	archived    map[string]bool
	queryErr    map[string]error
	validations int
}

func newFakeWorkspace(notes ...*models.NoteItem) *fakeWorkspace {
	return &fakeWorkspace{
		validToken: "abc123",
		validDB:    "db456",
		notes:      notes,
		archived:   make(map[string]bool),
		queryErr:   make(map[string]error),
	}
}

func (f *fakeWorkspace) ValidateCredentials(ctx context.Context, creds models.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validations++
	if creds.Token != f.validToken || creds.DatabaseID != f.validDB {
		return &notion.APIError{Status: 401, Code: "unauthorized"}
	}
	return nil
}

func (f *fakeWorkspace) QueryUnread(ctx context.Context, creds models.Credentials) ([]models.NoteItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queryErr[creds.Token]; err != nil {
		return nil, err
	}
	var out []models.NoteItem
	for _, n := range f.notes {
		if n.Unread() && !f.archived[n.URL] {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeWorkspace) FindByURL(ctx context.Context, creds models.Credentials, url string) (*models.NoteItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.URL == url && !f.archived[n.URL] {
			note := *n
			return &note, nil
		}
	}
	return nil, nil
}

func (f *fakeWorkspace) MarkRead(ctx context.Context, creds models.Credentials, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.URL == url {
			n.ReadFlag = "read"
			return nil
		}
	}
	return notion.ErrNoteNotFound
}

func (f *fakeWorkspace) Archive(ctx context.Context, creds models.Credentials, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.URL == url {
			f.archived[url] = true
			return nil
		}
	}
	return notion.ErrNoteNotFound
}

type sentMessage struct {
	userID int64
	text   string
	picker *models.TimePicker
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	acked   []string
	failFor map[int64]bool
}

var errSendFailed = errors.New("send failed")

func (m *fakeMessenger) SendText(ctx context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[userID] {
		return errSendFailed
	}
	m.sent = append(m.sent, sentMessage{userID: userID, text: text})
	return nil
}

func (m *fakeMessenger) SendInteractive(ctx context.Context, userID int64, picker models.TimePicker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{userID: userID, picker: &picker})
	return nil
}

func (m *fakeMessenger) AckPostback(ctx context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, callbackID)
	return nil
}

func (m *fakeMessenger) sentTo(userID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	return out
}
