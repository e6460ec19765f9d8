package indexer

import (
	"context"
	"sync"

	"github.com/blockedby/media-indexer/internal/models"
	"github.com/blockedby/media-indexer/internal/telegram"
)

// fakeFetcher serves messages from a map. errs holds errors returned, in order,
// before the message at an id is served.
type fakeFetcher struct {
	mu     sync.Mutex
	msgs   map[int]*telegram.Message
	errs   map[int][]error
	calls  []int
	onCall func(n int, id int)
	// build creates messages for ids missing from msgs
	build func(id int) *telegram.Message
}

func (f *fakeFetcher) GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgID)
	n := len(f.calls)
	var err error
	if queue := f.errs[msgID]; len(queue) > 0 {
		err = queue[0]
		f.errs[msgID] = queue[1:]
	}
	msg := f.msgs[msgID]
	if msg == nil && f.build != nil {
		msg = f.build(msgID)
	}
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(n, msgID)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (f *fakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

type memResume struct {
	mu     sync.Mutex
	data   map[int64]int
	getErr error
	setErr error
	sets   int
}

func newMemResume() *memResume {
	return &memResume{data: make(map[int64]int)}
}

func (m *memResume) Get(ctx context.Context, chatID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.data[chatID]
	return v, ok, nil
}

func (m *memResume) Set(ctx context.Context, chatID int64, lastID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[chatID] = lastID
	return nil
}

type fakeSaver struct {
	mu      sync.Mutex
	results map[string]models.SaveResult
	saved   []*models.MediaFile
}

func (s *fakeSaver) Save(ctx context.Context, file *models.MediaFile) models.SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, file)
	if res, ok := s.results[file.FileID]; ok {
		return res
	}
	return models.Saved()
}

type fakePublisher struct {
	mu        sync.Mutex
	indexed   []MediaIndexedEvent
	completed []IndexCompletedEvent
	err       error
}

func (p *fakePublisher) PublishMediaIndexed(ctx context.Context, event MediaIndexedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexed = append(p.indexed, event)
	return p.err
}

func (p *fakePublisher) PublishIndexCompleted(ctx context.Context, event IndexCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, event)
	return p.err
}

func (p *fakePublisher) Completed() []IndexCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]IndexCompletedEvent(nil), p.completed...)
}

type sentMessage struct {
	ChatID  int64
	MsgID   int
	Text    string
	Buttons [][]telegram.Button
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edits     []sentMessage
	deleted   []sentMessage
	sendErr   error
	editErr   error
	deleteErr error
	nextID    int
	deleteCh  chan struct{}
}

func (m *fakeMessenger) SendText(ctx context.Context, chatID int64, text string, buttons [][]telegram.Button) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, MsgID: m.nextID, Text: text, Buttons: buttons})
	return m.nextID, nil
}

func (m *fakeMessenger) EditText(ctx context.Context, chatID int64, msgID int, text string, buttons [][]telegram.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentMessage{ChatID: chatID, MsgID: msgID, Text: text, Buttons: buttons})
	return m.editErr
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, sentMessage{ChatID: chatID, MsgID: msgID})
	ch := m.deleteCh
	err := m.deleteErr
	m.mu.Unlock()
	if ch != nil {
		ch <- struct{}{}
	}
	return err
}

func (m *fakeMessenger) Edits() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.edits...)
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func textMessage(id int) *telegram.Message {
	return &telegram.Message{ID: id, ChatID: testChatID, Text: "hello"}
}

func videoMessage(id int, fileID string) *telegram.Message {
	return &telegram.Message{
		ID:     id,
		ChatID: testChatID,
		Text:   "caption of " + fileID,
		Kind:   models.MediaVideo,
		Media: &telegram.Media{
			FileID:   fileID,
			FileName: fileID + ".mp4",
			MimeType: "video/mp4",
			Size:     1024,
			Duration: 61.5,
			Width:    1280,
			Height:   720,
		},
	}
}

const testChatID int64 = -1001234567890
