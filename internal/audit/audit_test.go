package audit

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().Unix()
	event := NewEvent(ActionAllocate, 7, "abc1234", "https://example.com")
	after := time.Now().Unix()

	assert.Equal(t, ActionAllocate, event.Action)
	assert.Equal(t, 7, event.OwnerID)
	assert.Equal(t, "abc1234", event.Code)
	assert.Equal(t, "https://example.com", event.Destination)
	assert.GreaterOrEqual(t, event.Timestamp, before)
	assert.LessOrEqual(t, event.Timestamp, after)
}

func TestPublisher_Publish(t *testing.T) {
	pub := NewPublisher()
	mock := &mockObserver{}
	pub.Subscribe(mock)

	event := NewEvent(ActionAllocate, 1, "pub1234", "https://test.com")
	pub.Publish(event)

	mock.mu.Lock()
	defer mock.mu.Unlock()
	require.Len(t, mock.events, 1)
	assert.Equal(t, event.Code, mock.events[0].Code)
}

func TestPublisher_PublishMultipleObservers(t *testing.T) {
	pub := NewPublisher()
	mock1 := &mockObserver{}
	mock2 := &mockObserver{}
	pub.Subscribe(mock1)
	pub.Subscribe(mock2)

	pub.Publish(NewEvent(ActionFollow, 2, "multi12", "https://multi.com"))

	mock1.mu.Lock()
	assert.Len(t, mock1.events, 1)
	mock1.mu.Unlock()

	mock2.mu.Lock()
	assert.Len(t, mock2.events, 1)
	mock2.mu.Unlock()
}

func TestPublisher_Close(t *testing.T) {
	pub := NewPublisher()
	mock := &mockObserver{}
	pub.Subscribe(mock)

	err := pub.Close()

	assert.NoError(t, err)
	assert.True(t, mock.closed)
}

// Mock observer для тестов
type mockObserver struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (m *mockObserver) Notify(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockObserver) Close() error {
	m.closed = true
	return nil
}

// === FileObserver tests ===

func TestFileObserver_Notify(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "audit_test_*.log")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	obs, err := NewFileObserver(tmpFile.Name())
	require.NoError(t, err)
	defer obs.Close()

	event := NewEvent(ActionAllocate, 3, "file123", "https://example.com")
	obs.Notify(event)

	content, err := os.ReadFile(tmpFile.Name())
	require.NoError(t, err)

	var parsed Event
	err = json.Unmarshal(content[:len(content)-1], &parsed) // убираем \n
	require.NoError(t, err)

	assert.Equal(t, event.Code, parsed.Code)
	assert.Equal(t, event.OwnerID, parsed.OwnerID)
	assert.Equal(t, event.Action, parsed.Action)
}

func TestFileObserver_MultipleWrites(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "audit_multi_*.log")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	obs, err := NewFileObserver(tmpFile.Name())
	require.NoError(t, err)

	obs.Notify(NewEvent(ActionAllocate, 1, "one1234", "https://one.com"))
	obs.Notify(NewEvent(ActionFollow, 2, "two1234", "https://two.com"))
	obs.Close()

	content, err := os.ReadFile(tmpFile.Name())
	require.NoError(t, err)

	lines := string(content)
	assert.Contains(t, lines, "one1234")
	assert.Contains(t, lines, "two1234")
	assert.Contains(t, lines, "allocate")
	assert.Contains(t, lines, "follow")
}

func TestFileObserver_InvalidPath(t *testing.T) {
	_, err := NewFileObserver("/nonexistent/path/audit.log")
	assert.Error(t, err)
}

// === HTTPObserver tests ===

func TestHTTPObserver_Notify(t *testing.T) {
	var received Event
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	obs := NewHTTPObserver(server.URL)
	event := NewEvent(ActionAllocate, 5, "http123", "https://http-test.com")
	obs.Notify(event)

	assert.Equal(t, "application/json", receivedContentType)
	assert.Equal(t, event.Code, received.Code)
	assert.Equal(t, event.OwnerID, received.OwnerID)
}

func TestHTTPObserver_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	obs := NewHTTPObserver(server.URL)
	// Не должно паниковать
	obs.Notify(NewEvent(ActionFollow, 0, "err1234", "https://test.com"))
}

func TestHTTPObserver_ConnectionError(t *testing.T) {
	obs := NewHTTPObserver("http://localhost:99999") // несуществующий порт
	// Не должно паниковать
	obs.Notify(NewEvent(ActionFollow, 0, "conn123", "https://test.com"))
}

func TestHTTPObserver_Close(t *testing.T) {
	obs := NewHTTPObserver("http://example.com")
	err := obs.Close()
	assert.NoError(t, err)
}

// === Event JSON serialization ===

func TestEvent_JSONFormat(t *testing.T) {
	event := Event{
		Timestamp:   1234567890,
		Action:      ActionAllocate,
		OwnerID:     9,
		Code:        "json123",
		Destination: "https://json.com",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	expected := `{"ts":1234567890,"action":"allocate","owner_id":9,"code":"json123","destination":"https://json.com"}`
	assert.JSONEq(t, expected, string(data))
}

func TestEvent_JSONOmitEmptyOwner(t *testing.T) {
	event := Event{
		Timestamp: 1234567890,
		Action:    ActionFollow,
		Code:      "noown12",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "owner_id")
	assert.NotContains(t, string(data), "destination")
}
