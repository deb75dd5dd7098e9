package audit

import (
	"sync"
	"time"
)

// Action тип действия аудита
type Action string

const (
	ActionAllocate Action = "allocate"
	ActionFollow   Action = "follow"
)

// Event структура события аудита
type Event struct {
	Timestamp   int64  `json:"ts"`
	Action      Action `json:"action"`
	OwnerID     int    `json:"owner_id,omitempty"`
	Code        string `json:"code"`
	Destination string `json:"destination,omitempty"`
}

// NewEvent создаёт новое событие аудита
func NewEvent(action Action, ownerID int, code, destination string) Event {
	return Event{
		Timestamp:   time.Now().Unix(),
		Action:      action,
		OwnerID:     ownerID,
		Code:        code,
		Destination: destination,
	}
}

type Observer interface {
	Notify(event Event)
	Close() error
}

type Publisher struct {
	mu          sync.Mutex
	subscribers []Observer
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers = append(p.subscribers, o)
}

func (p *Publisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subscribers {
		s.Notify(event)
	}
}

// Close закрывает всех наблюдателей
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, obs := range p.subscribers {
		if err := obs.Close(); err != nil {
			return err
		}
	}
	return nil
}
