package events

import (
	"time"

	"github.com/google/uuid"
)

// Source is the EventBridge source for every event this service emits
const Source = "books-library.backend"

const (
	TypeBookIngested = "book.ingested"
	TypeBookUpdated  = "book.updated"
	TypeBookDeleted  = "book.deleted"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"eventId"`
	AggregateID string    `json:"bookId"`
	EventType   string    `json:"eventType"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBase(eventType, bookID string, at time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.NewString(),
		AggregateID: bookID,
		EventType:   eventType,
		Timestamp:   at,
	}
}

// BookIngested is raised when an uploaded archive becomes a Book record
type BookIngested struct {
	BaseEvent
	Name      string `json:"name"`
	Author    string `json:"author,omitempty"`
	BlobURL   string `json:"blobUrl"`
	SizeBytes int64  `json:"sizeBytes"`
	HasCover  bool   `json:"hasCover"`
}

// NewBookIngested creates a BookIngested event
func NewBookIngested(bookID, name, author, blobURL string, size int64, hasCover bool, at time.Time) BookIngested {
	return BookIngested{
		BaseEvent: newBase(TypeBookIngested, bookID, at),
		Name:      name,
		Author:    author,
		BlobURL:   blobURL,
		SizeBytes: size,
		HasCover:  hasCover,
	}
}

// BookUpdated is raised after a metadata edit is stored
type BookUpdated struct {
	BaseEvent
	Fields []string `json:"fields"`
	UserID string   `json:"userId,omitempty"`
}

// NewBookUpdated creates a BookUpdated event
func NewBookUpdated(bookID, userID string, fields []string, at time.Time) BookUpdated {
	return BookUpdated{
		BaseEvent: newBase(TypeBookUpdated, bookID, at),
		Fields:    fields,
		UserID:    userID,
	}
}

// BookDeleted is raised after a Book record is removed
type BookDeleted struct {
	BaseEvent
	UserID          string `json:"userId"`
	BlobDeleted     bool   `json:"blobDeleted"`
	StatusesRemoved int    `json:"statusesRemoved"`
}

// NewBookDeleted creates a BookDeleted event
func NewBookDeleted(bookID, userID string, blobDeleted bool, statusesRemoved int, at time.Time) BookDeleted {
	return BookDeleted{
		BaseEvent:       newBase(TypeBookDeleted, bookID, at),
		UserID:          userID,
		BlobDeleted:     blobDeleted,
		StatusesRemoved: statusesRemoved,
	}
}
