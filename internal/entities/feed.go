package entities

import "time"

// EventType is the subject of a feed event
type EventType string

const (
	EventLike   EventType = "LIKE"
	EventFriend EventType = "FRIEND"
	EventReview EventType = "REVIEW"
)

// Operation is what happened to the subject of a feed event
type Operation string

const (
	OpAdd    Operation = "ADD"
	OpRemove Operation = "REMOVE"
	OpUpdate Operation = "UPDATE"
)

// FeedEvent records one state-changing action of a person
type FeedEvent struct {
	ID        int64
	Timestamp time.Time
	PersonID  int64
	EventType EventType
	Operation Operation
	EntityID  int64 // Film, friend or review the action applied to
}
