package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents entities absent both locally and remotely
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeRemote represents failed calls to the Discord API
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeInteraction represents events unusable for interaction extraction
	ErrorTypeInteraction ErrorType = "interaction"
	// ErrorTypeRender represents graph rendering subprocess failures
	ErrorTypeRender ErrorType = "render"
	// ErrorTypePersistence represents relationship-event sink write failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeDiscord represents Discord session/messaging errors
	ErrorTypeDiscord ErrorType = "discord"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrType returns the error's category. Promoted through every typed
// wrapper that embeds BaseError, which is what IsErrorType matches on.
func (e *BaseError) ErrType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Cache errors

// ErrEntityNotFound is returned when an entity exists neither in the cache
// nor at the remote source.
type ErrEntityNotFound struct {
	*BaseError
	Entity string
	Key    string
}

func NewEntityNotFound(entity, key string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, key), nil),
		Entity:    entity,
		Key:       key,
	}
}

// ErrRemoteFetchFailed is returned when the fetch-through call to the
// Discord API fails.
type ErrRemoteFetchFailed struct {
	*BaseError
	Entity string
	Key    string
}

func NewRemoteFetchFailed(entity, key string, err error) *ErrRemoteFetchFailed {
	return &ErrRemoteFetchFailed{
		BaseError: NewBaseError(ErrorTypeRemote, fmt.Sprintf("failed to fetch %s: %s", entity, key), err),
		Entity:    entity,
		Key:       key,
	}
}

// Interaction errors

// ErrMissingGuildContext is returned when an interaction-bearing event has
// no guild ID. Direct messages carry no social graph, so the event is dropped.
var ErrMissingGuildContext = NewBaseError(ErrorTypeInteraction, "event has no guild context", nil)

// Graph errors

// ErrGuildGraphNotFound is returned when graph state is requested for a
// guild that has never been observed.
type ErrGuildGraphNotFound struct {
	*BaseError
	GuildID string
}

func NewGuildGraphNotFound(guildID string) *ErrGuildGraphNotFound {
	return &ErrGuildGraphNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("no graph for guild: %s", guildID), nil),
		GuildID:   guildID,
	}
}

// Render errors

// ErrRenderFailed is returned when the graphviz subprocess fails or exits
// non-zero.
type ErrRenderFailed struct {
	*BaseError
	Stderr string
}

func NewRenderFailed(stderr string, err error) *ErrRenderFailed {
	return &ErrRenderFailed{
		BaseError: NewBaseError(ErrorTypeRender, "graph rendering failed", err),
		Stderr:    stderr,
	}
}

// Persistence errors

// ErrPersistenceWriteFailed is returned when the relationship-event sink
// rejects a write. Callers log it and move on; durability is best-effort.
type ErrPersistenceWriteFailed struct {
	*BaseError
	GuildID string
}

func NewPersistenceWriteFailed(guildID string, err error) *ErrPersistenceWriteFailed {
	return &ErrPersistenceWriteFailed{
		BaseError: NewBaseError(ErrorTypePersistence, "failed to persist relationship event", err),
		GuildID:   guildID,
	}
}

// Discord errors

// ErrDiscordMessageSendFailed is returned when sending a Discord message fails
type ErrDiscordMessageSendFailed struct {
	*BaseError
	ChannelID string
}

func NewDiscordMessageSendFailed(channelID string, err error) *ErrDiscordMessageSendFailed {
	return &ErrDiscordMessageSendFailed{
		BaseError: NewBaseError(ErrorTypeDiscord, "failed to send message", err),
		ChannelID: channelID,
	}
}

// Config errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type, unwrapping as needed
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ ErrType() ErrorType }
	if stderrors.As(err, &typed) {
		return typed.ErrType() == errType
	}
	return false
}

// IsNotFound reports whether err is a not-found error at any wrap depth.
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}
