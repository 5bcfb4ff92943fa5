package domain

import "errors"

var (
	// ErrNotFound is returned when an entity id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted is returned when completing a quest that already
	// reached its terminal state.
	ErrAlreadyCompleted = errors.New("quest already completed")

	// ErrCompletionInProgress is returned when a completion for the same
	// quest id is already in flight.
	ErrCompletionInProgress = errors.New("completion already in progress")

	// ErrQuestImmutable is returned on update/delete of a completed quest.
	ErrQuestImmutable = errors.New("completed quests cannot be modified")

	// ErrSkillMissing indicates a quest references a skill that no longer
	// exists. This is a consistency fault, not a user error.
	ErrSkillMissing = errors.New("quest references a missing skill")

	// ErrValidation wraps rejected input before any mutation.
	ErrValidation = errors.New("invalid input")

	ErrInvalidRecurrence     = errors.New("invalid recurrence pattern")
	ErrUnsupportedRecurrence = errors.New("custom recurrence is not supported")
)
