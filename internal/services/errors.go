package services

import (
	"errors"
	"fmt"
)

// Sentinel errors. Handlers map these to HTTP codes; everything else
// surfaces as an internal error.
var (
	// Not found (existence and ownership deliberately conflated)
	ErrExamNotFound     = errors.New("exam not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")

	// InvalidSelection: a submitted answer id does not belong to the question
	ErrInvalidSelection = errors.New("selected answer does not belong to question")

	// NoQuestionsAvailable: the filtered candidate pool is empty
	ErrNoQuestionsAvailable = errors.New("no questions available")

	// Unauthorized: no verified identity on the request
	ErrUnauthorized = errors.New("unauthorized")

	ErrAttemptNotActive = errors.New("attempt is not in progress")
)

// PermissionError carries the denied access details for logging. It is
// reported to callers as NotFound so other users' attempts stay invisible.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// BusinessRuleError signals a domain rule violation (e.g. completing an
// attempt twice).
type BusinessRuleError struct {
	Rule    string
	Message string
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}
