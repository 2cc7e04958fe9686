package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrScoreOutOfRange  = errors.New("score out of range")
	ErrAIUnavailable    = errors.New("ai scoring provider unavailable")
	ErrAITimeout        = errors.New("ai scoring provider timed out")
)
