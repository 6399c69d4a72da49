package util

import "errors"

var (
	ErrTopicRequired      = errors.New("topic is required for this test type")
	ErrInvalidTestType    = errors.New("unsupported test type")
	ErrInvalidAnswer      = errors.New("answer does not match the question type")
	ErrSessionNotFound    = errors.New("test session not found")
	ErrQuestionNotFound   = errors.New("test question not found")
	ErrSessionCompleted   = errors.New("test session already completed")
	ErrSessionInProgress  = errors.New("test session still in progress")
	ErrAlreadyAnswered    = errors.New("question already answered")
	ErrNothingToRetake    = errors.New("no incorrect answers to retake in this session")
	ErrGradingUnavailable = errors.New("grading service unavailable")
)
