package domain

import "errors"

var (
	// ErrNoLearner is returned when a session is started without a learner identity.
	ErrNoLearner = errors.New("no learner identity")
	// ErrQuizNotFound indicates the scenario table could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrScenarioNotFound indicates a scenario for the computed slot is missing.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrQuizComplete is returned when an operation needs an unfinished quiz.
	ErrQuizComplete = errors.New("quiz already complete")
	// ErrUserNotFound indicates an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrSettingNotFound indicates no auto-reset setting exists for a quiz.
	ErrSettingNotFound = errors.New("auto-reset setting not found")
)
