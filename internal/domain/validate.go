package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateQuiz checks a scenario table at load time. The engine relies on the
// max-experience correctness rule, so data that breaks it (a tie for the
// maximum, or an explicit isCorrect flag on a different option) is rejected
// here instead of producing ambiguous scoring later.
func ValidateQuiz(q Quiz) error {
	if q.Name == "" {
		return fmt.Errorf("quiz has no name")
	}
	if q.MaxXP <= 0 {
		return fmt.Errorf("quiz %s: maxXP must be positive", q.Name)
	}
	if q.PassPercent <= 0 || q.PassPercent > 100 {
		return fmt.Errorf("quiz %s: pass percent %d out of range", q.Name, q.PassPercent)
	}
	seen := make(map[int]Level)
	for _, level := range Levels() {
		pool := q.Pools[level]
		if len(pool) < QuestionsPerLevel {
			return fmt.Errorf("quiz %s: level %s has %d scenarios, need %d", q.Name, level, len(pool), QuestionsPerLevel)
		}
		for _, sc := range pool {
			if prev, dup := seen[sc.ID]; dup {
				return fmt.Errorf("quiz %s: scenario id %d appears in both %s and %s", q.Name, sc.ID, prev, level)
			}
			seen[sc.ID] = level
			if err := validateScenario(sc); err != nil {
				return fmt.Errorf("quiz %s: %w", q.Name, err)
			}
		}
	}
	return nil
}

func validateScenario(sc Scenario) error {
	if len(sc.Options) < 2 {
		return fmt.Errorf("scenario %d: needs at least 2 options", sc.ID)
	}
	maxIdx := sc.CorrectOptionIndex()
	maxXP := sc.Options[maxIdx].Experience
	ties := 0
	for _, opt := range sc.Options {
		if opt.Experience == maxXP {
			ties++
		}
	}
	if ties > 1 {
		return fmt.Errorf("scenario %d: %d options tied for max experience %d", sc.ID, ties, maxXP)
	}
	for i, opt := range sc.Options {
		if opt.Correct == nil {
			continue
		}
		if *opt.Correct && i != maxIdx {
			return fmt.Errorf("scenario %d: option %d flagged correct but option %d holds max experience", sc.ID, i, maxIdx)
		}
		if !*opt.Correct && i == maxIdx {
			return fmt.Errorf("scenario %d: max-experience option %d flagged incorrect", sc.ID, i)
		}
	}
	return nil
}

// NormalizeResetPeriod converts a reset period to whole minutes. It accepts
// the integer form and the legacy token form (daily/weekly/monthly).
func NormalizeResetPeriod(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily":
		return 24 * 60, nil
	case "weekly":
		return 7 * 24 * 60, nil
	case "monthly":
		return 30 * 24 * 60, nil
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid reset period %q: %w", raw, err)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("reset period must be positive, got %d", minutes)
	}
	return minutes, nil
}
