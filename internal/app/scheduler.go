package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qa-training-service/internal/domain"
)

// SettingsStore persists per-quiz auto-reset schedules.
type SettingsStore interface {
	ListAutoResetSettings(ctx context.Context) ([]domain.AutoResetSetting, error)
	GetAutoResetSetting(ctx context.Context, quizName string) (domain.AutoResetSetting, error)
	SaveAutoResetSetting(ctx context.Context, setting domain.AutoResetSetting) error
	DeleteAutoResetSetting(ctx context.Context, quizName string) error
}

// UserDirectory enumerates accounts with their lightweight quiz results.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// ProgressDirectory reads and resets per-user quiz progress.
type ProgressDirectory interface {
	GetProgress(ctx context.Context, username, quizName string) (domain.Progress, bool, error)
	ResetProgress(ctx context.Context, username, quizName string) error
}

const (
	// resetBatchSize bounds concurrent detailed-progress lookups so a large
	// user list cannot overwhelm the persistence service.
	resetBatchSize = 3
	// defaultDebounce guarantees a minimum gap between due-check bodies even
	// when the countdown and the cron cadence both request one.
	defaultDebounce = 30 * time.Second
)

// CountdownTick is the per-quiz remaining-time sample broadcast to subscribed
// dashboards every second.
type CountdownTick struct {
	QuizName    string        `json:"quizName"`
	Remaining   time.Duration `json:"-"`
	RemainingMs int64         `json:"remainingMs"`
	Display     string        `json:"display"`
	Due         bool          `json:"due"`
}

// ResetScheduler maintains recurring reset schedules per quiz type and resets
// completed users when a schedule comes due. It tolerates arbitrary downtime:
// next-reset times stay grid-aligned to the original schedule instead of
// drifting to "now + period".
type ResetScheduler struct {
	settings SettingsStore
	users    UserDirectory
	progress ProgressDirectory
	logger   *zap.Logger
	now      func() time.Time
	debounce time.Duration

	mu          sync.Mutex
	lastCheck   time.Time
	subscribers map[chan []CountdownTick]struct{}
}

func NewResetScheduler(settings SettingsStore, users UserDirectory, progress ProgressDirectory, logger *zap.Logger) *ResetScheduler {
	return &ResetScheduler{
		settings:    settings,
		users:       users,
		progress:    progress,
		logger:      logger,
		now:         time.Now,
		debounce:    defaultDebounce,
		subscribers: make(map[chan []CountdownTick]struct{}),
	}
}

// NewResetSchedulerWithClock is test-only for deterministic time handling.
func NewResetSchedulerWithClock(settings SettingsStore, users UserDirectory, progress ProgressDirectory, logger *zap.Logger, now func() time.Time) *ResetScheduler {
	s := NewResetScheduler(settings, users, progress, logger)
	s.now = now
	return s
}

// NextResetTime computes the next occurrence for a schedule. candidate =
// lastReset + period; when the candidate is already past, the occurrence is
// advanced by whole periods (ceil) so the result is strictly in the future
// and stays aligned to the original grid.
func NextResetTime(lastReset time.Time, periodMinutes int, now time.Time) time.Time {
	period := time.Duration(periodMinutes) * time.Minute
	candidate := lastReset.Add(period)
	if !candidate.Before(now) {
		return candidate
	}
	periodsElapsed := int64(math.Ceil(float64(now.Sub(lastReset)) / float64(period)))
	return lastReset.Add(time.Duration(periodsElapsed) * period)
}

// Enable turns on (or reconfigures) the schedule for a quiz. rawPeriod accepts
// whole minutes or the legacy daily/weekly/monthly tokens.
func (s *ResetScheduler) Enable(ctx context.Context, quizName, rawPeriod string) (domain.AutoResetSetting, error) {
	minutes, err := domain.NormalizeResetPeriod(rawPeriod)
	if err != nil {
		return domain.AutoResetSetting{}, err
	}
	now := s.now()
	setting := domain.AutoResetSetting{
		QuizName:      quizName,
		ResetPeriod:   minutes,
		Enabled:       true,
		NextResetTime: now.Add(time.Duration(minutes) * time.Minute),
	}
	if err := s.settings.SaveAutoResetSetting(ctx, setting); err != nil {
		return domain.AutoResetSetting{}, fmt.Errorf("save auto-reset setting: %w", err)
	}
	s.logger.Info("auto-reset enabled",
		zap.String("quiz", quizName),
		zap.Int("period_minutes", minutes),
		zap.Time("next_reset", setting.NextResetTime))
	return setting, nil
}

// Disable switches a schedule off without discarding its configuration.
func (s *ResetScheduler) Disable(ctx context.Context, quizName string) error {
	setting, err := s.settings.GetAutoResetSetting(ctx, quizName)
	if err != nil {
		return err
	}
	setting.Enabled = false
	if err := s.settings.SaveAutoResetSetting(ctx, setting); err != nil {
		return fmt.Errorf("save auto-reset setting: %w", err)
	}
	s.logger.Info("auto-reset disabled", zap.String("quiz", quizName))
	return nil
}

// Delete removes a schedule entirely.
func (s *ResetScheduler) Delete(ctx context.Context, quizName string) error {
	return s.settings.DeleteAutoResetSetting(ctx, quizName)
}

// Settings lists every configured schedule for the dashboard.
func (s *ResetScheduler) Settings(ctx context.Context) ([]domain.AutoResetSetting, error) {
	return s.settings.ListAutoResetSettings(ctx)
}

// CheckDue scans all schedules and processes the due ones. Calls arriving
// within the debounce window of the previous check are skipped; the guard is
// a timestamp, not a lock, so overlapping timers stay cheap.
func (s *ResetScheduler) CheckDue(ctx context.Context) ([]domain.ResetReport, error) {
	now := s.now()
	s.mu.Lock()
	if !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.debounce {
		s.mu.Unlock()
		return nil, nil
	}
	s.lastCheck = now
	s.mu.Unlock()

	settings, err := s.settings.ListAutoResetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto-reset settings: %w", err)
	}

	var reports []domain.ResetReport
	for _, setting := range settings {
		if !setting.Enabled || now.Before(setting.NextResetTime) {
			continue
		}
		report, err := s.processDue(ctx, setting)
		if err != nil {
			s.logger.Error("auto-reset cycle failed",
				zap.String("quiz", setting.QuizName),
				zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// processDue resets every user who completed the quiz. Completion is decided
// in two phases: the lightweight results already on the user record first,
// then a detailed progress lookup only for users the first pass could not
// resolve, fetched in small concurrent batches.
func (s *ResetScheduler) processDue(ctx context.Context, setting domain.AutoResetSetting) (domain.ResetReport, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return domain.ResetReport{}, fmt.Errorf("list users: %w", err)
	}

	completed := make([]string, 0, len(users))
	var unresolved []string
	for _, u := range users {
		switch completionFromResults(u, setting.QuizName) {
		case completionYes:
			completed = append(completed, u.Username)
		case completionUnknown:
			unresolved = append(unresolved, u.Username)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetBatchSize)
	for _, username := range unresolved {
		username := username
		g.Go(func() error {
			progress, found, err := s.progress.GetProgress(gctx, username, setting.QuizName)
			if err != nil {
				s.logger.Warn("detailed progress lookup failed",
					zap.String("user", username),
					zap.String("quiz", setting.QuizName),
					zap.Error(err))
				return nil
			}
			if found && len(progress.History) >= domain.TotalQuestions {
				mu.Lock()
				completed = append(completed, username)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := domain.ResetReport{QuizName: setting.QuizName, Completed: len(completed)}
	for _, username := range completed {
		if err := s.progress.ResetProgress(ctx, username, setting.QuizName); err != nil {
			report.Failed++
			s.logger.Warn("user reset failed",
				zap.String("user", username),
				zap.String("quiz", setting.QuizName),
				zap.Error(err))
			continue
		}
		report.Succeeded++
	}

	now := s.now()
	setting.LastReset = &now
	// Recompute from the new lastReset, not from "now + period", so the
	// schedule keeps its original period boundaries.
	setting.NextResetTime = NextResetTime(now, setting.ResetPeriod, now)
	if err := s.settings.SaveAutoResetSetting(ctx, setting); err != nil {
		return report, fmt.Errorf("persist schedule after reset: %w", err)
	}
	report.NextReset = setting.NextResetTime

	s.logger.Info("auto-reset processed",
		zap.String("quiz", setting.QuizName),
		zap.Int("completed", report.Completed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Time("next_reset", report.NextReset))
	return report, nil
}

type completion int

const (
	completionNo completion = iota
	completionYes
	completionUnknown
)

func completionFromResults(u domain.User, quizName string) completion {
	for _, r := range u.QuizResults {
		if r.QuizName != quizName {
			continue
		}
		if r.QuestionsAnswered >= domain.TotalQuestions {
			return completionYes
		}
		return completionNo
	}
	return completionUnknown
}

// Start runs the due-check cadence and the countdown broadcast until the
// context is cancelled.
func (s *ResetScheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if _, err := s.CheckDue(ctx); err != nil {
			s.logger.Error("scheduled due-check failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register due-check: %w", err)
	}
	c.Start()
	s.logger.Info("auto-reset scheduler started")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.broadcastTicks(ctx)
		case <-ctx.Done():
			c.Stop()
			s.logger.Info("auto-reset scheduler stopped")
			return nil
		}
	}
}

// Subscribe returns a channel of countdown tick batches. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *ResetScheduler) Subscribe() (<-chan []CountdownTick, func()) {
	ch := make(chan []CountdownTick, 4)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ResetScheduler) broadcastTicks(ctx context.Context) {
	s.mu.Lock()
	idle := len(s.subscribers) == 0
	s.mu.Unlock()
	if idle {
		return
	}

	ticks, anyDue := s.Ticks(ctx)
	if anyDue {
		// A visible "due now" also requests a check; the debounce guard
		// keeps repeated ticker fires from re-running the body.
		go func() {
			if _, err := s.CheckDue(ctx); err != nil {
				s.logger.Error("countdown-triggered due-check failed", zap.Error(err))
			}
		}()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ticks:
		default:
			// Drop the stale batch so slow dashboards never block the ticker.
			select {
			case <-ch:
			default:
			}
			ch <- ticks
		}
	}
}

// Ticks samples the remaining time of every enabled schedule.
func (s *ResetScheduler) Ticks(ctx context.Context) ([]CountdownTick, bool) {
	settings, err := s.settings.ListAutoResetSettings(ctx)
	if err != nil {
		s.logger.Warn("countdown settings read failed", zap.Error(err))
		return nil, false
	}
	now := s.now()
	ticks := make([]CountdownTick, 0, len(settings))
	anyDue := false
	for _, setting := range settings {
		if !setting.Enabled {
			continue
		}
		remaining := setting.NextResetTime.Sub(now)
		due := remaining <= 0
		anyDue = anyDue || due
		ticks = append(ticks, CountdownTick{
			QuizName:    setting.QuizName,
			Remaining:   remaining,
			RemainingMs: remaining.Milliseconds(),
			Display:     FormatCountdown(remaining),
			Due:         due,
		})
	}
	return ticks, anyDue
}
