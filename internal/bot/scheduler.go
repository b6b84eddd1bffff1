package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/xaenox/readlater-bot/internal/models"
	"github.com/xaenox/readlater-bot/internal/storage"
	"go.uber.org/zap"
)

// errNoUnreadNotes marks a user whose database has nothing left to deliver
var errNoUnreadNotes = errors.New("no unread notes")

// Messenger pushes messages to a chat user
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendInteractive(ctx context.Context, userID int64, picker models.TimePicker) error
}

// Report summarises one scheduler pass
type Report struct {
	Checked   int `json:"checked"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type Scheduler struct {
	users     storage.UserStore
	pins      storage.PinStore
	workspace Workspace
	messenger Messenger
	location  *time.Location
	logger    *zap.Logger

	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewScheduler(users storage.UserStore, pins storage.PinStore, workspace Workspace, messenger Messenger, location *time.Location, logger *zap.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		users:     users,
		pins:      pins,
		workspace: workspace,
		messenger: messenger,
		location:  location,
		logger:    logger,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock replaces the clock used to decide whether a user is due
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// WithRand replaces the source used to pick a random unread note
func (s *Scheduler) WithRand(rnd *rand.Rand) *Scheduler {
	s.rnd = rnd
	return s
}

// Run calls RunOnce on every tick until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("Scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunOnce logs both the report and a failed scan
			_, _ = s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// RunOnce delivers a note to every user whose delivery time is now. Users are
// handled one at a time and a failure for one user never stops the rest.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	users, err := s.users.ListScheduledUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list scheduled users", zap.Error(err))
		return report, fmt.Errorf("list scheduled users: %w", err)
	}

	now := s.now()
	for _, user := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		due, err := IsDeliveryTime(now, user.DeliveryTime, s.location)
		if err != nil {
			s.logger.Warn("Invalid delivery time",
				zap.Int64("user_id", user.UserID),
				zap.String("delivery_time", user.DeliveryTime),
				zap.Error(err))
			report.Failed++
			continue
		}
		if !due {
			continue
		}

		switch err := s.deliver(ctx, user); {
		case errors.Is(err, errNoUnreadNotes):
			s.logger.Warn("No unread notes to deliver", zap.Int64("user_id", user.UserID))
			report.Skipped++
		case err != nil:
			s.logger.Error("Failed to deliver note",
				zap.Error(err),
				zap.Int64("user_id", user.UserID))
			report.Failed++
		default:
			report.Delivered++
		}
	}

	s.logger.Info("Scheduler run finished",
		zap.Int("checked", report.Checked),
		zap.Int("delivered", report.Delivered),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Scheduler) deliver(ctx context.Context, user *models.UserRegistration) error {
	text, err := s.selectContent(ctx, user)
	if err != nil {
		return err
	}
	if err := s.messenger.SendText(ctx, user.UserID, text); err != nil {
		return fmt.Errorf("send delivery: %w", err)
	}
	return nil
}

// selectContent prefers the pinned note, otherwise picks an unread one at random
func (s *Scheduler) selectContent(ctx context.Context, user *models.UserRegistration) (string, error) {
	pin, err := s.pins.GetPin(ctx, user.UserID)
	if err != nil {
		return "", fmt.Errorf("load pin: %w", err)
	}
	if pin != nil {
		return models.DeliveryText(pin.Title, pin.URL), nil
	}

	notes, err := s.workspace.QueryUnread(ctx, user.Credentials())
	if err != nil {
		return "", fmt.Errorf("query unread: %w", err)
	}
	if len(notes) == 0 {
		return "", errNoUnreadNotes
	}

	s.mu.Lock()
	note := notes[s.rnd.Intn(len(notes))]
	s.mu.Unlock()
	return models.DeliveryText(note.Title, note.URL), nil
}
