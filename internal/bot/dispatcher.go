package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/readlater-bot/internal/models"
	"github.com/xaenox/readlater-bot/internal/notion"
	"github.com/xaenox/readlater-bot/internal/storage"
	"go.uber.org/zap"
)

// DefaultStateTTL is how long a selected action waits for its URL
const DefaultStateTTL = 300 * time.Second

// Workspace is the part of the Notion client the bot uses
type Workspace interface {
	ValidateCredentials(ctx context.Context, creds models.Credentials) error
	QueryUnread(ctx context.Context, creds models.Credentials) ([]models.NoteItem, error)
	FindByURL(ctx context.Context, creds models.Credentials, url string) (*models.NoteItem, error)
	MarkRead(ctx context.Context, creds models.Credentials, url string) error
	Archive(ctx context.Context, creds models.Credentials, url string) error
}

// Reply is what goes back to the user: plain text or a time picker
type Reply struct {
	Text   string
	Picker *models.TimePicker
}

func textReply(text string) Reply { return Reply{Text: text} }

type DispatcherConfig struct {
	StateTTL          time.Duration
	PickerOptions     []string
	CleanupOnUnfollow bool
}

type Dispatcher struct {
	users     storage.UserStore
	pins      storage.PinStore
	states    storage.StateStore
	workspace Workspace
	cfg       DispatcherConfig
	logger    *zap.Logger
}

func NewDispatcher(users storage.UserStore, pins storage.PinStore, states storage.StateStore, workspace Workspace, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if len(cfg.PickerOptions) == 0 {
		cfg.PickerOptions = DefaultPickerOptions()
	}
	return &Dispatcher{
		users:     users,
		pins:      pins,
		states:    states,
		workspace: workspace,
		cfg:       cfg,
		logger:    logger,
	}
}

// DefaultPickerOptions offers every full hour
func DefaultPickerOptions() []string {
	options := make([]string, 0, 24)
	for h := 0; h < 24; h++ {
		options = append(options, fmt.Sprintf("%02d:00", h))
	}
	return options
}

// Dispatch handles one text message. Errors are failures of the store or the
// workspace; user mistakes come back as a Reply.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, text string) (Reply, error) {
	switch cmd := ParseCommand(text).(type) {
	case RegisterCommand:
		return d.register(ctx, userID, cmd)
	case HelpCommand:
		return textReply(ReplyHelp), nil
	case SelectActionCommand:
		return d.withUser(ctx, userID, func(user *models.UserRegistration) (Reply, error) {
			state := &models.ConversationState{UserID: userID, PendingAction: cmd.Action}
			if err := d.states.PutState(ctx, state, d.cfg.StateTTL); err != nil {
				return Reply{}, fmt.Errorf("save state: %w", err)
			}
			return textReply(ReplyEnterURL), nil
		})
	case CancelPinCommand:
		return d.withUser(ctx, userID, func(user *models.UserRegistration) (Reply, error) {
			if err := d.pins.DeletePin(ctx, userID); err != nil {
				return Reply{}, fmt.Errorf("delete pin: %w", err)
			}
			return textReply(ReplyPinCancelled), nil
		})
	case RequestDeliveryTimeCommand:
		return d.withUser(ctx, userID, func(user *models.UserRegistration) (Reply, error) {
			return Reply{Picker: &models.TimePicker{
				Prompt:     pickerPrompt,
				Options:    d.cfg.PickerOptions,
				PauseText:  pickerPauseText,
				PauseLabel: pickerPauseLabel,
			}}, nil
		})
	case FollowUpCommand:
		return d.followUp(ctx, userID, cmd.Text)
	default:
		return Reply{}, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (d *Dispatcher) register(ctx context.Context, userID int64, cmd RegisterCommand) (Reply, error) {
	if cmd.Err != nil {
		d.logger.Info("Registration rejected", zap.Int64("user_id", userID), zap.Error(cmd.Err))
		return textReply(ReplyRegisterFailed), nil
	}
	if err := d.workspace.ValidateCredentials(ctx, cmd.Credentials); err != nil {
		d.logger.Info("Registration credentials rejected", zap.Int64("user_id", userID), zap.Error(err))
		return textReply(ReplyRegisterFailed), nil
	}

	user := &models.UserRegistration{
		UserID:         userID,
		WorkspaceToken: cmd.Credentials.Token,
		DatabaseID:     cmd.Credentials.DatabaseID,
	}
	if err := d.users.SaveUser(ctx, user); err != nil {
		return Reply{}, fmt.Errorf("save user: %w", err)
	}
	d.logger.Info("User registered", zap.Int64("user_id", userID))
	return textReply(ReplyRegistered), nil
}

func (d *Dispatcher) followUp(ctx context.Context, userID int64, text string) (Reply, error) {
	state, err := d.states.GetState(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("load state: %w", err)
	}
	if state == nil || !strings.Contains(text, urlMarker) {
		return textReply(ReplyInvalidInput), nil
	}

	return d.withUser(ctx, userID, func(user *models.UserRegistration) (Reply, error) {
		creds := user.Credentials()
		switch state.PendingAction {
		case models.ActionMark:
			return d.noteResult(userID, text, d.workspace.MarkRead(ctx, creds, text), ReplyMarked)
		case models.ActionDelete:
			return d.noteResult(userID, text, d.workspace.Archive(ctx, creds, text), ReplyDeleted)
		case models.ActionPin:
			note, err := d.workspace.FindByURL(ctx, creds, text)
			if err != nil {
				return Reply{}, fmt.Errorf("find note: %w", err)
			}
			if note == nil {
				return d.noteResult(userID, text, notion.ErrNoteNotFound, "")
			}
			pin := &models.PinnedContent{UserID: userID, Title: note.Title, URL: note.URL}
			if err := d.pins.SavePin(ctx, pin); err != nil {
				return Reply{}, fmt.Errorf("save pin: %w", err)
			}
			return textReply(ReplyPinned), nil
		default:
			return textReply(ReplyInvalidInput), nil
		}
	})
}

// noteResult maps the outcome of a URL lookup to a reply
func (d *Dispatcher) noteResult(userID int64, url string, err error, success string) (Reply, error) {
	if errors.Is(err, notion.ErrNoteNotFound) {
		d.logger.Info("No page matches url", zap.Int64("user_id", userID), zap.String("url", url))
		return textReply(ReplyNoteNotFound), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("update note: %w", err)
	}
	return textReply(success), nil
}

func (d *Dispatcher) withUser(ctx context.Context, userID int64, fn func(user *models.UserRegistration) (Reply, error)) (Reply, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return textReply(ReplyNotRegistered), nil
	}
	return fn(user)
}

// HandlePostback applies a button press from the time picker
func (d *Dispatcher) HandlePostback(ctx context.Context, userID int64, data string, params map[string]string) (Reply, error) {
	if data == models.PostbackSetTime {
		deliveryTime, err := NormalizeTimeOfDay(params["time"])
		if err != nil {
			d.logger.Info("Invalid delivery time", zap.Int64("user_id", userID), zap.String("time", params["time"]))
			return textReply(ReplyInvalidTime), nil
		}
		if err := d.users.SetDeliveryTime(ctx, userID, deliveryTime); err != nil {
			return d.postbackError(err)
		}
		return textReply(replyTimeSet(deliveryTime)), nil
	}

	if err := d.users.SetDeliveryTime(ctx, userID, ""); err != nil {
		return d.postbackError(err)
	}
	return textReply(ReplyPaused), nil
}

func (d *Dispatcher) postbackError(err error) (Reply, error) {
	if errors.Is(err, storage.ErrUserNotFound) {
		return textReply(ReplyNotRegistered), nil
	}
	return Reply{}, fmt.Errorf("update delivery time: %w", err)
}

// HandleUnfollow removes the registration of a user who blocked the bot
func (d *Dispatcher) HandleUnfollow(ctx context.Context, userID int64) error {
	if err := d.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if d.cfg.CleanupOnUnfollow {
		if err := d.pins.DeletePin(ctx, userID); err != nil {
			return fmt.Errorf("delete pin: %w", err)
		}
		if err := d.states.DeleteState(ctx, userID); err != nil {
			return fmt.Errorf("delete state: %w", err)
		}
	}
	d.logger.Info("User unfollowed", zap.Int64("user_id", userID))
	return nil
}
