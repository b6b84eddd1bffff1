package bot

import (
	"errors"
	"strings"

	"github.com/xaenox/readlater-bot/internal/models"
)

// ErrInvalidRegistration is returned when a registration message is not three lines
var ErrInvalidRegistration = errors.New("registration message must have three lines")

// Command is one decoded chat message. The concrete types below are the only
// implementations.
type Command interface {
	command()
}

// RegisterCommand carries the workspace credentials from a registration message.
// Err is set when the message could not be parsed.
type RegisterCommand struct {
	Credentials models.Credentials
	Err         error
}

// SelectActionCommand starts waiting for a URL
type SelectActionCommand struct {
	Action models.PendingAction
}

type CancelPinCommand struct{}

type RequestDeliveryTimeCommand struct{}

type HelpCommand struct{}

// FollowUpCommand is any other text, normally a URL answering a selected action
type FollowUpCommand struct {
	Text string
}

func (RegisterCommand) command()            {}
func (SelectActionCommand) command()        {}
func (CancelPinCommand) command()           {}
func (RequestDeliveryTimeCommand) command() {}
func (HelpCommand) command()                {}
func (FollowUpCommand) command()            {}

var actionKeywords = map[string]models.PendingAction{
	keywordMark:   models.ActionMark,
	keywordDelete: models.ActionDelete,
	keywordPin:    models.ActionPin,
}

// ParseCommand decodes text into a Command. The first matching rule wins.
func ParseCommand(text string) Command {
	if strings.Contains(text, keywordRegister) {
		creds, err := parseRegistration(text)
		return RegisterCommand{Credentials: creds, Err: err}
	}
	if action, ok := actionKeywords[text]; ok {
		return SelectActionCommand{Action: action}
	}
	switch text {
	case keywordCancelPin:
		return CancelPinCommand{}
	case keywordDeliveryTime:
		return RequestDeliveryTimeCommand{}
	case "/start", "/help":
		return HelpCommand{}
	}
	return FollowUpCommand{Text: text}
}

// parseRegistration reads "label\nlabel：token\nlabel：databaseId"
func parseRegistration(text string) (models.Credentials, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n"), "\n")
	if len(lines) != 3 {
		return models.Credentials{}, ErrInvalidRegistration
	}
	creds := models.Credentials{
		Token:      lastField(lines[1]),
		DatabaseID: lastField(lines[2]),
	}
	if creds.Token == "" || creds.DatabaseID == "" {
		return models.Credentials{}, ErrInvalidRegistration
	}
	return creds, nil
}

func lastField(line string) string {
	parts := strings.Split(line, credentialSeparator)
	return strings.TrimSpace(parts[len(parts)-1])
}
