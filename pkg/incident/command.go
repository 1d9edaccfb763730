package incident

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
)

var (
	ErrNotFound       = errors.New("incident not found")
	ErrUnknownCommand = errors.New("unknown command")
)

type CommandType string

const (
	CommandAcknowledge CommandType = "acknowledge"
	CommandDismiss     CommandType = "dismiss"
	CommandPenalize    CommandType = "penalize"
	CommandUnresolve   CommandType = "unresolve"
	CommandDelete      CommandType = "delete"
	CommandClearAll    CommandType = "clear-all"
)

var commandResolution = map[CommandType]model.Resolution{
	CommandAcknowledge: model.Acknowledged,
	CommandDismiss:     model.Dismissed,
	CommandPenalize:    model.Penalized,
	CommandUnresolve:   model.Unresolved,
	CommandDelete:      model.Deleted,
}

// Command is issued by consumers to change incident resolutions
type Command struct {
	Type CommandType `json:"type"`
	ID   int         `json:"id,omitempty"`
}

// Apply executes cmd on the store
func (s *Store) Apply(cmd Command) error {
	if cmd.Type == CommandClearAll {
		s.ClearAll()
		return nil
	}
	r, ok := commandResolution[cmd.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	if _, ok := s.Resolve(cmd.ID, r); !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, cmd.ID)
	}
	return nil
}

// ParseCommandType returns the command type for an action name
func ParseCommandType(action string) (CommandType, error) {
	t := CommandType(action)
	if _, ok := commandResolution[t]; ok || t == CommandClearAll {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, action)
}
