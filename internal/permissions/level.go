// Package permissions implements the folder permission model: the ordered
// permission levels, the action → minimum-level mapping, and the resolver that
// combines direct and ancestor-inherited grants.
package permissions

import (
	"fmt"
	"strings"

	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// Level is a totally ordered permission level. Higher values grant strictly
// more capabilities.
type Level int

const (
	LevelViewer Level = iota
	LevelExecutor
	LevelEditor
	LevelAdmin
)

var levelNames = map[Level]string{
	LevelViewer:   "viewer",
	LevelExecutor: "executor",
	LevelEditor:   "editor",
	LevelAdmin:    "admin",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText serialises levels as their wire strings.
func (l Level) MarshalText() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("unknown permission level %d", int(l))
	}
	return []byte(name), nil
}

// UnmarshalText parses the wire representation of a level.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts a wire string into a Level, rejecting unknown values.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "viewer":
		return LevelViewer, nil
	case "executor":
		return LevelExecutor, nil
	case "editor":
		return LevelEditor, nil
	case "admin":
		return LevelAdmin, nil
	default:
		return 0, apperrors.NewBadRequest(fmt.Sprintf("unknown permission level %q", value))
	}
}

// Action names an operation a caller wants to perform on a folder or the
// workflows inside it.
type Action string

const (
	ActionView              Action = "view"
	ActionExecute           Action = "execute"
	ActionEdit              Action = "edit"
	ActionManagePermissions Action = "manage-permissions"
)

var actionMinLevels = map[Action]Level{
	ActionView:              LevelViewer,
	ActionExecute:           LevelExecutor,
	ActionEdit:              LevelEditor,
	ActionManagePermissions: LevelAdmin,
}

// MinLevelFor returns the minimum level required for the action.
func MinLevelFor(action Action) (Level, error) {
	min, ok := actionMinLevels[action]
	if !ok {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("unknown action %q", string(action)))
	}
	return min, nil
}
