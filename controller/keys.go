package controller

import "github.com/nvr-ai/go-odometry/pipeline"

// Key codes returned by the display.
const (
	KeyEscape         = 27
	KeySpace          = 32
	KeySelectGray     = 'g'
	KeySelectCanny    = 'c'
	KeySelectOriginal = 'o'
)

// Action is what the loop does after a key press.
type Action int

const (
	// ActionNone continues playback.
	ActionNone Action = iota
	// ActionQuit ends the loop successfully.
	ActionQuit
)

// Dispatch applies one key press to the session.
//
// Arguments:
//   - session: The session whose display base or halted flag the key changes.
//   - key: The key code, -1 when no key was pressed.
//
// Returns:
//   - Action: ActionQuit for escape, ActionNone otherwise.
func Dispatch(session *pipeline.Session, key int) Action {
	switch key {
	case KeyEscape:
		return ActionQuit
	case KeySelectGray:
		session.SelectVisualOutputBase(pipeline.BaseGray)
	case KeySelectCanny:
		session.SelectVisualOutputBase(pipeline.BaseCanny)
	case KeySelectOriginal:
		session.SelectVisualOutputBase(pipeline.BaseOriginal)
	case KeySpace:
		session.Halt()
	}
	return ActionNone
}
