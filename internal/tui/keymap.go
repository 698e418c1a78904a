package tui

// Key binding constants used in handleKey.
const (
	KeyCtrlC     = "ctrl+c"
	KeyEsc       = "esc"
	KeyTab       = "tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeyPgUp      = "pgup"
	KeyPgDown    = "pgdown"
)
