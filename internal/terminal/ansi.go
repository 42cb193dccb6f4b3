package terminal

// ANSI control sequences. See ECMA-48.
const (
	Escape = "\033"
	CSI    = Escape + "["

	// Identify asks the terminal for its primary device attributes. The
	// reply looks like ESC [ ? 62 ; 1 ; 6 c.
	Identify = CSI + "c"

	ClearToEndOfLine   = CSI + "0K"
	ClearToStartOfLine = CSI + "1K"
	ClearLine          = CSI + "2K"
	ClearToEndOfScreen = CSI + "0J"
	ClearScreen        = CSI + "2J"

	CursorHome    = CSI + "H"
	CursorUp      = CSI + "A"
	CursorDown    = CSI + "B"
	CursorRight   = CSI + "C"
	CursorLeft    = CSI + "D"
	CursorSave    = Escape + "7"
	CursorRestore = Escape + "8"
	CursorHide    = CSI + "?25l"
	CursorShow    = CSI + "?25h"

	Reset         = CSI + "0m"
	Bold          = CSI + "1m"
	Faint         = CSI + "2m"
	BoldOff       = CSI + "22m"
	Underline     = CSI + "4m"
	UnderlineOff  = CSI + "24m"
	Blink         = CSI + "5m"
	BlinkOff      = CSI + "25m"
	Reverse       = CSI + "7m"
	ReverseOff    = CSI + "27m"
	Conceal       = CSI + "8m"
	ConcealOff    = CSI + "28m"
	ForegroundOff = CSI + "39m"
	BackgroundOff = CSI + "49m"
)

// Foreground colours.
const (
	Black   = CSI + "30m"
	Red     = CSI + "31m"
	Green   = CSI + "32m"
	Yellow  = CSI + "33m"
	Blue    = CSI + "34m"
	Magenta = CSI + "35m"
	Cyan    = CSI + "36m"
	White   = CSI + "37m"
)
