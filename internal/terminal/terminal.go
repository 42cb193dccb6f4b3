// Package terminal describes a remote terminal: its announced type, ANSI
// capability, window size and output charset. It also holds the ANSI
// sequences used on output and the device-attributes identify exchange.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ledzpl/vbbs/internal/telnet"
)

const (
	DefaultType   = "Unknown"
	DefaultWidth  = 80
	DefaultHeight = 24
)

// Terminal is the negotiated description of the remote end.
type Terminal struct {
	// Type is the name announced through TERMINAL-TYPE, or the model found
	// by Identify when none was announced.
	Type string
	// Model is the device class reported in the identify response.
	Model  string
	ANSI   bool
	Width  int
	Height int
	// Charset encodes output for 8-bit terminals. Nil means bytes pass
	// through unchanged.
	Charset *encoding.Encoder
}

// Default returns an 80x24 terminal of unknown type that is assumed to
// understand ANSI until the identify exchange says otherwise.
func Default() Terminal {
	return Terminal{
		Type:   DefaultType,
		ANSI:   true,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
}

// SetType records an announced terminal type and picks the matching charset.
func (t *Terminal) SetType(name string) {
	t.Type = name
	t.Charset = CharsetFor(name)
}

// SetSize records a window size. Zero dimensions keep the current value.
func (t *Terminal) SetSize(width, height int) {
	if width > 0 {
		t.Width = width
	}
	if height > 0 {
		t.Height = height
	}
}

func (t Terminal) String() string {
	return fmt.Sprintf("%s %dx%d ansi=%t", t.Type, t.Width, t.Height, t.ANSI)
}

// deviceClasses maps the first field of a primary device attributes response
// to a terminal model.
var deviceClasses = map[int]string{
	1:  "VT100",
	4:  "VT132",
	6:  "VT102",
	7:  "VT131",
	12: "VT125",
	61: "Gnome Terminal?",
	62: "VT220",
	63: "VT320",
	64: "VT420",
	65: "VT520",
}

// Model returns the terminal model for a device class.
func Model(class int) (string, bool) {
	name, ok := deviceClasses[class]
	return name, ok
}

// SendIdentify writes the identify preamble: a prompt, concealed output, the
// Telnet options the server wants, and the device attributes query. The
// response arrives as an ordinary input line once the user presses Enter.
func SendIdentify(out io.Writer) error {
	var sb strings.Builder
	sb.WriteString("[Press Enter to Continue]\n")
	sb.WriteString(Conceal)
	for _, seq := range [][]byte{
		telnet.Command(telnet.DO, telnet.OptSuppressGoAhead),
		telnet.Command(telnet.WILL, telnet.OptSuppressGoAhead),
		telnet.Command(telnet.DONT, telnet.OptEcho),
		telnet.Command(telnet.WILL, telnet.OptEcho),
		telnet.Command(telnet.DO, telnet.OptTerminalType),
		telnet.Command(telnet.DO, telnet.OptWindowSize),
		telnet.Command(telnet.DO, telnet.OptTerminalSpeed),
	} {
		sb.Write(seq)
	}
	sb.WriteString(Identify)
	if _, err := io.WriteString(out, sb.String()); err != nil {
		return fmt.Errorf("terminal: identify: %w", err)
	}
	return nil
}

// CheckIdentifyResponse looks for a device attributes response in line and
// updates t. A response marks the terminal as ANSI capable; without one the
// announced terminal type decides. It reports whether a response was found
// and always ends the concealed section started by SendIdentify.
func CheckIdentifyResponse(out io.Writer, line string, t *Terminal) (bool, error) {
	fields, found := parseDeviceAttributes(line)
	if found {
		t.ANSI = true
		if len(fields) > 0 {
			if name, ok := Model(fields[0]); ok {
				t.Model = name
				if t.Type == DefaultType {
					t.Type = name
				}
			}
		}
	} else {
		t.ANSI = IsANSIType(t.Type)
	}

	status := "disabled"
	if t.ANSI {
		status = "enabled"
	}
	if _, err := fmt.Fprintf(out, "%sANSI escape codes %s.\n", ConcealOff, status); err != nil {
		return found, fmt.Errorf("terminal: identify response: %w", err)
	}
	return found, nil
}

// parseDeviceAttributes extracts the numeric fields of "[?n;n...c". The
// leading ESC may be missing.
func parseDeviceAttributes(line string) ([]int, bool) {
	start := strings.Index(line, "[?")
	if start < 0 {
		return nil, false
	}
	body := line[start+2:]
	end := strings.IndexByte(body, 'c')
	if end < 0 {
		return nil, false
	}
	body = body[:end]

	var fields []int
	for _, part := range strings.Split(body, ";") {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		fields = append(fields, n)
	}
	return fields, true
}

// IsANSIType reports whether an announced terminal type understands ANSI
// escape sequences.
func IsANSIType(name string) bool {
	switch strings.ToLower(name) {
	case "ansi", "ansi-bbs", "pcansi", "syncterm",
		"xterm", "xterm-256color", "xterm-color",
		"vt100", "vt102", "vt220", "vt320",
		"linux", "screen", "screen-256color",
		"tmux", "tmux-256color",
		"rxvt", "rxvt-unicode":
		return true
	}
	return false
}

// CharsetFor returns the output encoding for BBS-style terminals, which
// expect code page 437. Unmappable runes are replaced. Other types get nil.
func CharsetFor(name string) *encoding.Encoder {
	switch strings.ToLower(name) {
	case "ansi", "ansi-bbs", "pcansi", "syncterm":
		return encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	}
	return nil
}
