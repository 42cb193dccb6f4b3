// Package telnet holds the Telnet wire constants (RFC 854 and the option RFCs)
// shared by the input filter, the terminal negotiation and the server.
package telnet

import "fmt"

// Commands.
const (
	SE   byte = 240 // Subnegotiation end
	NOP  byte = 241
	DM   byte = 242 // Data mark
	BRK  byte = 243
	IP   byte = 244 // Interrupt process
	AO   byte = 245 // Abort output
	AYT  byte = 246 // Are you there
	EC   byte = 247 // Erase character
	EL   byte = 248 // Erase line
	GA   byte = 249 // Go ahead
	SB   byte = 250 // Subnegotiation begin
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // Interpret as command
)

// Options.
const (
	OptBinary          byte = 0
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptStatus          byte = 5
	OptTimingMark      byte = 6
	OptTerminalType    byte = 24
	OptWindowSize      byte = 31
	OptTerminalSpeed   byte = 32
	OptFlowControl     byte = 33
	OptLineMode        byte = 34
	OptNewEnviron      byte = 39
)

// Subnegotiation payload tags.
const (
	IS   byte = 0
	SEND byte = 1
)

var commandNames = [...]string{
	"SE", "NOP", "DM", "BRK", "IP", "AO", "AYT", "EC", "EL",
	"GA", "SB", "WILL", "WONT", "DO", "DONT", "IAC",
}

var optionNames = map[byte]string{
	0:   "BINARY",
	1:   "ECHO",
	2:   "RECONNECTION",
	3:   "SUPPRESS_GO_AHEAD",
	4:   "APPROX_MESSAGE_SIZE",
	5:   "STATUS",
	6:   "TIMING_MARK",
	7:   "REMOTE_TRANS_AND_ECHO",
	8:   "OUTPUT_LINE_WIDTH",
	9:   "OUTPUT_PAGE_SIZE",
	10:  "OUTPUT_CARRIAGE_RETURN",
	11:  "OUTPUT_HORIZ_TAB_STOPS",
	12:  "OUTPUT_HORIZ_TABS",
	13:  "OUTPUT_FORM_FEED",
	14:  "OUTPUT_VERT_TAB_STOPS",
	15:  "OUTPUT_VERT_TABS",
	16:  "OUTPUT_LINE_FEED",
	17:  "EXTENDED_ASCII",
	18:  "LOGOUT",
	19:  "BYTE_MACRO",
	20:  "DATA_ENTRY",
	21:  "SUPDUP",
	22:  "SUPDUP_OUTPUT",
	23:  "SEND_LOCATION",
	24:  "TERMINAL_TYPE",
	25:  "END_OF_RECORD",
	26:  "TACACS_USER_ID",
	27:  "OUTPUT_MARKING",
	28:  "TERMINAL_LOCATION",
	29:  "TN3270_REGIME",
	30:  "X.3_PAD",
	31:  "NEG_WINDOW_SIZE",
	32:  "TERMINAL_SPEED",
	33:  "FLOW_CONTROL",
	34:  "LINEMODE",
	35:  "X_DISPLAY_LOCATION",
	36:  "ENV",
	37:  "AUTHENTICATION",
	38:  "ENCRYPTION",
	39:  "NEW_ENVIRON",
	40:  "TN3270E",
	41:  "XAUTH",
	42:  "CHARSET",
	43:  "RSP",
	44:  "COM_PORT_OPTION",
	45:  "SUPPRESS_LOCAL_ECHO",
	46:  "START_TLS",
	47:  "KERMIT",
	48:  "SEND_URL",
	49:  "FORWARD_X",
	138: "PRAGMA_LOGIN",
	139: "SSPI_LOGON",
	140: "PRAGMA_HEARTBEAT",
	255: "EXTENDED_OPTIONS_LIST",
}

// CommandName returns the mnemonic for a command byte.
func CommandName(cmd byte) string {
	if cmd < SE {
		return fmt.Sprintf("CMD(%d)", cmd)
	}
	return commandNames[cmd-SE]
}

// OptionName returns the IANA name of an option, or its number when unassigned.
func OptionName(opt byte) string {
	if name, ok := optionNames[opt]; ok {
		return name
	}
	return fmt.Sprintf("OPTION(%d)", opt)
}

// Command builds a three byte IAC <cmd> <option> sequence.
func Command(cmd, option byte) []byte {
	return []byte{IAC, cmd, option}
}

// RequestSubnegotiation builds IAC SB <option> SEND IAC SE, the request used for
// terminal type and terminal speed.
func RequestSubnegotiation(option byte) []byte {
	return []byte{IAC, SB, option, SEND, IAC, SE}
}
