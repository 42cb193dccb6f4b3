package buffer

// Handler receives the events extracted from an input stream. All methods are
// called synchronously from Write.
type Handler interface {
	// WindowSize reports a NAWS subnegotiation.
	WindowSize(width, height int)
	// TerminalType reports a TERMINAL-TYPE IS subnegotiation.
	TerminalType(name string)
	// ConnectionSpeed reports the transmit speed of a TERMINAL-SPEED IS
	// subnegotiation.
	ConnectionSpeed(bps int)
	// Echo is called for every data byte stored outside an escape sequence.
	Echo(c byte)
}

// NopHandler ignores every event. Embed it to implement a subset of Handler.
type NopHandler struct{}

func (NopHandler) WindowSize(int, int) {}
func (NopHandler) TerminalType(string) {}
func (NopHandler) ConnectionSpeed(int) {}
func (NopHandler) Echo(byte) {}
