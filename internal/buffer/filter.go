package buffer

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/ledzpl/vbbs/internal/telnet"
)

const (
	esc = 0x1b

	// scratchSize bounds a pending command or subnegotiation payload. The
	// longest payload handled is a terminal type name.
	scratchSize = 256
)

type filterMode uint8

const (
	modeNormal filterMode = iota
	modeEscape
	modeCSI
	modeCommand
	modeSubnegotiation
)

// filterState survives across Write calls so sequences split between reads
// resume where they stopped.
type filterState struct {
	mode    filterMode
	scratch []byte
	// sbIAC is set after an IAC inside a subnegotiation, awaiting SE or a
	// second IAC.
	sbIAC bool
}

func newFilterState() filterState {
	return filterState{scratch: make([]byte, 0, scratchSize)}
}

func (f *filterState) enter(mode filterMode) {
	f.reset()
	f.mode = mode
}

func (f *filterState) reset() {
	f.mode = modeNormal
	f.scratch = f.scratch[:0]
	f.sbIAC = false
}

// write feeds p byte by byte. It stops at the first byte that does not fit and
// reports how many bytes were consumed.
func (b *Buffer) write(p []byte) (int, error) {
	for i, c := range p {
		if !b.feed(c) {
			return i, ErrOverflow
		}
	}
	return len(p), nil
}

// feed consumes one byte. It returns false, leaving the state untouched, when
// the byte needs room the buffer does not have.
func (b *Buffer) feed(c byte) bool {
	switch b.filter.mode {
	case modeCommand:
		return b.command(c)
	case modeSubnegotiation:
		b.subnegotiation(c)
		return true
	case modeEscape, modeCSI:
		// An IAC interrupts the escape sequence.
		if c == telnet.IAC && b.handleTelnet {
			b.filter.enter(modeCommand)
			return true
		}
		return b.escape(c)
	}

	switch {
	case c == telnet.IAC && b.handleTelnet:
		b.filter.enter(modeCommand)
		return true
	case c == esc && b.handleANSI:
		if !b.stripANSI && !b.store(c) {
			return false
		}
		b.filter.enter(modeEscape)
		return true
	case c == '\n' && b.convertNewlines:
		if b.Remaining() < 2 {
			return false
		}
		b.data = append(b.data, '\r', '\n')
	default:
		if !b.store(c) {
			return false
		}
	}
	b.handler.Echo(c)
	return true
}

func (b *Buffer) escape(c byte) bool {
	if !b.stripANSI && !b.store(c) {
		return false
	}
	switch b.filter.mode {
	case modeEscape:
		if c == '[' {
			b.filter.mode = modeCSI
		} else {
			b.filter.reset()
		}
	case modeCSI:
		if c >= 0x40 && c <= 0x7e {
			b.filter.reset()
		}
	}
	return true
}

func (b *Buffer) command(c byte) bool {
	f := &b.filter
	if len(f.scratch) == 0 {
		switch c {
		case telnet.IAC:
			// Escaped 0xFF data byte.
			if !b.store(c) {
				return false
			}
			f.reset()
			b.handler.Echo(c)
		case telnet.SB:
			f.mode = modeSubnegotiation
		case telnet.WILL, telnet.WONT, telnet.DO, telnet.DONT:
			f.scratch = append(f.scratch, c)
		default:
			b.logger.Debug("telnet: command", "cmd", telnet.CommandName(c))
			f.reset()
		}
		return true
	}
	b.negotiate(f.scratch[0], c)
	f.reset()
	return true
}

func (b *Buffer) negotiate(cmd, option byte) {
	b.logger.Debug("telnet: negotiation", "cmd", telnet.CommandName(cmd), "option", telnet.OptionName(option))
	if cmd != telnet.WILL {
		return
	}

	var reply []byte
	switch option {
	case telnet.OptWindowSize:
		reply = telnet.Command(telnet.DO, option)
	case telnet.OptTerminalType, telnet.OptTerminalSpeed:
		reply = telnet.RequestSubnegotiation(option)
	default:
		b.logger.Debug("telnet: unhandled WILL", "option", telnet.OptionName(option))
		return
	}

	if b.replied[option] {
		return
	}
	if b.replies == nil {
		b.logger.Debug("telnet: no reply buffer", "option", telnet.OptionName(option))
		return
	}
	if _, err := b.replies.Write(reply); err != nil {
		b.logger.Debug("telnet: reply dropped", "option", telnet.OptionName(option), "err", err)
		return
	}
	b.replied[option] = true
}

func (b *Buffer) subnegotiation(c byte) {
	f := &b.filter
	if f.sbIAC {
		f.sbIAC = false
		switch c {
		case telnet.SE:
			b.dispatch(f.scratch)
			f.reset()
			return
		case telnet.IAC:
			// Escaped 0xFF, kept as payload below.
		default:
			b.logger.Debug("telnet: stray byte after IAC in subnegotiation", "byte", c)
			return
		}
	} else if c == telnet.IAC {
		f.sbIAC = true
		return
	}

	if len(f.scratch) >= scratchSize {
		b.logger.Debug("telnet: subnegotiation payload truncated", "limit", scratchSize)
		return
	}
	f.scratch = append(f.scratch, c)
}

// dispatch interprets a completed subnegotiation. payload starts with the
// option id.
func (b *Buffer) dispatch(payload []byte) {
	if len(payload) == 0 {
		b.logger.Debug("telnet: empty subnegotiation")
		return
	}
	option, data := payload[0], payload[1:]

	switch option {
	case telnet.OptWindowSize:
		if len(data) < 4 {
			b.logger.Debug("telnet: short window size", "len", len(data))
			return
		}
		width := int(binary.BigEndian.Uint16(data[0:2]))
		height := int(binary.BigEndian.Uint16(data[2:4]))
		b.logger.Debug("telnet: window size", "width", width, "height", height)
		b.handler.WindowSize(width, height)
	case telnet.OptTerminalType:
		if len(data) == 0 || data[0] != telnet.IS {
			b.logger.Debug("telnet: terminal type without IS")
			return
		}
		name := string(data[1:])
		b.logger.Debug("telnet: terminal type", "type", name)
		b.handler.TerminalType(name)
	case telnet.OptTerminalSpeed:
		if len(data) == 0 || data[0] != telnet.IS {
			b.logger.Debug("telnet: terminal speed without IS")
			return
		}
		speed, err := parseSpeed(string(data[1:]))
		if err != nil {
			b.logger.Debug("telnet: bad terminal speed", "value", string(data[1:]), "err", err)
			return
		}
		b.logger.Debug("telnet: terminal speed", "bps", speed)
		b.handler.ConnectionSpeed(speed)
	default:
		b.logger.Debug("telnet: unhandled subnegotiation", "option", telnet.OptionName(option))
	}
}

// parseSpeed reads the transmit speed of an RFC 1079 "transmit,receive" value.
func parseSpeed(value string) (int, error) {
	transmit, _, _ := strings.Cut(value, ",")
	return strconv.Atoi(strings.TrimSpace(transmit))
}
