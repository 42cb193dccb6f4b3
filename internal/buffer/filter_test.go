package buffer

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ledzpl/vbbs/internal/telnet"
)

type recorder struct {
	width, height int
	termType      string
	speed         int
	echoed        []byte
}

func (r *recorder) WindowSize(w, h int)     { r.width, r.height = w, h }
func (r *recorder) TerminalType(t string)   { r.termType = t }
func (r *recorder) ConnectionSpeed(bps int) { r.speed = bps }
func (r *recorder) Echo(c byte)             { r.echoed = append(r.echoed, c) }

func newTelnetBuffer(t *testing.T) (*Buffer, *Buffer, *recorder) {
	t.Helper()
	out, err := New(256)
	require.NoError(t, err)
	rec := &recorder{}
	in, err := New(256, WithTelnet(), WithANSI(), WithHandler(rec), WithReplies(out))
	require.NoError(t, err)
	return in, out, rec
}

func writeBytewise(t *testing.T, b *Buffer, p []byte) {
	t.Helper()
	for _, c := range p {
		_, err := b.Write([]byte{c})
		require.NoError(t, err)
	}
}

func TestFilterStripsCommandSplitAcrossWrites(t *testing.T) {
	in, _, _ := newTelnetBuffer(t)

	writeBytewise(t, in, []byte{'a', telnet.IAC, telnet.WILL, telnet.OptEcho, 'b'})
	require.Equal(t, "ab", string(in.Bytes()))
}

func TestFilterWindowSize(t *testing.T) {
	in, out, rec := newTelnetBuffer(t)

	_, err := in.Write([]byte{telnet.IAC, telnet.WILL, telnet.OptWindowSize})
	require.NoError(t, err)
	require.Equal(t, telnet.Command(telnet.DO, telnet.OptWindowSize), out.Bytes())

	writeBytewise(t, in, []byte{telnet.IAC, telnet.SB, telnet.OptWindowSize, 0, 80, 0, 24, telnet.IAC, telnet.SE})
	require.Equal(t, 80, rec.width)
	require.Equal(t, 24, rec.height)
	require.True(t, in.IsEmpty())
}

func TestFilterTerminalType(t *testing.T) {
	in, out, rec := newTelnetBuffer(t)

	_, err := in.Write([]byte{telnet.IAC, telnet.WILL, telnet.OptTerminalType})
	require.NoError(t, err)
	require.Equal(t, telnet.RequestSubnegotiation(telnet.OptTerminalType), out.Bytes())

	seq := []byte{telnet.IAC, telnet.SB, telnet.OptTerminalType, telnet.IS}
	seq = append(seq, "XTERM"...)
	seq = append(seq, telnet.IAC, telnet.SE)
	_, err = in.Write(seq)
	require.NoError(t, err)
	require.Equal(t, "XTERM", rec.termType)
}

func TestFilterTerminalSpeed(t *testing.T) {
	in, _, rec := newTelnetBuffer(t)

	seq := []byte{telnet.IAC, telnet.SB, telnet.OptTerminalSpeed, telnet.IS}
	seq = append(seq, "38400,38400"...)
	seq = append(seq, telnet.IAC, telnet.SE)
	_, err := in.Write(seq)
	require.NoError(t, err)
	require.Equal(t, 38400, rec.speed)
}

func TestFilterRepliesOncePerOption(t *testing.T) {
	in, out, _ := newTelnetBuffer(t)

	will := []byte{telnet.IAC, telnet.WILL, telnet.OptWindowSize}
	_, err := in.Write(will)
	require.NoError(t, err)
	_, err = in.Write(will)
	require.NoError(t, err)
	require.Equal(t, telnet.Command(telnet.DO, telnet.OptWindowSize), out.Bytes())
}

func TestFilterIgnoresOtherNegotiation(t *testing.T) {
	in, out, _ := newTelnetBuffer(t)

	_, err := in.Write([]byte{telnet.IAC, telnet.DO, telnet.OptEcho, telnet.IAC, telnet.WILL, telnet.OptLineMode, telnet.IAC, telnet.NOP, 'x'})
	require.NoError(t, err)
	require.Equal(t, "x", string(in.Bytes()))
	require.True(t, out.IsEmpty())
}

func TestFilterEscapedIAC(t *testing.T) {
	in, _, rec := newTelnetBuffer(t)

	_, err := in.Write([]byte{'a', telnet.IAC, telnet.IAC, 'b'})
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 0xff, 'b'}, in.Bytes())
	require.Equal(t, []byte{'a', 0xff, 'b'}, rec.echoed)
}

func TestFilterEchoSkipsEscapeSequences(t *testing.T) {
	in, _, rec := newTelnetBuffer(t)

	_, err := in.WriteString("a\x1b[Ab")
	require.NoError(t, err)
	require.Equal(t, "a\x1b[Ab", string(in.Bytes()))
	require.Equal(t, "ab", string(rec.echoed))
}

func TestFilterStripANSI(t *testing.T) {
	buf, err := New(64, WithStripANSI())
	require.NoError(t, err)

	_, err = buf.WriteString("\x1b[1;31mRED\x1b[0m\x1bMx")
	require.NoError(t, err)
	require.Equal(t, "REDx", string(buf.Bytes()))
}

func TestFilterWithoutRepliesBuffer(t *testing.T) {
	in, err := New(32, WithTelnet())
	require.NoError(t, err)

	_, err = in.Write([]byte{telnet.IAC, telnet.WILL, telnet.OptTerminalType, 'z'})
	require.NoError(t, err)
	require.Equal(t, "z", string(in.Bytes()))
}

// Splitting a stream at arbitrary points must not change what is extracted.
func TestFilterChunkingProperty(t *testing.T) {
	stream := []byte{'h', 'i', telnet.IAC, telnet.WILL, telnet.OptWindowSize}
	stream = append(stream, telnet.IAC, telnet.SB, telnet.OptWindowSize, 0, 132, 0, 43, telnet.IAC, telnet.SE)
	stream = append(stream, "\x1b[?1;2c"...)
	stream = append(stream, telnet.IAC, telnet.IAC, '!')

	rapid.Check(t, func(rt *rapid.T) {
		cuts := rapid.SliceOfN(rapid.IntRange(0, len(stream)), 0, 8).Draw(rt, "cuts")

		rec := &recorder{}
		out, _ := New(64)
		in, _ := New(64, WithTelnet(), WithANSI(), WithHandler(rec), WithReplies(out))

		prev := 0
		for _, cut := range append(sortedInts(cuts), len(stream)) {
			if cut < prev {
				continue
			}
			if _, err := in.Write(stream[prev:cut]); err != nil {
				rt.Fatalf("write: %v", err)
			}
			prev = cut
		}

		if got := string(in.Bytes()); got != "hi\x1b[?1;2c\xff!" {
			rt.Fatalf("data = %q", got)
		}
		if rec.width != 132 || rec.height != 43 {
			rt.Fatalf("window = %dx%d", rec.width, rec.height)
		}
		if string(out.Bytes()) != string(telnet.Command(telnet.DO, telnet.OptWindowSize)) {
			rt.Fatalf("replies = %v", out.Bytes())
		}
	})
}

func sortedInts(v []int) []int {
	s := append([]int(nil), v...)
	sort.Ints(s)
	return s
}

func TestParseSpeed(t *testing.T) {
	speed, err := parseSpeed("9600,4800")
	require.NoError(t, err)
	require.Equal(t, 9600, speed)

	_, err = parseSpeed("fast")
	require.Error(t, err)
}
