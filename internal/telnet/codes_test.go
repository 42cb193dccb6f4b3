package telnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandName(t *testing.T) {
	require.Equal(t, "IAC", CommandName(IAC))
	require.Equal(t, "SE", CommandName(SE))
	require.Equal(t, "WILL", CommandName(WILL))
	require.Equal(t, "CMD(12)", CommandName(12))
}

func TestOptionName(t *testing.T) {
	require.Equal(t, "NEG_WINDOW_SIZE", OptionName(OptWindowSize))
	require.Equal(t, "TERMINAL_TYPE", OptionName(OptTerminalType))
	require.Equal(t, "OPTION(200)", OptionName(200))
}

func TestSequences(t *testing.T) {
	require.Equal(t, []byte{255, 253, 31}, Command(DO, OptWindowSize))
	require.Equal(t, []byte{255, 250, 24, 1, 255, 240}, RequestSubnegotiation(OptTerminalType))
}
