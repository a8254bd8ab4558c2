package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageString(t *testing.T) {
	msg := Message{Severity: Error, Loc: Location{Line: 3, Column: 7}, Text: "bad thing"}
	require.Equal(t, "Error: 3,7: bad thing", msg.String())

	msg.Severity = Warning
	require.Equal(t, "Warning: 3,7: bad thing", msg.String())
}

func TestMessagesHasError(t *testing.T) {
	var msgs Messages
	require.False(t, msgs.HasError())

	msgs = append(msgs, Message{Severity: Warning})
	require.False(t, msgs.HasError())

	msgs = append(msgs, Message{Severity: Error})
	require.True(t, msgs.HasError())
}
