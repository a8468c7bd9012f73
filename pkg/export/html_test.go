package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
)

func TestHTML_RendersTranscriptTable(t *testing.T) {
	cb, err := chatbox.New(nil, nil)
	require.NoError(t, err)
	_, err = cb.UserSay("2+2?")
	require.NoError(t, err)
	_, err = cb.AISay("**4**")
	require.NoError(t, err)

	lines := cb.ExportMarkdown()
	out, err := HTML("chat <export>", lines)
	require.NoError(t, err)
	page := string(out)

	require.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	require.Contains(t, page, "<title>chat &lt;export&gt;</title>")
	require.Contains(t, page, "<table>")
	require.Contains(t, page, `<div style="background-color:#DCFDC8">2+2?</div>`)
	require.Contains(t, page, "<style> td, th {border: none!important;}</style>")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, []string{"a\n", "b\n"}))
	require.Equal(t, "a\nb\n", buf.String())
}
