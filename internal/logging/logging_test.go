package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopesString(t *testing.T) {
	require.Equal(t, "", ScopeNone.String())
	require.Equal(t, "clock", ScopeClock.String())
	require.Equal(t, "all", ScopeAll.String())
	require.Equal(t, "clock|poll", (ScopeClock | ScopePoll).String())
}

func TestIsEnabled(t *testing.T) {
	require.True(t, ScopeAll.IsEnabled(ScopeFilesystem))
	require.False(t, ScopeClock.IsEnabled(ScopeFilesystem))
	require.True(t, (ScopeClock | ScopeFilesystem).IsEnabled(ScopeFilesystem))
}

func TestWriteFlags(t *testing.T) {
	var b strings.Builder
	WriteFlags(&b, OflagNames[:], 1|4) // CREAT|EXCL
	require.Equal(t, "CREAT|EXCL", b.String())
}
