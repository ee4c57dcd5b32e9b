package cmd

import (
	"bytes"
	"testing"

	"signalscore/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVersionCommand_Output verifies both output formats of the version command.
func TestVersionCommand_Output(t *testing.T) {
	version.SetBuildVars("v1.2.3", "abc123def456", "2026-01-01T12:00:00Z")
	t.Cleanup(version.ResetBuildVars)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "full",
			args: []string{"version"},
			want: "SignalScore\nVersion: v1.2.3\nCommit: abc123def456\nBuilt: 2026-01-01T12:00:00Z\n",
		},
		{
			name: "short",
			args: []string{"version", "--short"},
			want: "v1.2.3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			root.AddCommand(newVersionCmd())

			var buf bytes.Buffer
			root.SetOut(&buf)
			root.SetArgs(tt.args)

			require.NoError(t, root.Execute())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
