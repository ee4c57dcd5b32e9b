package commands

import (
	"io"
	"signalscore/internal/application/common/logging"
	"sync"

	"github.com/spf13/cobra"
)

// syncWriter serializes writes from the progress reporter and the logger.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// diagnostics returns the stderr writer shared by progress output and logs, and a logger
// at the level chosen by --log-level.
func diagnostics(cmd *cobra.Command) (io.Writer, logging.ApplicationLogger, error) {
	w := &syncWriter{w: cmd.ErrOrStderr()}
	level, _ := cmd.Flags().GetString(flagLogLevel)

	logger, err := logging.NewApplicationLogger(logging.Config{
		Level:  level,
		Format: "json",
		Output: logging.OutputWriter,
		Writer: w,
	})
	if err != nil {
		return nil, nil, err
	}
	return w, logger.WithComponent("client"), nil
}
