//go:build linux

package shell_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processGone returns true when the pid doesn't exist or is a zombie waiting to be reaped.
func processGone(pid int) bool {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}

	// Format: pid (comm) state ...
	s := string(stat)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+2 >= len(s) {
		return false
	}
	return s[i+2] == 'Z'
}

func TestExecutorKillsBackgroundProcesses(t *testing.T) {
	tests := map[string]struct {
		command     string
		expExitCode int
	}{
		"A background job holding the output should be killed once the shell exits": {
			command:     "sleep 30 & echo $!",
			expExitCode: 0,
		},

		"A background job should be killed when the shell exits with an error": {
			command:     "sleep 30 & echo $!; exit 4",
			expExitCode: 4,
		},

		"A background job with redirected output should be killed once the shell exits": {
			command:     "sleep 30 >/dev/null 2>&1 & echo $!",
			expExitCode: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			e := newExecutor(t, 10*time.Second)

			start := time.Now()
			got := e.Execute(context.Background(), test.command)
			elapsed := time.Since(start)

			assert.False(got.TimedOut)
			assert.Equal(test.expExitCode, got.ExitCode)
			assert.Less(elapsed, 5*time.Second)

			pid, err := strconv.Atoi(strings.TrimSpace(got.Stdout))
			require.NoError(err, "stdout: %q", got.Stdout)

			assert.Eventually(func() bool { return processGone(pid) }, 2*time.Second, 20*time.Millisecond)
		})
	}
}
