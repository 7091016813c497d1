package testutils

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunExecgate executes an execgate command with the given arguments string (split by spaces).
// Use RunExecgateArgs when arguments contain spaces that should be preserved.
func RunExecgate(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, err error) {
	// Sanitize command.
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	// Split into args.
	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunExecgateArgs(ctx, env, binary, args, nolog)
}

// RunExecgateArgs executes an execgate command with pre-split arguments.
// This preserves arguments that contain spaces (e.g., run -- sh -c "echo hello > file").
func RunExecgateArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Env = commandEnv(env, nolog)

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}

// Process is a long running execgate command (e.g. a server).
type Process struct {
	cmd    *exec.Cmd
	stderr *syncBuffer
	done   chan error
}

// StartExecgateArgs starts an execgate command in the background.
func StartExecgateArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (*Process, error) {
	p := &Process{
		stderr: &syncBuffer{},
		done:   make(chan error, 1),
	}

	p.cmd = exec.CommandContext(ctx, binary, args...)
	p.cmd.Stderr = p.stderr
	p.cmd.Env = commandEnv(env, nolog)
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start %s: %w", binary, err)
	}

	go func() { p.done <- p.cmd.Wait() }()

	return p, nil
}

// Stop interrupts the process and waits for it to exit.
func (p *Process) Stop(timeout time.Duration) error {
	_ = p.cmd.Process.Signal(os.Interrupt)

	select {
	case err := <-p.done:
		return err
	case <-time.After(timeout):
		_ = p.cmd.Process.Kill()
		return fmt.Errorf("process didn't stop in %s", timeout)
	}
}

// Stderr returns the process stderr so far.
func (p *Process) Stderr() string { return p.stderr.String() }

// FreeAddr returns a free localhost address.
func FreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()

	return l.Addr().String(), nil
}

// WaitHTTP polls url until it answers or the context ends.
func WaitHTTP(ctx context.Context, url string) error {
	client := &http.Client{Timeout: time.Second}
	for {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready: %w", url, err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func commandEnv(env []string, nolog bool) []string {
	// os.Environ() first, when duplicate keys exist the last one wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "EXECGATE_NO_LOG=true")
	}
	return newEnv
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
