package execgate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slok/execgate/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		return fmt.Errorf("EXECGATE_INTEGRATION_BINARY is required")
	}

	// go test changes the CWD to the test package directory, relative paths would break.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("EXECGATE_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("execgate binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "EXECGATE_INTEGRATION"
		envBinary     = "EXECGATE_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunCmd runs an execgate command with an isolated data dir.
func RunCmd(ctx context.Context, config Config, dataDir string, args ...string) (stdout, stderr []byte, err error) {
	args = append([]string{"--data-dir", dataDir}, args...)
	return testutils.RunExecgateArgs(ctx, nil, config.Binary, args, true)
}

// StartServer starts an execgate server command listening on a free address and
// waits until healthPath answers. The server is stopped on test cleanup.
func StartServer(t *testing.T, config Config, dataDir, healthPath string, args ...string) (addr string) {
	t.Helper()

	addr, err := testutils.FreeAddr()
	if err != nil {
		t.Fatalf("could not get a free address: %s", err)
	}

	args = append([]string{"--data-dir", dataDir}, args...)
	args = append(args, "--listen-addr", addr)

	p, err := testutils.StartExecgateArgs(context.Background(), nil, config.Binary, args, false)
	if err != nil {
		t.Fatalf("could not start server: %s", err)
	}
	t.Cleanup(func() { _ = p.Stop(10 * time.Second) })

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := testutils.WaitHTTP(ctx, "http://"+addr+healthPath); err != nil {
		t.Fatalf("server not ready: %s\nstderr:\n%s", err, p.Stderr())
	}

	return addr
}
