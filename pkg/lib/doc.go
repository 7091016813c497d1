// Package lib provides a Go SDK to talk with an execgate command gateway.
//
// This package allows applications to run commands through a gateway without
// shelling out to the execgate CLI binary or hand writing the HTTP calls.
//
// # Quick Start
//
// Create a client, check the gateway health and run a command:
//
//	client, err := lib.New(lib.Config{URL: "http://127.0.0.1:8081"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	health, err := client.Health(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(health.Service, health.Status)
//
//	res, err := client.Run(ctx, "ls -la")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := res.Err(); err != nil {
//	    log.Fatal(err) // Rejected by the gateway.
//	}
//	fmt.Println(res.ExitCode, res.Output)
//
// # Commands
//
// A command that runs and exits with a non zero code is still a successful
// request, check [RunResult].ExitCode. A command that takes longer than the
// gateway timeout is killed and reported with exit code -1.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotValid]: Invalid input (e.g. an empty command or a bad gateway URL).
//   - [ErrRejected]: The gateway refused to run the command (e.g. denied for security reasons).
//   - [ErrUnavailable]: The gateway could not be reached or answered with an unexpected status.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
