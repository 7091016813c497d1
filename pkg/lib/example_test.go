package lib_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/slok/execgate/pkg/lib"
)

// This example shows running a command and telling a gateway refusal apart
// from a command that failed.
func Example_run() {
	ctx := context.Background()

	client, err := lib.New(lib.Config{URL: "http://127.0.0.1:8081"})
	if err != nil {
		log.Fatal(err)
	}

	res, err := client.Run(ctx, "uname -a")
	if err != nil {
		log.Fatal(err)
	}

	if err := res.Err(); err != nil {
		if errors.Is(err, lib.ErrRejected) {
			fmt.Println("denied:", res.Message)
			return
		}
		log.Fatal(err)
	}

	if res.ExitCode != 0 {
		fmt.Printf("command exited %d: %s", res.ExitCode, res.Stderr)
		return
	}
	fmt.Print(res.Output)
}

// This example shows a liveness check of the gateway.
func ExampleClient_Health() {
	client, err := lib.New(lib.Config{})
	if err != nil {
		log.Fatal(err)
	}

	h, err := client.Health(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s is %s\n", h.Service, h.Status)
}
