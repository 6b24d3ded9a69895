// Command udcomm-speedtest measures the throughput of an exception-based
// IPC channel between two manually launched instances. Run two copies with
// the "speed" argument on the same host; they negotiate roles through a
// named shared memory mapping and run two timed rounds with roles swapped.
package main

import (
	"errors"
	"fmt"
	"os"

	"udcomm-speedtest/config"
	"udcomm-speedtest/exccomm"
	"udcomm-speedtest/logutil"
	"udcomm-speedtest/shmem"
	"udcomm-speedtest/speedtest"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "speed" {
		fmt.Println("Usage: udcomm-speedtest speed")
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logutil.Setup(cfg.EnableFileLogging)

	region, err := shmem.Open(cfg.MappingName)
	if err != nil {
		return err
	}
	defer region.Close()

	myPID := uint32(os.Getpid())
	role := shmem.RoleClient
	if region.Created() {
		role = shmem.RoleServer
	}
	fmt.Printf("Role: %s (PID %d)\n", role, myPID)

	res, err := shmem.Negotiate(region, shmem.Options{
		OwnPID:      myPID,
		JoinTimeout: cfg.JoinTimeout,
	})
	if err != nil {
		if errors.Is(err, shmem.ErrNoClient) {
			return fmt.Errorf("client did not join within %v", cfg.JoinTimeout)
		}
		return err
	}
	fmt.Printf("Connected to PID %d\n\n", res.PartnerPID)

	sender, err := exccomm.NewSender()
	if err != nil {
		return err
	}

	runner := speedtest.New(res.Role, res.PartnerPID, cfg, sender, exccomm.SystemAttacher())
	runner.Run()

	fmt.Println("\nSpeed test complete.")
	return nil
}
