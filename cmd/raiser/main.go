// Command raiser is a standalone debuggee for exercising the counter side
// by hand: it prints its PID, then raises N sentinel exceptions at the
// given interval. Attach a second process as a debugger to watch them.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"udcomm-speedtest/exccomm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	count := flag.Int("n", 5, "Number of sentinel exceptions to raise")
	payload := flag.String("payload", "hello, world!", "Message payload")
	interval := flag.Duration("interval", time.Second, "Delay between raises")
	delay := flag.Duration("delay", 5*time.Second, "Initial delay before the first raise")
	flag.Parse()

	sender, err := exccomm.NewSender()
	if err != nil {
		return err
	}

	fmt.Printf("Raiser PID %d: raising %d exceptions (code 0x%X) every %v after %v\n",
		os.Getpid(), *count, exccomm.SentinelCode, *interval, *delay)
	time.Sleep(*delay)

	for i := 0; i < *count; i++ {
		sender.Raise(*payload)
		fmt.Printf("Raised %d/%d\n", i+1, *count)
		if i+1 < *count {
			time.Sleep(*interval)
		}
	}
	return nil
}
