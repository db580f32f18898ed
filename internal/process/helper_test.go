package process

import (
	"fmt"
	"os"
	"testing"
	"time"
)

// helperEnv selects a child behaviour when the test binary re-executes itself.
const helperEnv = "PROCESS_TEST_HELPER"

func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(runHelper(mode))
	}
	os.Exit(m.Run())
}

// runHelper is the body of the child process used by Spawn tests.
func runHelper(mode string) int {
	switch mode {
	case "echo":
		fmt.Fprintln(os.Stdout, "hello stdout")
		fmt.Fprintln(os.Stderr, "hello stderr")
		fmt.Fprintf(os.Stdout, "port=%s dist=%s\n", os.Getenv("PORT"), os.Getenv("CLIENT_DIST"))
		fmt.Fprint(os.Stdout, "no newline")
		return 0
	case "exit3":
		fmt.Fprintln(os.Stderr, "fatal: bind failed")
		return 3
	case "block":
		fmt.Fprintln(os.Stdout, "waiting")
		select {}
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		return 2
	}
}

// helperConfig returns a Config that spawns this test binary in mode.
func helperConfig(tb testing.TB, mode string, env map[string]string) Config {
	tb.Helper()
	all := map[string]string{helperEnv: mode}
	for k, v := range env {
		all[k] = v
	}
	return Config{
		Name:        "helper-" + mode,
		Binary:      os.Args[0],
		Env:         all,
		StopTimeout: 5 * time.Second,
	}
}

// collect drains events until the channel is closed.
func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}
