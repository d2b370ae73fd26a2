package main

import (
	"errors"
	"os"
	"strings"

	"github.com/flarebyte/ampscribe/cmd/ampscribe/root"
)

// exitCoder is implemented by errors that pick the process exit status.
type exitCoder interface {
	ExitCode() int
}

func main() {
	err := root.Execute(os.Args[1:])
	if err == nil {
		return
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if msg == "" {
		msg = "error"
	}
	_, _ = os.Stderr.WriteString(msg + "\n")
	os.Exit(exitStatus(err))
}

func exitStatus(err error) int {
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return 1
}
