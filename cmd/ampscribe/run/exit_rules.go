package run

import (
	"fmt"

	"github.com/flarebyte/ampscribe/internal/config"
	"github.com/flarebyte/ampscribe/internal/stage"
)

const (
	exitCodeSuccess  = 0
	exitCodeExecErr  = 1
	exitCodeBlocking = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

func keepGoingMode(meta *stage.Meta) bool {
	return meta != nil && meta.Errors != nil && meta.Errors.Mode == "keep-going"
}

func actionName(meta *stage.Meta) string {
	if meta != nil && meta.Config != nil {
		return meta.Config.Action
	}
	return ""
}

func countRecordResults(records []stage.Record) (successes int, failures int) {
	for _, r := range records {
		if r.Error != nil {
			failures++
		} else {
			successes++
		}
	}
	return
}

func hasExecutionErrors(env stage.Envelope) bool {
	_, failures := countRecordResults(env.Records)
	return failures > 0 || len(env.Errors) > 0
}

// evaluateRunExit maps the final envelope to an exit status. A validate run
// with blocking documents exits 2 unless execution errors take precedence.
func evaluateRunExit(env stage.Envelope) error {
	if actionName(env.Meta) == config.ActionValidate {
		if keepGoingMode(env.Meta) && hasExecutionErrors(env) {
			return runExitError{code: exitCodeExecErr, msg: "execution errors"}
		}
		if env.Meta != nil && env.Meta.Blocking > 0 {
			return runExitError{code: exitCodeBlocking, msg: fmt.Sprintf("blocking documents: %d", env.Meta.Blocking)}
		}
		return nil
	}

	if !keepGoingMode(env.Meta) {
		return nil
	}
	if !hasExecutionErrors(env) {
		return nil
	}
	successes, _ := countRecordResults(env.Records)
	if successes > 0 {
		return nil
	}
	return runExitError{code: exitCodeExecErr, msg: "keep-going: no successful records"}
}
