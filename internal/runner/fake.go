package runner

import (
	"context"
	"strings"
)

// Fake is a scripted Runner for tests. Responses are keyed by the
// space-joined argv; unscripted commands succeed with empty output. A
// command scripted with a sequence yields its results in order, with the
// last one repeating.
type Fake struct {
	Responses map[string][]Result
	Errors    map[string]error

	// Calls records every argv executed, space-joined, in order.
	Calls []string
}

// NewFake creates an empty fake runner.
func NewFake() *Fake {
	return &Fake{
		Responses: make(map[string][]Result),
		Errors:    make(map[string]error),
	}
}

// Script sets the result for an exact command line.
func (f *Fake) Script(command string, result Result) {
	f.Responses[command] = []Result{result}
}

// ScriptSeq sets successive results for an exact command line; the final
// result repeats once the sequence is exhausted.
func (f *Fake) ScriptSeq(command string, results ...Result) {
	f.Responses[command] = results
}

// Run returns the scripted result for the joined argv.
func (f *Fake) Run(_ context.Context, argv ...string) (Result, error) {
	command := strings.Join(argv, " ")
	f.Calls = append(f.Calls, command)

	if err, ok := f.Errors[command]; ok {
		return Result{ExitCode: -1}, err
	}

	if results, ok := f.Responses[command]; ok && len(results) > 0 {
		result := results[0]
		if len(results) > 1 {
			f.Responses[command] = results[1:]
		}

		return result, nil
	}

	return Result{ExitCode: 0}, nil
}

// CallCount returns how many recorded calls start with prefix.
func (f *Fake) CallCount(prefix string) int {
	count := 0

	for _, call := range f.Calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}

	return count
}
