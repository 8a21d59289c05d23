package convergence

import "fmt"

// ProvisioningError reports a failed cluster create, delete, or list step.
// It is fatal to the whole convergence sequence.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed while trying to %s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// ApplyError reports a failed one-shot manifest application.
type ApplyError struct {
	Dir string
	Err error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying manifests from %s: %v", e.Dir, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
