package app

import "fmt"

// ValidationError rejects a webhook delivery that does not ask for an import
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid delivery: %s", e.Reason)
}

type ForbiddenError struct {
	User string
	Org  string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("%s is not a member of %s", e.User, e.Org)
}

type NoCommitsError struct {
	PR int
}

func (e NoCommitsError) Error() string {
	return fmt.Sprintf("no commits found on PR #%d", e.PR)
}
