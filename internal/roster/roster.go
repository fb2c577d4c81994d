// Package roster looks applicants up in the club's external member roster.
//
// The roster itself is read-only from this service's point of view. Matches
// are mirrored into the internal community-member collection so that an
// application can keep a stable reference to the member it matched.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
)

const serviceName = "roster"

// Result is the tri-state outcome of a roster lookup. MatchedMemberRef is
// set only when Status is FOUND.
type Result struct {
	Status           domain.RosterCheckStatus
	MatchedMemberRef *string
}

// Found reports a usable roster match.
func (r Result) Found() bool {
	return r.Status == domain.RosterCheckFound && r.MatchedMemberRef != nil && *r.MatchedMemberRef != ""
}

// Checker looks up a single student number. A non-nil error is always
// paired with an ERROR result; it is informational and callers must not
// treat it as a rejection.
type Checker interface {
	CheckStudentNumber(ctx context.Context, studentNumber string) (Result, error)
}

// Row is one member line of the roster.
type Row struct {
	Line          int
	StudentNumber string
	FullName      string
	Department    string
	Email         string
}

// Source returns every member row of the roster.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}

func errorResult(err error) (Result, error) {
	var ext *domain.ExternalServiceError
	if !errors.As(err, &ext) {
		err = &domain.ExternalServiceError{Service: serviceName, Err: err}
	}
	return Result{Status: domain.RosterCheckError}, err
}

type timeoutChecker struct {
	next    Checker
	timeout time.Duration
}

// WithTimeout bounds every lookup made through next. A lookup that does not
// finish in time is reported as ERROR even if next ignores cancellation.
func WithTimeout(next Checker, timeout time.Duration) Checker {
	return &timeoutChecker{next: next, timeout: timeout}
}

type checkOutcome struct {
	result Result
	err    error
}

func (c *timeoutChecker) CheckStudentNumber(ctx context.Context, studentNumber string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan checkOutcome, 1)
	go func() {
		res, err := c.next.CheckStudentNumber(ctx, studentNumber)
		done <- checkOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return errorResult(out.err)
		}
		return out.result, nil
	case <-ctx.Done():
		logger.Warn("Roster lookup timed out", "timeout", c.timeout, "error", ctx.Err())
		return errorResult(fmt.Errorf("lookup aborted after %s: %w", c.timeout, ctx.Err()))
	}
}
