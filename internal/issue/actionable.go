// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type (
	// ActionableError is a user-facing error. It names the step of the wrap
	// that failed, the archive, file or URL involved, and how to recover.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("wrap archive").
	//		WithResource("./build/libs/app.jar").
	//		WithIssue(issue.ArchiveInvalidId).
	//		Wrap(cause).
	//		Build()
	ActionableError struct {
		// Operation is a verb phrase such as "wrap archive".
		Operation string
		// Resource is the path or URL involved, if any.
		Resource string
		// Suggestions are short recovery hints printed under the message.
		Suggestions []string
		// Issue links the error to a catalogued Issue; zero means none.
		Issue Id
		// Cause is the underlying error.
		Cause error
	}

	// ErrorContext builds an ActionableError step by step.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

func (e *ActionableError) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, "failed to "+e.Operation)
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for a terminal. Suggestions follow as bullets.
// In verbose mode every error in the cause chain is listed, numbered from 1.
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		sb.WriteByte('\n')
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(&sb, "\n  • %s", s)
	}

	if !verbose || e.Cause == nil {
		return sb.String()
	}
	sb.WriteString("\n\nError chain:")
	for i, err := 1, e.Cause; err != nil; i, err = i+1, errors.Unwrap(err) {
		fmt.Fprintf(&sb, "\n  %d. %v", i, err)
	}
	return sb.String()
}

// Details returns the catalogued issue linked to e, or nil.
func (e *ActionableError) Details() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithIssue links the built error to a catalogued issue.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns a copy of the error built so far, or nil when no operation
// was set. Later calls on c do not affect the returned error.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	out := c.err
	out.Suggestions = slices.Clone(c.err.Suggestions)
	return &out
}

// BuildError is Build typed as error, so a missing operation yields an
// untyped nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
