// Package page defines the narrow page-interaction surface the publish
// workflow runs against. The production implementation drives a real
// browser page; tests substitute an in-memory fake.
package page

import (
	"context"
	"time"
)

// By selects the lookup strategy for a Query.
type By string

const (
	// ByText matches elements containing the given text.
	ByText By = "text"

	// ByExactText matches elements whose text equals the given value.
	ByExactText By = "exact_text"

	// ByRole matches by ARIA role plus exact accessible name.
	ByRole By = "role"

	// BySelector matches by CSS selector.
	BySelector By = "selector"
)

// Query describes one element lookup.
type Query struct {
	// By is the lookup strategy.
	By By

	// Value is the text, accessible name, or selector to match.
	Value string

	// Role is the ARIA role, used only with ByRole.
	Role string

	// Timeout bounds waits on the located element. Zero means derive the
	// bound from the context deadline, falling back to the implementation
	// default.
	Timeout time.Duration
}

// Within returns a copy of the query with the wait bound set.
func (q Query) Within(d time.Duration) Query {
	q.Timeout = d
	return q
}

// Text queries for elements containing the given text.
func Text(value string) Query {
	return Query{By: ByText, Value: value}
}

// ExactText queries for elements whose text equals the given value.
func ExactText(value string) Query {
	return Query{By: ByExactText, Value: value}
}

// Role queries by ARIA role and exact accessible name.
func Role(role, name string) Query {
	return Query{By: ByRole, Role: role, Value: name}
}

// Selector queries by CSS selector.
func Selector(css string) Query {
	return Query{By: BySelector, Value: css}
}

// Element is a located element handle. Lookups are lazy: methods report
// lookup failure when no element matches within the query's bound.
type Element interface {
	// WaitAttached waits until the element exists in the DOM. File inputs
	// are frequently present but hidden, so attachment is the right
	// readiness signal for them.
	WaitAttached(ctx context.Context) error

	// WaitVisible waits until the element is visible.
	WaitVisible(ctx context.Context) error

	// Click clicks the element.
	Click(ctx context.Context) error

	// Fill replaces the element's value with the given text.
	Fill(ctx context.Context, text string) error

	// SetFiles attaches the given local files to a file-input element.
	SetFiles(ctx context.Context, paths []string) error
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitNetworkIdle waits for network quiescence after load.
	WaitNetworkIdle bool

	// Timeout bounds the navigation. Zero means implementation default.
	Timeout time.Duration
}

// Page is a single browser tab under automation.
type Page interface {
	// URL returns the page's current address.
	URL() string

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)

	// Navigate loads the given address.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error

	// Find locates an element; the lookup is evaluated by the returned
	// Element's methods.
	Find(q Query) Element

	// PressKey sends a single key press to the page.
	PressKey(ctx context.Context, key string) error

	// TypeText injects text into the focused element keystroke by
	// keystroke.
	TypeText(ctx context.Context, text string) error
}
