package routerfakes

import (
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/openmerce/authflow/navigator"
)

var _ navigator.Router = (*FakeRouter)(nil)

// FakeRouter records navigation commands and lets tests script the current
// route and navigation failures.
type FakeRouter struct {
	lock sync.Mutex

	current     navigator.Route
	navigateErr error

	Calls []NavigateCall
}

type NavigateCall struct {
	Path  string
	Query url.Values
}

func NewFakeRouter() *FakeRouter {
	return &FakeRouter{current: navigator.Route{Path: "/"}}
}

// SetCurrentRoute scripts what CurrentRoute reports next.
func (r *FakeRouter) SetCurrentRoute(path string, query url.Values) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.current = navigator.Route{Path: path, Query: query}
}

// FailNavigation makes every subsequent Navigate return an error.
func (r *FakeRouter) FailNavigation(message string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.navigateErr = errors.New(message)
}

func (r *FakeRouter) CurrentRoute() navigator.Route {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.current
}

func (r *FakeRouter) Navigate(path string, query url.Values) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.navigateErr != nil {
		return r.navigateErr
	}
	r.Calls = append(r.Calls, NavigateCall{Path: path, Query: query})
	r.current = navigator.Route{Path: path, Query: query}
	return nil
}

// NavigateCalls returns a snapshot of the recorded commands.
func (r *FakeRouter) NavigateCalls() []NavigateCall {
	r.lock.Lock()
	defer r.lock.Unlock()
	calls := make([]NavigateCall, len(r.Calls))
	copy(calls, r.Calls)
	return calls
}

var _ navigator.SessionClearer = (*FakeSessionClearer)(nil)

// FakeSessionClearer counts Clear calls.
type FakeSessionClearer struct {
	lock   sync.Mutex
	clears int
}

func NewFakeSessionClearer() *FakeSessionClearer {
	return &FakeSessionClearer{}
}

func (c *FakeSessionClearer) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.clears++
}

func (c *FakeSessionClearer) ClearCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.clears
}
