// Package hooks runs externally registered listeners over each finalized
// node, after pruning and configuration and before rendering.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
	"git.home.luguber.info/inful/autoapi/internal/logfields"
)

// HostContext is what a listener may know about the run it is part of.
type HostContext struct {
	RunID string
	Root  string
	// OutputRoot is the directory pages of this root are written to.
	OutputRoot string
	// Revision is the source revision, empty when unknown.
	Revision string
	Logger   *slog.Logger
}

// Listener mutates a node in place. A returned error or a panic discards
// every change made to the node by the listeners of this dispatch.
type Listener func(ctx context.Context, n *apinode.Node, host *HostContext) error

type entry struct {
	name string
	fn   Listener
}

// Dispatcher holds listeners in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []entry
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends a listener. Names identify the listener in errors.
func (d *Dispatcher) Register(name string, fn Listener) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil listener %q", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.listeners {
		if e.name == name {
			return fmt.Errorf("listener %s already registered", name)
		}
	}
	d.listeners = append(d.listeners, entry{name: name, fn: fn})
	return nil
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Dispatch visits every node of the tree, parents before children, and runs
// each listener on it once. A failing listener is reported as a hook error
// for that node: the node is restored to its state before the first listener
// ran, the remaining listeners are skipped for it, and the walk continues.
func (d *Dispatcher) Dispatch(ctx context.Context, root *apinode.Node, host *HostContext) []error {
	d.mu.RLock()
	listeners := append([]entry(nil), d.listeners...)
	d.mu.RUnlock()
	if len(listeners) == 0 || root == nil {
		return nil
	}
	if host.Logger == nil {
		host.Logger = slog.Default()
	}

	var problems []error
	var visit func(n *apinode.Node)
	visit = func(n *apinode.Node) {
		if ctx.Err() != nil {
			return
		}
		if err := d.runNode(ctx, listeners, n, host); err != nil {
			problems = append(problems, err)
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return problems
}

func (d *Dispatcher) runNode(ctx context.Context, listeners []entry, n *apinode.Node, host *HostContext) error {
	snap := n.Snapshot()
	for _, l := range listeners {
		if err := call(ctx, l, n, host); err != nil {
			n.Restore(snap)
			herr := errs.HookError(n.QualifiedPath, err).WithContext("listener", l.name)
			host.Logger.Warn("Node listener failed, rendering pre-hook state",
				logfields.Node(n.QualifiedPath),
				slog.String("listener", l.name),
				logfields.Error(err))
			return herr
		}
	}
	return nil
}

func call(ctx context.Context, l entry, n *apinode.Node, host *HostContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return l.fn(ctx, n, host)
}
