// Package session drives a set of features against one resolved build.
//
// All memory traffic of the features happens in Update, which is meant to
// be called once per frame from a single goroutine (Run does exactly
// that). Other goroutines only flip feature flags or run one-off accesses
// through Do; both are serialized with Update.
package session

import (
	"context"
	e "emupatch/error"
	"emupatch/pkg/customcode"
	"emupatch/pkg/logflags"
	"emupatch/pkg/offset"
	"emupatch/pkg/ram"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Feature is a named group of patches switched on and off together.
type Feature struct {
	Name        string
	Description string
	Patches     []ram.Patch
	Inject      *Injection
}

// Injection is a call site diverted into a trampoline. The staged block is
// written behind the trampoline before the call site is redirected.
type Injection struct {
	Trampoline *customcode.Trampoline
	Redirect   ram.Patch
	Stage      []byte
}

type Status struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Wanted      bool   `json:"wanted"`
	Applied     bool   `json:"applied"`
	Error       string `json:"error,omitempty"`
}

type feature struct {
	Feature
	wanted  bool
	applied bool
	err     error
}

type Session struct {
	mu       sync.Mutex
	ram      *ram.Ram
	table    *offset.Table
	features []*feature
	byName   map[string]*feature
	logger   logflags.Logger
}

// New returns a session with every feature disabled.
func New(r *ram.Ram, table *offset.Table, features ...Feature) (*Session, error) {
	s := &Session{
		ram:    r,
		table:  table,
		byName: make(map[string]*feature, len(features)),
		logger: logflags.SessionLogger().With("version", table.Version()),
	}
	for _, f := range features {
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("session: duplicate feature %q", f.Name)
		}
		st := &feature{Feature: f}
		s.features = append(s.features, st)
		s.byName[f.Name] = st
	}
	return s, nil
}

func (s *Session) Table() *offset.Table {
	return s.table
}

// Verify rechecks the build signature under the session lock.
func (s *Session) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Verify(s.ram)
}

// Toggle records whether a feature should be on. Memory is only touched by
// the next Update.
func (s *Session) Toggle(name string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, e.FeatureNotFound)
	}
	if f.wanted != on {
		s.logger.Infof("feature %s -> %v", name, on)
	}
	f.wanted = on
	return nil
}

// Adopt marks every feature whose sites already hold their enabled bytes
// as wanted, so a new session keeps what an earlier one switched on.
// Features that cannot be read are left disabled and reported.
func (s *Session) Adopt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range s.features {
		sites := f.sites()
		if len(sites) == 0 {
			continue
		}
		on, err := s.ram.State(sites...)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %s: %w", f.Name, err))
			continue
		}
		if on {
			s.logger.Infof("feature %s is already on", f.Name)
			f.wanted, f.applied = true, true
		}
	}
	return errors.Join(errs...)
}

// UpdateOne brings only the named feature into its wanted state. It
// returns transient failures too, as there is no next frame to retry in.
func (s *Session) UpdateOne(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, e.FeatureNotFound)
	}
	err := s.apply(f)
	f.err = err
	f.applied = err == nil && f.wanted
	if err != nil {
		return fmt.Errorf("feature %s: %w", f.Name, err)
	}
	return nil
}

// Update brings every feature into its wanted state. Transient access
// failures are logged and left for the next call; other failures are
// returned, including a frame where both kinds occur.
func (s *Session) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range s.features {
		err := s.apply(f)
		f.err = err
		f.applied = err == nil && f.wanted
		switch {
		case err == nil:
		case e.IsTransient(err):
			s.logger.Debugf("feature %s: skipped frame: %v", f.Name, err)
		default:
			errs = append(errs, fmt.Errorf("feature %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// sites lists every patch that is in its enabled state while f is on.
func (f *feature) sites() []ram.Patch {
	if f.Inject == nil {
		return f.Patches
	}
	return append([]ram.Patch{f.Inject.Redirect}, f.Patches...)
}

func (s *Session) apply(f *feature) error {
	in := f.Inject
	if !f.wanted {
		// Undo the redirect before anything it depends on.
		var errs []error
		if in != nil {
			errs = append(errs, s.ram.WriteConditional(false, in.Redirect))
		}
		errs = append(errs, s.ram.WriteConditional(false, f.Patches...))
		return errors.Join(errs...)
	}

	if in != nil {
		_, installed, err := in.Trampoline.Ensure(s.ram)
		if err != nil {
			return err
		}
		if installed {
			s.logger.Debugf("feature %s: trampoline installed at 0x%08x", f.Name, in.Trampoline.Site())
		}
		if err := in.Trampoline.Stage(s.ram, in.Stage); err != nil {
			return err
		}
		if err := s.ram.WriteConditional(true, in.Redirect); err != nil {
			return err
		}
	}
	return s.ram.WriteConditional(true, f.Patches...)
}

// Run calls Update every interval until ctx is done. Errors other than
// transient ones stop the loop.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Update(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status reports every feature in definition order.
func (s *Session) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.features))
	for _, f := range s.features {
		st := Status{
			Name:        f.Name,
			Description: f.Description,
			Wanted:      f.wanted,
			Applied:     f.applied,
		}
		if f.err != nil {
			st.Error = f.err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Do runs fn with exclusive access to guest memory.
func (s *Session) Do(fn func(r *ram.Ram, t *offset.Table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ram, s.table)
}
