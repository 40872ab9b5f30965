package offset

import (
	e "emupatch/error"
	"emupatch/pkg/logflags"
	"errors"
	"fmt"
	"sort"
)

// Registry maps version identifiers to build descriptions. Adding a build
// is a matter of registering one more Version; nothing else changes.
type Registry struct {
	versions map[string]Version
}

func NewRegistry() *Registry {
	return &Registry{versions: make(map[string]Version)}
}

// Register adds v after validating it.
func (r *Registry) Register(v Version) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, dup := r.versions[v.ID]; dup {
		return fmt.Errorf("version %s registered twice", v.ID)
	}
	r.versions[v.ID] = v
	return nil
}

// MustRegister registers compiled-in tables and panics on a defect.
func (r *Registry) MustRegister(versions ...Version) *Registry {
	for _, v := range versions {
		if err := r.Register(v); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Lookup(id string) (Version, error) {
	v, ok := r.versions[id]
	if !ok {
		return Version{}, fmt.Errorf("%q: %w", id, e.UnknownVersion)
	}
	return v, nil
}

// Versions returns all registered builds sorted by id.
func (r *Registry) Versions() []Version {
	out := make([]Version, 0, len(r.versions))
	for _, v := range r.versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve resolves the build registered as id.
func (r *Registry) Resolve(mem Reader, id string) (*Table, error) {
	logger := logflags.ResolverLogger()

	v, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	t, err := Resolve(mem, v)
	if err != nil {
		logger.Warnf("resolve %s failed: %v", id, err)
		return nil, err
	}

	logger.Infof("resolved %s (%s) at base 0x%08x, %d fields", v.ID, v.Title, t.Base(), len(t.fields))
	return t, nil
}

// Detect tries every registered build and returns the table of the first
// one whose signature matches.
func (r *Registry) Detect(mem Reader) (*Table, error) {
	logger := logflags.ResolverLogger()

	var errs []error
	for _, v := range r.Versions() {
		t, err := Resolve(mem, v)
		if err == nil {
			logger.Infof("detected %s (%s)", v.ID, v.Title)
			return t, nil
		}
		logger.Debugf("%s does not match: %v", v.ID, err)
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("no registered build matches: %w", errors.Join(append(errs, e.VersionMismatch)...))
}
