package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

// skillMDFile is the filename expected in every skill directory.
const skillMDFile = "SKILL.md"

// ErrSkillNotFound is returned when a skill name is not registered.
var ErrSkillNotFound = errors.New("skill not found")

// Registry holds discovered skills keyed by name. Skills whose
// `requires` constraint is not satisfied by the running version are
// excluded at discovery.
type Registry struct {
	mu      sync.RWMutex
	version *semver.Version
	skills  map[string]*registeredSkill
}

type registeredSkill struct {
	metadata SkillMetadata
	path     string
}

// NewRegistry creates an empty registry. serverVersion gates skills
// with a `requires` constraint; an unparseable version (such as a dev
// build) disables the gate and admits everything.
func NewRegistry(serverVersion string) *Registry {
	r := &Registry{skills: make(map[string]*registeredSkill)}
	if v, err := semver.NewVersion(serverVersion); err == nil {
		r.version = v
	} else {
		logger.Debug("skills: version gate disabled", "version", serverVersion)
	}
	return r
}

// Discover walks dir looking for SKILL.md files and registers each
// skill found. Duplicates are ignored with a warning (first wins). A
// missing directory is not an error; the registry just stays empty.
func (r *Registry) Discover(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving skills directory: %w", err)
	}
	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		logger.Debug("skills: directory does not exist", "dir", absDir)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != skillMDFile {
			return nil
		}

		meta, parseErr := ParseSkillMetadata(path)
		if parseErr != nil {
			return fmt.Errorf("parsing %s: %w", path, parseErr)
		}

		if !r.versionSatisfied(meta) {
			logger.Warn("skills: skill requires a different version; skipping",
				"skill", meta.Name, "requires", meta.Requires)
			return nil
		}

		if _, exists := r.skills[meta.Name]; exists {
			logger.Warn("skills: duplicate skill ignored (already registered)", "skill", meta.Name)
			return nil
		}

		r.skills[meta.Name] = &registeredSkill{
			metadata: *meta,
			path:     filepath.Dir(path),
		}
		return nil
	})
}

// versionSatisfied reports whether the skill's requires constraint
// admits the running version. Constraint syntax was validated at parse
// time.
func (r *Registry) versionSatisfied(meta *SkillMetadata) bool {
	if meta.Requires == "" || r.version == nil {
		return true
	}
	c, err := semver.NewConstraint(meta.Requires)
	if err != nil {
		return false
	}
	return c.Check(r.version)
}

// List returns metadata for all registered skills, sorted by name.
func (r *Registry) List() []SkillMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SkillMetadata, 0, len(r.skills))
	for _, rs := range r.skills {
		result = append(result, rs.metadata)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Get returns a skill's metadata by name.
func (r *Registry) Get(name string) (SkillMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, exists := r.skills[name]
	if !exists {
		return SkillMetadata{}, false
	}
	return rs.metadata, true
}

// Has reports whether a skill with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.skills[name]
	return exists
}

// Count returns the number of registered skills.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// Load returns the full skill by name, reading instructions from disk
// on demand.
func (r *Registry) Load(name string) (*Skill, error) {
	r.mu.RLock()
	rs, exists := r.skills[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, name)
	}

	skill, err := ParseSkillFile(filepath.Join(rs.path, skillMDFile))
	if err != nil {
		return nil, fmt.Errorf("loading skill %q: %w", name, err)
	}
	skill.Path = rs.path
	return skill, nil
}
