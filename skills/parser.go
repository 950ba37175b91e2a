// Package skills loads assistant skills defined via the SKILL.md
// format: a YAML front matter block describing the skill, followed by
// markdown instructions injected into the chat system prompt when the
// skill is activated.
package skills

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
	frontMatterDelim  = "---"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ParseSkillFile parses a SKILL.md file at the given path into a Skill.
func ParseSkillFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from skill discovery
	if err != nil {
		return nil, fmt.Errorf("reading skill file: %w", err)
	}

	meta, body, err := ParseSkillContent(data)
	if err != nil {
		return nil, fmt.Errorf("parsing skill file %s: %w", path, err)
	}

	return &Skill{
		SkillMetadata: *meta,
		Instructions:  body,
		Path:          filepath.Dir(path),
	}, nil
}

// ParseSkillMetadata parses only the YAML front matter from a SKILL.md
// file. Discovery uses this to avoid loading bodies it may never need.
func ParseSkillMetadata(path string) (*SkillMetadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from skill discovery
	if err != nil {
		return nil, fmt.Errorf("reading skill file: %w", err)
	}

	meta, _, err := ParseSkillContent(data)
	if err != nil {
		return nil, fmt.Errorf("parsing skill metadata %s: %w", path, err)
	}

	return meta, nil
}

// ParseSkillContent parses SKILL.md content from bytes, returning the
// validated metadata and the markdown body.
func ParseSkillContent(content []byte) (*SkillMetadata, string, error) {
	frontMatter, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, "", err
	}

	var meta SkillMetadata
	if err := yaml.Unmarshal(frontMatter, &meta); err != nil {
		return nil, "", fmt.Errorf("invalid YAML front matter: %w", err)
	}

	if err := validateMetadata(&meta); err != nil {
		return nil, "", err
	}

	return &meta, body, nil
}

// splitFrontMatter splits SKILL.md content into front matter YAML bytes
// and body string. The expected format is: ---\n<yaml>\n---\n<body>
func splitFrontMatter(content []byte) (fm []byte, body string, err error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, "", fmt.Errorf("empty skill content")
	}
	if !bytes.HasPrefix(trimmed, []byte(frontMatterDelim)) {
		return nil, "", fmt.Errorf("missing front matter: content must start with %s", frontMatterDelim)
	}

	lines := bytes.SplitAfter(trimmed, []byte("\n"))
	fmStart := len(lines[0])
	fmLen := 0
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimRight(lines[i], "\r\n"), []byte(frontMatterDelim)) {
			fm = trimmed[fmStart : fmStart+fmLen]
			body = strings.TrimSpace(string(bytes.Join(lines[i+1:], nil)))
			return fm, body, nil
		}
		fmLen += len(lines[i])
	}

	return nil, "", fmt.Errorf("missing closing front matter delimiter %s", frontMatterDelim)
}

// validateMetadata checks required fields and constraints.
func validateMetadata(meta *SkillMetadata) error {
	if meta.Name == "" {
		return fmt.Errorf("skill name is required")
	}
	if !nameRegex.MatchString(meta.Name) {
		return fmt.Errorf(
			"invalid skill name %q: must be kebab-case (lowercase alphanumeric and hyphens)",
			meta.Name,
		)
	}
	if len(meta.Name) > maxNameLen {
		return fmt.Errorf(
			"skill name %q exceeds maximum length of %d characters",
			meta.Name, maxNameLen,
		)
	}
	if meta.Description == "" {
		return fmt.Errorf("skill description is required")
	}
	if len(meta.Description) > maxDescriptionLen {
		return fmt.Errorf(
			"skill description exceeds maximum length of %d characters",
			maxDescriptionLen,
		)
	}
	if meta.Requires != "" {
		if _, err := semver.NewConstraint(meta.Requires); err != nil {
			return fmt.Errorf("invalid requires constraint %q: %w", meta.Requires, err)
		}
	}
	return nil
}
