package skills

// SkillMetadata holds the YAML front matter from a SKILL.md file.
// This is what discovery loads; the markdown body stays on disk until
// the skill is activated.
type SkillMetadata struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Requires    string            `yaml:"requires,omitempty" json:"requires,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Skill is a fully loaded skill: metadata plus the markdown
// instructions and the directory it was loaded from.
type Skill struct {
	SkillMetadata
	Instructions string `json:"instructions"`
	Path         string `json:"path"`
}
