package types

// Rule is one regex substitution in the renaming pipeline. Rules run in
// the order they are configured.
type Rule struct {
	Name        string `yaml:"name" json:"name"`
	Pattern     string `yaml:"pattern" json:"pattern"`                             // regex source, applied globally
	Replace     string `yaml:"replace" json:"replace"`                             // may contain {{DATE}}
	Active      bool   `yaml:"active" json:"active"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DatePlaceholder is replaced with a formatted timestamp in Replace.
const DatePlaceholder = "{{DATE}}"
