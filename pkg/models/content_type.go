package models

// ContentType configures generation, grouping, and validation for one
// kind of content the create agent can produce.
type ContentType struct {
	Slug                string         `json:"slug" yaml:"slug"`
	DisplayName         string         `json:"display_name" yaml:"display_name"`
	Category            string         `json:"category" yaml:"category"`
	Description         string         `json:"description,omitempty" yaml:"description,omitempty"`
	IsBuiltin           bool           `json:"is_builtin" yaml:"-"`
	WritingInstructions string         `json:"writing_instructions,omitempty" yaml:"writing_instructions,omitempty"`
	LengthGuidance      string         `json:"length_guidance,omitempty" yaml:"length_guidance,omitempty"`
	UIConfig            map[string]any `json:"ui_config,omitempty" yaml:"ui_config,omitempty"`
}
