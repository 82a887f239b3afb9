package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type resume struct {
	Name       string       `yaml:"name" description:"Full name of the candidate"`
	Years      int          `yaml:"years"`
	Skills     []string     `yaml:"skills"`
	Experience []experience `yaml:"experience"`
	Contact    *contact     `yaml:"contact"`
	internal   string
	Ignored    string `yaml:"-"`
}

type experience struct {
	Company string `yaml:"company"`
	Current bool   `yaml:"current"`
}

type contact struct {
	Email string `yaml:"email"`
}

type score struct {
	Value float64 `json:"value"`
	Label string
}

func TestInstructions_YAML(t *testing.T) {
	got := Instructions[resume]()

	assert.Contains(t, got, "Respond with YAML")
	assert.Contains(t, got, "```yaml\n")
	assert.Contains(t, got, "name: \"\"\n")
	assert.Contains(t, got, "years: 0\n")
	assert.Contains(t, got, "skills: [] # list of string\n")
	assert.Contains(t, got, "experience:\n  -\n    company: \"\"\n    current: false\n")
	assert.Contains(t, got, "contact:\n  email: \"\"\n")
	assert.Contains(t, got, "- name: Full name of the candidate\n")
	assert.Contains(t, got, "- experience[].company: string\n")
	assert.Contains(t, got, "- contact.email: string\n")
	assert.NotContains(t, got, "ignored")
	assert.NotContains(t, got, "internal")
}

func TestInstructions_JSON(t *testing.T) {
	got := Instructions[score]()

	assert.Contains(t, got, "Respond with JSON")
	assert.Contains(t, got, "```json\n{\n  \"value\": 0.0,\n  \"Label\": \"\"\n}\n```")
}

func TestInstructions_NonStruct(t *testing.T) {
	assert.Equal(t, "Respond with a single int value and nothing else.", Instructions[int]())
	assert.Contains(t, Instructions[*score](), "Respond with JSON")
}
