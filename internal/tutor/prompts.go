package tutor

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const defaultTargetLanguage = "the language you are learning"

type promptConfig struct {
	Instruction string `yaml:"instruction"`
	Task        string `yaml:"task"`
}

type promptFile struct {
	Router        promptConfig `yaml:"router"`
	Translation   promptConfig `yaml:"translation"`
	Vocabulary    promptConfig `yaml:"vocabulary"`
	General       promptConfig `yaml:"general"`
	Phrase        promptConfig `yaml:"phrase"`
	Pronunciation promptConfig `yaml:"pronunciation"`
	Title         promptConfig `yaml:"title"`
	Decline       string       `yaml:"decline"`
	Unavailable   string       `yaml:"unavailable"`
}

// Prompt is a compiled instruction/task pair.
type Prompt struct {
	instruction *template.Template
	task        *template.Template
}

// Prompts holds every prompt the service sends, parsed once at startup.
type Prompts struct {
	Router        Prompt
	Translation   Prompt
	Vocabulary    Prompt
	General       Prompt
	Phrase        Prompt
	Pronunciation Prompt
	Title         Prompt

	decline     *template.Template
	unavailable string
}

// PromptData is the template input shared by all prompts.
type PromptData struct {
	TargetLanguage string
	Context        string
	Message        string
	KnownWords     []KnownWord
}

func LoadPrompts() (*Prompts, error) {
	return parsePrompts(promptsYAML)
}

func parsePrompts(raw []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	p := &Prompts{unavailable: f.Unavailable}
	specs := []struct {
		name string
		cfg  promptConfig
		dst  *Prompt
	}{
		{"router", f.Router, &p.Router},
		{"translation", f.Translation, &p.Translation},
		{"vocabulary", f.Vocabulary, &p.Vocabulary},
		{"general", f.General, &p.General},
		{"phrase", f.Phrase, &p.Phrase},
		{"pronunciation", f.Pronunciation, &p.Pronunciation},
		{"title", f.Title, &p.Title},
	}
	for _, s := range specs {
		if s.cfg.Instruction == "" || s.cfg.Task == "" {
			return nil, fmt.Errorf("prompt %q needs both instruction and task", s.name)
		}
		instr, err := template.New(s.name + ".instruction").Parse(s.cfg.Instruction)
		if err != nil {
			return nil, fmt.Errorf("prompt %q instruction: %w", s.name, err)
		}
		task, err := template.New(s.name + ".task").Parse(s.cfg.Task)
		if err != nil {
			return nil, fmt.Errorf("prompt %q task: %w", s.name, err)
		}
		*s.dst = Prompt{instruction: instr, task: task}
	}

	decline, err := template.New("decline").Parse(f.Decline)
	if err != nil {
		return nil, fmt.Errorf("decline message: %w", err)
	}
	p.decline = decline
	if p.unavailable == "" {
		return nil, fmt.Errorf("unavailable message is required")
	}
	return p, nil
}

// Request renders the prompt into a generation request.
func (p Prompt) Request(data PromptData, history []HistoryEntry, schema *Schema) (GenerationRequest, error) {
	data = data.withDefaults()
	instr, err := render(p.instruction, data)
	if err != nil {
		return GenerationRequest{}, err
	}
	task, err := render(p.task, data)
	if err != nil {
		return GenerationRequest{}, err
	}
	return GenerationRequest{Instruction: instr, History: history, Prompt: task, Schema: schema}, nil
}

// Decline is the redirect shown for out-of-domain messages.
func (p *Prompts) Decline(profile Profile) string {
	out, err := render(p.decline, PromptData{TargetLanguage: profile.TargetLanguage}.withDefaults())
	if err != nil {
		return "I can only help with language learning."
	}
	return out
}

// Unavailable is the user-safe message for failed generations.
func (p *Prompts) Unavailable() string { return p.unavailable }

func (d PromptData) withDefaults() PromptData {
	if d.TargetLanguage == "" {
		d.TargetLanguage = defaultTargetLanguage
	}
	if d.Context == "" {
		d.Context = "not provided"
	}
	return d
}

func render(t *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
