package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTemplates []byte

// Templates is the on-disk prompt file. WithBrandModel is a text/template
// that receives .Brand and .Model.
type Templates struct {
	Version        string `yaml:"version"`
	WithBrandModel string `yaml:"withBrandModel"`
	Generic        string `yaml:"generic"`
	Footer         string `yaml:"footer"`
}

type Builder struct {
	version        string
	withBrandModel *template.Template
	generic        string
	footer         string
}

type vehicle struct {
	Brand string
	Model string
}

// Load reads templates from path, or the embedded defaults when path is empty.
func Load(path string) (*Builder, error) {
	if path == "" {
		return Parse(defaultTemplates)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt templates: %w", err)
	}
	return Parse(data)
}

func Default() *Builder {
	b, err := Parse(defaultTemplates)
	if err != nil {
		panic(err)
	}
	return b
}

func Parse(data []byte) (*Builder, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	if strings.TrimSpace(t.WithBrandModel) == "" || strings.TrimSpace(t.Generic) == "" {
		return nil, errors.New("prompt templates require withBrandModel and generic")
	}

	tmpl, err := template.New("withBrandModel").Option("missingkey=error").Parse(t.WithBrandModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse withBrandModel template: %w", err)
	}

	return &Builder{
		version:        t.Version,
		withBrandModel: tmpl,
		generic:        strings.TrimSpace(t.Generic),
		footer:         strings.TrimSpace(t.Footer),
	}, nil
}

func (b *Builder) Version() string {
	return b.version
}

// Build selects the brand/model header only when both values are non-empty
// and appends the common footer.
func (b *Builder) Build(brand, model string) (string, error) {
	header := b.generic

	if brand != "" && model != "" {
		var sb strings.Builder
		if err := b.withBrandModel.Execute(&sb, vehicle{Brand: brand, Model: model}); err != nil {
			return "", fmt.Errorf("failed to render prompt: %w", err)
		}
		header = strings.TrimSpace(sb.String())
	}

	if b.footer == "" {
		return header, nil
	}
	return header + "\n\n" + b.footer, nil
}
