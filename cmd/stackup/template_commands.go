package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/varekai/stackup/pkg/template"
)

type TemplateFlags struct {
	Output   string
	Force    bool
	Services []string // name:type pairs
}

// TemplateInit writes a starter stack.toml with placeholder credentials.
func (c *command) TemplateInit(f TemplateFlags) error {
	defs, err := parseServiceDefs(f.Services)
	if err != nil {
		return err
	}

	generator := template.NewGenerator()
	content, err := generator.Starter(defs)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	outputPath := f.Output
	if outputPath == "" {
		outputPath = "stack.toml"
	}
	if _, err := os.Stat(outputPath); err == nil && !f.Force {
		return fmt.Errorf("config file '%s' already exists (use --force to overwrite)", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(c.out, "Starter config created: %s\n", outputPath)
	_, _ = fmt.Fprintf(c.out, "Fill in the <PLACEHOLDER> values, then run: stackup up --config=%s\n", outputPath)
	return nil
}

func parseServiceDefs(pairs []string) ([]template.ServiceDef, error) {
	if len(pairs) == 0 {
		return []template.ServiceDef{
			{Name: "db", Type: template.TypeDatabase},
			{Name: "api", Type: template.TypeAPI},
		}, nil
	}
	defs := make([]template.ServiceDef, 0, len(pairs))
	for _, p := range pairs {
		name, typ, found := strings.Cut(p, ":")
		if !found || name == "" || typ == "" {
			return nil, fmt.Errorf("invalid service definition %q, expected name:type", p)
		}
		defs = append(defs, template.ServiceDef{Name: name, Type: template.TemplateType(typ)})
	}
	return defs, nil
}
