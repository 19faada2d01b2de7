package build

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"xtc/config"
	"xtc/program"
	"xtc/target"
)

// Values is a struct that holds variables we make available for output name
// template expansion.
type Values struct {
	Context string
	Program string
	Backend string
	Switch  string
	Ext     string
	Entry   []string
}

func expandTemplate(p *program.Program, b *target.Backend, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context: string(name),
		Program: p.Name,
		Backend: b.Name,
		Switch:  b.Switch,
		Ext:     b.Extension,
		Entry:   p.Entry,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
