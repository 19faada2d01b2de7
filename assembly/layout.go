package assembly

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"xtc/target"
)

const (
	// entry unit of multi file backends and the only unit of single file
	// ones, extension is added
	EntryUnitName = "index"
	// used for multi file backends without unit template
	DefaultUnitTemplate = `{{ .Class | replace "." "/" }}{{ .Ext }}`
)

// UnitValues is a struct that holds variables we make available for unit
// template expansion.
type UnitValues struct {
	Class   string
	Backend string
	Ext     string
}

// layout splits assembled text into units. Single file backends get
// everything in one unit. Multi file backends get entry unit with fragments
// and one unit per class with its method bodies.
func layout(b *target.Backend, head []string, bodies []expandedBody, tail []string) ([]Unit, error) {
	entry := EntryUnitName + b.Extension

	if b.SingleFile {
		texts := make([]string, 0, len(bodies))
		for _, body := range bodies {
			texts = append(texts, body.text)
		}
		return []Unit{{Name: entry, Text: joinTexts(head, texts, tail)}}, nil
	}

	src := b.UnitTemplate
	if len(strings.TrimSpace(src)) == 0 {
		src = DefaultUnitTemplate
	}
	tmpl, err := template.New("unit_template").Funcs(sprig.FuncMap()).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("unable to parse unit template: %w", err)
	}

	units := []Unit{{Name: entry, Text: joinTexts(head, tail)}}
	index := map[string]int{entry: 0}
	byClass := make(map[string]int)
	for _, body := range bodies {
		if i, ok := byClass[body.class]; ok {
			units[i].Text = joinTexts([]string{units[i].Text, body.text})
			continue
		}
		name, err := unitName(tmpl, UnitValues{Class: body.class, Backend: b.Name, Ext: b.Extension})
		if err != nil {
			return nil, err
		}
		if i, ok := index[name]; ok {
			return nil, fmt.Errorf("class %s: unit name %q is already used by unit #%d", body.class, name, i)
		}
		index[name] = len(units)
		byClass[body.class] = len(units)
		units = append(units, Unit{Name: name, Text: body.text})
	}
	return units, nil
}

func unitName(tmpl *template.Template, values UnitValues) (string, error) {
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("class %s: unable to name unit: %w", values.Class, err)
	}
	name := strings.TrimSpace(buf.String())
	if len(name) == 0 {
		return "", fmt.Errorf("class %s: unit template produced empty name", values.Class)
	}
	return name, nil
}
