package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// reservedKeys are top-level keywords that never name a job.
var reservedKeys = map[string]bool{
	"include":   true,
	"variables": true,
	"stages":    true,
	"workflow":  true,
	"default":   true,
}

// globalKeys are deprecated top-level defaults, also not jobs.
var globalKeys = map[string]bool{
	"image":         true,
	"services":      true,
	"before_script": true,
	"after_script":  true,
	"cache":         true,
}

// defaultStages applies when the document declares no stages.
var defaultStages = []string{".pre", "build", "test", "deploy", ".post"}

type CIRule struct {
	If   string `yaml:"if"`
	When string `yaml:"when"`
}

type CIInclude struct {
	// remote, project, template, local or component
	Kind  string
	Value string
}

// CIJob is the subset of a job definition the checks look at.
type CIJob struct {
	Name        string
	Stage       string
	Image       string
	Services    []string
	Scripts     []string
	Environment string
	Tags        []string
	Variables   map[string]string

	When    string
	HasWhen bool
	If      string
	HasIf   bool
	Rules   []CIRule
	// rules key present, even if empty
	HasRules     bool
	HasOnly      bool
	HasExcept    bool
	Except       []string
	HasArtifacts bool
}

// CIDocument is a parsed .gitlab-ci.yml keeping the job order of the file.
type CIDocument struct {
	Raw       string
	Stages    []string
	Includes  []CIInclude
	Variables map[string]string
	Image     string
	Services  []string
	// before_script / after_script of default and the top level
	Scripts []string
	Jobs    []*CIJob
}

type rawJob struct {
	Stage        string                 `yaml:"stage"`
	Image        yaml.Node              `yaml:"image"`
	Services     yaml.Node              `yaml:"services"`
	BeforeScript yaml.Node              `yaml:"before_script"`
	Script       yaml.Node              `yaml:"script"`
	AfterScript  yaml.Node              `yaml:"after_script"`
	Environment  yaml.Node              `yaml:"environment"`
	When         yaml.Node              `yaml:"when"`
	If           yaml.Node              `yaml:"if"`
	Rules        yaml.Node              `yaml:"rules"`
	Only         yaml.Node              `yaml:"only"`
	Except       yaml.Node              `yaml:"except"`
	Tags         []string               `yaml:"tags"`
	Variables    map[string]interface{} `yaml:"variables"`
	Artifacts    yaml.Node              `yaml:"artifacts"`
}

func present(n yaml.Node) bool {
	return n.Kind != 0 && !(n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// scalars flattens a scalar or (nested) sequence of scalars.
func scalars(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, c := range n.Content {
			out = append(out, scalars(c)...)
		}
		return out
	case yaml.AliasNode:
		if n.Alias != nil {
			return scalars(n.Alias)
		}
	}
	return nil
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// nameOf reads `key: value` or `key: {name: value}` forms (image, environment, services).
func nameOf(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.MappingNode:
		if v := mappingValue(n, "name"); v != nil {
			return v.Value
		}
	}
	return ""
}

func namesOf(n *yaml.Node) []string {
	if n.Kind != yaml.SequenceNode {
		if name := nameOf(n); name != "" {
			return []string{name}
		}
		return nil
	}

	var out []string
	for _, c := range n.Content {
		if name := nameOf(c); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func stringMap(in map[string]interface{}) map[string]string {
	out := map[string]string{}
	for k, v := range in {
		switch val := v.(type) {
		case map[string]interface{}:
			// {value: ..., description: ...}
			if inner, ok := val["value"]; ok {
				out[k] = fmt.Sprint(inner)
			}
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func parseIncludes(n *yaml.Node) []CIInclude {
	var out []CIInclude

	add := func(item *yaml.Node) {
		switch item.Kind {
		case yaml.ScalarNode:
			kind := "local"
			if strings.HasPrefix(item.Value, "http://") || strings.HasPrefix(item.Value, "https://") {
				kind = "remote"
			}
			out = append(out, CIInclude{Kind: kind, Value: item.Value})
		case yaml.MappingNode:
			for _, kind := range []string{"remote", "project", "template", "local", "component"} {
				if v := mappingValue(item, kind); v != nil {
					out = append(out, CIInclude{Kind: kind, Value: v.Value})
				}
			}
		}
	}

	if n.Kind == yaml.SequenceNode {
		for _, c := range n.Content {
			add(c)
		}
	} else {
		add(n)
	}
	return out
}

func parseJob(name string, n *yaml.Node) (*CIJob, error) {
	var rj rawJob
	if err := n.Decode(&rj); err != nil {
		return nil, err
	}

	job := &CIJob{
		Name:         name,
		Stage:        rj.Stage,
		Image:        nameOf(&rj.Image),
		Services:     namesOf(&rj.Services),
		Environment:  nameOf(&rj.Environment),
		Tags:         rj.Tags,
		Variables:    stringMap(rj.Variables),
		HasWhen:      present(rj.When),
		When:         rj.When.Value,
		HasIf:        present(rj.If),
		If:           rj.If.Value,
		HasRules:     present(rj.Rules),
		HasOnly:      present(rj.Only),
		HasExcept:    present(rj.Except),
		HasArtifacts: present(rj.Artifacts),
	}

	// GitLab puts jobs without a stage into test
	if job.Stage == "" {
		job.Stage = "test"
	}

	job.Scripts = append(job.Scripts, scalars(&rj.BeforeScript)...)
	job.Scripts = append(job.Scripts, scalars(&rj.Script)...)
	job.Scripts = append(job.Scripts, scalars(&rj.AfterScript)...)

	if job.HasRules && rj.Rules.Kind == yaml.SequenceNode {
		for _, r := range rj.Rules.Content {
			var rule CIRule
			if r.Kind == yaml.MappingNode && r.Decode(&rule) == nil {
				job.Rules = append(job.Rules, rule)
			}
		}
	}

	if job.HasExcept {
		if rj.Except.Kind == yaml.MappingNode {
			if refs := mappingValue(&rj.Except, "refs"); refs != nil {
				job.Except = scalars(refs)
			}
		} else {
			job.Except = scalars(&rj.Except)
		}
	}

	return job, nil
}

// ParseCI parses CI text. Jobs that cannot be decoded are skipped.
func ParseCI(content string) (*CIDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return nil, fmt.Errorf("invalid CI yaml: %w", err)
	}

	doc := &CIDocument{Raw: content, Variables: map[string]string{}}

	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errors.New("invalid CI yaml: top level is not a mapping")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, top.Content[i+1]

		switch {
		case key == "stages":
			doc.Stages = scalars(value)
		case key == "include":
			doc.Includes = parseIncludes(value)
		case key == "variables":
			var vars map[string]interface{}
			if value.Decode(&vars) == nil {
				doc.Variables = stringMap(vars)
			}
		case key == "default":
			if img := mappingValue(value, "image"); img != nil {
				doc.Image = nameOf(img)
			}
			if svc := mappingValue(value, "services"); svc != nil {
				doc.Services = namesOf(svc)
			}
			for _, s := range []string{"before_script", "after_script"} {
				if v := mappingValue(value, s); v != nil {
					doc.Scripts = append(doc.Scripts, scalars(v)...)
				}
			}
		case key == "image":
			doc.Image = nameOf(value)
		case key == "services":
			doc.Services = namesOf(value)
		case key == "before_script" || key == "after_script":
			doc.Scripts = append(doc.Scripts, scalars(value)...)
		case reservedKeys[key] || globalKeys[key]:
		case strings.HasPrefix(key, "."):
		case value.Kind != yaml.MappingNode:
		default:
			job, err := parseJob(key, value)
			if err != nil {
				continue
			}
			doc.Jobs = append(doc.Jobs, job)
		}
	}

	return doc, nil
}

// DeclaredStages falls back to the GitLab defaults.
func (d *CIDocument) DeclaredStages() []string {
	if len(d.Stages) == 0 {
		return defaultStages
	}
	return d.Stages
}

// AllScripts returns every script line of the document in file order.
func (d *CIDocument) AllScripts() []string {
	out := append([]string{}, d.Scripts...)
	for _, j := range d.Jobs {
		out = append(out, j.Scripts...)
	}
	return out
}

// Images returns every image referenced by the document, services included.
func (d *CIDocument) Images() []string {
	var out []string
	seen := map[string]bool{}

	add := func(img string) {
		img = strings.TrimSpace(img)
		if img == "" || seen[img] {
			return
		}
		seen[img] = true
		out = append(out, img)
	}

	add(d.Image)
	for _, s := range d.Services {
		add(s)
	}
	for _, j := range d.Jobs {
		add(j.Image)
		for _, s := range j.Services {
			add(s)
		}
	}
	return out
}

// ProbeScripts returns the text the pattern probes run on: every script line
// followed by variables rendered as KEY=value in key order.
func (d *CIDocument) ProbeScripts() []string {
	out := d.AllScripts()
	out = append(out, renderVariables(d.Variables)...)
	for _, j := range d.Jobs {
		out = append(out, renderVariables(j.Variables)...)
	}
	return out
}

func renderVariables(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, vars[k]))
	}
	return out
}
