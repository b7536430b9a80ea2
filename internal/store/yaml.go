package store

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/metal-toolbox/powerctl/internal/model"
)

var (
	ErrYamlSource = errors.New("error in Yaml targets source")
)

// targetsFile is the targets file layout, the targets are listed under the targets key
// or as the document itself.
type targetsFile struct {
	Targets []model.ServerTarget `yaml:"targets"`
}

// Yaml reads server targets from a YAML file.
type Yaml struct {
	YamlFile string
}

// NewYamlTargets returns a Yaml targets source for the given file.
func NewYamlTargets(yamlFile string) *Yaml {
	return &Yaml{YamlFile: yamlFile}
}

// Targets returns the targets listed in the file, with defaults applied.
func (c *Yaml) Targets() ([]model.ServerTarget, error) {
	b, err := os.ReadFile(c.YamlFile)
	if err != nil {
		return nil, errors.Wrap(ErrYamlSource, err.Error())
	}

	return ParseTargets(b)
}

// ParseTargets decodes targets from YAML.
func ParseTargets(b []byte) ([]model.ServerTarget, error) {
	node := &yaml.Node{}
	if err := yaml.Unmarshal(b, node); err != nil {
		return nil, errors.Wrap(ErrYamlSource, err.Error())
	}

	if len(node.Content) == 0 {
		return nil, errors.Wrap(ErrYamlSource, "no targets listed")
	}

	var targets []model.ServerTarget

	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&targets); err != nil {
			return nil, errors.Wrap(ErrYamlSource, err.Error())
		}
	case yaml.MappingNode:
		f := &targetsFile{}
		if err := node.Content[0].Decode(f); err != nil {
			return nil, errors.Wrap(ErrYamlSource, err.Error())
		}

		targets = f.Targets
	default:
		return nil, errors.Wrap(ErrYamlSource, "expected a list of targets")
	}

	if len(targets) == 0 {
		return nil, errors.Wrap(ErrYamlSource, "no targets listed")
	}

	for idx := range targets {
		targets[idx] = targets[idx].WithDefaults()
	}

	return targets, nil
}
