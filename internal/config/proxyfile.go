package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/metasearch-overlay/internal/links"
)

// proxyFile is the YAML form of the result proxy settings:
//
//	url: https://proxy.example/fetch
//	method: POST
//	key: secret
//	parameters:
//	  target: "go?%s"
//	  mode: fixed
//
// Parameter order in the file is the order of the form fields.
type proxyFile struct {
	URL        string    `yaml:"url"`
	Method     string    `yaml:"method"`
	Key        string    `yaml:"key"`
	Parameters yaml.Node `yaml:"parameters"`

	params []links.Param
}

func loadProxyFile(path string) (*proxyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result proxy config: %w", err)
	}
	return parseProxyFile(data)
}

func parseProxyFile(data []byte) (*proxyFile, error) {
	var f proxyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse result proxy config: %w", err)
	}

	params, err := orderedParams(&f.Parameters)
	if err != nil {
		return nil, err
	}
	f.params = params
	return &f, nil
}

func orderedParams(node *yaml.Node) ([]links.Param, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse result proxy config: parameters must be a mapping (line %d)", node.Line)
	}

	params := make([]links.Param, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse result proxy config: parameter %q must be a string (line %d)", key.Value, value.Line)
		}
		if _, dup := seen[key.Value]; dup {
			return nil, fmt.Errorf("parse result proxy config: duplicate parameter %q (line %d)", key.Value, key.Line)
		}
		seen[key.Value] = struct{}{}
		params = append(params, links.Param{Name: key.Value, Template: value.Value})
	}
	return params, nil
}

func (f *proxyFile) applyTo(p *ResultProxy) {
	if f.URL != "" {
		p.URL = f.URL
	}
	if f.Method != "" {
		p.Method = strings.ToUpper(strings.TrimSpace(f.Method))
	}
	if f.Key != "" {
		p.Key = f.Key
	}
	if len(f.params) > 0 {
		p.Params = f.params
	}
}
