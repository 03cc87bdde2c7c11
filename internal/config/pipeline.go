package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Pipeline names the variant selected for each stage. It is fixed for the
// life of a run.
type Pipeline struct {
	Parse         string `yaml:"parse" json:"parse"`
	Process       string `yaml:"process" json:"process"`
	FilterWork    string `yaml:"filter_work" json:"filter_work"`
	FilterProcess string `yaml:"filter_process" json:"filter_process"`
	Work          string `yaml:"work" json:"work"`
	Render        string `yaml:"render" json:"render"`
}

// DefaultPipeline is the stock selection: reStructuredText in, Baidu Fanyi
// translation, JSON out.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Parse:         "rst",
		Process:       "complete",
		FilterWork:    "default",
		FilterProcess: "default",
		Work:          "baidu_fanyi",
		Render:        "json",
	}
}

// Merge returns p with every non-empty field of o applied on top.
func (p Pipeline) Merge(o Pipeline) Pipeline {
	if o.Parse != "" {
		p.Parse = o.Parse
	}
	if o.Process != "" {
		p.Process = o.Process
	}
	if o.FilterWork != "" {
		p.FilterWork = o.FilterWork
	}
	if o.FilterProcess != "" {
		p.FilterProcess = o.FilterProcess
	}
	if o.Work != "" {
		p.Work = o.Work
	}
	if o.Render != "" {
		p.Render = o.Render
	}
	return p
}

// ParsePipeline decodes a YAML stage selection. Unknown keys are rejected;
// missing keys keep their defaults.
func ParsePipeline(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	return DefaultPipeline().Merge(p), nil
}

// LoadPipeline reads the selection from path, or returns the defaults when
// path is empty.
func LoadPipeline(path string) (Pipeline, error) {
	if path == "" {
		return DefaultPipeline(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open pipeline file: %w", err)
	}
	defer f.Close()
	return ParsePipeline(f)
}
