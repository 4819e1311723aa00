package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"zus_chatbot/pkg"
)

//go:embed defaults.yaml
var defaultCorpus []byte

// LabelExamples is one label of a reference corpus with its example phrases
type LabelExamples struct {
	Label    string   `yaml:"label"`
	Examples []string `yaml:"examples"`
}

// Corpus represents the structure of the classifier corpus YAML
type Corpus struct {
	Intents    []LabelExamples `yaml:"intents"`
	QueryTypes []LabelExamples `yaml:"query_types"`

	CountOverride struct {
		Products []string `yaml:"products"`
		Outlets  []string `yaml:"outlets"`
	} `yaml:"count_override"`

	Heuristic struct {
		ProductKeywords []string `yaml:"product_keywords"`
		OutletKeywords  []string `yaml:"outlet_keywords"`
	} `yaml:"heuristic"`

	// CalcTriggers are stripped from the start of a message before it is
	// parsed as arithmetic
	CalcTriggers []string `yaml:"calc_triggers"`
	Cities       []string `yaml:"cities"`
	DefaultCity  string   `yaml:"default_city"`
}

// LoadCorpus loads the corpus from path, or the embedded defaults when path is empty
func LoadCorpus(path string) (*Corpus, error) {
	if path == "" {
		return ParseCorpus(defaultCorpus)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading corpus file: %w", err)
	}
	return ParseCorpus(data)
}

// DefaultCorpus returns the embedded corpus
func DefaultCorpus() *Corpus {
	corpus, err := ParseCorpus(defaultCorpus)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus is invalid: %v", err))
	}
	return corpus
}

// ParseCorpus decodes and validates corpus YAML
func ParseCorpus(data []byte) (*Corpus, error) {
	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	if err := corpus.validate(); err != nil {
		return nil, err
	}
	return &corpus, nil
}

func (c *Corpus) validate() error {
	if err := validateLabels("intents", c.Intents, intentNames()); err != nil {
		return err
	}
	if err := validateLabels("query_types", c.QueryTypes, queryTypeNames()); err != nil {
		return err
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("corpus has no cities")
	}
	return nil
}

func validateLabels(section string, labels []LabelExamples, allowed map[string]bool) error {
	if len(labels) == 0 {
		return fmt.Errorf("corpus section %s is empty", section)
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if !allowed[l.Label] {
			return fmt.Errorf("corpus section %s: unknown label %q", section, l.Label)
		}
		if seen[l.Label] {
			return fmt.Errorf("corpus section %s: duplicate label %q", section, l.Label)
		}
		seen[l.Label] = true
		for _, e := range l.Examples {
			if strings.TrimSpace(e) == "" {
				return fmt.Errorf("corpus section %s: label %q has an empty example", section, l.Label)
			}
		}
	}
	return nil
}

func intentNames() map[string]bool {
	names := make(map[string]bool, len(pkg.Intents))
	for _, i := range pkg.Intents {
		names[string(i)] = true
	}
	return names
}

func queryTypeNames() map[string]bool {
	names := make(map[string]bool, len(pkg.QueryTypes))
	for _, q := range pkg.QueryTypes {
		names[string(q)] = true
	}
	return names
}
