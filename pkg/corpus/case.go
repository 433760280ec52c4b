package corpus

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Case is one evaluation sample: a source, the hunks a generator produced
// for it and the text the hunks are expected to yield.
type Case struct {
	Name     string   `yaml:"name"`
	Language string   `yaml:"language,omitempty"`
	Source   string   `yaml:"source"`
	Hunks    []string `yaml:"hunks"`
	Expected string   `yaml:"expected"`
}

func (c Case) validate() error {
	if c.Name == "" {
		return errors.New("case has no name")
	}
	if len(c.Hunks) == 0 {
		return errors.Errorf("case %q has no hunks", c.Name)
	}
	return nil
}

// Load reads every .yaml and .yml file under dir. A file holds either one
// case or a list of cases. Cases are returned sorted by name.
func Load(dir string) ([]Case, error) {
	var cases []Case
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		loaded, err := LoadFile(path)
		if err != nil {
			return err
		}
		cases = append(cases, loaded...)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load corpus from %s", dir)
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].Name < cases[j].Name
	})
	return cases, nil
}

// LoadFile reads the cases in a single file. Unnamed cases are named after
// the file.
func LoadFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read case file")
	}

	var cases []Case
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-")) {
		if err := yaml.Unmarshal(data, &cases); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	} else {
		var c Case
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
		cases = append(cases, c)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range cases {
		if cases[i].Name == "" {
			cases[i].Name = base
			if len(cases) > 1 {
				cases[i].Name = fmt.Sprintf("%s-%d", base, i+1)
			}
		}
		if err := cases[i].validate(); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	return cases, nil
}

// Save writes each case to its own file under dir.
func Save(dir string, cases []Case) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create corpus dir")
	}

	for _, c := range cases {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return errors.Wrapf(err, "failed to encode case %q", c.Name)
		}
		if err := enc.Close(); err != nil {
			return errors.Wrapf(err, "failed to encode case %q", c.Name)
		}

		path := filepath.Join(dir, c.Name+".yaml")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return nil
}
