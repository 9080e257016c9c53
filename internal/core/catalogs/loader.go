package catalogs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML shape of one catalog.
//
//	key: contractors
//	group: HR
//	label: Contractor invoices
//	fields:
//	  - name: fullName
//	    label: Full name
//	    type: string
//	    required: true
type catalogFile struct {
	Key    string      `yaml:"key"`
	Group  string      `yaml:"group"`
	Label  string      `yaml:"label"`
	Fields []fieldFile `yaml:"fields"`
}

type fieldFile struct {
	core.Field `yaml:",inline"`
	Type       string `yaml:"type"`
}

// Parse decodes one YAML catalog. Unknown keys are rejected.
func Parse(r io.Reader) (core.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cf catalogFile
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Catalog{}, errors.New("empty catalog file")
		}
		return core.Catalog{}, err
	}

	c := core.Catalog{
		Key:    strings.TrimSpace(cf.Key),
		Group:  cf.Group,
		Label:  cf.Label,
		Fields: make([]core.Field, len(cf.Fields)),
	}
	for i, ff := range cf.Fields {
		t, err := core.ParseDataType(ff.Type)
		if err != nil {
			return core.Catalog{}, fmt.Errorf("field %q: %w", ff.Name, err)
		}
		f := ff.Field
		f.Type = t
		c.Fields[i] = f
	}
	return c, nil
}

// LoadDir registers every *.yaml and *.yml catalog in dir, in file name
// order, and returns how many were registered. It stops at the first bad
// file; catalogs registered before it stay registered.
func LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read catalog dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("read %s: %w", path, err)
		}

		c, err := Parse(bytes.NewReader(data))
		if err != nil {
			return loaded, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := core.RegisterCatalogE(c); err != nil {
			return loaded, fmt.Errorf("register %s: %w", path, err)
		}

		slog.Debug("catalog loaded", "key", c.Key, "fields", len(c.Fields), "file", name)
		loaded++
	}
	return loaded, nil
}
