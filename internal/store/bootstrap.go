package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"formcraft/internal/form"
)

// LoadSeedFile reads a list of forms from a JSON or YAML file. YAML is
// decoded generically and re-encoded as JSON so that both formats share the
// form model's JSON field names.
func LoadSeedFile(path string) ([]*form.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if data, err = json.Marshal(generic); err != nil {
			return nil, fmt.Errorf("convert %s: %w", path, err)
		}
	}

	var forms []*form.Form
	if err := json.Unmarshal(data, &forms); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, f := range forms {
		if f == nil {
			return nil, fmt.Errorf("parse %s: entry %d is null", path, i)
		}
		if f.Title == "" {
			f.Title = form.DefaultTitle
		}
		f.Normalize()
	}
	return forms, nil
}

// Bootstrap seeds an empty store from path and returns how many forms were
// created. A store that already holds forms is left untouched.
func Bootstrap(ctx context.Context, s FormStore, path string) (int, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	forms, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	for i, f := range forms {
		if _, err := s.Create(ctx, f); err != nil {
			return i, fmt.Errorf("create seed form %q: %w", f.Title, err)
		}
	}
	return len(forms), nil
}
