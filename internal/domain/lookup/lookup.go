// Package lookup resolves the opaque specialty, professional and health
// plan identifiers stored on patient rows to display names.
package lookup

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FallbackSpecialty    = "Não definida"
	FallbackProfessional = "Não definido"
	FallbackHealthPlan   = "Não informado"
)

//go:embed lookups.yaml
var defaultYAML []byte

type Entry struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Tables is read-only once built by New, Default or Load.
type Tables struct {
	specialties   map[string]string
	professionals map[string]string
	healthPlans   map[string]string
}

type file struct {
	Specialties   []Entry `yaml:"specialties"`
	Professionals []Entry `yaml:"professionals"`
	HealthPlans   []Entry `yaml:"health_plans"`
}

// New indexes the given entries. Duplicate ids and empty names are errors.
func New(specialties, professionals, healthPlans []Entry) (Tables, error) {
	var t Tables
	var err error
	if t.specialties, err = index("specialties", specialties); err != nil {
		return Tables{}, err
	}
	if t.professionals, err = index("professionals", professionals); err != nil {
		return Tables{}, err
	}
	if t.healthPlans, err = index("health_plans", healthPlans); err != nil {
		return Tables{}, err
	}
	return t, nil
}

func index(table string, entries []Entry) (map[string]string, error) {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("%s: entry with empty id", table)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("%s: entry %q has an empty name", table, id)
		}
		if _, dup := m[id]; dup {
			return nil, fmt.Errorf("%s: duplicate id %q", table, id)
		}
		m[id] = e.Name
	}
	return m, nil
}

// Default returns the built-in tables.
func Default() Tables {
	t, err := parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("lookup: embedded tables: %v", err))
	}
	return t
}

// Load reads tables from a YAML file. An empty path yields Default().
func Load(path string) (Tables, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Tables{}, fmt.Errorf("read lookup tables %s: %w", path, err)
	}
	t, err := parse(content)
	if err != nil {
		return Tables{}, fmt.Errorf("lookup tables %s: %w", path, err)
	}
	return t, nil
}

func parse(content []byte) (Tables, error) {
	var f file
	if err := yaml.Unmarshal(content, &f); err != nil {
		return Tables{}, fmt.Errorf("decode yaml: %w", err)
	}
	return New(f.Specialties, f.Professionals, f.HealthPlans)
}

func (t Tables) Specialty(id string) string {
	return resolve(t.specialties, id, FallbackSpecialty)
}

func (t Tables) Professional(id string) string {
	return resolve(t.professionals, id, FallbackProfessional)
}

func (t Tables) HealthPlan(id string) string {
	return resolve(t.healthPlans, id, FallbackHealthPlan)
}

func resolve(m map[string]string, id, fallback string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return fallback
	}
	if name, ok := m[id]; ok {
		return name
	}
	return fallback
}
