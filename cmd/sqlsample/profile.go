package main

import (
	"fmt"
	"os"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"gopkg.in/yaml.v3"
)

// Profile is the sample's connection and statement settings.
type Profile struct {
	Driver      string            `yaml:"driver"`
	Server      string            `yaml:"server"`
	Port        string            `yaml:"port"`
	Database    string            `yaml:"database"`
	UID         string            `yaml:"uid"`
	PWD         string            `yaml:"pwd"`
	SelectQuery string            `yaml:"selectQuery"`
	NonQuery    string            `yaml:"nonQuery"`
	Field       string            `yaml:"field"`
	Params      map[string]string `yaml:"params"`
	// TimeoutSeconds bounds each statement. Zero means no bound.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if p.Driver == "" {
		p.Driver = string(storage.SQLServer)
	}
	if !storage.Type(p.Driver).Valid() {
		return nil, fmt.Errorf("profile %s: unsupported driver %q", path, p.Driver)
	}
	return &p, nil
}

func (p *Profile) Descriptor() (connection.Descriptor, error) {
	return connection.FromFields(connection.Fields{
		Host:     p.Server,
		Port:     p.Port,
		Database: p.Database,
		User:     p.UID,
		Password: p.PWD,
	})
}

// ParamSet converts the profile's string params into a param.Set.
func (p *Profile) ParamSet() param.Set {
	set := make(param.Set, len(p.Params))
	for k, v := range p.Params {
		set[k] = v
	}
	return set
}

func (p *Profile) ExecOptions() *storage.ExecOptions {
	return &storage.ExecOptions{TimeoutSeconds: p.TimeoutSeconds}
}
