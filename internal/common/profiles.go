package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnAlias binds a record field (its json tag) to a spreadsheet header.
type ColumnAlias struct {
	Field  string `yaml:"field"`
	Header string `yaml:"header"`
}

// JobProfile is the tunable part of a job type.
type JobProfile struct {
	ChunkSize        int           `yaml:"chunk_size"`
	MaxRows          int           `yaml:"max_rows"`
	DuplicateMessage string        `yaml:"duplicate_message"`
	FailFileName     string        `yaml:"fail_file_name"`
	Columns          []ColumnAlias `yaml:"columns"`
}

type profilesFile struct {
	Jobs map[string]JobProfile `yaml:"jobs"`
}

// DefaultProfiles returns the built-in job profiles.
func DefaultProfiles() map[string]JobProfile {
	return map[string]JobProfile{
		"contacts": {
			ChunkSize:        100,
			MaxRows:          10000,
			DuplicateMessage: "duplicate e-mail in spreadsheet",
			FailFileName:     "contacts_failures",
			Columns: []ColumnAlias{
				{Field: "name", Header: "Name"},
				{Field: "email", Header: "Email"},
				{Field: "phone", Header: "Phone"},
				{Field: "company", Header: "Company"},
				{Field: "segment", Header: "Segment"},
				{Field: "quota", Header: "Quota"},
			},
		},
	}
}

// LoadJobProfiles reads profiles from a YAML file and overlays them on the
// defaults. An empty path returns the defaults. Zero-valued fields in the file
// keep the default value of a known job.
func LoadJobProfiles(path string) (map[string]JobProfile, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError(CodeConfig, "read job profiles", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, NewAppError(CodeConfig, "parse job profiles", err)
	}

	for name, p := range pf.Jobs {
		base := profiles[name]
		if p.ChunkSize > 0 {
			base.ChunkSize = p.ChunkSize
		}
		if p.MaxRows > 0 {
			base.MaxRows = p.MaxRows
		}
		if p.DuplicateMessage != "" {
			base.DuplicateMessage = p.DuplicateMessage
		}
		if p.FailFileName != "" {
			base.FailFileName = p.FailFileName
		}
		if len(p.Columns) > 0 {
			base.Columns = p.Columns
		}
		if base.ChunkSize < 1 {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("job %q: chunk_size must be at least 1", name), ErrInvalidInput)
		}
		if len(base.Columns) == 0 {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("job %q: columns are required", name), ErrNoColumns)
		}
		profiles[name] = base
	}
	return profiles, nil
}
