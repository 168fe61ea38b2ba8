package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFileDetails reads file details from a JSON or YAML file. Missing
// sections decode as empty records.
func LoadFileDetails(path string) (*FileDetails, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	details, err := ParseFileDetails(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return details, nil
}

// ParseFileDetails decodes file details from JSON, or YAML when asYAML is set.
func ParseFileDetails(data []byte, asYAML bool) (*FileDetails, error) {
	var details FileDetails
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &details)
	} else {
		err = json.Unmarshal(data, &details)
	}
	if err != nil {
		return nil, err
	}
	details.fill()
	return &details, nil
}

func (d *FileDetails) fill() {
	if d.FileInfo == nil {
		d.FileInfo = NewRecord()
	}
	if d.Functions == nil {
		d.Functions = NewRecord()
	}
	if d.Classes == nil {
		d.Classes = NewRecord()
	}
}
