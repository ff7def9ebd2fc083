package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/keshon/fastiscord/pkg/cmd"
)

// CommandManifest is the on-disk shape of a command handler module.
type CommandManifest struct {
	Data cmd.Data `json:"data" yaml:"data" toml:"data"`
	Run  string   `json:"run" yaml:"run" toml:"run"`
}

// EventManifest is the on-disk shape of an event handler module.
type EventManifest struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Once bool   `json:"once,omitempty" yaml:"once,omitempty" toml:"once,omitempty"`
	Run  string `json:"run" yaml:"run" toml:"run"`
}

// Loader turns a matched path into a manifest. FileLoader is the default;
// tests and embedders can provide their own.
type Loader interface {
	LoadCommand(path string) (*CommandManifest, error)
	LoadEvent(path string) (*EventManifest, error)
}

// FileLoader reads manifests from disk, picking the decoder by file extension.
type FileLoader struct{}

func (FileLoader) LoadCommand(path string) (*CommandManifest, error) {
	var m CommandManifest
	if err := decodeFile(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (FileLoader) LoadEvent(path string) (*EventManifest, error) {
	var m EventManifest
	if err := decodeFile(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, v)
	case ".toml":
		_, err = toml.NewDecoder(bytes.NewReader(raw)).Decode(v)
	case ".json":
		err = json.Unmarshal(raw, v)
	default:
		return fmt.Errorf("unsupported manifest extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	return nil
}
