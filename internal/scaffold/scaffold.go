// Package scaffold sets up a new bot project: the configuration document,
// the .env secrets file and a starter set of handler manifests.
package scaffold

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/keshon/fastiscord/internal/config"
)

//go:embed all:template
var templateFS embed.FS

const templateRoot = "template"

// Options controls Init. Empty patterns fall back to the defaults.
type Options struct {
	CommandPattern string
	EventPattern   string
	Template       bool
	// Module, when set and no go.mod exists, is written as a new go.mod.
	Module string
}

// EnvAction says what Init did to the .env file.
type EnvAction string

const (
	EnvCreated   EnvAction = "created"
	EnvAppended  EnvAction = "appended"
	EnvUnchanged EnvAction = "unchanged"
)

// FileAction is one template file and whether it was written.
type FileAction struct {
	Path    string
	Created bool
}

// Report lists what Init changed.
type Report struct {
	ConfigPath string
	Config     config.Config
	EnvPath    string
	Env        EnvAction
	EnvAdded   []string
	Files      []FileAction
}

type envVar struct {
	key, placeholder, comment string
}

var requiredEnv = []envVar{
	{config.EnvToken, "your_token_here", ""},
	{config.EnvClientID, "your_client_id_here", ""},
	{config.EnvGuildID, "your_guild_id_here", "Optional: for guild command registration"},
}

const envHeader = "# Environment variables required by fastiscord\n"

// Init writes the configuration document (replacing any existing one),
// creates or completes .env, and copies the starter template unless
// opts.Template is false. Existing template files are left alone.
func Init(root string, opts Options) (*Report, error) {
	cfg := config.Default()
	if opts.CommandPattern != "" {
		cfg.CommandFilePattern = opts.CommandPattern
	}
	if opts.EventPattern != "" {
		cfg.EventFilePattern = opts.EventPattern
	}

	r := &Report{Config: cfg}

	var err error
	if r.ConfigPath, err = writeConfig(root, cfg); err != nil {
		return nil, err
	}
	if r.EnvPath, r.Env, r.EnvAdded, err = ensureEnv(root); err != nil {
		return nil, err
	}
	if opts.Template {
		if r.Files, err = copyTemplate(root); err != nil {
			return nil, err
		}
	}
	if opts.Module != "" {
		fa, err := writeGoMod(root, opts.Module)
		if err != nil {
			return nil, err
		}
		r.Files = append(r.Files, fa)
	}
	return r, nil
}

func writeConfig(root string, cfg config.Config) (string, error) {
	path := filepath.Join(root, config.FileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", config.FileName, err)
	}
	return path, nil
}

func ensureEnv(root string) (string, EnvAction, []string, error) {
	path := filepath.Join(root, config.EnvFileName)

	existing, err := godotenv.Read(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", "", nil, fmt.Errorf("read %s: %w", config.EnvFileName, err)
	}

	var (
		b     strings.Builder
		added []string
	)
	if !exists {
		b.WriteString(envHeader)
	}
	for _, v := range requiredEnv {
		if _, ok := existing[v.key]; ok {
			continue
		}
		added = append(added, v.key)
		b.WriteString(v.key + "=" + v.placeholder)
		if v.comment != "" {
			b.WriteString(" # " + v.comment)
		}
		b.WriteString("\n")
	}

	switch {
	case !exists:
		if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
			return "", "", nil, err
		}
		return path, EnvCreated, added, nil
	case len(added) == 0:
		return path, EnvUnchanged, nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return "", "", nil, err
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + b.String()); err != nil {
		return "", "", nil, err
	}
	return path, EnvAppended, added, nil
}

func copyTemplate(root string) ([]FileAction, error) {
	var actions []FileAction
	err := fs.WalkDir(templateFS, templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel := strings.TrimSuffix(strings.TrimPrefix(path, templateRoot+"/"), ".tmpl")
		dst := filepath.Join(root, filepath.FromSlash(rel))

		if _, err := os.Stat(dst); err == nil {
			actions = append(actions, FileAction{Path: dst})
			return nil
		}

		data, err := templateFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		actions = append(actions, FileAction{Path: dst, Created: true})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copy template: %w", err)
	}
	return actions, nil
}

func writeGoMod(root, module string) (FileAction, error) {
	path := filepath.Join(root, "go.mod")
	if _, err := os.Stat(path); err == nil {
		return FileAction{Path: path}, nil
	}
	content := fmt.Sprintf("module %s\n\ngo 1.25\n", module)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return FileAction{}, err
	}
	return FileAction{Path: path, Created: true}, nil
}
