package privacy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsStore persists the explicit privacy mode choice across runs.
type SettingsStore interface {
	LoadMode() (Mode, error)
	SaveMode(Mode) error
}

// settingsFile is the on-disk YAML shape.
type settingsFile struct {
	PrivacyMode string `yaml:"privacy_mode"`
}

// FileSettings stores the privacy mode in a small YAML file next to the
// database. A missing file means no choice was ever made: ModeID.
type FileSettings struct {
	Path string
}

// LoadMode reads the persisted mode. A missing file yields ModeID with no
// error; a corrupt file is an error (the gate falls back to ModeID).
func (s FileSettings) LoadMode() (Mode, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return ModeID, nil
	}
	if err != nil {
		return ModeID, fmt.Errorf("read privacy settings: %w", err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ModeID, fmt.Errorf("parse privacy settings: %w", err)
	}

	mode := Mode(f.PrivacyMode)
	if !mode.Valid() {
		return ModeID, fmt.Errorf("unknown privacy_mode %q", f.PrivacyMode)
	}
	return mode, nil
}

// SaveMode writes the mode atomically (write temp, rename).
func (s FileSettings) SaveMode(mode Mode) error {
	data, err := yaml.Marshal(settingsFile{PrivacyMode: string(mode)})
	if err != nil {
		return fmt.Errorf("encode privacy settings: %w", err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".privacy-*.yaml")
	if err != nil {
		return fmt.Errorf("write privacy settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write privacy settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write privacy settings: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write privacy settings: %w", err)
	}
	return nil
}
