package keywords

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
)

//go:embed settings/*.yaml
var embeddedSettingsFS embed.FS

// DefaultEmbeddedSettings holds the settings files compiled into the binary.
var DefaultEmbeddedSettings = EmbeddedSettings{Root: "settings", Files: embeddedSettingsFS}

type SettingsFile struct {
	Name   string
	Reader io.Reader
	Length int
}

type EmbeddedSettings struct {
	Root  string
	Files EmbeddedFS
}

type EmbeddedFS interface {
	Open(name string) (fs.File, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

func (es EmbeddedSettings) MustFindRootSettingsFile(filename string) (SettingsFile, error) {
	var result SettingsFile
	name := path.Join(es.Root, filename)
	b, err := es.Files.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}

func (es EmbeddedSettings) MustFindDefaultsSettingsFile() (SettingsFile, error) {
	return es.MustFindRootSettingsFile("defaults.yaml")
}

// ReadSettingsFile loads an override settings file from disk.
// Values in it replace the embedded defaults key by key.
func ReadSettingsFile(filename string) (SettingsFile, error) {
	var result SettingsFile
	b, err := os.ReadFile(filename)
	if err != nil {
		return result, fmt.Errorf("failed to read settings file %s %w", filename, err)
	}
	result.Name = filename
	result.Reader = bytes.NewReader(b)
	result.Length = len(b)
	return result, nil
}
