package director

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// WriteScript сохраняет сценарий в YAML-файл
func WriteScript(s *Script, path string) error {
	data, err := yaml.Marshal(s.Records())
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScript читает и загружает сценарий из JSON или YAML
func ReadScript(path string, log logrus.FieldLogger) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Load(data, log)
}
