package director

import (
	"github.com/ivlev/framectl/internal/system"
)

// ScriptsDir - где искать сценарии, если путь не задан явно
const ScriptsDir = "scripts"

// FindLatestScript ищет самый свежий сценарий в dir
func FindLatestScript(dir string) (string, error) {
	if dir == "" {
		dir = ScriptsDir
	}
	return system.FindLatestFile(dir, ".json", ".yaml", ".yml")
}
