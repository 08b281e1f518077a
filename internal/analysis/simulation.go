package analysis

import (
	"path"
	"sort"
	"strings"

	"pr-review-engine/internal/domain"
)

// Типы компонентов, изменение которых считается изменением критического пути.
var criticalComponentTypes = map[string]struct{}{
	"api":      {},
	"auth":     {},
	"database": {},
	"config":   {},
	"security": {},
}

var componentTypeMarkers = []struct {
	typ     string
	markers []string
}{
	{"auth", []string{"auth", "login", "session", "oauth"}},
	{"security", []string{"security", "crypto", "permission", "acl"}},
	{"database", []string{"database", "db", "migration", "migrations", "repository", "model", "models", "schema"}},
	{"api", []string{"api", "handler", "handlers", "routes", "controller", "controllers", "server", "endpoint"}},
	{"config", []string{"config", "configs", "settings", "deploy", ".github"}},
	{"test", []string{"test", "tests", "__tests__", "spec", "e2e"}},
	{"documentation", []string{"docs", "doc"}},
	{"ui", []string{"ui", "components", "views", "pages", "web", "frontend"}},
}

// simulateImpact группирует файлы по каталогам и оценивает область влияния.
// Область монотонна по подмножеству файлов: из меньшего числа файлов не получается более широкая область.
func simulateImpact(files []domain.FileChange, all []domain.FileChange) *domain.ReviewSimulation {
	groups := make(map[string][]domain.FileChange)
	for _, f := range files {
		dir := path.Dir(f.Filename)
		groups[dir] = append(groups[dir], f)
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	components := make([]domain.AffectedComponent, 0, len(dirs))
	anyCritical := false
	for _, dir := range dirs {
		members := groups[dir]
		typ := componentType(dir)
		critical := isCriticalType(typ)
		for _, f := range members {
			if isCriticalType(componentType(f.Filename)) {
				critical = true
			}
		}
		if critical {
			anyCritical = true
		}

		name := componentName(dir)
		components = append(components, domain.AffectedComponent{
			Name:         name,
			Type:         typ,
			CriticalPath: critical,
			ChangeType:   groupChangeType(members),
			UsageCount:   len(members) + usageMentions(name, dir, all),
		})
	}

	scope := domain.ScopeFromOrder(scopeOrderFor(len(components), anyCritical))
	return &domain.ReviewSimulation{
		ImpactAnalysis: domain.ImpactAnalysis{
			Scope:              scope,
			AffectedComponents: components,
		},
	}
}

func scopeOrderFor(count int, anyCritical bool) int {
	var order int
	switch {
	case count == 0:
		return domain.ScopeMinimal.Order()
	case count == 1:
		order = domain.ScopeIsolated.Order()
	case count <= 4:
		order = domain.ScopeModerate.Order()
	default:
		order = domain.ScopeWidespread.Order()
	}
	if anyCritical {
		order++
	}
	return order
}

// componentType определяет тип компонента по сегментам пути. Побеждает первый сегмент с маркером.
func componentType(p string) string {
	segments := strings.Split(strings.ToLower(p), "/")
	for _, seg := range segments {
		stem := seg
		if i := strings.Index(stem, "."); i > 0 {
			stem = stem[:i]
		}
		for _, entry := range componentTypeMarkers {
			for _, marker := range entry.markers {
				if seg == marker || stem == marker {
					return entry.typ
				}
			}
		}
	}
	return "module"
}

func isCriticalType(typ string) bool {
	_, ok := criticalComponentTypes[typ]
	return ok
}

func componentName(dir string) string {
	if dir == "." || dir == "" {
		return "root"
	}
	return dir
}

func groupChangeType(members []domain.FileChange) domain.FileStatus {
	status := members[0].Status
	for _, f := range members[1:] {
		if f.Status != status {
			return domain.FileModified
		}
	}
	if status == domain.FileRenamed {
		return domain.FileModified
	}
	return status
}

// usageMentions считает изменённые файлы вне компонента, патчи которых ссылаются на его имя.
func usageMentions(name, dir string, all []domain.FileChange) int {
	if name == "root" {
		return 0
	}
	needle := path.Base(dir)
	count := 0
	for _, f := range all {
		if path.Dir(f.Filename) == dir {
			continue
		}
		if strings.Contains(f.Patch, needle) {
			count++
		}
	}
	return count
}

// incrementalFiles: подмножество файлов для инкрементальной симуляции.
func incrementalFiles(files []domain.FileChange) []domain.FileChange {
	subset := make([]domain.FileChange, 0, len(files))
	for _, f := range files {
		if IsTestFile(f.Filename) || IsDocFile(f.Filename) {
			continue
		}
		subset = append(subset, f)
	}
	return subset
}
