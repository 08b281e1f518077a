package analysis

import (
	"fmt"
	"path"
	"strings"

	"pr-review-engine/internal/domain"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// AddedLine: добавленная строка с номером в новой версии файла.
type AddedLine struct {
	Number int
	Text   string
}

// ParsePatch разбирает патч файла в список добавленных строк.
// Пустой патч (бинарный файл, слишком большой дифф) даёт пустой список без ошибки.
func ParsePatch(file domain.FileChange) ([]AddedLine, error) {
	if strings.TrimSpace(file.Patch) == "" {
		return nil, nil
	}

	raw := syntheticHeader(file) + file.Patch
	if !strings.HasSuffix(raw, "\n") {
		raw += "\n"
	}

	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	var lines []AddedLine
	for _, f := range files {
		for _, frag := range f.TextFragments {
			lineNum := int(frag.NewPosition)
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					lines = append(lines, AddedLine{Number: lineNum, Text: strings.TrimRight(line.Line, "\r\n")})
					lineNum++
				case gitdiff.OpContext:
					lineNum++
				}
			}
		}
	}
	return lines, nil
}

// syntheticHeader восстанавливает заголовок git-диффа: API отдаёт только ханки.
func syntheticHeader(file domain.FileChange) string {
	name := file.Filename
	oldName := name
	if file.PreviousFilename != "" {
		oldName = file.PreviousFilename
	}

	switch file.Status {
	case domain.FileAdded:
		return fmt.Sprintf("diff --git a/%s b/%s\nnew file mode 100644\n--- /dev/null\n+++ b/%s\n", name, name, name)
	case domain.FileRemoved:
		return fmt.Sprintf("diff --git a/%s b/%s\ndeleted file mode 100644\n--- a/%s\n+++ /dev/null\n", name, name, name)
	default:
		return fmt.Sprintf("diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n", oldName, name, oldName, name)
	}
}

// IsTestFile определяет тестовые файлы по соглашениям распространённых языков.
func IsTestFile(name string) bool {
	lower := strings.ToLower(name)
	base := path.Base(lower)
	switch {
	case strings.Contains(base, "_test."),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.HasPrefix(base, "test_"),
		strings.Contains(lower, "/__tests__/"),
		strings.HasPrefix(lower, "test/"), strings.HasPrefix(lower, "tests/"),
		strings.Contains(lower, "/test/"), strings.Contains(lower, "/tests/"):
		return true
	}
	return false
}

// IsDocFile определяет файлы документации.
func IsDocFile(name string) bool {
	lower := strings.ToLower(name)
	switch path.Ext(lower) {
	case ".md", ".rst", ".adoc", ".txt":
		return true
	}
	return strings.HasPrefix(lower, "docs/") || strings.Contains(lower, "/docs/")
}

// isSourceFile: файл с кодом, для которого ожидаются тесты.
func isSourceFile(file domain.FileChange) bool {
	if file.Status == domain.FileRemoved || file.Language == "" {
		return false
	}
	switch file.Language {
	case "markdown", "json", "yaml", "toml", "html", "css", "scss", "sql", "dockerfile", "terraform", "protobuf":
		return false
	}
	return !IsTestFile(file.Filename) && !IsDocFile(file.Filename)
}

// testStem возвращает имя файла без расширения и тестовых суффиксов/префиксов.
func testStem(name string) string {
	base := strings.ToLower(path.Base(name))
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, "_test")
	base = strings.TrimPrefix(base, "test_")
	return base
}
