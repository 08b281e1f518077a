package github

import (
	"path"
	"strings"
)

var languageByExtension = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".py":    "python",
	".rb":    "ruby",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".m":     "objective-c",
	".sql":   "sql",
	".sh":    "shell",
	".bash":  "shell",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".vue":   "vue",
	".tf":    "terraform",
	".proto": "protobuf",
}

// LanguageFor определяет язык по расширению файла. Для неизвестных расширений возвращает "".
func LanguageFor(filename string) string {
	base := path.Base(filename)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return "dockerfile"
	}
	return languageByExtension[strings.ToLower(path.Ext(base))]
}
