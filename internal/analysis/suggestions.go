package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pr-review-engine/internal/domain"
)

const maxDocSuggestions = 10

// Объявления экспортируемых символов по языкам.
var exportedDeclPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^(func (\([^)]*\) )?[A-Z]\w*|type [A-Z]\w*)`),
	"typescript": regexp.MustCompile(`^export (default )?(async )?(function|class|interface|const|type)\b`),
	"javascript": regexp.MustCompile(`^export (default )?(async )?(function|class|const)\b`),
	"python":     regexp.MustCompile(`^(def|class) [A-Za-z]\w*`),
	"java":       regexp.MustCompile(`^\s*public (static )?(final )?(class|interface|[\w<>\[\]]+ \w+\()`),
}

var docCommentPattern = regexp.MustCompile(`^\s*(//|/\*\*?|\*|#|""")`)

// testCoverage возвращает изменённые файлы с кодом и те из них, для которых нет изменения тестов.
func testCoverage(files []domain.FileChange) (sources, untested []string) {
	tested := make(map[string]struct{})
	for _, f := range files {
		if IsTestFile(f.Filename) {
			tested[testStem(f.Filename)] = struct{}{}
		}
	}
	for _, f := range files {
		if !isSourceFile(f) {
			continue
		}
		sources = append(sources, f.Filename)
		if _, ok := tested[testStem(f.Filename)]; !ok {
			untested = append(untested, f.Filename)
		}
	}
	return sources, untested
}

func documentationSuggestions(pr *domain.PRAnalysis, lines map[string][]AddedLine) []domain.DocumentationSuggestion {
	var suggestions []domain.DocumentationSuggestion

	for _, f := range pr.FilesChanged {
		re, ok := exportedDeclPatterns[f.Language]
		if !ok || IsTestFile(f.Filename) {
			continue
		}
		added := lines[f.Filename]
		for i, line := range added {
			if len(suggestions) == maxDocSuggestions {
				break
			}
			if !re.MatchString(line.Text) {
				continue
			}
			if i > 0 && added[i-1].Number == line.Number-1 && docCommentPattern.MatchString(added[i-1].Text) {
				continue
			}
			suggestions = append(suggestions, domain.DocumentationSuggestion{
				Type:       "missing-doc-comment",
				Priority:   domain.SeverityLow,
				Suggestion: fmt.Sprintf("Document the exported declaration `%s`", truncate(strings.TrimSpace(line.Text), 80)),
				Location:   domain.CoordinateKey(f.Filename, line.Number),
			})
		}
	}

	apiChanged := false
	docsChanged := false
	for _, f := range pr.FilesChanged {
		if IsDocFile(f.Filename) {
			docsChanged = true
		} else if componentType(f.Filename) == "api" && f.Status != domain.FileAdded {
			apiChanged = true
		}
	}
	if apiChanged && !docsChanged {
		suggestions = append(suggestions, domain.DocumentationSuggestion{
			Type:       "api-docs",
			Priority:   domain.SeverityMedium,
			Suggestion: "Public API files changed without a README or docs update; describe the new behaviour for consumers.",
		})
	}
	return suggestions
}

func testingSuggestions(pr *domain.PRAnalysis, comments []domain.ReviewComment) []domain.TestingSuggestion {
	var suggestions []domain.TestingSuggestion

	sources, untested := testCoverage(pr.FilesChanged)
	if len(untested) > 0 {
		coverage := round2(float64(len(sources)-len(untested)) / float64(len(sources)) * 100)
		priority := domain.SeverityMedium
		if len(untested) == len(sources) {
			priority = domain.SeverityHigh
		}
		suggestions = append(suggestions, domain.TestingSuggestion{
			Type:              "missing-tests",
			Priority:          priority,
			Suggestion:        fmt.Sprintf("Add tests for %d changed source files that have no accompanying test change.", len(untested)),
			Files:             untested,
			EstimatedCoverage: &coverage,
		})
	}

	securityFiles := make(map[string]struct{})
	for _, c := range comments {
		if c.Category == domain.CategorySecurity && c.Severity.Rank() >= domain.SeverityHigh.Rank() {
			securityFiles[c.File] = struct{}{}
		}
	}
	if len(securityFiles) > 0 {
		files := make([]string, 0, len(securityFiles))
		for f := range securityFiles {
			files = append(files, f)
		}
		sort.Strings(files)
		suggestions = append(suggestions, domain.TestingSuggestion{
			Type:       "security-tests",
			Priority:   domain.SeverityHigh,
			Suggestion: "Add negative tests covering the security findings before merging.",
			Files:      files,
		})
	}

	errorFindings := 0
	for _, c := range comments {
		if c.Category == domain.CategoryErrorHandling {
			errorFindings++
		}
	}
	if errorFindings > 0 {
		suggestions = append(suggestions, domain.TestingSuggestion{
			Type:       "error-paths",
			Priority:   domain.SeverityMedium,
			Suggestion: fmt.Sprintf("Cover the %d error-handling paths flagged in this change with failure-case tests.", errorFindings),
		})
	}
	return suggestions
}
