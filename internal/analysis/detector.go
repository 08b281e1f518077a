package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"pr-review-engine/internal/domain"
)

// Detector: подключаемая стратегия поиска находок в изменённом файле.
// Реализация должна быть детерминированной: одинаковый вход => одинаковый выход.
type Detector interface {
	Name() string
	Detect(file domain.FileChange, lines []AddedLine) []domain.ReviewComment
}

// DefaultDetectors возвращает встроенный набор детекторов в фиксированном порядке.
func DefaultDetectors() []Detector {
	return []Detector{
		secretsDetector(),
		injectionDetector(),
		cryptoDetector(),
		errorHandlingDetector(),
		debugOutputDetector(),
		todoDetector(),
		LargeChangeDetector{Threshold: 400},
	}
}

type patternRule struct {
	name       string
	severity   domain.Severity
	category   domain.Category
	patterns   []*regexp.Regexp
	message    string
	suggestion string
}

// PatternDetector применяет регулярные выражения к добавленным строкам.
// На одну строку приходится не более одной находки от каждого правила.
type PatternDetector struct {
	name         string
	rules        []patternRule
	skipComments bool
	skipTests    bool
}

func (d *PatternDetector) Name() string { return d.name }

func (d *PatternDetector) Detect(file domain.FileChange, lines []AddedLine) []domain.ReviewComment {
	if d.skipTests && IsTestFile(file.Filename) {
		return nil
	}

	var comments []domain.ReviewComment
	for _, line := range lines {
		if d.skipComments && isCommentLine(line.Text) {
			continue
		}
		for _, rule := range d.rules {
			for _, re := range rule.patterns {
				if !re.MatchString(line.Text) {
					continue
				}
				lineNum := line.Number
				comments = append(comments, domain.ReviewComment{
					File:       file.Filename,
					Line:       &lineNum,
					Severity:   rule.severity,
					Category:   rule.category,
					Message:    fmt.Sprintf("%s: `%s`", rule.message, truncate(strings.TrimSpace(line.Text), 120)),
					Suggestion: rule.suggestion,
					Detector:   d.name + "/" + rule.name,
				})
				break
			}
		}
	}
	return comments
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

func secretsDetector() *PatternDetector {
	return &PatternDetector{
		name: "secrets",
		rules: []patternRule{
			{
				name:     "hardcoded-credential",
				severity: domain.SeverityCritical,
				category: domain.CategorySecurity,
				patterns: compilePatterns(
					`(?i)(api[_-]?key|secret|passw(or)?d|access[_-]?token|auth[_-]?token|private[_-]?key)\s*[:=]+\s*["'][^"'\s]{6,}["']`,
					`AKIA[0-9A-Z]{16}`,
					`gh[pousr]_[A-Za-z0-9]{36}`,
					`-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`,
				),
				message:    "Possible hard-coded credential",
				suggestion: "Load the secret from configuration or a secret manager and rotate the exposed value.",
			},
		},
	}
}

func injectionDetector() *PatternDetector {
	return &PatternDetector{
		name:         "injection",
		skipComments: true,
		rules: []patternRule{
			{
				name:     "sql-concatenation",
				severity: domain.SeverityHigh,
				category: domain.CategorySecurity,
				patterns: compilePatterns(
					`(?i)\b(query|exec|execute|queryrow|raw)\w*\(\s*(fmt\.Sprintf\(|["'][^"']*\b(select|insert|update|delete)\b[^"']*["']\s*\+)`,
					`(?i)["']\s*(select|insert into|update|delete from)\b[^"']*["']\s*\+\s*\w+`,
				),
				message:    "SQL statement built from string concatenation",
				suggestion: "Use parameterized queries instead of concatenating user input.",
			},
			{
				name:     "command-execution",
				severity: domain.SeverityHigh,
				category: domain.CategorySecurity,
				patterns: compilePatterns(
					`exec\.Command\(\s*"(sh|bash|cmd)"`,
					`subprocess\.\w+\(.*shell\s*=\s*True`,
					`\bos\.system\(`,
					`(^|[^\w.])eval\(`,
				),
				message:    "Dynamic code or shell execution",
				suggestion: "Avoid invoking a shell with interpolated input; pass arguments explicitly.",
			},
			{
				name:     "tls-verification-disabled",
				severity: domain.SeverityHigh,
				category: domain.CategorySecurity,
				patterns: compilePatterns(
					`InsecureSkipVerify:\s*true`,
					`(?i)verify\s*=\s*False`,
					`rejectUnauthorized:\s*false`,
				),
				message:    "TLS certificate verification disabled",
				suggestion: "Keep certificate verification enabled; configure a trusted CA instead.",
			},
		},
	}
}

func cryptoDetector() *PatternDetector {
	return &PatternDetector{
		name:         "crypto",
		skipComments: true,
		rules: []patternRule{
			{
				name:     "weak-hash",
				severity: domain.SeverityHigh,
				category: domain.CategorySecurity,
				patterns: compilePatterns(
					`\b(md5|sha1)\.(New|Sum)\w*\(`,
					`(?i)createHash\(\s*['"](md5|sha1)['"]`,
					`(?i)hashlib\.(md5|sha1)\(`,
					`(?i)\b(des|rc4)\.NewCipher\(`,
				),
				message:    "Weak cryptographic primitive",
				suggestion: "Use SHA-256 or stronger; for passwords use bcrypt, scrypt or argon2.",
			},
		},
	}
}

func errorHandlingDetector() *PatternDetector {
	return &PatternDetector{
		name:         "error-handling",
		skipComments: true,
		rules: []patternRule{
			{
				name:     "swallowed-error",
				severity: domain.SeverityMedium,
				category: domain.CategoryErrorHandling,
				patterns: compilePatterns(
					`if err != nil \{\s*\}`,
					`^\s*_\s*=\s*\w+(\.\w+)*\(.*\)\s*$`,
					`catch\s*\([^)]*\)\s*\{\s*\}`,
					`^\s*except(\s+Exception)?\s*:\s*(pass)?\s*$`,
					`\.catch\(\s*\(\s*\w*\s*\)\s*=>\s*\{\s*\}\s*\)`,
				),
				message:    "Error is ignored or swallowed",
				suggestion: "Handle the error, wrap it with context, or log it explicitly.",
			},
			{
				name:     "panic-in-library",
				severity: domain.SeverityMedium,
				category: domain.CategoryErrorHandling,
				patterns: compilePatterns(
					`^\s*panic\(`,
					`log\.Fatal(f|ln)?\(`,
				),
				message:    "Process-terminating call",
				suggestion: "Return an error to the caller instead of terminating the process.",
			},
		},
	}
}

func debugOutputDetector() *PatternDetector {
	return &PatternDetector{
		name:         "debug-output",
		skipComments: true,
		skipTests:    true,
		rules: []patternRule{
			{
				name:     "debug-print",
				severity: domain.SeverityLow,
				category: domain.CategoryStyle,
				patterns: compilePatterns(
					`\bconsole\.(log|debug|trace)\(`,
					`\bfmt\.Print(ln|f)?\(`,
					`^\s*print\(`,
					`\bSystem\.out\.print(ln)?\(`,
					`^\s*debugger;?\s*$`,
				),
				message:    "Debug output left in code",
				suggestion: "Use the structured logger or remove the statement.",
			},
		},
	}
}

func todoDetector() *PatternDetector {
	return &PatternDetector{
		name: "todo",
		rules: []patternRule{
			{
				name:       "todo-marker",
				severity:   domain.SeverityLow,
				category:   domain.CategoryMaintainability,
				patterns:   compilePatterns(`\b(TODO|FIXME|HACK|XXX)\b`),
				message:    "Unresolved work marker",
				suggestion: "Link the marker to a tracked issue or resolve it before merging.",
			},
		},
	}
}

// LargeChangeDetector отмечает файлы с чрезмерно большим изменением (находка без строки).
type LargeChangeDetector struct {
	Threshold int
}

func (d LargeChangeDetector) Name() string { return "large-change" }

func (d LargeChangeDetector) Detect(file domain.FileChange, _ []AddedLine) []domain.ReviewComment {
	if d.Threshold <= 0 || file.Status == domain.FileRemoved || file.Changes <= d.Threshold {
		return nil
	}
	return []domain.ReviewComment{{
		File:       file.Filename,
		Severity:   domain.SeverityMedium,
		Category:   domain.CategoryMaintainability,
		Message:    fmt.Sprintf("Large change: %d lines modified in a single file", file.Changes),
		Suggestion: "Consider splitting the change into smaller, reviewable pieces.",
		Detector:   d.Name(),
	}}
}

func isCommentLine(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "--")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
