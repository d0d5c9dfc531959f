package sample

import (
	"regexp"
	"strings"
)

// Rule classifies free-form text into a context tag.
type Rule struct {
	Context Context
	Match   func(text string) bool
}

// Detector holds an ordered rule list; earlier rules take precedence. The
// predicates are heuristics over code markers and punctuation, advisory
// only, and allowed to misclassify.
type Detector struct {
	rules []Rule
}

func NewDetector(rules ...Rule) *Detector {
	return &Detector{rules: rules}
}

// Add appends a rule; registration order is evaluation order.
func (d *Detector) Add(ctx Context, match func(string) bool) {
	d.rules = append(d.rules, Rule{Context: ctx, Match: match})
}

// Detect returns the tag of the first matching rule. The second return is
// false when nothing matched, in which case callers keep whatever context
// was previously active.
func (d *Detector) Detect(text string) (Context, bool) {
	for _, rule := range d.rules {
		if rule.Match(text) {
			return rule.Context, true
		}
	}
	return "", false
}

var (
	sourceFilePattern = regexp.MustCompile(`\.(java|cpp|py|js|ts)$`)
	variableDeclOpen  = regexp.MustCompile(`\b(let|var|const|int|String|float|double)\s+\w*$`)
	functionDeclOpen  = regexp.MustCompile(`\b(function|def|public|private|static)\s+\w*$`)
)

// DefaultDetector returns the stock rule set: code completion, JSON
// generation, naming and documentation contexts, in that precedence order.
func DefaultDetector() *Detector {
	d := NewDetector()

	d.Add(ContextCodeCompletion, func(text string) bool {
		return sourceFilePattern.MatchString(text) ||
			strings.Contains(text, "function ") ||
			strings.Contains(text, "class ") ||
			strings.Contains(text, "def ") ||
			strings.Contains(text, "import ")
	})

	d.Add(ContextJSONGeneration, func(text string) bool {
		return strings.Contains(text, "json") ||
			strings.Contains(text, "{") ||
			(strings.Contains(text, `"`) && strings.Contains(text, ":"))
	})

	d.Add(ContextVariableName, func(text string) bool {
		return variableDeclOpen.MatchString(text)
	})

	d.Add(ContextFunctionName, func(text string) bool {
		return functionDeclOpen.MatchString(text)
	})

	d.Add(ContextDocumentation, func(text string) bool {
		return strings.Contains(text, "/**") ||
			strings.Contains(text, "//") ||
			strings.Contains(text, "# ") ||
			strings.Contains(text, "doc:")
	})

	return d
}
