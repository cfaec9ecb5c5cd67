package redactor

import "regexp"

// compiledPattern pairs a compiled regex with the entity type it detects.
type compiledPattern struct {
	entityType EntityType
	regex      *regexp.Regexp
}

// builtinPatterns is the always-available regex fallback taxonomy named in
// the redaction contract: when no higher-fidelity analyzer is configured,
// these alone run.
var builtinPatterns = []compiledPattern{
	{EntityEmail, regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{EntityPhone, regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{EntityCreditCard, regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)},
	{EntityIPAddress, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{EntityNationalID, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{EntityURL, regexp.MustCompile(`https?://[^\s"']+`)},
}

// RegexAnalyzer is the always-registered fallback analyzer. It never fails.
type RegexAnalyzer struct {
	patterns []compiledPattern
}

// NewRegexAnalyzer builds the fallback analyzer with the built-in taxonomy.
func NewRegexAnalyzer() *RegexAnalyzer {
	return &RegexAnalyzer{patterns: builtinPatterns}
}

func (a *RegexAnalyzer) Name() string { return "regex" }

func (a *RegexAnalyzer) Detect(text string) []Entity {
	var entities []Entity
	for _, p := range a.patterns {
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			entities = append(entities, Entity{
				Type:  p.entityType,
				Start: loc[0],
				End:   loc[1],
				Text:  text[loc[0]:loc[1]],
			})
		}
	}
	return entities
}
