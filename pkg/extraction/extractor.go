// Package extraction pulls structured user facts out of free-form chat text
// using a fixed table of patterns. It is deliberately pattern-based rather
// than model-based so the message hot path stays deterministic and makes no
// extra network calls. The table is tuned to prefer false negatives: a missed
// fact costs nothing, a wrong one pollutes every later prompt.
package extraction

import (
	"regexp"
	"strings"
)

// Facts is the structured output of one extraction pass.
type Facts struct {
	Name        string
	Interests   []string
	Goals       []string
	Preferences map[string]string
}

// IsEmpty reports whether the pass found nothing.
func (f Facts) IsEmpty() bool {
	return f.Name == "" && len(f.Interests) == 0 && len(f.Goals) == 0 && len(f.Preferences) == 0
}

type field int

const (
	fieldName field = iota
	fieldInterest
	fieldGoal
	fieldPreference
)

type pattern struct {
	field field
	re    *regexp.Regexp
	// key is only set for preference patterns without a captured key group
	key string
}

// valueExpr matches a fact value up to sentence punctuation.
const valueExpr = `([^.,!?;\n]+)`

var patterns = []pattern{
	// Names stay case-sensitive on the capture: a following lowercase word is
	// almost always the sentence continuing, not a surname.
	{field: fieldName, re: regexp.MustCompile(`\b(?i:my name is) ([A-Z][a-zA-Z]*(?: [A-Z][a-zA-Z]*)?)`)},
	{field: fieldName, re: regexp.MustCompile(`\b(?i:call me) ([A-Z][a-zA-Z]*)`)},

	{field: fieldInterest, re: regexp.MustCompile(`(?i)\bi (?:really )?(?:like|love|enjoy) ` + valueExpr)},
	{field: fieldInterest, re: regexp.MustCompile(`(?i)\bi'?m (?:really )?interested in ` + valueExpr)},
	{field: fieldInterest, re: regexp.MustCompile(`(?i)\bi am (?:really )?interested in ` + valueExpr)},

	{field: fieldGoal, re: regexp.MustCompile(`(?i)\bmy goal is (?:to )?` + valueExpr)},
	{field: fieldGoal, re: regexp.MustCompile(`(?i)\bi want to ` + valueExpr)},
	{field: fieldGoal, re: regexp.MustCompile(`(?i)\bi'?m trying to ` + valueExpr)},
	{field: fieldGoal, re: regexp.MustCompile(`(?i)\bi am trying to ` + valueExpr)},
	{field: fieldGoal, re: regexp.MustCompile(`(?i)\bi hope to ` + valueExpr)},

	{field: fieldPreference, re: regexp.MustCompile(`(?i)\bmy favorite ([a-zA-Z ]+?) is ` + valueExpr)},
	{field: fieldPreference, re: regexp.MustCompile(`(?i)\bi prefer ` + valueExpr), key: "prefers"},
}

const maxValueLength = 80

// Extract runs the pattern table over text. Pure: no I/O, no state.
func Extract(text string) Facts {
	facts := Facts{}

	for _, p := range patterns {
		matches := p.re.FindAllStringSubmatch(text, -1)
		for _, m := range matches {
			switch p.field {
			case fieldName:
				if facts.Name == "" {
					facts.Name = cleanValue(m[1])
				}
			case fieldInterest:
				if v := cleanValue(m[1]); v != "" {
					facts.Interests = append(facts.Interests, v)
				}
			case fieldGoal:
				if v := cleanValue(m[1]); v != "" {
					facts.Goals = append(facts.Goals, v)
				}
			case fieldPreference:
				key := p.key
				value := m[1]
				if key == "" {
					// pattern captured its own key group
					key = "favorite " + strings.ToLower(cleanValue(m[1]))
					value = m[2]
				}
				if v := cleanValue(value); v != "" {
					if facts.Preferences == nil {
						facts.Preferences = make(map[string]string)
					}
					facts.Preferences[key] = v
				}
			}
		}
	}

	return facts
}

// clauseBreaks end a captured value when the sentence moves on to a new
// first-person clause. A bare " and " is kept so compound values like
// "hiking and swimming" survive.
var clauseBreaks = []string{" and i ", " but i ", " so i ", " because ", " since "}

func cleanValue(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.Trim(v, `"'`)

	lower := strings.ToLower(v) + " "
	for _, brk := range clauseBreaks {
		if idx := strings.Index(lower, brk); idx >= 0 {
			v = strings.TrimSpace(v[:idx])
			lower = strings.ToLower(v) + " "
		}
	}

	if len(v) > maxValueLength {
		v = strings.TrimSpace(v[:maxValueLength])
	}
	return v
}
