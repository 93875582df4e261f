// Package diag classifies the diagnostics a config parser produces into
// warnings that let a file's parse succeed anyway, and hard errors that fail
// it. Two codes get special handling because the scanner is expected to
// proceed past them rather than treat them as fatal: an unresolved
// #include (the referenced file wasn't found) and a blocked rapify (the
// parser hit preprocessor state, #if/#ifdef and friends, it cannot
// evaluate).
package diag

// Severity labels how serious a raw diagnostic is before classification.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one message a ConfigParser attaches to a parse attempt.
type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	File     string
}

// Special diagnostic codes. Classify always demotes CodeIncludeNotFound and
// CodeRapifyBlocked to warnings, regardless of the severity the parser
// itself assigned; CodeParserPanicked and CodeTimeout are attached as
// warnings by the parse pool itself.
const (
	CodeIncludeNotFound = "include_not_found"
	CodeRapifyBlocked   = "rapify_blocked"
	CodeParserPanicked  = "parser_panicked"
	CodeTimeout         = "timeout"
)

// Classifier turns a parser's raw diagnostics into a warnings list and, at
// most, one hard failure (the first non-ignored error encountered).
type Classifier struct {
	ignoreList map[string]struct{}
}

// NewClassifier builds a Classifier. Codes in ignoreList are dropped
// entirely, whether or not they would otherwise be hard errors.
func NewClassifier(ignoreList []string) *Classifier {
	c := &Classifier{ignoreList: make(map[string]struct{}, len(ignoreList))}
	for _, code := range ignoreList {
		c.ignoreList[code] = struct{}{}
	}
	return c
}

// Classify partitions diags into warnings and (at most) one hard failure.
func (c *Classifier) Classify(diags []Diagnostic) ([]Diagnostic, *Diagnostic) {
	var warnings []Diagnostic
	var hard *Diagnostic
	for _, d := range diags {
		if _, ignored := c.ignoreList[d.Code]; ignored {
			continue
		}
		switch d.Code {
		case CodeIncludeNotFound, CodeRapifyBlocked:
			d.Severity = SeverityWarning
			warnings = append(warnings, d)
			continue
		}
		if d.Severity == SeverityError {
			if hard == nil {
				hd := d
				hard = &hd
			}
			continue
		}
		warnings = append(warnings, d)
	}
	return warnings, hard
}
