// Package classparser implements a small recursive-descent parser for the
// "class X: Y { prop = val; };" config dialect used by game-data and mission
// archives. It is not a general SQF or preprocessor implementation: an
// #include it cannot resolve becomes a warning rather than a failure, and
// any other leading-# directive (#if, #ifdef, #ifndef, #else, #endif,
// #define) is treated as unevaluable preprocessor state and likewise
// demoted to a warning rather than rejected. It implements
// internal/parse.ConfigParser.
package classparser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arma3tool/arma3tool/internal/parse"
	"github.com/arma3tool/arma3tool/internal/parse/diag"
	"github.com/arma3tool/arma3tool/internal/store"
)

// Parser is the default ConfigParser implementation.
type Parser struct{}

// New returns a class-dialect parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses path.
func (p *Parser) ParseFile(ctx context.Context, path string) (parse.ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parse.ParseResult{}, err
	}
	return ParseSource(string(data), path)
}

// ParseSource parses src as if it were read from filePath (used to resolve
// relative #include directives and to tag diagnostics).
func ParseSource(src, filePath string) (parse.ParseResult, error) {
	r := &parseRun{
		toks:    lex(src),
		file:    filePath,
		baseDir: filepath.Dir(filePath),
	}
	classes, _ := r.parseMembers("")
	return parse.ParseResult{Classes: classes, Diagnostics: r.diagnostics}, nil
}

type parseRun struct {
	toks          []token
	pos           int
	file          string
	baseDir       string
	diagnostics   []diag.Diagnostic
	warnedBlocked bool
}

func (r *parseRun) peek() token {
	if r.pos >= len(r.toks) {
		return token{kind: tokEOF}
	}
	return r.toks[r.pos]
}

func (r *parseRun) next() token {
	t := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	return t
}

func (r *parseRun) errorf(line int, format string, args ...interface{}) {
	r.diagnostics = append(r.diagnostics, diag.Diagnostic{
		Code:     "syntax_error",
		Message:  fmt.Sprintf("%s:%d: %s", r.file, line, fmt.Sprintf(format, args...)),
		Severity: diag.SeverityError,
		File:     r.file,
	})
}

// parseMembers parses class definitions and property assignments until it
// hits a closing '}' (nested scope) or EOF (top level). containerClass
// names the enclosing class, or "" at the top level. It returns the classes
// found at this level and below (nested classes are flattened into the same
// slice, tagged via ContainerClass) plus the plain property assignments
// that belong directly to this level.
func (r *parseRun) parseMembers(containerClass string) ([]parse.ParsedClass, map[string]store.PropertyValue) {
	var classes []parse.ParsedClass
	props := make(map[string]store.PropertyValue)
	for {
		t := r.peek()
		switch {
		case t.kind == tokEOF:
			return classes, props
		case t.kind == tokSymbol && t.text == "}":
			return classes, props
		case t.kind == tokSymbol:
			r.next() // stray symbol: skip rather than abort the file
		case t.kind == tokInclude:
			r.next()
			r.handleInclude(t)
		case t.kind == tokPreprocessor:
			r.next()
			r.handleBlockedPreprocessor(t)
		case t.kind == tokIdent && t.text == "class":
			r.next()
			cls, nested, ok := r.parseClass(containerClass)
			if ok {
				classes = append(classes, cls)
				classes = append(classes, nested...)
			}
		case t.kind == tokIdent:
			name, val, ok := r.parseProperty()
			if ok {
				props[name] = val
			}
		default:
			r.next()
		}
	}
}

// parseClass parses one "class Name[: Parent] ({...} | ;)" definition. It
// returns the class itself plus any classes nested in its body, flattened.
func (r *parseRun) parseClass(containerClass string) (parse.ParsedClass, []parse.ParsedClass, bool) {
	nameTok := r.next()
	if nameTok.kind != tokIdent {
		r.errorf(nameTok.line, "expected class name, got %q", nameTok.text)
		return parse.ParsedClass{}, nil, false
	}
	cls := parse.ParsedClass{Name: nameTok.text, ContainerClass: containerClass}

	if r.peek().kind == tokSymbol && r.peek().text == ":" {
		r.next()
		parentTok := r.next()
		if parentTok.kind != tokIdent {
			r.errorf(parentTok.line, "expected parent class name, got %q", parentTok.text)
			return cls, nil, false
		}
		cls.ParentName = parentTok.text
	}

	switch {
	case r.peek().kind == tokSymbol && r.peek().text == ";":
		r.next()
		cls.IsForwardDeclaration = true
		cls.Properties = map[string]store.PropertyValue{}
		return cls, nil, true
	case r.peek().kind == tokSymbol && r.peek().text == "{":
		r.next()
		nested, props := r.parseMembers(cls.Name)
		cls.Properties = props
		if r.peek().kind == tokSymbol && r.peek().text == "}" {
			r.next()
		}
		if r.peek().kind == tokSymbol && r.peek().text == ";" {
			r.next()
		}
		return cls, nested, true
	default:
		t := r.next()
		r.errorf(t.line, "expected ';' or '{' after class %s, got %q", cls.Name, t.text)
		cls.Properties = map[string]store.PropertyValue{}
		return cls, nil, true
	}
}

// parseProperty parses "name[[]] = value;" and returns (name, value, true)
// on success. If the next tokens don't form an assignment, it consumes the
// identifier anyway and returns ok=false so the caller's loop still makes
// progress.
func (r *parseRun) parseProperty() (string, store.PropertyValue, bool) {
	nameTok := r.next()
	if r.peek().kind == tokSymbol && r.peek().text == "[" {
		r.next()
		if r.peek().kind == tokSymbol && r.peek().text == "]" {
			r.next()
		}
	}
	if !(r.peek().kind == tokSymbol && r.peek().text == "=") {
		return "", store.PropertyValue{}, false
	}
	r.next() // consume '='
	val := r.parseValue()
	if r.peek().kind == tokSymbol && r.peek().text == ";" {
		r.next()
	}
	return nameTok.text, val, true
}

func (r *parseRun) parseValue() store.PropertyValue {
	t := r.peek()
	switch {
	case t.kind == tokString:
		r.next()
		return store.NewString(unquote(t.text))
	case t.kind == tokNumber:
		r.next()
		var f float64
		fmt.Sscanf(t.text, "%g", &f)
		return store.NewNumber(f)
	case t.kind == tokSymbol && t.text == "{":
		r.next()
		var arr []store.PropertyValue
		for !(r.peek().kind == tokSymbol && r.peek().text == "}") && r.peek().kind != tokEOF {
			arr = append(arr, r.parseValue())
			if r.peek().kind == tokSymbol && r.peek().text == "," {
				r.next()
			}
		}
		if r.peek().kind == tokSymbol && r.peek().text == "}" {
			r.next()
		}
		return store.NewArray(arr)
	case t.kind == tokIdent:
		r.next()
		return store.NewString(t.text)
	default:
		r.next()
		return store.NewString("")
	}
}

func (r *parseRun) handleInclude(t token) {
	ref := extractIncludePath(t.text)
	if ref == "" {
		return
	}
	candidate := filepath.Join(r.baseDir, ref)
	if _, err := os.Stat(candidate); err != nil {
		r.diagnostics = append(r.diagnostics, diag.Diagnostic{
			Code:     diag.CodeIncludeNotFound,
			Message:  fmt.Sprintf("included file not found: %s", ref),
			Severity: diag.SeverityWarning,
			File:     r.file,
		})
	}
}

func (r *parseRun) handleBlockedPreprocessor(t token) {
	if r.warnedBlocked {
		return
	}
	r.warnedBlocked = true
	r.diagnostics = append(r.diagnostics, diag.Diagnostic{
		Code:     diag.CodeRapifyBlocked,
		Message:  "preprocessor directives are not evaluated; conditional blocks are included verbatim",
		Severity: diag.SeverityWarning,
		File:     r.file,
	})
}

func extractIncludePath(directive string) string {
	start := -1
	for i, c := range directive {
		if c == '"' {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return ""
	}
	end := -1
	for i := start; i < len(directive); i++ {
		if directive[i] == '"' {
			end = i
			break
		}
	}
	if end == -1 {
		return ""
	}
	return directive[start:end]
}
