package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// mathSpan is one extracted math expression held aside while goldmark runs.
type mathSpan struct {
	body    string
	display bool
}

// renderResult is the output of one pipeline execution.
type renderResult struct {
	HTML  string
	Title string
}

// mathHintChars marks a bare [...] bracket as a formula rather than a link
// or citation. A tunable heuristic, not a grammar.
const mathHintChars = `\^_{}=<>+-*/`

const placeholderPrefix = "@@MATHSPAN"

var (
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Delimiter families in extraction priority order. All non-greedy so a
	// $$...$$ block is never split into two $...$ spans, and all free of
	// nested unbounded quantifiers (no catastrophic backtracking).
	displayDollarRe = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	latexBracketRe  = regexp.MustCompile(`(?s)\\\[(.+?)\\\]`)
	latexParenRe    = regexp.MustCompile(`(?s)\\\((.+?)\\\)`)
	inlineDollarRe  = regexp.MustCompile(`(?s)\$([^$]+?)\$`)
	bracketHeurRe   = regexp.MustCompile(`\[([^\[\]\n]+)\]`)

	spanNewlineRe   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	subscriptRe     = regexp.MustCompile(`_([a-zA-Z0-9]+)`)
	listItemRe      = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d+\.)[ \t]`)
	orderedItemRe   = regexp.MustCompile(`^( *)(\d+)\. `)
	unorderedItemRe = regexp.MustCompile(`^( *)[-*+] `)
	orphanTokenRe   = regexp.MustCompile(`@@MATHSPAN\d+@@`)
)

// newMarkdownRenderer creates a configured goldmark renderer. Hard wraps
// are on: a single newline is a line break, which is why the math
// normalizer collapses newlines inside spans first.
func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
}

// renderDocument runs the full pipeline on one document: list repair, math
// extraction, goldmark conversion, math restoration. All state is local to
// the call, so concurrent renders never share spans.
func renderDocument(name string, raw []byte) (renderResult, error) {
	text := normalizeLineEndings(string(raw))
	text = ensureListSeparation(text)
	text = repairNestedLists(text)
	text, spans := extractMathSpans(text)

	md := newMarkdownRenderer()
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return renderResult{}, fmt.Errorf("convert markdown: %w", err)
	}

	return renderResult{
		HTML:  restoreMathSpans(buf.String(), spans),
		Title: name,
	}, nil
}

func normalizeLineEndings(text string) string {
	return crlfOrCR.ReplaceAllString(text, "\n")
}

// extraction accumulates spans for a single render pass.
type extraction struct {
	spans []mathSpan
}

func (x *extraction) add(body string, display bool) string {
	x.spans = append(x.spans, mathSpan{body: normalizeMathContent(body), display: display})
	return fmt.Sprintf("%s%d@@", placeholderPrefix, len(x.spans)-1)
}

// extractMathSpans replaces every recognized math span with an opaque
// placeholder token and returns the spans in token order. Delimiter
// families are scanned display-dollar first so $$...$$ is never mis-read
// as two inline spans; the bracket heuristic runs last so it cannot
// swallow spans extracted earlier.
func extractMathSpans(text string) (string, []mathSpan) {
	x := &extraction{}
	text = protectDelimited(text, displayDollarRe, true, x)
	text = protectDelimited(text, latexBracketRe, true, x)
	text = protectDelimited(text, latexParenRe, false, x)
	text = protectDelimited(text, inlineDollarRe, false, x)
	text = protectBrackets(text, x)
	return text, x.spans
}

func protectDelimited(text string, re *regexp.Regexp, display bool, x *extraction) string {
	return re.ReplaceAllStringFunc(text, func(m string) string {
		body := re.FindStringSubmatch(m)[1]
		return x.add(body, display)
	})
}

// protectBrackets applies the [...] heuristic: only brackets whose content
// contains a math hint character are treated as formulas; link and image
// syntax is left for the renderer.
func protectBrackets(text string, x *extraction) string {
	matches := bracketHeurRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]
		body := text[loc[2]:loc[3]]
		if !looksLikeMath(body) || isLinkContext(text, start, end) {
			continue
		}
		// Never re-capture a placeholder from an earlier pass.
		if strings.Contains(body, placeholderPrefix) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(x.add(body, true))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func looksLikeMath(s string) bool {
	return strings.ContainsAny(s, mathHintChars)
}

// isLinkContext reports whether a bracket at [start,end) is part of
// Markdown link, image, or reference syntax.
func isLinkContext(text string, start, end int) bool {
	if end < len(text) && (text[end] == '(' || text[end] == '[' || text[end] == ':') {
		return true
	}
	if start > 0 && (text[start-1] == '!' || text[start-1] == ']') {
		return true
	}
	return false
}

// normalizeMathContent prepares a span body for single-line rendering:
// embedded line breaks collapse to one space, and bare subscripts gain
// braces so later transforms cannot split them. Re-normalizing braced
// content is a no-op.
func normalizeMathContent(s string) string {
	s = spanNewlineRe.ReplaceAllString(s, " ")
	s = subscriptRe.ReplaceAllString(s, "_{$1}")
	return strings.TrimSpace(s)
}

// delimited wraps the span body in the canonical delimiters the client
// math renderer is configured for.
func (s mathSpan) delimited() string {
	if s.display {
		return `\[ ` + s.body + ` \]`
	}
	return `\( ` + s.body + ` \)`
}

// restoreMathSpans substitutes every placeholder with its span in canonical
// delimiter form, then sweeps any orphaned tokens a renderer quirk may have
// left behind.
func restoreMathSpans(html string, spans []mathSpan) string {
	for i, span := range spans {
		token := fmt.Sprintf("%s%d@@", placeholderPrefix, i)
		html = strings.ReplaceAll(html, token, span.delimited())
	}
	return orphanTokenRe.ReplaceAllString(html, "")
}

// ensureListSeparation inserts a blank line before a list item that
// directly follows non-blank, non-list text; goldmark will not otherwise
// recognize the list start.
func ensureListSeparation(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i > 0 && listItemRe.MatchString(line) {
			prev := lines[i-1]
			if strings.TrimSpace(prev) != "" && !listItemRe.MatchString(prev) {
				out = append(out, "")
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// repairNestedLists fixes formatter artifacts around bullets nested inside
// ordered items: a stray blank line between the ordered item and its
// nested bullet restarts the numbering, and under-indented bullets escape
// the item. The nested bullet is re-indented past the ordered marker.
func repairNestedLists(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	inOrdered := false
	orderedIndent := 0
	markerWidth := 0

	for i, line := range lines {
		if m := orderedItemRe.FindStringSubmatch(line); m != nil {
			inOrdered = true
			orderedIndent = len(m[1])
			markerWidth = len(m[2]) + 2 // digits plus ". "
			out = append(out, line)
			continue
		}

		if inOrdered {
			if strings.TrimSpace(line) == "" {
				if next, ok := nextLine(lines, i); ok && isNestedBullet(next, orderedIndent) {
					continue // drop the blank, keep the numbering intact
				}
				out = append(out, line)
				continue
			}
			if isNestedBullet(line, orderedIndent) {
				indent := strings.Repeat(" ", orderedIndent+markerWidth+4)
				out = append(out, indent+strings.TrimLeft(line, " "))
				continue
			}
			if leadingSpaces(line) <= orderedIndent {
				inOrdered = false
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isNestedBullet(line string, orderedIndent int) bool {
	m := unorderedItemRe.FindStringSubmatch(line)
	return m != nil && len(m[1]) > orderedIndent
}

func nextLine(lines []string, i int) (string, bool) {
	if i+1 >= len(lines) {
		return "", false
	}
	return lines[i+1], true
}

func leadingSpaces(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}
