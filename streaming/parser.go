// Package streaming implements the incremental thinking-segment parser and
// the edit-cadence pipeline that drives it against a live backend stream.
package streaming

import (
	"fmt"
	"strings"
)

// parserState is the thinking-extractor's internal state machine position.
type parserState int

const (
	stateIdle parserState = iota
	stateThinking
	stateDone
)

// ThinkingParser is a single-pass incremental state machine: it
// consumes chunk strings and separates them into thoughts (bracketed by a
// configured start/end tag pair) and content.
type ThinkingParser struct {
	startTag string
	endTag   string
	state    parserState
	thoughts strings.Builder
	content  strings.Builder
}

// NewThinkingParser builds a parser. An empty startTag or endTag disables
// thinking-segment extraction entirely: every chunk goes straight to
// content.
func NewThinkingParser(startTag, endTag string) *ThinkingParser {
	return &ThinkingParser{startTag: startTag, endTag: endTag}
}

// Append feeds one chunk of backend output into the parser.
func (p *ThinkingParser) Append(chunk string) {
	if p.startTag == "" || p.endTag == "" || p.state == stateDone {
		p.content.WriteString(chunk)
		return
	}

	switch p.state {
	case stateIdle:
		p.appendIdle(chunk)
	case stateThinking:
		p.appendThinking(chunk)
	}
}

func (p *ThinkingParser) appendIdle(chunk string) {
	idx := strings.Index(chunk, p.startTag)
	if idx < 0 {
		p.content.WriteString(chunk)
		return
	}

	rest := trimLeadingWhitespace(chunk[idx+len(p.startTag):])
	if endIdx := strings.Index(rest, p.endTag); endIdx >= 0 {
		p.thoughts.WriteString(strings.TrimSpace(rest[:endIdx]))
		p.state = stateDone
		p.content.WriteString(trimLeadingWhitespace(rest[endIdx+len(p.endTag):]))
		return
	}

	p.thoughts.WriteString(rest)
	p.state = stateThinking
}

func (p *ThinkingParser) appendThinking(chunk string) {
	endIdx := strings.Index(chunk, p.endTag)
	if endIdx < 0 {
		p.thoughts.WriteString(chunk)
		return
	}

	p.thoughts.WriteString(trimTrailingWhitespace(chunk[:endIdx]))
	p.state = stateDone
	p.content.WriteString(trimLeadingWhitespace(chunk[endIdx+len(p.endTag):]))
}

// Thoughts returns the accumulated thinking-segment text.
func (p *ThinkingParser) Thoughts() string { return p.thoughts.String() }

// Content returns the accumulated user-facing text.
func (p *ThinkingParser) Content() string { return p.content.String() }

// ThinkingInProgress reports whether a start tag has been consumed and the
// matching end tag has not (started ∧ ¬done).
func (p *ThinkingParser) ThinkingInProgress() bool { return p.state == stateThinking }

const waitingMessage = "*Waiting for response...*"

// Render applies the streaming pipeline's four-way render policy.
func (p *ThinkingParser) Render() string {
	return renderParts(p.Thoughts(), p.Content())
}

func renderParts(thoughts, content string) string {
	switch {
	case content != "" && thoughts != "":
		return fmt.Sprintf("*%s*\n\n%s", thoughts, content)
	case content != "":
		return content
	case thoughts != "":
		return fmt.Sprintf("*%s*", thoughts)
	default:
		return waitingMessage
	}
}

const whitespaceChars = " \t\n\r"

func trimLeadingWhitespace(s string) string  { return strings.TrimLeft(s, whitespaceChars) }
func trimTrailingWhitespace(s string) string { return strings.TrimRight(s, whitespaceChars) }
