package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
)

// chatLineRe matches "speaker: message" transcript lines, with an optional
// leading [timestamp] as produced by most messenger exports.
var chatLineRe = regexp.MustCompile(`^(?:\[([^\]]+)\]\s*)?([^:\[\]]{1,40}):\s+(.*)$`)

// ChatExtractor parses messenger transcript exports. Consecutive messages
// from the same speaker are merged so the extraction prompt reads as a
// conversation rather than a line dump.
type ChatExtractor struct{}

// NewChatExtractor creates a chat transcript extractor.
func NewChatExtractor() *ChatExtractor {
	return &ChatExtractor{}
}

func (e *ChatExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindChat
}

type chatMessage struct {
	speaker string
	lines   []string
}

func (e *ChatExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	raw := normalizeText(string(data))
	if raw == "" {
		return nil, fmt.Errorf("chat transcript is empty")
	}

	var messages []*chatMessage
	speakers := map[string]int{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := chatLineRe.FindStringSubmatch(line); m != nil {
			speaker := strings.TrimSpace(m[2])
			speakers[speaker]++
			last := lastMessage(messages)
			if last != nil && last.speaker == speaker {
				last.lines = append(last.lines, m[3])
				continue
			}
			messages = append(messages, &chatMessage{speaker: speaker, lines: []string{m[3]}})
			continue
		}
		// Continuation line of a multi-line message
		if last := lastMessage(messages); last != nil {
			last.lines = append(last.lines, line)
		}
	}

	if len(messages) == 0 {
		// Not transcript-shaped at all: hand the raw text over unchanged
		return &ParsedContent{Text: raw, Metadata: map[string]string{"messages": "0"}}, nil
	}

	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "%s: %s\n", msg.speaker, strings.Join(msg.lines, " "))
	}

	return &ParsedContent{
		Text: normalizeText(b.String()),
		Metadata: map[string]string{
			"messages":     strconv.Itoa(len(messages)),
			"participants": strings.Join(sortedSpeakers(speakers), ", "),
		},
	}, nil
}

func lastMessage(messages []*chatMessage) *chatMessage {
	if len(messages) == 0 {
		return nil
	}
	return messages[len(messages)-1]
}

func sortedSpeakers(speakers map[string]int) []string {
	names := make([]string, 0, len(speakers))
	for name := range speakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
