package confluence

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

var (
	h3Re         = regexp.MustCompile(`(?m)^### (.+)$`)
	h2Re         = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Re         = regexp.MustCompile(`(?m)^# (.+)$`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	taskOpenRe   = regexp.MustCompile(`(?m)^- \[ \] (.+)$`)
	taskDoneRe   = regexp.MustCompile(`(?m)^- \[x\] (.+)$`)
	bulletRe     = regexp.MustCompile(`(?m)^- (.+)$`)
	orderedRe    = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	listBlockRe  = regexp.MustCompile(`(<li>.+</li>\n?)+`)
	blockTagList = []string{"<h1>", "<h2>", "<h3>", "<ul>", "<li>", "<ac:task"}
)

// MarkdownToStorage converts summary markdown into Confluence storage format.
// Covers the subset the summarizer emits: headings, bold/italic, checkbox
// action items, and plain lists.
func MarkdownToStorage(markdown string) string {
	out := markdown

	out = h3Re.ReplaceAllString(out, "<h3>$1</h3>")
	out = h2Re.ReplaceAllString(out, "<h2>$1</h2>")
	out = h1Re.ReplaceAllString(out, "<h1>$1</h1>")

	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")

	out = taskOpenRe.ReplaceAllString(out, "<ac:task-list><ac:task><ac:task-status>incomplete</ac:task-status><ac:task-body>$1</ac:task-body></ac:task></ac:task-list>")
	out = taskDoneRe.ReplaceAllString(out, "<ac:task-list><ac:task><ac:task-status>complete</ac:task-status><ac:task-body>$1</ac:task-body></ac:task></ac:task-list>")

	out = bulletRe.ReplaceAllString(out, "<li>$1</li>")
	out = orderedRe.ReplaceAllString(out, "<li>$1</li>")
	out = listBlockRe.ReplaceAllStringFunc(out, func(block string) string {
		return "<ul>" + block + "</ul>"
	})

	lines := strings.Split(out, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			result = append(result, "<p></p>")
		case containsAny(line, blockTagList):
			result = append(result, line)
		default:
			result = append(result, "<p>"+line+"</p>")
		}
	}
	return strings.Join(result, "\n")
}

func containsAny(s string, tags []string) bool {
	for _, tag := range tags {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}

// BuildMeetingPage lays out the page body: summary first, the full speaker
// transcript folded inside an expand macro.
func BuildMeetingPage(m *models.Meeting, author string) string {
	var transcript strings.Builder
	segments := m.CorrectedSegments()
	if len(segments) == 0 {
		segments = m.Segments()
	}

	switch {
	case len(segments) > 0:
		for _, seg := range segments {
			if seg.Text == "" {
				continue
			}
			speaker := seg.Speaker
			if speaker == "" {
				speaker = "Unknown"
			}
			transcript.WriteString(fmt.Sprintf("<p><strong>%s:</strong> %s</p>\n",
				html.EscapeString(speaker), html.EscapeString(seg.Text)))
		}
	case m.CorrectedTranscript != "":
		transcript.WriteString("<p>" + html.EscapeString(m.CorrectedTranscript) + "</p>")
	case m.Transcript != "":
		transcript.WriteString("<p>" + html.EscapeString(m.Transcript) + "</p>")
	default:
		transcript.WriteString("<p>전문 없음</p>")
	}

	summary := m.Summary
	if summary == "" {
		summary = "요약 없음"
	}

	return fmt.Sprintf(`
<h1>%s</h1>
<p><strong>회의 일시:</strong> %s</p>
<p><strong>작성자:</strong> %s</p>
<hr/>
<h2>요약</h2>
%s
<hr/>
<ac:structured-macro ac:name="expand">
  <ac:parameter ac:name="title">전문 보기</ac:parameter>
  <ac:rich-text-body>
%s
  </ac:rich-text-body>
</ac:structured-macro>
`,
		html.EscapeString(m.Title),
		m.MeetingDate.Format("2006-01-02 15:04"),
		html.EscapeString(author),
		MarkdownToStorage(summary),
		transcript.String(),
	)
}

// PageTitle builds the canonical page title, ex: "[회의록] 0115 주간 회의".
func PageTitle(m *models.Meeting) string {
	return fmt.Sprintf("[회의록] %s %s", m.MeetingDate.Format("0102"), m.Title)
}
