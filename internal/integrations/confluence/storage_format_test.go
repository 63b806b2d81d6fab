package confluence

import (
	"strings"
	"testing"
	"time"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

func TestMarkdownToStorageHeadingsAndEmphasis(t *testing.T) {
	in := "# 제목\n## 소제목\n**중요** 그리고 *강조*"
	out := MarkdownToStorage(in)

	for _, want := range []string{
		"<h1>제목</h1>",
		"<h2>소제목</h2>",
		"<strong>중요</strong>",
		"<em>강조</em>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownToStorageTaskList(t *testing.T) {
	in := "- [ ] 후속 조치\n- [x] 완료된 일"
	out := MarkdownToStorage(in)

	if !strings.Contains(out, "<ac:task-status>incomplete</ac:task-status><ac:task-body>후속 조치</ac:task-body>") {
		t.Fatalf("open task not converted:\n%s", out)
	}
	if !strings.Contains(out, "<ac:task-status>complete</ac:task-status><ac:task-body>완료된 일</ac:task-body>") {
		t.Fatalf("done task not converted:\n%s", out)
	}
	if strings.Contains(out, "<li>[ ]") || strings.Contains(out, "<li>[x]") {
		t.Fatalf("task items leaked into plain list:\n%s", out)
	}
}

func TestMarkdownToStorageLists(t *testing.T) {
	in := "- 항목 하나\n- 항목 둘"
	out := MarkdownToStorage(in)

	if !strings.Contains(out, "<ul><li>항목 하나</li>\n<li>항목 둘</li>") {
		t.Fatalf("bullet list not wrapped:\n%s", out)
	}
}

func TestMarkdownToStorageParagraphs(t *testing.T) {
	out := MarkdownToStorage("일반 문장\n\n다음 문단")
	if !strings.Contains(out, "<p>일반 문장</p>") {
		t.Fatalf("plain line not wrapped:\n%s", out)
	}
	if !strings.Contains(out, "<p></p>") {
		t.Fatalf("blank line not preserved:\n%s", out)
	}
}

func TestBuildMeetingPagePrefersCorrectedSegments(t *testing.T) {
	m := &models.Meeting{
		Title:       "주간 회의",
		MeetingDate: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Summary:     "## 요약\n- 결정 사항",
	}
	m.CorrectedSpeakerData = models.EncodeSegments([]models.Segment{
		{Speaker: "Speaker 0", Start: 0, End: 3, Text: "교정된 발언 <테스트>"},
	})
	m.SpeakerData = models.EncodeSegments([]models.Segment{
		{Speaker: "Speaker 0", Start: 0, End: 3, Text: "원본 발언"},
	})

	page := BuildMeetingPage(m, "플랫폼팀")

	if !strings.Contains(page, "<strong>Speaker 0:</strong> 교정된 발언 &lt;테스트&gt;") {
		t.Fatalf("corrected segment missing or unescaped:\n%s", page)
	}
	if strings.Contains(page, "원본 발언") {
		t.Fatalf("raw segments should not appear when corrected data exists")
	}
	if !strings.Contains(page, "작성자:</strong> 플랫폼팀") {
		t.Fatalf("author missing:\n%s", page)
	}
	if !strings.Contains(page, `ac:name="expand"`) {
		t.Fatalf("transcript not folded in expand macro")
	}
	if !strings.Contains(page, "2026-01-15 10:30") {
		t.Fatalf("meeting date missing:\n%s", page)
	}
}

func TestBuildMeetingPageEmptyMeeting(t *testing.T) {
	m := &models.Meeting{Title: "빈 회의", MeetingDate: time.Now()}
	page := BuildMeetingPage(m, "")

	if !strings.Contains(page, "전문 없음") {
		t.Fatalf("empty transcript placeholder missing")
	}
	if !strings.Contains(page, "요약 없음") {
		t.Fatalf("empty summary placeholder missing")
	}
}

func TestPageTitle(t *testing.T) {
	m := &models.Meeting{
		Title:       "주간 회의",
		MeetingDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if got := PageTitle(m); got != "[회의록] 0115 주간 회의" {
		t.Fatalf("PageTitle = %q", got)
	}
}
