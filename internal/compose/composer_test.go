package compose

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 10, 18, hour, 30, 0, 0, time.UTC)
	}
}

func sampleArticles() []model.ClassifiedArticle {
	return []model.ClassifiedArticle{
		{Article: model.Article{Title: "Rocket lands", Description: "Booster returned safely.", Source: "Space Daily"}, Category: model.CategoryScience, Emotion: "hopeful"},
		{Article: model.Article{Title: "Markets slide", Description: "Stocks fell sharply.", Source: "Reuters"}, Category: model.CategoryBusiness, Emotion: "negative"},
		{Article: model.Article{Title: "Storm warning", Source: "Weather Desk"}, Category: model.CategoryWeather, Emotion: "urgent"},
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{8, "morning"},
		{14, "afternoon"},
		{19, "evening"},
		{2, "night"},
		{5, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{21, "evening"},
		{22, "night"},
		{0, "night"},
		{4, "night"},
	}
	for _, tt := range tests {
		if got := Greeting(tt.hour); got != tt.want {
			t.Errorf("Greeting(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestCompose_Empty_ReturnsSentinel(t *testing.T) {
	c := NewComposer(fixedClock(9))

	for _, in := range [][]model.ClassifiedArticle{nil, {}} {
		b := c.Compose(in)
		if b.Script != NoContentScript {
			t.Errorf("Script = %q, want %q", b.Script, NoContentScript)
		}
		if strings.ContainsAny(b.Script, "{}") {
			t.Errorf("空の原稿にプレースホルダーが残ってはならない: %q", b.Script)
		}
		if b.Articles == nil || len(b.Articles) != 0 {
			t.Errorf("Articles は空スライスであるべき: %#v", b.Articles)
		}
	}
}

func TestCompose_MatchesTemplateVerbatim(t *testing.T) {
	c := NewComposer(fixedClock(14))
	b := c.Compose(sampleArticles()[:2])

	want := "\nGood afternoon, I'm your digital news anchor. Here are the latest headlines:\n\n" +
		"- Rocket lands\n- Markets slide\n\n" +
		"Let's dive into the details:\n\n" +
		"\nAccording to Space Daily, Rocket lands. Booster returned safely.\n\n" +
		"\nAccording to Reuters, Markets slide. Stocks fell sharply.\n\n\n" +
		"That's all for now. Stay tuned for more updates.\n"

	if b.Script != want {
		t.Errorf("Script mismatch\n got: %q\nwant: %q", b.Script, want)
	}
}

func TestCompose_HeadlinesInInputOrder(t *testing.T) {
	c := NewComposer(fixedClock(19))
	in := sampleArticles()
	b := c.Compose(in)

	var headlines []string
	for _, line := range strings.Split(b.Script, "\n") {
		if strings.HasPrefix(line, "- ") {
			headlines = append(headlines, strings.TrimPrefix(line, "- "))
		}
	}
	if len(headlines) != len(in) {
		t.Fatalf("見出し数 = %d, want %d", len(headlines), len(in))
	}
	for i, a := range in {
		if headlines[i] != a.Title {
			t.Errorf("見出し[%d] = %q, want %q", i, headlines[i], a.Title)
		}
	}
	if !strings.Contains(b.Script, "Good evening,") {
		t.Errorf("19時の挨拶は evening であるべき")
	}
	if strings.Contains(b.Script, "{") {
		t.Errorf("プレースホルダーが残ってはならない: %q", b.Script)
	}
}

func TestCompose_ToleratesMissingFields(t *testing.T) {
	c := NewComposer(fixedClock(2))
	b := c.Compose([]model.ClassifiedArticle{{Category: model.CategoryOther}})

	if !strings.Contains(b.Script, "Good night,") {
		t.Error("2時の挨拶は night であるべき")
	}
	if !strings.Contains(b.Script, "According to , . \n") {
		t.Errorf("欠損フィールドは空文字列で補われるべき: %q", b.Script)
	}
}

func TestCompose_SetsTimestampAndCopiesArticles(t *testing.T) {
	clock := fixedClock(8)
	c := NewComposer(clock)
	in := sampleArticles()

	b := c.Compose(in)
	if !b.Timestamp.Equal(clock()) {
		t.Errorf("Timestamp = %v, want %v", b.Timestamp, clock())
	}
	if b.ID != "" {
		t.Errorf("IDはストアが採番するため空であるべき: %q", b.ID)
	}
	if len(b.Articles) != len(in) {
		t.Fatalf("Articles = %d, want %d", len(b.Articles), len(in))
	}

	// 入力スライスの変更が原稿に影響しないこと
	in[0].Title = "mutated"
	if b.Articles[0].Title != "Rocket lands" {
		t.Error("Compose は記事のスナップショットを保持すべき")
	}
}

func TestCompose_GreetingUsesLocation(t *testing.T) {
	// 22:30 UTC は UTC では night、UTC+9 では翌朝 07:30 で morning
	c := NewComposer(fixedClock(22))

	b := c.Compose(sampleArticles())
	if !strings.Contains(b.Script, "Good night,") {
		t.Errorf("Location未設定時はUTCで判定すべき: %q", firstLine(b.Script))
	}

	c.Location = time.FixedZone("JST", 9*60*60)
	b = c.Compose(sampleArticles())
	if !strings.Contains(b.Script, "Good morning,") {
		t.Errorf("Locationの時刻で判定すべき: %q", firstLine(b.Script))
	}
	if !b.Timestamp.Equal(fixedClock(22)()) {
		t.Errorf("Timestamp はタイムゾーンに関わらず同じ時刻であるべき: %v", b.Timestamp)
	}
}

func firstLine(script string) string {
	return strings.SplitN(strings.TrimSpace(script), "\n", 2)[0]
}
