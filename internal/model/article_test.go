package model

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"sports", CategorySports},
		{"  Technology ", CategoryTechnology},
		{"WAR", CategoryWar},
		{"other", CategoryOther},
		{"finance", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCategory(tt.in); got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKnownCategories_ExcludesOther(t *testing.T) {
	cats := KnownCategories()
	if len(cats) != 12 {
		t.Fatalf("分類語彙の件数 = %d, want 12", len(cats))
	}
	for _, c := range cats {
		if c == CategoryOther {
			t.Error("KnownCategories に other が含まれてはならない")
		}
		if !c.Valid() {
			t.Errorf("%q は有効な分類であるべき", c)
		}
	}

	// 返り値の変更が内部状態に影響しないこと
	cats[0] = "mutated"
	if KnownCategories()[0] != CategoryPolitics {
		t.Error("KnownCategories は内部スライスのコピーを返すべき")
	}
}

func TestClassifiedArticle_Degraded(t *testing.T) {
	ok := ClassifiedArticle{Category: CategorySports, Emotion: "happy"}
	if ok.Degraded() {
		t.Error("FallbackReason が空の場合は Degraded() = false であるべき")
	}

	fb := ClassifiedArticle{Category: CategoryOther, Emotion: EmotionNeutral, FallbackReason: "timeout"}
	if !fb.Degraded() {
		t.Error("FallbackReason がある場合は Degraded() = true であるべき")
	}
}
