package i18n

import "testing"

// TestLookup 测试文案查找
func TestLookup(t *testing.T) {
	if got := Lookup("en", LabelTokenNotFound); got != "Token not found" {
		t.Errorf("got %q, want 'Token not found'", got)
	}
	if got := Lookup("zh", LabelTokenNotFound); got != "令牌不存在" {
		t.Errorf("got %q, want Chinese translation", got)
	}
}

// TestLookup_LanguageFallback 测试未知语言回退英文
func TestLookup_LanguageFallback(t *testing.T) {
	if got := Lookup("fr", LabelExpiredToken); got != "Token expired" {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
	if got := Lookup("", LabelExpiredToken); got != "Token expired" {
		t.Errorf("empty language should fall back to English, got %q", got)
	}
}

// TestLookup_MissingLabel 测试缺失键返回占位文案
func TestLookup_MissingLabel(t *testing.T) {
	got := Lookup("en", "no_such_label")
	want := "Missing translation: guest_error.no_such_label"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
