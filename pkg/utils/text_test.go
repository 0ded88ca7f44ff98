package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("白色升降桌", 2); got != "白色..." {
		t.Errorf("multibyte: got %s", got)
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("電源插座組", 3); got != "電源插" {
		t.Errorf("got %s", got)
	}
	if got := Prefix("abc", 10); got != "abc" {
		t.Errorf("got %s", got)
	}
	if got := Prefix("abc", 0); got != "" {
		t.Errorf("got %q", got)
	}
	if got := Prefix("abc", -1); got != "abc" {
		t.Errorf("got %s", got)
	}
}
