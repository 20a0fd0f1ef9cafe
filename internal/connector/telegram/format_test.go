package telegram

import (
	"strings"
	"testing"
)

func TestRenderBold(t *testing.T) {
	got := RenderHTML("**Your question is being processed.**")
	if !strings.Contains(got, "<b>Your question is being processed.</b>") {
		t.Errorf("expected bold tag, got %q", got)
	}
}

func TestRenderItalic(t *testing.T) {
	got := RenderHTML("This is *italic* text")
	if !strings.Contains(got, "<i>italic</i>") {
		t.Errorf("expected italic tag, got %q", got)
	}
}

func TestRenderInlineCode(t *testing.T) {
	got := RenderHTML("Run `relayctl stats` to check")
	if !strings.Contains(got, "<code>relayctl stats</code>") {
		t.Errorf("expected code tag, got %q", got)
	}
}

func TestRenderUserLink(t *testing.T) {
	got := RenderHTML("Message from [Alice](tg://user?id=100) (ID: 1)")
	if !strings.Contains(got, `<a href="tg://user?id=100">Alice</a>`) {
		t.Errorf("expected link tag, got %q", got)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	got := RenderHTML("My <b>question</b> & more")
	if !strings.Contains(got, "&lt;b&gt;question&lt;/b&gt; &amp; more") {
		t.Errorf("expected escaped HTML, got %q", got)
	}
}

func TestRenderMultiline(t *testing.T) {
	got := RenderHTML("**head**\n• item one\n• item two")
	if !strings.Contains(got, "<b>head</b>\n• item one") {
		t.Errorf("expected newlines preserved, got %q", got)
	}
}

func TestStripFormatting(t *testing.T) {
	got := StripFormatting("**bold** and [here](https://example.com) and `code`")
	if got != "bold and here (https://example.com) and code" {
		t.Errorf("unexpected strip result: %q", got)
	}
}
