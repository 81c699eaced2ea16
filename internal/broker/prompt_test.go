package broker

import (
	"strings"
	"testing"
)

func TestDecodeItems_Envelope(t *testing.T) {
	items := DecodeItems(`{"items":[{"name":"Cola","price":3,"category":"Drinks"}]}`)
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Name != "Cola" || items[0].Price == nil || *items[0].Price != 3 {
		t.Fatalf("item = %+v", items[0])
	}
}

func TestDecodeItems_BareArray(t *testing.T) {
	items := DecodeItems(`[{"name":"Cola"},{"name":"Water","price":2.5}]`)
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Price != nil {
		t.Fatalf("expected no price on first item: %+v", items[0])
	}
}

func TestDecodeItems_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"items\":[{\"name\":\"Cola\",\"price\":3}]}\n```"
	items := DecodeItems(raw)
	if len(items) != 1 || items[0].Name != "Cola" {
		t.Fatalf("items = %+v", items)
	}
}

func TestDecodeItems_GarbageYieldsNil(t *testing.T) {
	for _, raw := range []string{"", "not json", "```\nnope\n```", `{"items": "oops"}`} {
		if items := DecodeItems(raw); items != nil {
			t.Fatalf("DecodeItems(%q) = %+v, want nil", raw, items)
		}
	}
}

func TestDecodeItems_SanitizesModelOutput(t *testing.T) {
	items := DecodeItems(`{"items":[
		{"name":"  Cola\u0007  ","price":-4,"category":""},
		{"name":"","price":2}
	]}`)
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	got := items[0]
	if got.Name != "Cola" {
		t.Fatalf("name = %q", got.Name)
	}
	if got.Price != nil {
		t.Fatal("negative price must be dropped")
	}
	if got.Category != "Uncategorized" {
		t.Fatalf("category = %q", got.Category)
	}
}

func TestBuildExtractionPrompt_EmbedsDocument(t *testing.T) {
	prompt := BuildExtractionPrompt("Cola - 3.00")
	if !strings.Contains(prompt, "Cola - 3.00") {
		t.Fatal("prompt must embed the document text")
	}
	if !strings.Contains(prompt, `"items"`) {
		t.Fatal("prompt must state the JSON output shape")
	}
}
