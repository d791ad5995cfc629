package doctree

import "testing"

func twoPageDoc() *Document {
	d := &Document{Filename: "ab.pdf"}
	d.AddPage("AAAA")
	d.AddPage("BBBB")
	return d
}

func TestDocument_AddPageOffsets(t *testing.T) {
	d := twoPageDoc()
	d.AddPage("ünï")

	wantOffsets := []int{0, 4, 8}
	for i, w := range wantOffsets {
		if d.Pages[i].Offset != w {
			t.Errorf("page %d: expected offset %d, got %d", i, w, d.Pages[i].Offset)
		}
		if d.Pages[i].Index != i {
			t.Errorf("page %d: expected index %d, got %d", i, i, d.Pages[i].Index)
		}
	}
	if d.Len() != 11 {
		t.Errorf("expected length 11 characters, got %d", d.Len())
	}
	if d.Text() != "AAAABBBBünï" {
		t.Errorf("unexpected text %q", d.Text())
	}
	if err := d.Validate(); err != nil {
		t.Errorf("expected valid page map, got %v", err)
	}
}

func TestDocument_PageAt(t *testing.T) {
	d := twoPageDoc()

	cases := map[int]int{0: 0, 3: 0, 4: 1, 5: 1, 7: 1, 8: 1, 100: 1}
	for offset, want := range cases {
		if got := d.PageAt(offset); got != want {
			t.Errorf("PageAt(%d): expected %d, got %d", offset, want, got)
		}
	}
}

func TestDocument_PageAtSkipsEmptyPages(t *testing.T) {
	d := &Document{}
	d.AddPage("AAAA")
	d.AddPage("")
	d.AddPage("BBBB")

	// Pages 1 and 2 both start at 4; the later one wins.
	if got := d.PageAt(4); got != 2 {
		t.Errorf("expected page 2, got %d", got)
	}
	if got := d.PageAt(3); got != 0 {
		t.Errorf("expected page 0, got %d", got)
	}
}

func TestDocument_PageAtEmpty(t *testing.T) {
	d := &Document{}
	if got := d.PageAt(10); got != 0 {
		t.Errorf("expected 0 for empty document, got %d", got)
	}
	if d.Len() != 0 {
		t.Errorf("expected length 0, got %d", d.Len())
	}
}

func TestDocument_ValidateRejectsBadOffsets(t *testing.T) {
	d := &Document{Pages: []Page{
		{Index: 0, Offset: 0, Text: "AAAA"},
		{Index: 1, Offset: 2, Text: "BBBB"},
	}}
	if err := d.Validate(); err == nil {
		t.Error("expected error for overlapping offsets")
	}
}

func TestDocument_ValidateRejectsUnorderedPages(t *testing.T) {
	d := &Document{Pages: []Page{
		{Index: 1, Offset: 0, Text: "AAAA"},
		{Index: 0, Offset: 4, Text: "BBBB"},
	}}
	if err := d.Validate(); err == nil {
		t.Error("expected error for pages out of order")
	}
}
