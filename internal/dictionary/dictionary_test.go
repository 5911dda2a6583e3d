package dictionary

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestBuildOrderAndReserved(t *testing.T) {
	d := Build([]string{"HELLO", "TEST", "X", "ภาษา"})
	got := d.Entries()
	want := []string{"<blank>", "<eos>", "<sos>", "<unk>", "E", "H", "L", "O", "S", "T", "X", "ภ", "ษ", "า"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	if d.Len() != 4+10 || d.DataCharacters() != 10 {
		t.Fatalf("len=%d data=%d", d.Len(), d.DataCharacters())
	}
}

func TestBuildNoDuplicates(t *testing.T) {
	d := Build([]string{"aaa", "aba", " a ", "<unk>"})
	seen := map[string]bool{}
	for _, e := range d.Entries() {
		if seen[e] {
			t.Fatalf("duplicate entry %q", e)
		}
		seen[e] = true
	}
	// '<', 'u', 'n', 'k', '>' appear as single characters alongside the token.
	if d.Len() != 4+len([]rune(" <>abknu")) {
		t.Fatalf("len=%d entries=%q", d.Len(), d.Entries())
	}
}

func TestBuildEmpty(t *testing.T) {
	d := Build(nil)
	if d.Len() != 4 || d.DataCharacters() != 0 {
		t.Fatalf("empty dictionary len=%d", d.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "character_dict.txt")
	d := Build([]string{"ab", "c"})
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if _, err := d.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "<blank>\n<eos>\n<sos>\n<unk>\na\nb\nc\n" {
		t.Fatalf("got %q", sb.String())
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Entries(), d.Entries()) {
		t.Fatalf("round trip mismatch %q", back.Entries())
	}
}
