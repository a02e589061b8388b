package resource

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBody(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "3.png", "png-bytes")
	writeFile(t, dir, "3.svg", "<svg/>")
	s := NewDirStore(dir)

	b, err := s.Body(3, "image/png")
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("Body(3, png) = %q, %v", b, err)
	}
	b, err = s.Body(3, "image/svg")
	if err != nil || string(b) != "<svg/>" {
		t.Fatalf("Body(3, svg) = %q, %v", b, err)
	}
}

func TestBodyMissing(t *testing.T) {
	s := NewDirStore(t.TempDir())
	_, err := s.Body(100, "image/png")
	if !errors.Is(err, ErrResourceMissing) {
		t.Fatalf("err = %v, want ErrResourceMissing", err)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"image/png", "png", false},
		{"image/svg+xml", "svg+xml", false},
		{"text/plain; charset=utf-8", "plain", false},
		{"png", "", true},
		{"image/", "", true},
		{"image/../x", "", true},
	}
	for _, tt := range tests {
		got, err := Extension(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Extension(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetadataDefault(t *testing.T) {
	md, err := NewDirStore(t.TempDir()).Metadata(9)
	if err != nil {
		t.Fatal(err)
	}
	if md.LocalID != 9 || md.Name != "" {
		t.Fatalf("Metadata = %+v", md)
	}
	out, err := json.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"localId":9}` {
		t.Errorf("json = %s", out)
	}
}

func TestMetadataMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "4.json", `{"name":"Cat #4","attributes":[{"trait":"eyes","value":"green"}],"artist":"anon"}`)

	md, err := NewDirStore(dir).Metadata(4)
	if err != nil {
		t.Fatal(err)
	}
	if md.LocalID != 4 || md.Name != "Cat #4" {
		t.Fatalf("Metadata = %+v", md)
	}
	if string(md.Extra["artist"]) != `"anon"` {
		t.Errorf("extra artist = %s", md.Extra["artist"])
	}

	out, _ := json.Marshal(md)
	var back map[string]interface{}
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back["localId"].(float64) != 4 || back["name"] != "Cat #4" || back["artist"] != "anon" {
		t.Errorf("merged json = %s", out)
	}
	if _, ok := back["attributes"].([]interface{}); !ok {
		t.Errorf("attributes lost: %s", out)
	}
}

func TestMetadataFileOverridesLocalID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "5.json", `{"localId":"50"}`)
	if md, err := NewDirStore(dir).Metadata(5); err != nil || md.LocalID != 50 {
		t.Errorf("Metadata = %+v, %v; want LocalID 50", md, err)
	}
}

func TestMetadataMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "6.json", `{"name": `)
	if _, err := NewDirStore(dir).Metadata(6); !errors.Is(err, ErrBadMetadata) {
		t.Errorf("err = %v, want ErrBadMetadata", err)
	}
	writeFile(t, dir, "7.json", `["not", "an", "object"]`)
	if _, err := NewDirStore(dir).Metadata(7); !errors.Is(err, ErrBadMetadata) {
		t.Errorf("array: err = %v, want ErrBadMetadata", err)
	}
}

func TestMetadataMistypedFieldsKept(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "3.json", `{"name":7,"rarity":"gold","image":"ipfs://x","localId":{"n":1}}`)

	md, err := NewDirStore(dir).Metadata(3)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Image != "ipfs://x" || md.Name != "" {
		t.Errorf("Metadata = %+v", md)
	}
	out, err := json.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"name":    `7`,
		"rarity":  `"gold"`,
		"image":   `"ipfs://x"`,
		"localId": `{"n":1}`,
	}
	for k, v := range want {
		if string(back[k]) != v {
			t.Errorf("%s = %s, want %s (json %s)", k, back[k], v, out)
		}
	}
	if len(back) != len(want) {
		t.Errorf("json = %s", out)
	}
}
