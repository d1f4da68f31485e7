package taxonomy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/mindcast/internal/models"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestStore_LoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2022_06.json", `{
	"keywords": {
		"경제": ["실업", "부채"],
		"가족": ["이혼"]
	},
	"threshold": 0.5,
	"subtag_thresholds": {"부채": 0.6}
}`)
	tax, err := NewStore(dir).Load("2022-06")
	if err != nil {
		t.Fatal(err)
	}
	names := tax.KeywordNames()
	if len(names) != 2 || names[0] != "경제" || names[1] != "가족" {
		t.Errorf("keyword order not preserved: %v", names)
	}
	if tax.DefaultThreshold() != 0.5 {
		t.Errorf("threshold = %f", tax.DefaultThreshold())
	}
	if tax.Threshold("부채") != 0.6 || tax.Threshold("실업") != 0.5 {
		t.Errorf("thresholds: 부채=%f 실업=%f", tax.Threshold("부채"), tax.Threshold("실업"))
	}
}

func TestStore_LoadJSON_keywordOrderIsNotAlphabetical(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2023_01.json", `{"keywords": {"zeta": ["z1"], "alpha": ["a1"], "mid": ["m1"]}}`)
	tax, err := NewStore(dir).Load("2023-01")
	if err != nil {
		t.Fatal(err)
	}
	names := tax.KeywordNames()
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if tax.DefaultThreshold() != DefaultThreshold {
		t.Errorf("missing threshold should default to %f, got %f", DefaultThreshold, tax.DefaultThreshold())
	}
}

func TestStore_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2022_07.yaml", `
keywords:
  B: [b1]
  A: [a1, a2]
threshold: 0.4
`)
	tax, err := NewStore(dir).Load("2022-07")
	if err != nil {
		t.Fatal(err)
	}
	if names := tax.KeywordNames(); names[0] != "B" || names[1] != "A" {
		t.Errorf("keyword order = %v", names)
	}
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2022_01.json", `{"threshold": 0.4}`)
	writeDoc(t, dir, "2022_02.json", `{"keywords": {"A": ["a1"]}, "extra": 1}`)
	writeDoc(t, dir, "2022_03.json", `{"keywords": {"A": ["a1"]}, "subtag_thresholds": {"nope": 0.5}}`)
	writeDoc(t, dir, "2022_04.json", `{"keywords": {"A": "a1"}}`)
	writeDoc(t, dir, "2022_05.json", `not json`)
	writeDoc(t, dir, "2022_06.yaml", "keywords: [a, b]\n")
	writeDoc(t, dir, "2022_07.json", `{"keywords": {"A": ["a1"]}, "threshold": null}`)
	writeDoc(t, dir, "2022_08.yaml", "keywords:\n  A: [a1]\nthreshold: ~\n")
	writeDoc(t, dir, "2022_09.json", `{"keywords": {"A": ["a1"]}, "subtag_thresholds": {"a1": null}}`)
	writeDoc(t, dir, "2022_10.yaml", "keywords:\n  A: [a1]\nsubtag_thresholds:\n  a1:\n")
	store := NewStore(dir)

	tests := []struct {
		version string
		want    error
	}{
		{"2021-12", models.ErrConfigNotFound},
		{"bad", models.ErrConfigNotFound},
		{"2022-01", models.ErrConfigMalformed},
		{"2022-02", models.ErrConfigMalformed},
		{"2022-03", models.ErrConfigMalformed},
		{"2022-04", models.ErrConfigMalformed},
		{"2022-05", models.ErrConfigMalformed},
		{"2022-06", models.ErrConfigMalformed},
		{"2022-07", models.ErrConfigMalformed},
		{"2022-08", models.ErrConfigMalformed},
		{"2022-09", models.ErrConfigMalformed},
		{"2022-10", models.ErrConfigMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			_, err := store.Load(tt.version)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load(%s) err = %v, want %v", tt.version, err, tt.want)
			}
		})
	}
}

func TestStore_Versions(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2022_07.json", `{}`)
	writeDoc(t, dir, "2022_06.yaml", ``)
	writeDoc(t, dir, "2022_06.json", `{}`)
	writeDoc(t, dir, "notes.txt", ``)
	writeDoc(t, dir, "latest.json", `{}`)
	got, err := NewStore(dir).Versions()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "2022-06" || got[1] != "2022-07" {
		t.Errorf("Versions = %v", got)
	}

	missing, err := NewStore(filepath.Join(dir, "missing")).Versions()
	if err != nil || missing != nil {
		t.Errorf("missing dir: %v, %v", missing, err)
	}
}

func TestTaxonomy_MarshalYAMLRoundTrip(t *testing.T) {
	tax, err := New("2022-08", []Keyword{{Name: "B", Subtags: []string{"b1"}}, {Name: "A", Subtags: []string{"a1", "a2"}}}, 0.45, map[string]float64{"a1": 0.7})
	if err != nil {
		t.Fatal(err)
	}
	data, err := yaml.Marshal(tax)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	writeDoc(t, dir, "2022_08.yml", string(data))
	loaded, err := NewStore(dir).Load("2022-08")
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, data)
	}
	if loaded.Fingerprint("x") != tax.Fingerprint("x") {
		t.Error("round trip changed structure")
	}
	if loaded.Threshold("a1") != 0.7 {
		t.Errorf("override lost: %f", loaded.Threshold("a1"))
	}
}
