package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"":                "unknown",
		"Acme Corp":       "acme_corp",
		"  --weird!!-- ":  "weird",
		"Globex/Widgets2": "globex_widgets2",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("Acme Corp", 12, 3); got != "acme_corp-d12-v3" {
		t.Fatalf("unexpected artifact name %q", got)
	}
}
