package channel

import "testing"

func TestNormalizeKnownLabels(t *testing.T) {
	cases := []struct {
		raw  string
		want Code
	}{
		{"WEB", Web},
		{"web", Web},
		{"  ec  ", Web},
		{"Online", Web},
		{"WHOLESALE", Wholesale},
		{"oem", Wholesale},
		{"Store", Store},
		{"tenpo", Store},
		{"SHOKU", Shoku},
		{"food", Shoku},
		{"OTHER", Other},
	}

	for _, tc := range cases {
		if got := Normalize(tc.raw); got != tc.want {
			t.Errorf("Normalize(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	// Accidental duplicate internal whitespace must not defeat the lookup.
	if got := Normalize("  whole\tsale "); got != Other {
		// "whole sale" is not an alias; split labels stay visible as OTHER.
		t.Errorf("Normalize split label = %s, want OTHER", got)
	}

	aliases["WHOLE SALE"] = Wholesale
	defer delete(aliases, "WHOLE SALE")

	if got := Normalize("whole   sale"); got != Wholesale {
		t.Errorf("Normalize(\"whole   sale\") = %s, want WHOLESALE", got)
	}
}

func TestNormalizeTotality(t *testing.T) {
	// Every string maps to exactly one valid code, never panics, never
	// returns something outside the taxonomy.
	inputs := []string{"", "   ", "\t\n", "WEB STORE", "unknown-channel", "ＥＣ", "web2", "卸売"}
	for _, raw := range inputs {
		got := Normalize(raw)
		if !got.IsValid() {
			t.Errorf("Normalize(%q) = %q, not a valid code", raw, got)
		}
	}

	if got := Normalize(""); got != Other {
		t.Errorf("Normalize(empty) = %s, want OTHER", got)
	}
	if got := Normalize("never seen before"); got != Other {
		t.Errorf("Normalize(unknown) = %s, want OTHER", got)
	}
}

func TestAllOrderIsStable(t *testing.T) {
	want := []Code{Web, Wholesale, Store, Shoku, Other}
	got := All()
	if len(got) != len(want) {
		t.Fatalf("All() returned %d codes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if got[len(got)-1] != Other {
		t.Error("OTHER must be the last code in reporting order")
	}
}
