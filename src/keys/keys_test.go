package keys

import (
	"strings"
	"testing"
	"time"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name        string
		projectKey  string
		branch      string
		wantLiteral string // expected literal key, empty means hashed
		wantErr     bool
	}{
		{
			name:        "plain identity",
			projectKey:  "my-project",
			branch:      "main",
			wantLiteral: "my-project_main",
		},
		{
			name:       "separator in project key forces hash",
			projectKey: "my_project",
			branch:     "main",
		},
		{
			name:       "separator in branch forces hash",
			projectKey: "my-project",
			branch:     "feature_x",
		},
		{
			name:       "slash in branch forces hash",
			projectKey: "my-project",
			branch:     "feature/login",
		},
		{
			name:       "backslash forces hash",
			projectKey: `team\project`,
			branch:     "main",
		},
		{
			name:       "hash mark forces hash",
			projectKey: "proj#1",
			branch:     "main",
		},
		{
			name:       "question mark forces hash",
			projectKey: "proj",
			branch:     "main?",
		},
		{
			name:       "control character forces hash",
			projectKey: "proj\x00ect",
			branch:     "main",
		},
		{
			name:       "overlong literal forces hash",
			projectKey: strings.Repeat("a", 900),
			branch:     strings.Repeat("b", 900),
		},
		{
			name:       "empty project key rejected",
			projectKey: "",
			branch:     "main",
			wantErr:    true,
		},
		{
			name:       "empty branch rejected",
			projectKey: "proj",
			branch:     "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := Derive(tt.projectKey, tt.branch)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Derive() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if tt.wantLiteral != "" {
				if pair.PartitionKey != tt.wantLiteral {
					t.Errorf("PartitionKey = %q, want %q", pair.PartitionKey, tt.wantLiteral)
				}
			} else {
				// Hashed keys are fixed-width hex
				if len(pair.PartitionKey) != 64 {
					t.Errorf("hashed PartitionKey length = %d, want 64", len(pair.PartitionKey))
				}
			}

			if pair.PartitionKey != pair.RowKey {
				t.Errorf("PartitionKey %q != RowKey %q", pair.PartitionKey, pair.RowKey)
			}
		})
	}
}

func TestDeriveConstraints(t *testing.T) {
	// Every derived key must satisfy the store's length and charset
	// limits regardless of input shape.
	inputs := [][2]string{
		{"proj", "main"},
		{"my_project", "main"},
		{"my", "project_main"},
		{"a/b", `c\d`},
		{"x#y", "z?w"},
		{strings.Repeat("p", 2000), "main"},
		{"proj", strings.Repeat("b", 2000)},
		{"päron", "grön/gren"},
		{"tab\tkey", "main"},
	}

	for _, in := range inputs {
		pair, err := Derive(in[0], in[1])
		if err != nil {
			t.Fatalf("Derive(%q, %q): %v", in[0], in[1], err)
		}
		for _, key := range []string{pair.PartitionKey, pair.RowKey} {
			if len(key) > MaxKeyLength {
				t.Errorf("Derive(%q, %q): key length %d exceeds %d", in[0], in[1], len(key), MaxKeyLength)
			}
			if strings.ContainsAny(key, ForbiddenChars) {
				t.Errorf("Derive(%q, %q): key %q contains forbidden character", in[0], in[1], key)
			}
		}
	}
}

func TestDeriveInjective(t *testing.T) {
	// Distinct identities must never map to the same keys, including
	// pairs that differ only by where the separator falls and pairs
	// containing forbidden characters.
	inputs := [][2]string{
		{"my", "project_main"},
		{"my_project", "main"},
		{"my_project_main", "x"},
		{"my", "project_main_x"},
		{"proj", "main"},
		{"proj", "develop"},
		{"proj_main", "develop"},
		{"a/b", "c"},
		{"a", "b/c"},
		{"a", "b\\c"},
		{"a#b", "c"},
		{"a", "b#c"},
		{"a?b", "c"},
		{"team/repo", "feature/login"},
		{"team", "repo_feature/login"},
		{strings.Repeat("a", 1500), "main"},
		{strings.Repeat("a", 1499), "amain"},
	}

	seen := make(map[Pair][2]string, len(inputs))
	for _, in := range inputs {
		pair, err := Derive(in[0], in[1])
		if err != nil {
			t.Fatalf("Derive(%q, %q): %v", in[0], in[1], err)
		}
		if prev, ok := seen[pair]; ok {
			t.Errorf("collision: (%q, %q) and (%q, %q) both derive %+v", prev[0], prev[1], in[0], in[1], pair)
		}
		seen[pair] = in
	}
}

func TestRowKeyForTime(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535_897_000, time.UTC)
	got := RowKeyForTime(ts)
	want := "2026-03-14_150926535897"
	if got != want {
		t.Errorf("RowKeyForTime() = %q, want %q", got, want)
	}

	// Same instant always renders the same row key, so retried batch
	// writes upsert rather than duplicate.
	if again := RowKeyForTime(ts); again != got {
		t.Errorf("RowKeyForTime() not deterministic: %q vs %q", got, again)
	}
}
