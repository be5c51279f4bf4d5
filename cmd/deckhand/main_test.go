package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRewriteDirectEditArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"deckhand"},
			want: []string{"deckhand"},
		},
		{
			name: "id first token",
			in:   []string{"deckhand", "12"},
			want: []string{"deckhand", "edit", "12"},
		},
		{
			name: "id after value flag",
			in:   []string{"deckhand", "--dir", "./tmp-ws", "12"},
			want: []string{"deckhand", "--dir", "./tmp-ws", "edit", "12"},
		},
		{
			name: "id after equals flag",
			in:   []string{"deckhand", "--server=http://127.0.0.1:7420", "3"},
			want: []string{"deckhand", "--server=http://127.0.0.1:7420", "edit", "3"},
		},
		{
			name: "id after bool flag",
			in:   []string{"deckhand", "-v", "3"},
			want: []string{"deckhand", "-v", "edit", "3"},
		},
		{
			name: "id after double dash",
			in:   []string{"deckhand", "--", "3"},
			want: []string{"deckhand", "--", "edit", "3"},
		},
		{
			name: "numeric flag value is not an id",
			in:   []string{"deckhand", "--user", "7"},
			want: []string{"deckhand", "--user", "7"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"deckhand", "slides", "list", "3"},
			want: []string{"deckhand", "slides", "list", "3"},
		},
		{
			name: "zero is not an id",
			in:   []string{"deckhand", "0"},
			want: []string{"deckhand", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectEditArgs(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rewriteDirectEditArgs (-want +got):\n%s", diff)
			}
		})
	}
}
