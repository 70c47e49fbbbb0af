package main

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadText(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr error
	}{
		{name: "args", args: []string{"Hello", "there."}, want: "Hello there."},
		{name: "args win over stdin", args: []string{"one"}, stdin: "two", want: "one"},
		{name: "stdin", stdin: "piped text\n", want: "piped text\n"},
		{name: "normalized", args: []string{"cafe\u0301"}, want: "caf\u00e9"},
		{name: "blank", stdin: "  \n\t", wantErr: errNoText},
		{name: "nothing", wantErr: errNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdin io.Reader
			if tt.stdin != "" {
				stdin = strings.NewReader(tt.stdin)
			}
			got, err := readText(tt.args, false, stdin)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and paragraph",
			in:   "# Install\n\nRun the *installer* and wait.\n",
			want: "Install.\nRun the installer and wait.",
		},
		{
			name: "links and code spans",
			in:   "See [the docs](https://example.com) or run `make`.\n",
			want: "See the docs or run make.",
		},
		{
			name: "code blocks are skipped",
			in:   "Before.\n\n```go\nfmt.Println(\"hi\")\n```\n\nAfter.\n",
			want: "Before.\nAfter.",
		},
		{
			name: "list items become sentences",
			in:   "- first item\n- second item!\n",
			want: "first item.\nsecond item!",
		},
		{
			name: "soft line breaks",
			in:   "one line\nnext line\n",
			want: "one line next line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdownToText([]byte(tt.in)); got != tt.want {
				t.Errorf("Got %q, want %q", got, tt.want)
			}
		})
	}
}
