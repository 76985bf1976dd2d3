package extract

import "testing"

func TestScannerExtract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Block
	}{
		{
			name:     "tagged block with prose",
			response: "Here is the program:\n```rust\nfn main() {\n    println!(\"hi\");\n}\n```\nEnjoy.",
			want:     Block{Code: "fn main() {\n    println!(\"hi\");\n}", Language: "rust", Found: true},
		},
		{
			name:     "untagged block",
			response: "```\nfn main() {}\n```",
			want:     Block{Code: "fn main() {}", Found: true},
		},
		{
			name:     "other tag is kept",
			response: "```python\nprint(1)\n```",
			want:     Block{Code: "python\nprint(1)", Found: true},
		},
		{
			name:     "inline fences",
			response: "text ```rust fn main(){}``` more",
			want:     Block{Code: "fn main(){}", Language: "rust", Found: true},
		},
		{
			name:     "first block wins",
			response: "```rust\nfn a() {}\n```\nand\n```rust\nfn b() {}\n```",
			want:     Block{Code: "fn a() {}", Language: "rust", Found: true},
		},
		{
			name:     "whitespace trimmed",
			response: "```rust   \n\n  fn main() {}  \n\n```",
			want:     Block{Code: "fn main() {}", Language: "rust", Found: true},
		},
		{
			name:     "unterminated",
			response: "```rust\nfn main() {}\n",
			want:     Block{Code: "fn main() {}", Language: "rust", Found: true, Unterminated: true},
		},
		{
			name:     "no fence",
			response: "fn main() {}",
			want:     Block{},
		},
		{
			name:     "empty response",
			response: "",
			want:     Block{},
		},
		{
			name:     "empty block",
			response: "```rust\n```",
			want:     Block{Code: "", Language: "rust", Found: true},
		},
	}

	s := NewScanner("rust")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Extract(tt.response)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestScannerTagIsWholeWord(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		response string
		want     Block
	}{
		{
			name:     "cpp is not c",
			tag:      "c",
			response: "```cpp\n#include <stdio.h>\nint main(void) { return 0; }\n```",
			want:     Block{Code: "cpp\n#include <stdio.h>\nint main(void) { return 0; }", Found: true},
		},
		{
			name:     "c with newline",
			tag:      "c",
			response: "```c\nint main(void) { return 0; }\n```",
			want:     Block{Code: "int main(void) { return 0; }", Language: "c", Found: true},
		},
		{
			name:     "golang is not go",
			tag:      "go",
			response: "```golang\npackage main\n```",
			want:     Block{Code: "golang\npackage main", Found: true},
		},
		{
			name:     "go with carriage return",
			tag:      "go",
			response: "```go\r\npackage main\r\n```",
			want:     Block{Code: "package main", Language: "go", Found: true},
		},
		{
			name:     "rusty is not rust",
			tag:      "rust",
			response: "```rusty\nfn main() {}\n```",
			want:     Block{Code: "rusty\nfn main() {}", Found: true},
		},
		{
			name:     "tag only",
			tag:      "rust",
			response: "```rust```",
			want:     Block{Code: "", Language: "rust", Found: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewScanner(tt.tag).Extract(tt.response)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestScannerWithoutTag(t *testing.T) {
	got := NewScanner("").Extract("```rust\nfn main() {}\n```")
	if got.Code != "rust\nfn main() {}" {
		t.Errorf("expected the tag to be kept, got %q", got.Code)
	}
}

func TestMarkdownExtract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Block
	}{
		{
			name:     "fenced block",
			response: "Sure!\n\n```rust\nfn main() {\n    println!(\"hi\");\n}\n```\n",
			want:     Block{Code: "fn main() {\n    println!(\"hi\");\n}", Language: "rust", Found: true},
		},
		{
			name:     "tilde fence",
			response: "~~~c\nint main(void) { return 0; }\n~~~\n",
			want:     Block{Code: "int main(void) { return 0; }", Language: "c", Found: true},
		},
		{
			name:     "unterminated",
			response: "```rust\nfn main() {}\n",
			want:     Block{Code: "fn main() {}", Language: "rust", Found: true, Unterminated: true},
		},
		{
			name:     "empty tilde block",
			response: "~~~c\n~~~",
			want:     Block{Code: "", Language: "c", Found: true},
		},
		{
			name:     "empty backtick block without tag",
			response: "```\n```\n",
			want:     Block{Code: "", Found: true},
		},
		{
			name:     "backticks do not close a tilde fence",
			response: "~~~c\nint x;\n```\n",
			want:     Block{Code: "int x;\n```", Language: "c", Found: true, Unterminated: true},
		},
		{
			name:     "longer closing fence",
			response: "```rust\nfn main() {}\n`````\n",
			want:     Block{Code: "fn main() {}", Language: "rust", Found: true},
		},
		{
			name:     "inline fences fall back to the scanner",
			response: "text ```rust fn main(){}``` more",
			want:     Block{Code: "fn main(){}", Language: "rust", Found: true},
		},
		{
			name:     "no fence",
			response: "I cannot help with that.",
			want:     Block{},
		},
	}

	m := NewMarkdown("rust")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Extract(tt.response)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, ok := New("markdown", "rust").(*Markdown); !ok {
		t.Error("expected Markdown extractor")
	}
	if _, ok := New("", "rust").(*Scanner); !ok {
		t.Error("expected Scanner as the default")
	}
}
