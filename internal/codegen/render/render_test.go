package render

import (
	"strings"
	"testing"

	"github.com/dave/jennifer/jen"
)

func TestFormat(t *testing.T) {
	valid := jen.NewFile("main")
	valid.Func().Id("main").Params().Block(
		jen.Qual("fmt", "Println").Call(jen.Lit("hi")),
	)
	empty := jen.NewFile("main")

	tests := []struct {
		name    string
		specs   []Spec
		want    []string
		wantErr bool
	}{
		{
			name:  "valid go code",
			specs: []Spec{{Path: "main.go", File: valid}},
			want:  []string{"package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"},
		},
		{
			name:  "multiple files",
			specs: []Spec{{Path: "a.go", File: empty}, {Path: "b.go", File: empty}},
			want:  []string{"package main\n", "package main\n"},
		},
		{
			name:    "nil file",
			specs:   []Spec{{Path: "nil.go"}},
			wantErr: true,
		},
		{
			name:    "invalid code",
			specs:   []Spec{{Path: "bad.go", File: func() *jen.File { f := jen.NewFile("main"); f.Op("}{"); return f }()}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Format(tt.specs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if len(files) != len(tt.want) {
				t.Fatalf("got %d files, want %d", len(files), len(tt.want))
			}
			for i, f := range files {
				if f.Path != tt.specs[i].Path {
					t.Errorf("file %d path = %q, want %q", i, f.Path, tt.specs[i].Path)
				}
				if got := string(f.Content); got != tt.want[i] {
					t.Errorf("file %d content = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestRenderHeader(t *testing.T) {
	f := jen.NewFile("store")
	f.HeaderComment("Code generated by test. DO NOT EDIT.")
	out, err := Render(Spec{Path: "x.go", File: f})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out.Content), "// Code generated by test. DO NOT EDIT.\n\npackage store\n") {
		t.Errorf("unexpected header:\n%s", out.Content)
	}
}
