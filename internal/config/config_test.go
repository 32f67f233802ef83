package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Config
		wantErr bool
	}{
		{
			name:  "empty document keeps defaults",
			input: "",
			want:  Config{Extensions: DefaultExtensions},
		},
		{
			name: "all keys",
			input: `
globalPrefix: __app
keepRequireNames: true
optionalExclude: [react-native-fs, ./debug]
extensions: [js, .TS, " tsx "]
cache: .cache/transform.db
verify: true
`,
			want: Config{
				GlobalPrefix:     "__app",
				KeepRequireNames: true,
				OptionalExclude:  []string{"react-native-fs", "./debug"},
				Extensions:       []string{".js", ".ts", ".tsx"},
				Cache:            ".cache/transform.db",
				Verify:           true,
			},
		},
		{
			name:    "unknown key",
			input:   "globalprefix: __app\n",
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   "keepRequireNames: [yes]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fmt.Sprintf("%+v", *got) != fmt.Sprintf("%+v", tt.want) {
				t.Errorf("got  %+v\nwant %+v", *got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("globalPrefix: __x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.GlobalPrefix != "__x" {
		t.Errorf("global prefix: got %q", c.GlobalPrefix)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("explicit missing file: got %v", err)
	}
}

func TestLoadDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	c, err := Load("")
	if err != nil {
		t.Fatalf("absent default file: %v", err)
	}
	if len(c.Extensions) != len(DefaultExtensions) {
		t.Errorf("extensions: got %v", c.Extensions)
	}

	if err := os.WriteFile(DefaultFile, []byte("verify: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Verify {
		t.Errorf("verify was not read from %s", DefaultFile)
	}
}

func TestTransformOptions(t *testing.T) {
	c := &Config{GlobalPrefix: "__p", KeepRequireNames: true, OptionalExclude: []string{"a"}}
	o := c.TransformOptions("src/a.ts")
	if o.Filename != "src/a.ts" || o.GlobalPrefix != "__p" || !o.KeepRequireNames || len(o.OptionalExclude) != 1 {
		t.Errorf("got %+v", o)
	}
}
