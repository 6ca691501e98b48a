package assets

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spaghettifunk/vkguard/engine/core"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, spirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func TestDecodeSPIRV(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    []uint32
		wantErr bool
	}{
		{"module", spirv(0x00010000, 42), []uint32{spirvMagic, 0x00010000, 42}, false},
		{"little endian", []byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x02, 0x03, 0x04}, []uint32{spirvMagic, 0x04030201}, false},
		{"empty", nil, nil, true},
		{"truncated", spirv(1)[:7], nil, true},
		{"bad magic", []byte{1, 2, 3, 4}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSPIRV(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestStaticShaders(t *testing.T) {
	src := StaticShaders{"triangle.vert": {spirvMagic, 1}}
	code, err := src.LoadShader("triangle.vert", "main")
	if err != nil {
		t.Fatalf("LoadShader: %v", err)
	}
	if code.EntryPoint != "main" || len(code.Words) != 2 {
		t.Errorf("code = %+v", code)
	}
	code.Words[1] = 99
	if src["triangle.vert"][1] != 1 {
		t.Error("LoadShader handed out the backing slice")
	}
	if _, err := src.LoadShader("missing", "main"); err == nil {
		t.Error("loaded a missing shader")
	}
}

func TestMissingShaderLogsNameVerbatim(t *testing.T) {
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(io.Discard) })

	if _, err := (StaticShaders{}).LoadShader("50%done.frag", "main"); err == nil {
		t.Fatal("loaded a missing shader")
	}
	if out := buf.String(); !strings.Contains(out, "50%done.frag") || strings.Contains(out, "MISSING") {
		t.Errorf("log = %q", out)
	}
}

func writeShader(t *testing.T, path string, words ...uint32) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, spirv(words...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestShaderLibrary(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, filepath.Join(dir, "triangle.vert.spv"), 7)
	writeShader(t, filepath.Join(dir, "post", "blur.frag.spv"), 8)
	if err := os.WriteFile(filepath.Join(dir, "triangle.vert.glsl"), []byte("void main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := NewShaderLibrary(dir)
	if err != nil {
		t.Fatalf("NewShaderLibrary: %v", err)
	}
	t.Cleanup(func() { lib.Close() })

	if got, want := lib.Names(), []string{"post/blur.frag", "triangle.vert"}; !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}

	code, err := lib.LoadShader("post/blur.frag", "")
	if err != nil {
		t.Fatalf("LoadShader: %v", err)
	}
	if code.EntryPoint != "main" || !reflect.DeepEqual(code.Words, []uint32{spirvMagic, 8}) {
		t.Errorf("code = %+v", code)
	}
	if info, _ := lib.Info("post/blur.frag"); info.LastLoaded.IsZero() {
		t.Error("load time not recorded")
	}
	if _, err := lib.LoadShader("triangle.frag", "main"); err == nil {
		t.Error("loaded a shader that does not exist")
	}
}

func TestShaderLibraryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.spv")
	writeShader(t, path)
	if _, err := NewShaderLibrary(path); err == nil {
		t.Error("accepted a file as the library root")
	}
	if _, err := NewShaderLibrary(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("accepted a missing root")
	}
}

func waitSet(t *testing.T, lib *ShaderLibrary) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !lib.Reload().IsSet() {
		if time.Now().After(deadline) {
			t.Fatal("reload event never set")
		}
		time.Sleep(10 * time.Millisecond)
	}
	lib.Reload().Reset()
}

func TestShaderLibraryWatch(t *testing.T) {
	dir := t.TempDir()
	lib, err := NewShaderLibrary(dir)
	if err != nil {
		t.Fatalf("NewShaderLibrary: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	if err := lib.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeShader(t, filepath.Join(dir, "lit.frag.spv"), 1)
	waitSet(t, lib)
	if _, ok := lib.Info("lit.frag"); !ok {
		t.Fatal("new shader not indexed")
	}

	if err := os.Remove(filepath.Join(dir, "lit.frag.spv")); err != nil {
		t.Fatal(err)
	}
	waitSet(t, lib)
	if _, ok := lib.Info("lit.frag"); ok {
		t.Error("removed shader still indexed")
	}

	if err := lib.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := lib.Watch(); err == nil {
		t.Error("Watch succeeded after Close")
	}
}
