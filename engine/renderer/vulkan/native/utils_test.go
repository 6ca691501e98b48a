package native

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func TestSafeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "\x00"},
		{"VK_KHR_surface", "VK_KHR_surface\x00"},
		{"main\x00", "main\x00"},
	}
	for _, tt := range tests {
		if got := safeString(tt.in); got != tt.want {
			t.Errorf("safeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	in := []string{"a", "b\x00"}
	out := safeStrings(in)
	if out[0] != "a\x00" || out[1] != "b\x00" {
		t.Errorf("safeStrings = %q", out)
	}
	if in[0] != "a" {
		t.Error("safeStrings modified its input")
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "llvmpipe")
	if got := cString(name[:]); got != "llvmpipe" {
		t.Errorf("cString = %q", got)
	}
	full := []byte("abcd")
	if got := cString(full); got != "abcd" {
		t.Errorf("cString without terminator = %q", got)
	}
}

func TestResultValuesMatch(t *testing.T) {
	tests := []struct {
		native vk.Result
		want   vulkan.Result
	}{
		{vk.Success, vulkan.Success},
		{vk.NotReady, vulkan.NotReady},
		{vk.Timeout, vulkan.Timeout},
		{vk.Suboptimal, vulkan.Suboptimal},
		{vk.ErrorOutOfDate, vulkan.ErrorOutOfDate},
		{vk.ErrorDeviceLost, vulkan.ErrorDeviceLost},
		{vk.ErrorSurfaceLost, vulkan.ErrorSurfaceLost},
	}
	for _, tt := range tests {
		if got := result(tt.native); got != tt.want {
			t.Errorf("result(%d) = %d, want %d", tt.native, got, tt.want)
		}
	}
}

func TestHandleTable(t *testing.T) {
	d := &vkDriver{objects: make(map[vulkan.Handle]interface{})}
	a := d.put("first")
	b := d.intern("first")
	if a != b {
		t.Errorf("intern issued %d for an object already at %d", b, a)
	}
	if got := get[string](d, a); got != "first" {
		t.Errorf("get = %q", got)
	}
	if got := get[int](d, a); got != 0 {
		t.Errorf("get with the wrong type = %d", got)
	}
	d.take(a)
	if got := get[string](d, a); got != "" {
		t.Errorf("get after take = %q", got)
	}
	if d.put("second") == a {
		t.Error("handle reused after take")
	}
}
