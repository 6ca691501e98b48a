package native

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

var end = "\x00"
var endChar byte = '\x00'

// safeString null-terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

// safeStrings returns a null-terminated copy of list.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

// cString reads a fixed size, null-terminated name field.
func cString(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}

func result(r vk.Result) vulkan.Result {
	return vulkan.Result(r)
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func version(v vulkan.Version) uint32 {
	return uint32(v)
}
