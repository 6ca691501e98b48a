package assets

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic uint32 = 0x07230203

// ShaderCode is a decoded SPIR-V module ready for Device.CreateShaderModule.
type ShaderCode struct {
	Name       string
	EntryPoint string
	Words      []uint32
}

// ShaderSource hands out shader bytecode by name.
type ShaderSource interface {
	LoadShader(name, entryPoint string) (ShaderCode, error)
}

// DecodeSPIRV converts a little-endian SPIR-V blob into 32-bit words.
func DecodeSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Errorf("spir-v: size %d is not a positive multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Errorf("spir-v: bad magic number %#08x", words[0])
	}
	return words, nil
}

// StaticShaders serves bytecode held in memory, keyed by shader name.
type StaticShaders map[string][]uint32

func (s StaticShaders) LoadShader(name, entryPoint string) (ShaderCode, error) {
	words, ok := s[name]
	if !ok {
		err := errors.Errorf("shader %q not found", name)
		core.LogError("%s", err)
		return ShaderCode{}, err
	}
	return ShaderCode{Name: name, EntryPoint: entryPoint, Words: append([]uint32(nil), words...)}, nil
}

func (s StaticShaders) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
