package opencl

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/goksuguvendiren/optix-renderer/types"
)

// Scalar and vector variables are packed into 16 byte slots so that each
// one maps to a float4/uint4 on the device side.
const slotSize = 16

type slot [slotSize]byte

func putFloats(s *slot, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(s[i*4:], math.Float32bits(v))
	}
}

// Encode a scalar or vector variable into a slot.
func encodeSlot(value interface{}) (slot, error) {
	var s slot
	switch v := value.(type) {
	case float32:
		putFloats(&s, v)
	case uint32:
		binary.LittleEndian.PutUint32(s[:], v)
	case int32:
		binary.LittleEndian.PutUint32(s[:], uint32(v))
	case types.Vec2:
		putFloats(&s, v[0], v[1])
	case types.Vec3:
		putFloats(&s, v[0], v[1], v[2])
	case types.Vec4:
		putFloats(&s, v[0], v[1], v[2], v[3])
	default:
		return s, fmt.Errorf("%w %T", ErrUnsupportedArg, value)
	}
	return s, nil
}

// Split a variable set into buffer-valued variables and scalar slots. Both
// lists follow the variable name order so kernels can rely on a stable
// layout.
func splitVariables(vars map[string]interface{}) ([]*buffer, []slot, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		buffers []*buffer
		slots   []slot
	)
	for _, name := range names {
		if buf, isBuf := vars[name].(*buffer); isBuf {
			buffers = append(buffers, buf)
			continue
		}
		s, err := encodeSlot(vars[name])
		if err != nil {
			return nil, nil, fmt.Errorf("variable %q: %w", name, err)
		}
		slots = append(slots, s)
	}
	return buffers, slots, nil
}

func flattenSlots(slots []slot) []byte {
	out := make([]byte, 0, len(slots)*slotSize)
	for _, s := range slots {
		out = append(out, s[:]...)
	}
	return out
}
