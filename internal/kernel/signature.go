package kernel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Signature is the identity of a kernel's compiled form. Kernels with
// equal signatures may share one compiled artifact.
type Signature [sha256.Size]byte

// String returns the signature as lowercase hex.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// Signature hashes the program's canonical binary encoding. Two
// programs with the same width and instruction stream (including
// constants, bit-for-bit) share a signature.
func (p Program) Signature() Signature {
	return sha256.Sum256(p.encode())
}

// encode produces the canonical little-endian wire form of a program:
// width, instruction count, then per instruction the opcode, scalar
// bits, vector length and vector values.
func (p Program) encode() []byte {
	buf := make([]byte, 0, 16+32*len(p.Instrs))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Width))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Instrs)))
	for _, in := range p.Instrs {
		buf = append(buf, byte(in.Code))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(in.Scalar))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(in.Vector)))
		for _, v := range in.Vector {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}
