package wire

// Byte-prefix constants per the MessagePack specification (2023-05).
const (
	prefixNil   byte = 0xc0
	prefixFalse byte = 0xc2
	prefixTrue  byte = 0xc3

	prefixUint8  byte = 0xcc
	prefixUint16 byte = 0xcd
	prefixUint32 byte = 0xce
	prefixUint64 byte = 0xcf

	prefixInt8  byte = 0xd0
	prefixInt16 byte = 0xd1
	prefixInt32 byte = 0xd2
	prefixInt64 byte = 0xd3

	prefixFloat32 byte = 0xca
	prefixFloat64 byte = 0xcb

	prefixStr8  byte = 0xd9
	prefixStr16 byte = 0xda
	prefixStr32 byte = 0xdb

	prefixBin8  byte = 0xc4
	prefixBin16 byte = 0xc5
	prefixBin32 byte = 0xc6

	prefixArray16 byte = 0xdc
	prefixArray32 byte = 0xdd

	prefixMap16 byte = 0xde
	prefixMap32 byte = 0xdf

	prefixFixExt1  byte = 0xd4
	prefixFixExt2  byte = 0xd5
	prefixFixExt4  byte = 0xd6
	prefixFixExt8  byte = 0xd7
	prefixFixExt16 byte = 0xd8
	prefixExt8     byte = 0xc7
	prefixExt16    byte = 0xc8
	prefixExt32    byte = 0xc9

	// fixint/fixstr/fixarray/fixmap/fixext use the top bits as a class tag;
	// the remaining bits hold the length or value directly.
	fixintPositiveMax byte = 0x7f
	fixintNegativeMin byte = 0xe0
	fixstrPrefix      byte = 0xa0
	fixstrMask        byte = 0x1f
	fixarrayPrefix    byte = 0x90
	fixarrayMask      byte = 0x0f
	fixmapPrefix      byte = 0x80
	fixmapMask        byte = 0x0f
)

const maxUint32 = 1<<32 - 1

// CoreFormat classifies a decoded atom into one of the core MessagePack
// shapes, independent of any user type. Used by Any, peek, and step.
type CoreFormat uint8

const (
	CoreNil CoreFormat = iota
	CoreBool
	CoreInt
	CoreUint
	CoreFloat
	CoreString
	CoreBinary
	CoreArray
	CoreMap
	CoreExtension
)

func (f CoreFormat) String() string {
	switch f {
	case CoreNil:
		return "Nil"
	case CoreBool:
		return "Bool"
	case CoreInt:
		return "Int"
	case CoreUint:
		return "Uint"
	case CoreFloat:
		return "Float"
	case CoreString:
		return "String"
	case CoreBinary:
		return "Binary"
	case CoreArray:
		return "Array"
	case CoreMap:
		return "Map"
	case CoreExtension:
		return "Extension"
	default:
		return "Unknown"
	}
}

// classify maps a leading byte to its CoreFormat. It does not consume
// anything; callers decide whether to read past the byte.
func classify(b byte) CoreFormat {
	switch {
	case b == prefixNil:
		return CoreNil
	case b == prefixFalse || b == prefixTrue:
		return CoreBool
	case b <= fixintPositiveMax:
		return CoreInt
	case b >= fixintNegativeMin:
		return CoreInt
	case b == prefixUint8 || b == prefixUint16 || b == prefixUint32 || b == prefixUint64:
		return CoreUint
	case b == prefixInt8 || b == prefixInt16 || b == prefixInt32 || b == prefixInt64:
		return CoreInt
	case b == prefixFloat32 || b == prefixFloat64:
		return CoreFloat
	case b&0xe0 == fixstrPrefix || b == prefixStr8 || b == prefixStr16 || b == prefixStr32:
		return CoreString
	case b == prefixBin8 || b == prefixBin16 || b == prefixBin32:
		return CoreBinary
	case b&0xf0 == fixarrayPrefix || b == prefixArray16 || b == prefixArray32:
		return CoreArray
	case b&0xf0 == fixmapPrefix || b == prefixMap16 || b == prefixMap32:
		return CoreMap
	case b == prefixFixExt1 || b == prefixFixExt2 || b == prefixFixExt4 || b == prefixFixExt8 || b == prefixFixExt16,
		b == prefixExt8 || b == prefixExt16 || b == prefixExt32:
		return CoreExtension
	default:
		return CoreNil // unreachable: every byte value is covered above
	}
}
