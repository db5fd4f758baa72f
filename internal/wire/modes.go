package wire

// Operational-mode bitfield masks, exchanged via DefineOperationalModes and
// ground-truthed against the upstream protocol's Constants.h (§6).
const (
	VersionMask          uint32 = 0x0000001F
	CompressionModeMask  uint32 = 0x000000E0
	EncodingMask         uint32 = 0x00000300
	UseCommonSerialFmt   uint32 = 0x01000000
	ReceiveExternalMeta  uint32 = 0x02000000
	ReceiveInternalMeta  uint32 = 0x04000000
	CompressPayloadData  uint32 = 0x20000000
	CompressSignalCache  uint32 = 0x40000000
	CompressMetadataMode uint32 = 0x80000000
	NoFlags              uint32 = 0x00000000
)

// Encoding sub-values within EncodingMask.
const (
	OperationalEncodingUnicode          uint32 = 0x00000000 // UTF-16 LE
	OperationalEncodingBigEndianUnicode uint32 = 0x00000100 // UTF-16 BE
	OperationalEncodingUTF8             uint32 = 0x00000200
	OperationalEncodingANSI             uint32 = 0x00000300
)

// Compression sub-values within CompressionModeMask.
const (
	CompressionGZip uint32 = 0x00000020
	CompressionTSSC uint32 = 0x00000040
	CompressionNone uint32 = 0x00000000
)

// DataPacketFlags are the flag bits of a DataPacket response body's leading
// byte (§4.4).
const (
	DataPacketSynchronized uint8 = 0x01
	DataPacketCompact      uint8 = 0x02
	DataPacketCipherIndex  uint8 = 0x04
	DataPacketCompressed   uint8 = 0x08
	DataPacketNoFlags      uint8 = 0x00
)
