package netcore

import "fmt"

// Advertising and GATT parameters of the radio stack.
const (
	DeviceName = "OpenEEG Headband"
	ShortName  = "EEG Headband"
	L2CAPMTU   = 512
)

// EEGDataServiceUUID is the primary service carrying records.
var EEGDataServiceUUID = [16]byte{
	0xff, 0x4d, 0xbd, 0x17, 0x22, 0x60, 0x4d, 0x0d,
	0xa7, 0x66, 0x2d, 0xe4, 0x77, 0x58, 0x2b, 0x8d,
}

// UUIDString formats a 128-bit UUID in canonical form.
func UUIDString(u [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}
