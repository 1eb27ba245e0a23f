package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ZeroMAC is the placeholder some drivers expose before link bring-up; it is
// never a usable identity.
const ZeroMAC = "00:00:00:00:00:00"

// BaseName is the advertised name used when nothing better can be derived.
const BaseName = "Wyse DAC"

// SyntheticMAC derives a stable MAC-shaped address from the machine id when
// no real link-layer address exists. The first byte gets the
// locally-administered bit set and the multicast bit cleared so the result
// can never collide with a globally assigned unicast address.
func SyntheticMAC(machineID string) string {
	digest := sha256.Sum256([]byte(machineID))
	hexDigest := hex.EncodeToString(digest[:])

	first := digest[0]
	first = (first | 0x02) & 0xFE

	macHex := fmt.Sprintf("%02x%s", first, hexDigest[2:12])
	parts := make([]string, 0, 6)
	for i := 0; i < len(macHex); i += 2 {
		parts = append(parts, macHex[i:i+2])
	}
	return strings.Join(parts, ":")
}

// DeviceID formats the AirPlay device id shairport-sync expects:
// colon-stripped uppercase hex wrapped as 0x...L.
func DeviceID(mac string) string {
	return "0x" + strings.ToUpper(strings.ReplaceAll(mac, ":", "")) + "L"
}

// DefaultName builds the advertised display name. Real addresses get a
// per-device suffix; pass an empty mac (synthetic identity) for the bare
// base name.
func DefaultName(mac string) string {
	if mac == "" {
		return BaseName
	}
	return BaseName + "-" + macSuffix(mac)
}

// macSuffix is the uppercased last two octets of a colon-delimited address,
// or the last four hex digits when the address has no usable colon split.
func macSuffix(mac string) string {
	parts := strings.Split(mac, ":")
	if len(parts) >= 2 {
		return strings.ToUpper(parts[len(parts)-2] + parts[len(parts)-1])
	}
	stripped := strings.ToUpper(strings.ReplaceAll(mac, ":", ""))
	if len(stripped) > 4 {
		stripped = stripped[len(stripped)-4:]
	}
	return stripped
}
