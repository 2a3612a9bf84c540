package tree

import "strings"

var defaultPorts = map[string]int{
	"SSH":    22,
	"SSH1":   22,
	"SSH2":   22,
	"SFTP":   22,
	"RDP":    3389,
	"VNC":    5900,
	"TELNET": 23,
	"HTTP":   80,
	"HTTPS":  443,
	"FTP":    21,
}

// DefaultPort returns the well-known port of a protocol name.
func DefaultPort(protocol string) (int, bool) {
	p, ok := defaultPorts[strings.ToUpper(strings.TrimSpace(protocol))]
	return p, ok
}

// PortOrDefault returns port when set, otherwise the protocol default,
// otherwise fallback.
func PortOrDefault(port int, protocol string, fallback int) int {
	if port > 0 {
		return port
	}
	if p, ok := DefaultPort(protocol); ok {
		return p
	}
	return fallback
}

// protocolClass is how a source protocol maps onto a payload.
type protocolClass int

const (
	classSSH protocolClass = iota
	classRDP
	classCoerced
)

func classifyProtocol(protocol string) protocolClass {
	switch strings.ToUpper(strings.TrimSpace(protocol)) {
	case "SSH2", "SSH1", "SSH", "SFTP":
		return classSSH
	case "RDP", "":
		// mRemoteNG writes RDP as its default and omits it in some exports.
		return classRDP
	default:
		return classCoerced
	}
}
