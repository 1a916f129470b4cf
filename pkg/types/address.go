package types

import (
	"net"
	"net/netip"
)

// AddrFamily 地址族
type AddrFamily int

const (
	// FamilyUnknown 无法识别的地址族
	FamilyUnknown AddrFamily = iota
	// FamilyIPv4 IPv4
	FamilyIPv4
	// FamilyIPv6 IPv6
	FamilyIPv6
)

// String 返回地址族名称
func (f AddrFamily) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// AddrFamilyOf 返回 net.Addr 的地址族
//
// 只识别携带 IP 的地址（UDPAddr、TCPAddr、IPAddr），其余返回 FamilyUnknown。
func AddrFamilyOf(addr net.Addr) AddrFamily {
	var ip net.IP
	switch a := addr.(type) {
	case *net.UDPAddr:
		if a == nil {
			return FamilyUnknown
		}
		ip = a.IP
	case *net.TCPAddr:
		if a == nil {
			return FamilyUnknown
		}
		ip = a.IP
	case *net.IPAddr:
		if a == nil {
			return FamilyUnknown
		}
		ip = a.IP
	default:
		return FamilyUnknown
	}
	return familyOfIP(ip)
}

// AddrPortFamily 返回 netip.AddrPort 的地址族
func AddrPortFamily(ap netip.AddrPort) AddrFamily {
	if !ap.IsValid() {
		return FamilyUnknown
	}
	if ap.Addr().Unmap().Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

func familyOfIP(ip net.IP) AddrFamily {
	switch {
	case len(ip) == 0:
		return FamilyUnknown
	case ip.To4() != nil:
		return FamilyIPv4
	case len(ip) == net.IPv6len:
		return FamilyIPv6
	default:
		return FamilyUnknown
	}
}

// AddrKey 返回用于注册表查找的地址键
//
// 不同 net.Addr 实现只要 IP 与端口相同即得到相同的键；IPv4 映射的 IPv6
// 地址会被规范为 IPv4。
func AddrKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	var (
		ip   net.IP
		port int
	)
	switch a := addr.(type) {
	case *net.UDPAddr:
		ip, port = a.IP, a.Port
	case *net.TCPAddr:
		ip, port = a.IP, a.Port
	default:
		return addr.String()
	}
	ipAddr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return addr.String()
	}
	return netip.AddrPortFrom(ipAddr.Unmap(), uint16(port)).String()
}
