package pool

import "net"

// validateAddress rejects IPs the protocol must never dial or admit:
// multicast, loopback, broadcast, unspecified, and reserved ranges for
// IPv4; loopback, unspecified, multicast, and link-local for IPv6 (§4.4,
// §9 open question 5 extends the source's IPv4-only check).
func validateAddress(ip net.IP) error {
	if ip == nil {
		return ErrInvalidAddress
	}

	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4.IsLoopback():
			return ErrInvalidAddress
		case v4.IsMulticast():
			return ErrInvalidAddress
		case v4.Equal(net.IPv4bcast):
			return ErrInvalidAddress
		case v4.IsUnspecified():
			return ErrInvalidAddress
		case v4[0] >= 240:
			return ErrInvalidAddress
		}
		return nil
	}

	switch {
	case ip.IsLoopback():
		return ErrInvalidAddress
	case ip.IsUnspecified():
		return ErrInvalidAddress
	case ip.IsMulticast():
		return ErrInvalidAddress
	case ip.IsLinkLocalUnicast():
		return ErrInvalidAddress
	}
	return nil
}

func validatePort(port uint16) error {
	if port == 0 {
		return ErrInvalidPort
	}
	return nil
}
