package prefix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"inet.af/netaddr"
)

var (
	// ErrMissingComponent is returned when CIDR text lacks an address or a length.
	ErrMissingComponent = errors.New("missing address or prefix length")
	// ErrMalformedAddress is returned when the address is not a valid literal of the expected family.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrMalformedLength is returned when the prefix length is not an unsigned 8-bit decimal.
	ErrMalformedLength = errors.New("malformed prefix length")
	// ErrLengthOutOfRange is returned by Validate when the length exceeds the family bit width.
	ErrLengthOutOfRange = errors.New("prefix length out of range")
	// ErrInvalidPrefix is returned for a zero Prefix that holds neither family.
	ErrInvalidPrefix = errors.New("invalid Prefix")
)

// V4Prefix is an IPv4 network in CIDR form. Addr holds the octets in network order.
type V4Prefix struct {
	Addr [4]byte
	Bits uint8
}

// V6Prefix is an IPv6 network in CIDR form.
type V6Prefix struct {
	Segments [8]uint16
	Bits     uint8
}

// ParseV4 parses "a.b.c.d/n". The length is not checked against 32; see Validate.
func ParseV4(s string) (V4Prefix, error) {
	addr, bits, err := splitCIDR(s)
	if err != nil {
		return V4Prefix{}, err
	}

	ip, err := netaddr.ParseIP(addr)
	if err != nil || !ip.Is4() || hasLeadingZeroOctet(addr) {
		return V4Prefix{}, fmt.Errorf("%w: %q is not an IPv4 address", ErrMalformedAddress, addr)
	}

	return V4Prefix{Addr: ip.As4(), Bits: bits}, nil
}

// ParseV6 parses "<ipv6>/n" in any textual form, compressed or not.
// The length is not checked against 128; see Validate.
func ParseV6(s string) (V6Prefix, error) {
	addr, bits, err := splitCIDR(s)
	if err != nil {
		return V6Prefix{}, err
	}

	ip, err := netaddr.ParseIP(addr)
	if err != nil || !ip.Is6() || ip.Zone() != "" || hasLeadingZeroOctet(addr) {
		return V6Prefix{}, fmt.Errorf("%w: %q is not an IPv6 address", ErrMalformedAddress, addr)
	}

	raw := ip.As16()
	var p V6Prefix
	for i := range p.Segments {
		p.Segments[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	p.Bits = bits
	return p, nil
}

// hasLeadingZeroOctet reports whether the dotted-quad part of addr, if any,
// has an octet like "010". netaddr reads those as decimal.
func hasLeadingZeroOctet(addr string) bool {
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		addr = addr[i+1:]
	}
	if !strings.Contains(addr, ".") {
		return false
	}
	for _, octet := range strings.Split(addr, ".") {
		if len(octet) > 1 && octet[0] == '0' {
			return true
		}
	}
	return false
}

func splitCIDR(s string) (string, uint8, error) {
	addr, length, found := strings.Cut(s, "/")
	if !found || addr == "" || length == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMissingComponent, s)
	}

	bits, err := strconv.ParseUint(length, 10, 8)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedLength, length)
	}
	return addr, uint8(bits), nil
}

// String returns the dotted-quad form, e.g. "192.168.1.0/24".
func (p V4Prefix) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d", p.Addr[0], p.Addr[1], p.Addr[2], p.Addr[3], p.Bits)
}

// Validate reports whether Bits fits in 32.
func (p V4Prefix) Validate() error {
	if p.Bits > 32 {
		return fmt.Errorf("%w: %s exceeds /32", ErrLengthOutOfRange, p)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p V4Prefix) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseV4.
func (p *V4Prefix) UnmarshalText(text []byte) error {
	parsed, err := ParseV4(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// String returns all eight segments without "::" compression,
// e.g. "2001:db8:0:0:0:0:0:0/32". Firewall rule strings are built from it.
func (p V6Prefix) String() string {
	var b strings.Builder
	for i, seg := range p.Segments {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatUint(uint64(seg), 16))
	}
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(int(p.Bits)))
	return b.String()
}

// Validate reports whether Bits fits in 128.
func (p V6Prefix) Validate() error {
	if p.Bits > 128 {
		return fmt.Errorf("%w: %s exceeds /128", ErrLengthOutOfRange, p)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p V6Prefix) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseV6.
func (p *V6Prefix) UnmarshalText(text []byte) error {
	parsed, err := ParseV6(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
