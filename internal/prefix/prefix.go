// Package prefix parses, formats and compares IPv4 and IPv6 CIDR prefixes.
package prefix

import "strings"

// Family identifies the address family of a Prefix.
type Family uint8

const (
	familyNone Family = iota
	IPv4
	IPv6
)

// String returns "ipv4", "ipv6" or "invalid".
func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "invalid"
	}
}

// Prefix holds exactly one of a V4Prefix or a V6Prefix. The zero value holds neither
// and is reported by IsValid as false.
//
// Prefix is comparable, so == and map keys work as expected.
type Prefix struct {
	family Family
	v4     V4Prefix
	v6     V6Prefix
}

// FromV4 wraps an IPv4 prefix.
func FromV4(p V4Prefix) Prefix { return Prefix{family: IPv4, v4: p} }

// FromV6 wraps an IPv6 prefix.
func FromV6(p V6Prefix) Prefix { return Prefix{family: IPv6, v6: p} }

// Parse parses s as IPv6 when its address part contains a colon and as IPv4 otherwise.
func Parse(s string) (Prefix, error) {
	addr, _, _ := strings.Cut(s, "/")
	if strings.Contains(addr, ":") {
		p, err := ParseV6(s)
		if err != nil {
			return Prefix{}, err
		}
		return FromV6(p), nil
	}

	p, err := ParseV4(s)
	if err != nil {
		return Prefix{}, err
	}
	return FromV4(p), nil
}

// Family returns the address family, or the zero Family for the zero Prefix.
func (p Prefix) Family() Family { return p.family }

// IsValid reports whether p holds either variant.
func (p Prefix) IsValid() bool { return p.family != familyNone }

// Is4 reports whether p is an IPv4 prefix.
func (p Prefix) Is4() bool { return p.family == IPv4 }

// Is6 reports whether p is an IPv6 prefix.
func (p Prefix) Is6() bool { return p.family == IPv6 }

// V4 returns the IPv4 payload and whether p holds one.
func (p Prefix) V4() (V4Prefix, bool) {
	return p.v4, p.family == IPv4
}

// V6 returns the IPv6 payload and whether p holds one.
func (p Prefix) V6() (V6Prefix, bool) {
	return p.v6, p.family == IPv6
}

// Bits returns the prefix length of the active variant.
func (p Prefix) Bits() int {
	switch p.family {
	case IPv4:
		return int(p.v4.Bits)
	case IPv6:
		return int(p.v6.Bits)
	default:
		return 0
	}
}

// Equal reports whether p and o have the same family, address and length.
func (p Prefix) Equal(o Prefix) bool {
	return p == o
}

// Validate checks the prefix length against the family bit width.
func (p Prefix) Validate() error {
	switch p.family {
	case IPv4:
		return p.v4.Validate()
	case IPv6:
		return p.v6.Validate()
	default:
		return ErrInvalidPrefix
	}
}

// String returns the canonical CIDR text, or "invalid Prefix" for the zero value.
func (p Prefix) String() string {
	switch p.family {
	case IPv4:
		return p.v4.String()
	case IPv6:
		return p.v6.String()
	default:
		return "invalid Prefix"
	}
}

// MarshalText encodes the zero value as an empty string.
func (p Prefix) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return []byte(""), nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes an empty string as the zero value.
func (p *Prefix) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Prefix{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Dedupe returns prefixes with exact duplicates removed, keeping first-seen order.
func Dedupe(prefixes []Prefix) []Prefix {
	seen := make(map[Prefix]struct{}, len(prefixes))
	out := make([]Prefix, 0, len(prefixes))
	for _, p := range prefixes {
		if _, found := seen[p]; found {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
