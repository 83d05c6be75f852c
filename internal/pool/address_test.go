package pool

import (
	"net"
	"testing"
)

func TestValidateAddressRejectsReservedIPv4(t *testing.T) {
	cases := []string{
		"127.0.0.1",
		"224.0.0.1",
		"239.255.255.255",
		"255.255.255.255",
		"0.0.0.0",
		"240.0.0.1",
	}
	for _, ip := range cases {
		if err := validateAddress(net.ParseIP(ip)); err == nil {
			t.Errorf("expected %s to be rejected", ip)
		}
	}
}

func TestValidateAddressAcceptsOrdinaryIPv4(t *testing.T) {
	if err := validateAddress(net.ParseIP("203.0.113.4")); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestValidateAddressRejectsReservedIPv6(t *testing.T) {
	cases := []string{"::1", "::", "ff00::1", "fe80::1"}
	for _, ip := range cases {
		if err := validateAddress(net.ParseIP(ip)); err == nil {
			t.Errorf("expected %s to be rejected", ip)
		}
	}
}

func TestValidatePort(t *testing.T) {
	if err := validatePort(0); err == nil {
		t.Error("expected port 0 to be rejected")
	}
	if err := validatePort(2234); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}
