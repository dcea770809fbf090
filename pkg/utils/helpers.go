// Package utils provides small generic helpers shared across packages.
package utils

import (
	"strings"
)

// NormalizeAddress lowercases and trims an address or id.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Map applies f to every element of l.
func Map[A any, B any](l []A, f func(A, uint64) B) []B {
	out := make([]B, len(l))
	for i, v := range l {
		out[i] = f(v, uint64(i))
	}
	return out
}

// Filter returns the elements of l for which f is true.
func Filter[A any](l []A, f func(A) bool) []A {
	out := make([]A, 0)
	for _, v := range l {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}

// AddressSet is a case-insensitive set of addresses.
type AddressSet map[string]struct{}

func NewAddressSet(addresses ...string) AddressSet {
	s := make(AddressSet, len(addresses))
	for _, a := range addresses {
		s.Add(a)
	}
	return s
}

func (s AddressSet) Add(address string) {
	s[NormalizeAddress(address)] = struct{}{}
}

func (s AddressSet) Contains(address string) bool {
	_, ok := s[NormalizeAddress(address)]
	return ok
}
