// Package devicestats holds the device list served by the status API and
// shown by ouisnifftop.
package devicestats

import (
	"sort"
	"strings"
)

type Stats []Stat

// OrderBySeq orders by discovery order, which is also first seen order.
func (s Stats) OrderBySeq() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Seq < s[j].Seq })
}

func (s Stats) OrderByFirstSeen() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].FirstSeen.Before(s[j].FirstSeen) })
}

func (s Stats) OrderByHWAddr() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].HWAddr < s[j].HWAddr })
}

func (s Stats) OrderByName() {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Name == "" && s[j].Name != "" {
			return false
		}
		if s[i].Name != "" && s[j].Name == "" {
			return true
		}
		return s[i].Name < s[j].Name
	})
}

func (s Stats) OrderByVendor() {
	sort.SliceStable(s, func(i, j int) bool {
		return strings.ToLower(s[i].Vendor) < strings.ToLower(s[j].Vendor)
	})
}

// Order applies a named ordering. Unknown names keep discovery order.
func (s Stats) Order(orderBy string) {
	s.OrderBySeq()
	switch orderBy {
	case "first_seen":
		s.OrderByFirstSeen()
	case "hwaddr":
		s.OrderByHWAddr()
	case "name":
		s.OrderByName()
	case "vendor":
		s.OrderByHWAddr()
		s.OrderByVendor()
	}
}

// Filter keeps the stats matching any of the given hardware addresses or
// vendors. With no filters everything is kept.
func (s Stats) Filter(hwaddrs, vendors []string) Stats {
	if len(hwaddrs) == 0 && len(vendors) == 0 {
		return s
	}
	res := make(Stats, 0, len(s))
loop:
	for _, v := range s {
		for _, hw := range hwaddrs {
			if strings.EqualFold(v.HWAddr, hw) {
				res = append(res, v)
				continue loop
			}
		}
		for _, vendor := range vendors {
			if strings.EqualFold(v.Vendor, vendor) {
				res = append(res, v)
				continue loop
			}
		}
	}
	return res
}
