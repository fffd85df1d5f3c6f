// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"
	"sort"
	"strings"
)

// MemoryFootprint describes the memory consumption of a component, including
// its subcomponents.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
	note     string
}

// NewMemoryFootprint creates a new memory footprint with the given size of
// the component itself (excluding children).
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: make(map[string]*MemoryFootprint),
	}
}

// AddChild attaches the footprint of a subcomponent under the given name.
func (m *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	m.children[name] = child
}

// SetNote attaches a descriptive note displayed along the footprint value.
func (m *MemoryFootprint) SetNote(note string) {
	m.note = note
}

// Total provides the amount of bytes consumed by the component and all its
// subcomponents.
func (m *MemoryFootprint) Total() uintptr {
	total := m.value
	for _, child := range m.children {
		total += child.Total()
	}
	return total
}

func (m *MemoryFootprint) String() string {
	var b strings.Builder
	m.toString(&b, ".")
	return b.String()
}

func (m *MemoryFootprint) toString(b *strings.Builder, path string) {
	fmt.Fprintf(b, "%d B %s", m.Total(), path)
	if m.note != "" {
		fmt.Fprintf(b, " %s", m.note)
	}
	b.WriteRune('\n')
	names := make([]string, 0, len(m.children))
	for name := range m.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.children[name].toString(b, path+"/"+name)
	}
}
