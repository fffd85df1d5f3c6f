// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package delegate

import (
	"fmt"

	"github.com/0xsoniclabs/grove/common/amount"
)

// Config fixes the module-level parameters of a forest. They are set at
// deployment, not per call; every bound the state machine enforces derives
// from them.
type Config struct {
	// Bond is the base deposit unit. Root creation reserves exactly one
	// Bond; member addition reserves Bond scaled linearly with the resulting
	// group size; delegation reserves Bond raised to height plus kids.
	Bond amount.Amount

	// MaxSize is the maximum number of members of any single tree.
	MaxSize uint32

	// MaxDepth is the maximum height of any tree (roots have height 0).
	MaxDepth uint32

	// MaxKids is the maximum number of direct child trees per tree.
	MaxKids uint32
}

// Validate checks the configuration is usable. Zero limits would make the
// forest inert, so they are rejected.
func (c Config) Validate() error {
	if c.MaxSize == 0 {
		return fmt.Errorf("invalid config: MaxSize must be positive")
	}
	if c.MaxDepth == 0 {
		return fmt.Errorf("invalid config: MaxDepth must be positive")
	}
	if c.MaxKids == 0 {
		return fmt.Errorf("invalid config: MaxKids must be positive")
	}
	return nil
}
