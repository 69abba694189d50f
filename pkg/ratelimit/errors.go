// Copyright 2025 The Admission Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrOverLimit is returned when an identifier has exhausted its quota.
	ErrOverLimit = errors.New("rate limit exceeded")

	// ErrInvalidIdentifier is returned when an identifier is empty.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrStoreUnavailable is returned when the window store cannot be reached.
	ErrStoreUnavailable = errors.New("window store unavailable")
)

// OverLimitError carries the verdict that produced a denial.
type OverLimitError struct {
	Policy  string
	Verdict Verdict
}

// Error returns the error message.
func (e *OverLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for policy %q", e.Policy)
}

// Unwrap returns the underlying sentinel error.
func (e *OverLimitError) Unwrap() error {
	return ErrOverLimit
}

// IsOverLimit reports whether err represents a denied admission.
func IsOverLimit(err error) bool {
	return err != nil && errors.Is(err, ErrOverLimit)
}
