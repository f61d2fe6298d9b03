// Copyright 2025 The Go A2A Authors.
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
//
// SPDX-License-Identifier: Apache-2.0

package bufpool

import (
	"bytes"
	"testing"
)

func TestBytesPoolResetsBufferOnPut(t *testing.T) {
	t.Parallel()

	buf := Bytes.Get()
	buf.WriteString("leftover")
	Bytes.Put(buf)

	again := Bytes.Get()
	if got := again.Len(); got != 0 {
		t.Errorf("Get() after Put() returned buffer with len %d, want 0", got)
	}
}

func TestPoolGetUsesNewWhenEmpty(t *testing.T) {
	t.Parallel()

	calls := 0
	p := New(func() *bytes.Buffer {
		calls++
		return &bytes.Buffer{}
	})

	buf := p.Get()
	if buf == nil {
		t.Fatal("Get() returned nil")
	}
	if calls != 1 {
		t.Errorf("New func called %d times, want 1", calls)
	}
}

func TestPoolPutWithoutReseterIsANoop(t *testing.T) {
	t.Parallel()

	p := New(func() int { return 0 })
	p.Put(42) // must not panic for a T without a Reset method
}
