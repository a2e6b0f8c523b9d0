/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
	"time"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	ix := openTestIndex(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := func(w int) PreviewKey { return PreviewKey{Page: 1, Kind: PreviewKindThumb, W: w, H: w} }
	for _, w := range []int{100, 200, 300} {
		if err := ix.PutPreview(ctx, key(w), "h", make([]byte, 40), 64); err != nil {
			t.Fatalf("put %d: %v", w, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	total, err := ix.TotalPreviewBytes(ctx)
	if err != nil || total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d %v", total, err)
	}
	if b, _ := ix.GetPreview(ctx, key(300), "h"); b == nil {
		t.Fatalf("newest preview should survive eviction")
	}
	if b, _ := ix.GetPreview(ctx, key(100), "h"); b != nil {
		t.Fatalf("oldest preview should be evicted")
	}
}

func TestPreviewHashMismatchIsMiss(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	k := PreviewKey{Page: 2, Kind: PreviewKindThumb, W: 25, H: 35}
	if err := ix.PutPreview(ctx, k, ContentHash([]byte("v1")), []byte("<div>"), 0); err != nil {
		t.Fatal(err)
	}
	if b, err := ix.GetPreview(ctx, k, ContentHash([]byte("v2"))); err != nil || b != nil {
		t.Fatalf("stale preview served: %q %v", b, err)
	}
	if b, _ := ix.GetPreview(ctx, k, ContentHash([]byte("v1"))); string(b) != "<div>" {
		t.Fatalf("hit: %q", b)
	}
	if err := ix.InvalidatePreviews(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if b, _ := ix.GetPreview(ctx, k, ContentHash([]byte("v1"))); b != nil {
		t.Fatalf("invalidated preview served")
	}
	if err := ix.PutPreview(ctx, PreviewKey{Page: 1, Kind: "bogus"}, "", nil, 0); err == nil {
		t.Fatalf("expected invalid kind error")
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("abcd"), nil }
	k := PreviewKey{Page: 3, Kind: PreviewKindThumb, W: 10, H: 14}
	for i := 0; i < 2; i++ {
		b, err := ix.GetOrCreatePreview(ctx, k, "x", 0, gen)
		if err != nil || string(b) != "abcd" {
			t.Fatalf("call %d: %q %v", i, b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator should run once, ran %d", calls)
	}
}
