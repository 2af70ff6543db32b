// Copyright (c) 2025 Taurus Team. All rights reserved.
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

package pool

import (
	"math/rand"
	"testing"
)

func newTestAligner() *Aligner {
	return NewAligner(rand.New(rand.NewSource(42)))
}

func drawN(t *testing.T, a *Aligner, n int, limit int, blacklisted func(string) bool) map[string]int {
	t.Helper()
	counter := make(map[string]int)
	for i := 0; i < n; i++ {
		addr, ok := a.Get(limit, blacklisted)
		if !ok {
			t.Fatalf("Get() returned ok=false on draw %d", i)
		}
		counter[addr]++
	}
	return counter
}

func TestAlignerNormal(t *testing.T) {
	a := newTestAligner()
	a.Update([]string{"127.0.0.1", "127.0.0.2", "127.0.0.3"}, nil)

	counter := drawN(t, a, 30, 100, nil)
	want := map[string]int{"127.0.0.1": 10, "127.0.0.2": 10, "127.0.0.3": 10}
	for addr, n := range want {
		if counter[addr] != n {
			t.Errorf("addr %s: got %d draws, want %d (full counter: %v)", addr, counter[addr], n, counter)
		}
	}
}

func TestAlignerBlacklisting(t *testing.T) {
	a := newTestAligner()
	a.Update([]string{"127.0.0.1", "127.0.0.2", "127.0.0.3"}, nil)

	counter := drawN(t, a, 6, 100, nil)

	blist1 := func(addr string) bool { return addr == "127.0.0.1" }
	for addr, n := range drawN(t, a, 6, 100, blist1) {
		counter[addr] += n
	}
	if counter["127.0.0.1"] != 2 {
		t.Errorf("blacklisted addr should not have been drawn further, got %d", counter["127.0.0.1"])
	}
	if counter["127.0.0.2"] != 5 || counter["127.0.0.3"] != 5 {
		t.Errorf("unexpected distribution after blacklisting: %v", counter)
	}

	for addr, n := range drawN(t, a, 9, 100, nil) {
		counter[addr] += n
	}
	if counter["127.0.0.1"] != 7 || counter["127.0.0.2"] != 7 || counter["127.0.0.3"] != 7 {
		t.Errorf("expected all addrs to converge back to 7 draws, got %v", counter)
	}
}

func TestAlignerUpdate(t *testing.T) {
	a := newTestAligner()
	a.Update([]string{"127.0.0.1", "127.0.0.2", "127.0.0.3"}, nil)

	counter := drawN(t, a, 6, 100, nil)
	if counter["127.0.0.1"] != 2 || counter["127.0.0.2"] != 2 || counter["127.0.0.3"] != 2 {
		t.Fatalf("unexpected initial distribution: %v", counter)
	}

	a.Update([]string{"127.0.0.4"}, []string{"127.0.0.2"})
	for addr, n := range drawN(t, a, 8, 100, nil) {
		counter[addr] += n
	}

	if counter["127.0.0.2"] != 2 {
		t.Errorf("removed addr must not be drawn again after removal, got %d total draws", counter["127.0.0.2"])
	}
	if counter["127.0.0.1"] != 4 || counter["127.0.0.3"] != 4 || counter["127.0.0.4"] != 4 {
		t.Errorf("unexpected distribution after update: %v", counter)
	}
}

func TestAlignerGetRespectsLimit(t *testing.T) {
	a := newTestAligner()
	a.Update([]string{"127.0.0.1"}, nil)

	if _, ok := a.Get(1, nil); !ok {
		t.Fatal("expected first Get to succeed")
	}
	if _, ok := a.Get(1, nil); ok {
		t.Fatal("expected second Get to fail once limit is reached")
	}

	a.Put("127.0.0.1")
	if _, ok := a.Get(1, nil); !ok {
		t.Fatal("expected Get to succeed again after Put frees up capacity")
	}
}

func TestAlignerGetSkipsFullyBlacklistedLowerBuckets(t *testing.T) {
	a := newTestAligner()

	// Bump "A" into bucket 1 first, then introduce "B" fresh into bucket 0.
	a.Update([]string{"A"}, nil)
	if addr, ok := a.Get(100, nil); !ok || addr != "A" {
		t.Fatalf("expected to draw A, got %q ok=%v", addr, ok)
	}
	a.Update([]string{"B"}, nil)

	// Bucket 0 now holds only "B"; blacklist it so the lowest non-empty
	// bucket has no eligible candidate. Get must keep scanning up to
	// bucket 1 and return "A" instead of reporting ok=false.
	blacklisted := func(addr string) bool { return addr == "B" }

	got, ok := a.Get(100, blacklisted)
	if !ok {
		t.Fatal("expected Get to find the non-blacklisted address in a higher bucket scan")
	}
	if got != "A" {
		t.Fatalf("expected Get to skip the fully-blacklisted bucket 0 and return A, got %q", got)
	}
}

func TestAlignerUpdateIsIdempotentForUnknownRemovals(t *testing.T) {
	a := newTestAligner()
	a.Update([]string{"127.0.0.1"}, nil)
	a.Update(nil, []string{"127.0.0.9"}) // never existed, must not panic

	if n := a.UseCount("127.0.0.1"); n != 0 {
		t.Fatalf("unrelated removal must not disturb existing entries, got use-count %d", n)
	}
}
