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

import "math/rand"

// Aligner 在当前地址快照范围内公平地分配"下一个该连哪个地址"的决定：
// 没有地址被 blacklisted 谓词拒绝时，任意两个地址被选中的次数之差不超过 1
// （用量桶 0,1,2,... 依次用尽）；被拒绝的地址在拒绝期间不增长，差距可以更大。
//
// 内部用 count -> set(addr) 的多重索引（按 count 升序遍历）加上
// addr -> count 的反向索引，做到 O(log n) 级别的公平挑选；桶清空后立刻
// 从索引中移除。和包里其它组件一样，Aligner 不是并发安全的，只应该在
// Multiplexer 所在的 goroutine 里访问。
type Aligner struct {
	buckets  map[int]map[string]struct{} // use-count -> addrs at that count
	counts   map[string]int              // addr -> use-count
	maxCount int                         // highest bucket index that might be non-empty
	rng      *rand.Rand
}

// NewAligner 创建一个空 Aligner。
func NewAligner(rng *rand.Rand) *Aligner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Aligner{
		buckets: make(map[int]map[string]struct{}),
		counts:  make(map[string]int),
		rng:     rng,
	}
}

func (a *Aligner) bucket(n int) map[string]struct{} {
	b, ok := a.buckets[n]
	if !ok {
		b = make(map[string]struct{})
		a.buckets[n] = b
	}
	return b
}

func (a *Aligner) removeFromBucket(n int, addr string) {
	b, ok := a.buckets[n]
	if !ok {
		return
	}
	delete(b, addr)
	if len(b) == 0 {
		delete(a.buckets, n)
	}
}

// Update 把新增地址以 use-count 0 插入索引；把移除地址从索引中删除 ——
// 删除只影响 Aligner 的簿记，不会打断已经建立的实时连接，那些连接由
// Multiplexer 另行标记退休。重复解析同一个地址（既不在 added 也不在
// removed 里，或者两次推送内容完全相同）是幂等的。
func (a *Aligner) Update(added, removed []string) {
	for _, addr := range added {
		if _, exists := a.counts[addr]; exists {
			continue
		}
		a.counts[addr] = 0
		a.bucket(0)[addr] = struct{}{}
	}
	for _, addr := range removed {
		n, ok := a.counts[addr]
		if !ok {
			continue
		}
		delete(a.counts, addr)
		a.removeFromBucket(n, addr)
	}
}

// Get 返回 use-count 最小、且未被 blacklisted 拒绝、且 use-count < limit
// 的地址；多个候选时在整个桶内均匀随机挑一个。命中后原子性地把该地址的
// use-count 加一（从桶 n 移到桶 n+1）。如果所有地址都达到了 limit，或者
// 剩下的地址全部被 blacklisted 拒绝，返回 ok=false。
//
// 注意：即便最低的桶里所有地址都被 blacklisted，Get 仍然会尝试更高的桶 ——
// 只有当某个桶的 count >= limit 时才彻底停止（更高的桶 count 只会更大）。
func (a *Aligner) Get(limit int, blacklisted func(addr string) bool) (addr string, ok bool) {
	for n := 0; n <= a.maxCount; n++ {
		if n >= limit {
			return "", false
		}
		b, exists := a.buckets[n]
		if !exists || len(b) == 0 {
			continue
		}
		candidates := make([]string, 0, len(b))
		for cand := range b {
			if blacklisted == nil || !blacklisted(cand) {
				candidates = append(candidates, cand)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		picked := candidates[a.rng.Intn(len(candidates))]
		a.removeFromBucket(n, picked)
		a.counts[picked] = n + 1
		a.bucket(n + 1)[picked] = struct{}{}
		if n+1 > a.maxCount {
			a.maxCount = n + 1
		}
		return picked, true
	}
	return "", false
}

// Put 把一次连接尝试或一条活跃连接结束时的 use-count 减一。
func (a *Aligner) Put(addr string) {
	n, ok := a.counts[addr]
	if !ok || n == 0 {
		return
	}
	a.removeFromBucket(n, addr)
	a.counts[addr] = n - 1
	a.bucket(n - 1)[addr] = struct{}{}
}

// UseCount 返回某个地址当前的 use-count，仅供测试和调试使用。
func (a *Aligner) UseCount(addr string) int {
	return a.counts[addr]
}
