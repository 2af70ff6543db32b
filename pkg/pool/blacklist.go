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
	"container/heap"
	"time"
)

// blacklistEntry 是堆中的一个元素：地址 + 到期时间。
type blacklistEntry struct {
	addr   string
	expiry time.Time
	index  int // container/heap 需要的索引，便于将来扩展为可更新堆
}

// expiryHeap 是一个按 expiry 升序排列的最小堆。
type expiryHeap []*blacklistEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].expiry.Before(h[j].expiry) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *expiryHeap) Push(x interface{}) {
	e := x.(*blacklistEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Blacklist 记住最近连接失败的地址，直到一个随机化的冷却期过去之前都跳过
// 对它们的重连尝试。membership 用一个 map 做 O(1) 判定，真正驱动过期/唤醒
// 的是一个按到期时间排序的最小堆。
//
// Blacklist 不是并发安全的：和包里其它组件一样，它只应该被 Multiplexer
// 所在的那个 goroutine 访问。
type Blacklist struct {
	heap    expiryHeap
	members map[string]time.Time
}

// NewBlacklist 创建一个空黑名单。
func NewBlacklist() *Blacklist {
	return &Blacklist{members: make(map[string]time.Time)}
}

// Blacklist 把 addr 加入黑名单，到期时间为 expiry；如果 addr 已经在黑名单中，
// 直接替换掉旧的到期时间（懒删除：旧的堆条目留在堆里，poll 时按 membership
// 校验丢弃过期的重复项）。
func (b *Blacklist) Blacklist(addr string, expiry time.Time) {
	b.members[addr] = expiry
	heap.Push(&b.heap, &blacklistEntry{addr: addr, expiry: expiry})
}

// IsFailing 是 O(1) 的成员判定。
func (b *Blacklist) IsFailing(addr string) bool {
	_, ok := b.members[addr]
	return ok
}

// Poll 弹出所有已经到期（expiry <= now）的地址并清除它们的 membership 位，
// 返回这一批被释放的地址。调用方应当根据返回值决定是否还需要定时器继续
// 等待（见 NextExpiry）。
func (b *Blacklist) Poll(now time.Time) []string {
	var freed []string
	for b.heap.Len() > 0 {
		top := b.heap[0]
		if top.expiry.After(now) {
			break
		}
		heap.Pop(&b.heap)
		// 懒删除可能留下过期的重复条目：只有当 membership 里记录的（最新的）
		// 到期时间也已经不晚于 now 时，这次弹出才让该地址解除黑名单；否则该
		// 地址已经被以更晚的到期时间重新加入，这个堆条目直接丢弃。
		if cur, ok := b.members[top.addr]; ok && !cur.After(now) {
			delete(b.members, top.addr)
			freed = append(freed, top.addr)
		}
	}
	return freed
}

// NextExpiry 返回堆顶（最早到期）的时间，ok==false 表示黑名单为空。
func (b *Blacklist) NextExpiry() (t time.Time, ok bool) {
	if b.heap.Len() == 0 {
		return time.Time{}, false
	}
	return b.heap[0].expiry, true
}

// Empty 报告黑名单当前是否没有任何受罚地址。
func (b *Blacklist) Empty() bool {
	return len(b.members) == 0
}
