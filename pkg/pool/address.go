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

// Address 是某次服务名解析的快照：一组端点地址（IP+port 或者其它可比较的
// 字符串形式）。快照之间按集合比较，不依赖任何顺序 —— 解析器可以在两次
// 推送之间打乱地址顺序，不应影响多路复用器的行为。
type Address []string

// set 把快照转换成集合，便于做差集运算。
func (a Address) set() map[string]struct{} {
	s := make(map[string]struct{}, len(a))
	for _, addr := range a {
		s[addr] = struct{}{}
	}
	return s
}

// Diff 计算把 a（旧快照）变成 b（新快照）所需要的增删集合。
// removed = a \ b, added = b \ a.
func (a Address) Diff(b Address) (removed, added []string) {
	as, bs := a.set(), b.set()
	for addr := range as {
		if _, ok := bs[addr]; !ok {
			removed = append(removed, addr)
		}
	}
	for addr := range bs {
		if _, ok := as[addr]; !ok {
			added = append(added, addr)
		}
	}
	return removed, added
}
