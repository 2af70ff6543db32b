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
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Multiplexer 是整个包的心脏：一个跑在自己 goroutine 上的事件循环，把地址
// 解析流、请求 intake、连接尝试的结果和 sink 的唤醒信号全部汇聚到一个
// select 里处理。spec §5 要求的"没有锁、所有状态迁移串行化"在这里表现为
// 字面意义上的单 goroutine —— 除了 run() 自身，没有任何其它代码路径会碰
// aligner/blacklist/ready 队列这些字段。
type Multiplexer[T any] struct {
	cfg     *Config
	connect ConnectFunc[T]
	errlog  ErrorLog
	metrics Metrics

	rng      *rand.Rand
	aligner  *Aligner
	blkList  *Blacklist
	curAddr  Address
	blTimer  *time.Timer

	live       map[uuid.UUID]*connSlot[T]
	ready      []*connSlot[T]
	waiters    map[uuid.UUID]struct{}
	connecting map[string][]*connectDriver[T]

	addrCh         <-chan Address
	intake         chan T
	outbox         []T
	connResults    chan connectResult[T]
	wakeCh         chan uuid.UUID
	closeRequested chan struct{}
	statsReq       chan chan Stats
	doneCh         chan struct{}

	rootCtx context.Context
	cancel  context.CancelFunc

	closing bool
	closed  bool
}

// New 组装一个 Multiplexer 并启动它的事件循环，返回调用方真正持有的
// Queue 句柄。addrCh 是地址解析流（通常来自某种服务发现机制），connect
// 是建立单个连接的外部协作者。
func New[T any](cfg *Config, addrCh <-chan Address, connect ConnectFunc[T], errlog ErrorLog, metrics Metrics) (*Queue[T], *Multiplexer[T], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}
	if errlog == nil {
		errlog = NoopErrorLog{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	m := &Multiplexer[T]{
		cfg:            cfg,
		connect:        connect,
		errlog:         errlog,
		metrics:        metrics,
		rng:            rng,
		aligner:        NewAligner(rng),
		blkList:        NewBlacklist(),
		live:           make(map[uuid.UUID]*connSlot[T]),
		waiters:        make(map[uuid.UUID]struct{}),
		connecting:     make(map[string][]*connectDriver[T]),
		addrCh:         addrCh,
		intake:         make(chan T, cfg.QueueSize),
		connResults:    make(chan connectResult[T]),
		wakeCh:         make(chan uuid.UUID),
		closeRequested: make(chan struct{}, 1),
		statsReq:       make(chan chan Stats),
		doneCh:         make(chan struct{}),
		rootCtx:        rootCtx,
		cancel:         cancel,
	}

	go m.run()

	return &Queue[T]{ch: m.intake, metrics: metrics}, m, nil
}

// Close 请求 Multiplexer 停止接受新请求、排空并关闭所有活跃连接，阻塞到
// 关闭完成或者 ctx 取消为止。多次调用是安全的。
func (m *Multiplexer[T]) Close(ctx context.Context) error {
	select {
	case m.closeRequested <- struct{}{}:
	default:
	}
	select {
	case <-m.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats 是一份调试/监控用的瞬时快照：不参与任何状态迁移，只读一眼当前的计数。
type Stats struct {
	Live        int
	Ready       int
	Connecting  int
	Blacklisted bool
	Outbox      int
}

// run 是整个包唯一的状态迁移入口。
func (m *Multiplexer[T]) run() {
	for {
		if m.closing && len(m.live) == 0 && m.connectingTotal() == 0 {
			m.finishClose()
			return
		}

		var timerC <-chan time.Time
		if next, ok := m.blkList.NextExpiry(); ok {
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			if m.blTimer == nil {
				m.blTimer = time.NewTimer(d)
			} else {
				if !m.blTimer.Stop() {
					select {
					case <-m.blTimer.C:
					default:
					}
				}
				m.blTimer.Reset(d)
			}
			timerC = m.blTimer.C
		}

		// outbox 里已经有一个请求在等待投递时不再从 intake 读取：后续请求留在
		// 容量为 QueueSize 的 intake channel 里，队列满时调用方的 Send 阻塞。
		intake := m.intake
		if len(m.outbox) > 0 {
			intake = nil
		}

		select {
		case addrs, ok := <-m.addrCh:
			if !ok {
				m.addrCh = nil
				m.beginShutdown(AddressStreamClosed)
				continue
			}
			m.reconcile(addrs)

		case item, ok := <-intake:
			if !ok {
				m.intake = nil
				m.beginShutdown(RequestStreamClosed)
				continue
			}
			m.outbox = append(m.outbox, item)
			m.drainOutbox()

		case res := <-m.connResults:
			m.handleConnectResult(res)

		case id := <-m.wakeCh:
			delete(m.waiters, id)
			if slot, ok := m.live[id]; ok {
				m.pumpSlot(slot)
				m.drainOutbox()
			}

		case <-timerC:
			freed := m.blkList.Poll(time.Now())
			for _, a := range freed {
				m.metrics.BlacklistRemove(a)
			}
			if len(freed) > 0 {
				if m.cfg.Lazy {
					m.drainOutbox()
				} else {
					m.maybeEagerConnect()
				}
			}

		case <-m.closeRequested:
			m.beginShutdown(-1)

		case reply := <-m.statsReq:
			reply <- m.snapshot()
		}
	}
}

// reconcile 把新的地址快照和旧快照做差，退休消失的地址上所有活跃连接和
// 正在进行的连接尝试，更新 Aligner 的簿记,然后把新快照记下来。
func (m *Multiplexer[T]) reconcile(addrs Address) {
	removed, added := m.curAddr.Diff(addrs)
	m.curAddr = addrs

	for _, addr := range removed {
		for _, slot := range m.live {
			if slot.addr == addr && !slot.retiring {
				slot.controller().Retire()
				m.removeFromReady(slot)
				m.pumpSlot(slot)
			}
		}
		for _, d := range m.connecting[addr] {
			d.Abort()
		}
	}

	m.aligner.Update(added, removed)
	m.maybeEagerConnect()
	m.drainOutbox()
}

// beginShutdown 把 Multiplexer 切换到关闭模式。reason < 0 表示由显式的
// Close() 调用触发,不对应 spec 里具名的两个 ShutdownReason,因此不调用
// errlog.PoolShuttingDown。
func (m *Multiplexer[T]) beginShutdown(reason ShutdownReason) {
	if m.closing {
		return
	}
	m.closing = true
	if reason == RequestStreamClosed || reason == AddressStreamClosed {
		m.errlog.PoolShuttingDown(reason)
	}
	m.drainOutbox()
}

// drainOutbox 尽可能把 outbox 里排队的请求投递给已就绪的连接;投递不动之后,
// 如果还没有关闭,尝试按需发起新的连接;如果已经关闭且 outbox 已经排空,
// 把所有剩下的活跃连接都标记为退休,推它们走向关闭。
func (m *Multiplexer[T]) drainOutbox() {
	for len(m.outbox) > 0 {
		if !m.tryDeliverOne() {
			break
		}
	}

	if m.closing {
		if len(m.outbox) == 0 {
			m.retireAllLive()
		}
		return
	}

	m.provisionForDemand()
}

// tryDeliverOne 把 outbox 队首的一个请求投递给第一个愿意接受它的就绪连接。
func (m *Multiplexer[T]) tryDeliverOne() bool {
	for len(m.ready) > 0 {
		slot := m.ready[0]
		m.ready = m.ready[1:]
		slot.queued = false

		if slot.closed || slot.retiring {
			continue
		}

		item := m.outbox[0]
		ctrl := slot.controller()
		ctrl.Deposit(item)

		outcome, err := driveSink[T](context.Background(), slot.helper(), false)
		switch outcome {
		case driveReady:
			m.outbox = m.outbox[1:]
			m.metrics.RequestForwarded()
			m.enqueueReady(slot)
			return true
		case driveContinue:
			ctrl.Reclaim()
			m.ensureWaiter(slot)
			continue
		case driveClosed:
			m.onSlotClosed(slot)
			continue
		case driveDisconnected:
			m.onSlotDisconnected(slot, err)
			continue
		}
	}
	return false
}

// provisionForDemand 在 Lazy 模式下,只要 outbox 还有未交付的请求,就持续向
// Aligner 要新的地址发起连接,直到用光了所有地址的配额、或者全局限速器暂时
// 不允许再发起新的尝试。
func (m *Multiplexer[T]) provisionForDemand() {
	if m.closing || !m.cfg.Lazy {
		return
	}
	for len(m.outbox) > 0 {
		if m.cfg.ConnectLimiter != nil && !m.cfg.ConnectLimiter.Allow() {
			return
		}
		addr, ok := m.aligner.Get(m.cfg.ConnLimitPerAddress, m.blkList.IsFailing)
		if !ok {
			if m.blkList.Empty() {
				return
			}
			freed := m.blkList.Poll(time.Now())
			for _, a := range freed {
				m.metrics.BlacklistRemove(a)
			}
			if len(freed) == 0 {
				return
			}
			continue
		}
		m.spawnConnect(addr)
	}
}

// maybeEagerConnect 在非 Lazy 模式下,把每个已知地址都连到配额上限,
// 不等待 outbox 里有任何请求在排队。
func (m *Multiplexer[T]) maybeEagerConnect() {
	if m.cfg.Lazy || m.closing {
		return
	}
	for {
		addr, ok := m.aligner.Get(m.cfg.ConnLimitPerAddress, m.blkList.IsFailing)
		if !ok {
			return
		}
		m.spawnConnect(addr)
	}
}

func (m *Multiplexer[T]) spawnConnect(addr string) {
	m.metrics.ConnectionAttempt(addr)
	d := spawnConnectDriver[T](m.rootCtx, addr, m.connect, m.connResults)
	m.connecting[addr] = append(m.connecting[addr], d)
}

func (m *Multiplexer[T]) connectingTotal() int {
	n := 0
	for _, ds := range m.connecting {
		n += len(ds)
	}
	return n
}

func (m *Multiplexer[T]) removeConnecting(addr string, attempt uuid.UUID) {
	ds := m.connecting[addr]
	for i, d := range ds {
		if d.attempt == attempt {
			ds = append(ds[:i], ds[i+1:]...)
			break
		}
	}
	if len(ds) == 0 {
		delete(m.connecting, addr)
	} else {
		m.connecting[addr] = ds
	}
}

// handleConnectResult 处理一次连接尝试的结局,对应 spec §4.6 的
// Connected/CantConnect/Aborted 三分支。
func (m *Multiplexer[T]) handleConnectResult(res connectResult[T]) {
	m.removeConnecting(res.addr, res.attempt)

	switch {
	case res.aborted:
		m.metrics.ConnectionAbort(res.addr)
		m.aligner.Put(res.addr)

	case res.err != nil:
		m.metrics.ConnectionError(res.addr)
		m.errlog.ConnectionError(res.addr, res.err)
		m.blacklistAddr(res.addr)
		m.aligner.Put(res.addr)

	default:
		slot := newConnSlot[T](res.addr, res.sink)
		m.live[slot.id] = slot
		m.metrics.Connection(res.addr)
		if m.closing {
			slot.controller().Retire()
			m.pumpSlot(slot)
		} else {
			m.enqueueReady(slot)
			m.drainOutbox()
		}
	}

	if m.closing && len(m.outbox) == 0 {
		m.retireAllLive()
	}
}

// blacklistAddr 把 addr 按随机化退避窗口 [t/2, 3t/2] 加入黑名单。
func (m *Multiplexer[T]) blacklistAddr(addr string) {
	minMs, maxMs := reconnectWindowMs(m.cfg.ReconnectTimeout)
	backoff := m.randomBackoff(minMs, maxMs)
	m.blkList.Blacklist(addr, time.Now().Add(backoff))
	m.metrics.BlacklistAdd(addr)
}

func (m *Multiplexer[T]) randomBackoff(minMs, maxMs int64) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	span := maxMs - minMs
	n := m.rng.Int63n(span + 1)
	return time.Duration(minMs+n) * time.Millisecond
}

// pumpSlot 把一个连接驱动到下一个稳定状态:要么重新放回 ready 队列,
// 要么因为背压进入等待,要么彻底关闭/断开并从 live 里移除。
func (m *Multiplexer[T]) pumpSlot(slot *connSlot[T]) {
	for {
		closing := slot.retiring || m.closing
		outcome, err := driveSink[T](context.Background(), slot.helper(), closing)
		switch outcome {
		case driveReady:
			if closing {
				continue
			}
			m.enqueueReady(slot)
			return
		case driveContinue:
			m.ensureWaiter(slot)
			return
		case driveClosed:
			m.onSlotClosed(slot)
			return
		case driveDisconnected:
			m.onSlotDisconnected(slot, err)
			return
		}
	}
}

// ensureWaiter 为一个因为背压而暂停的连接起一个一次性的等待 goroutine:
// 一旦 sink 的 Ready() 信道被唤醒,就把这条连接的 id 投回 wakeCh,
// 所有后续的状态迁移仍然只发生在 run() 所在的 goroutine 里。
func (m *Multiplexer[T]) ensureWaiter(slot *connSlot[T]) {
	if _, ok := m.waiters[slot.id]; ok {
		return
	}
	m.waiters[slot.id] = struct{}{}
	readyCh := slot.sink.Ready()
	id := slot.id
	go func() {
		select {
		case <-readyCh:
		case <-m.rootCtx.Done():
			return
		}
		select {
		case m.wakeCh <- id:
		case <-m.rootCtx.Done():
		}
	}()
}

func (m *Multiplexer[T]) enqueueReady(slot *connSlot[T]) {
	if slot.closed || slot.queued || slot.retiring {
		return
	}
	slot.queued = true
	m.ready = append(m.ready, slot)
}

func (m *Multiplexer[T]) removeFromReady(slot *connSlot[T]) {
	for i, s := range m.ready {
		if s.id == slot.id {
			m.ready = append(m.ready[:i], m.ready[i+1:]...)
			break
		}
	}
	slot.queued = false
}

func (m *Multiplexer[T]) onSlotClosed(slot *connSlot[T]) {
	delete(m.live, slot.id)
	delete(m.waiters, slot.id)
	m.aligner.Put(slot.addr)
}

// onSlotDisconnected 处理一条活跃连接出错退出:归还 Aligner 的配额,
// 如果这条连接活得比退避窗口的下限还短,额外把它的地址加入黑名单 ——
// 这是"短命断开大概率意味着这个地址有问题"的启发式判断。
func (m *Multiplexer[T]) onSlotDisconnected(slot *connSlot[T], err error) {
	delete(m.live, slot.id)
	delete(m.waiters, slot.id)
	m.metrics.Disconnect(slot.addr)
	m.errlog.SinkError(slot.addr, err)
	m.aligner.Put(slot.addr)

	minMs, _ := reconnectWindowMs(m.cfg.ReconnectTimeout)
	if time.Since(slot.connectedAt) < time.Duration(minMs)*time.Millisecond {
		m.blacklistAddr(slot.addr)
	}
}

// retireAllLive 把所有还没被标记退休的活跃连接都标记退休并驱动它们走向关闭;
// 只在 closing 为 true 且 outbox 已经排空时调用。
func (m *Multiplexer[T]) retireAllLive() {
	for _, slot := range m.live {
		if !slot.retiring {
			slot.controller().Retire()
			m.removeFromReady(slot)
			m.pumpSlot(slot)
		}
	}
}

func (m *Multiplexer[T]) finishClose() {
	if m.closed {
		return
	}
	m.closed = true
	m.metrics.PoolClosed()
	m.errlog.PoolClosed()
	m.cancel()
	close(m.doneCh)
}

func (m *Multiplexer[T]) snapshot() Stats {
	return Stats{
		Live:        len(m.live),
		Ready:       len(m.ready),
		Connecting:  m.connectingTotal(),
		Blacklisted: !m.blkList.Empty(),
		Outbox:      len(m.outbox),
	}
}

// Stats 查询当前状态的一份快照。请求经由 run() 所在的 goroutine 应答,
// 不直接读取任何共享字段;池关闭之后(事件循环已经退出)调用会立刻返回
// ErrDone。
func (m *Multiplexer[T]) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case m.statsReq <- reply:
	case <-m.doneCh:
		return Stats{}, ErrDone
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}
