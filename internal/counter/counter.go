package counter

import "sync/atomic"

type Counter struct {
	value uint64
}

func (c *Counter) Store(n uint64) { atomic.StoreUint64(&c.value, n) }

func (c *Counter) Load() uint64 { return atomic.LoadUint64(&c.value) }

func (c *Counter) Dec() { atomic.AddUint64(&c.value, ^uint64(0)) }

func (c *Counter) Inc() uint64 { return atomic.AddUint64(&c.value, 1) }
