// Package trace reads memory reference traces and records how caches serve
// them.
package trace

import (
	"fmt"
	"log"

	"github.com/sarchlab/avdcache/datarecording"
	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/sim/hooking"
)

// AccessTable is the table that the database tracer writes to.
const AccessTable = "cache_accesses"

// accessEntry represents a cache access in the database
type accessEntry struct {
	Seq        uint64
	Cache      string
	Type       string
	Address    string
	SetID      int
	WayID      int
	Tag        string
	Hit        bool
	Evicted    bool
	EvictedTag string
}

// A tracer is a hook that writes every cache access as a line of text.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that logs the accesses of the caches it is
// attached to.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

// Func logs cache accesses and ignores everything else.
func (t *tracer) Func(ctx hooking.HookCtx) {
	event, ok := accessEvent(ctx)
	if !ok {
		return
	}

	result := "miss"
	if event.Hit {
		result = "hit"
	}

	t.logger.Printf("access, %s, %s, 0x%x, %d, 0x%x, %s\n",
		ctx.Domain.Name(),
		event.Type,
		event.Address,
		event.SetID,
		event.Tag,
		result,
	)
}

// A dbTracer is a hook that records cache accesses into a database using the
// data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a hook that records the accesses of the caches it is
// attached to into the AccessTable table.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{dataRecorder: dataRecorder}

	t.dataRecorder.CreateTable(AccessTable, accessEntry{})

	return t
}

// Func records cache accesses and ignores everything else.
func (t *dbTracer) Func(ctx hooking.HookCtx) {
	event, ok := accessEvent(ctx)
	if !ok {
		return
	}

	entry := accessEntry{
		Seq:     t.seq,
		Cache:   ctx.Domain.Name(),
		Type:    event.Type.String(),
		Address: fmt.Sprintf("0x%x", event.Address),
		SetID:   event.SetID,
		WayID:   event.WayID,
		Tag:     fmt.Sprintf("0x%x", event.Tag),
		Hit:     event.Hit,
		Evicted: event.Evicted,
	}

	if event.Evicted {
		entry.EvictedTag = fmt.Sprintf("0x%x", event.EvictedTag)
	}

	t.seq++
	t.dataRecorder.InsertData(AccessTable, entry)
}

func accessEvent(ctx hooking.HookCtx) (cache.AccessEvent, bool) {
	if ctx.Pos != cache.HookPosAccess {
		return cache.AccessEvent{}, false
	}

	event, ok := ctx.Item.(cache.AccessEvent)

	return event, ok
}
