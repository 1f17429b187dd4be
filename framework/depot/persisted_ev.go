package depot

import (
	"time"

	"github.com/retro-framework/go-lottery/framework/packing"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// PersistedEv is a decoded event together with its place in the log.
type PersistedEv struct {
	sequence      int
	time          time.Time
	name          string
	bytes         []byte
	hash          packing.Hash
	partitionName retro.PartitionName
	event         retro.Event
}

func (pEv PersistedEv) Sequence() int                      { return pEv.sequence }
func (pEv PersistedEv) Time() time.Time                    { return pEv.time }
func (pEv PersistedEv) Name() string                       { return pEv.name }
func (pEv PersistedEv) Bytes() []byte                      { return pEv.bytes }
func (pEv PersistedEv) Hash() retro.Hash                   { return pEv.hash }
func (pEv PersistedEv) PartitionName() retro.PartitionName { return pEv.partitionName }
func (pEv PersistedEv) Event() retro.Event                 { return pEv.event }
