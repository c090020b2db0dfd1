package intern

import (
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/qcvm-bridge/errors"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	snapshotEncMode = em
}

type snapshot struct {
	Strings []snapshotString `cbor:"1,keyasint"`
	NextID  int32            `cbor:"2,keyasint"`
}

type snapshotString struct {
	Text   string   `cbor:"2,keyasint"`
	Owners []uint32 `cbor:"3,keyasint"`
	ID     int32    `cbor:"1,keyasint"`
}

// Snapshot encodes the dynamic pool and its slot owners. Static handles are
// host-owned and not included; the host re-registers them on load.
func (t *Table) Snapshot() ([]byte, error) {
	byID := make(map[int32]*snapshotString, len(t.dynamic))
	s := snapshot{NextID: t.nextID}
	for id, e := range t.dynamic {
		if e.refs == 0 {
			continue
		}
		byID[id] = &snapshotString{ID: id, Text: e.text}
	}
	for addr, id := range t.owners {
		if ss, ok := byID[id]; ok {
			ss.Owners = append(ss.Owners, addr)
		}
	}
	for _, ss := range byID {
		sort.Slice(ss.Owners, func(i, j int) bool { return ss.Owners[i] < ss.Owners[j] })
		s.Strings = append(s.Strings, *ss)
	}
	sort.Slice(s.Strings, func(i, j int) bool { return s.Strings[i].ID < s.Strings[j].ID })

	data, err := snapshotEncMode.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseIntern, errors.KindMalformedInput, err, "encode string snapshot")
	}
	return data, nil
}

// Restore replaces the dynamic pool with a snapshot. Handles keep their
// slot encodings, so VM storage restored alongside stays valid.
func (t *Table) Restore(data []byte) error {
	var s snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return errors.Wrap(errors.PhaseIntern, errors.KindMalformedInput, err, "decode string snapshot")
	}

	dynamic := make(map[int32]*entry, len(s.Strings))
	byText := make(map[string]int32, len(s.Strings))
	owners := make(map[uint32]int32)
	for _, ss := range s.Strings {
		if ss.ID <= 0 || ss.ID >= s.NextID {
			return errors.MalformedInput(errors.PhaseIntern, "snapshot string id out of range")
		}
		if _, dup := byText[ss.Text]; dup {
			return errors.MalformedInput(errors.PhaseIntern, "snapshot has duplicate text")
		}
		if len(ss.Owners) == 0 {
			continue
		}
		dynamic[ss.ID] = &entry{text: ss.Text, refs: int32(len(ss.Owners))}
		byText[ss.Text] = ss.ID
		for _, addr := range ss.Owners {
			if _, taken := owners[addr]; taken {
				return errors.MalformedInput(errors.PhaseIntern, "snapshot slot owned twice")
			}
			owners[addr] = ss.ID
		}
	}

	t.dynamic = dynamic
	t.byText = byText
	t.owners = owners
	t.nextID = s.NextID
	return nil
}
