package avltree

import (
	"encoding/binary"
	"fmt"
)

// Bytes serializes an InsertProof to the wire form NoteHistory.add_commitment
// hands back as the "serialized AD proof" (spec.md §4.3) and that
// Scanner.reconstruct later re-derives from a context extension entry.
func (p InsertProof) Bytes() []byte {
	buf := make([]byte, 0, 128)
	buf = appendUint32(buf, uint32(len(p.Path)))
	for _, s := range p.Path {
		buf = append(buf, byte(s.Height))
		if s.WentRight {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, byte(s.OtherHeight))
		buf = append(buf, s.OtherLabel[:]...)
		buf = appendBytes(buf, s.Key)
		buf = appendBytes(buf, s.Value)
	}
	buf = appendBytes(buf, p.Key)
	buf = appendBytes(buf, p.Value)
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) uint32() (uint32, error) {
	if r.pos+4 > len(r.b) {
		return 0, fmt.Errorf("avltree: truncated proof")
	}
	v := binary.BigEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) byte() (byte, error) {
	if r.pos+1 > len(r.b) {
		return 0, fmt.Errorf("avltree: truncated proof")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, fmt.Errorf("avltree: truncated proof")
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) lenPrefixed() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.bytes(int(n))
}

// ParseInsertProof decodes the wire form produced by InsertProof.Bytes.
func ParseInsertProof(b []byte) (InsertProof, error) {
	r := &byteReader{b: b}
	count, err := r.uint32()
	if err != nil {
		return InsertProof{}, err
	}
	path := make([]Step, 0, count)
	for i := uint32(0); i < count; i++ {
		height, err := r.byte()
		if err != nil {
			return InsertProof{}, err
		}
		wentRightByte, err := r.byte()
		if err != nil {
			return InsertProof{}, err
		}
		otherHeight, err := r.byte()
		if err != nil {
			return InsertProof{}, err
		}
		otherLabelBytes, err := r.bytes(32)
		if err != nil {
			return InsertProof{}, err
		}
		key, err := r.lenPrefixed()
		if err != nil {
			return InsertProof{}, err
		}
		value, err := r.lenPrefixed()
		if err != nil {
			return InsertProof{}, err
		}
		var otherLabel [32]byte
		copy(otherLabel[:], otherLabelBytes)
		path = append(path, Step{
			Key: key, Value: value, Height: int8(height),
			WentRight: wentRightByte != 0, OtherLabel: otherLabel, OtherHeight: int8(otherHeight),
		})
	}
	key, err := r.lenPrefixed()
	if err != nil {
		return InsertProof{}, err
	}
	value, err := r.lenPrefixed()
	if err != nil {
		return InsertProof{}, err
	}
	return InsertProof{Path: path, Key: key, Value: value}, nil
}

// Bytes serializes a MembershipProof, the form stored in the reserve input's
// context extension during a redeem transaction (spec.md §4.5.5).
func (p MembershipProof) Bytes() []byte {
	buf := make([]byte, 0, 128)
	buf = appendUint32(buf, uint32(len(p.Ancestors)))
	for _, s := range p.Ancestors {
		buf = append(buf, byte(s.Height))
		if s.WentRight {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, byte(s.OtherHeight))
		buf = append(buf, s.OtherLabel[:]...)
		buf = appendBytes(buf, s.Key)
		buf = appendBytes(buf, s.Value)
	}
	buf = appendBytes(buf, p.Key)
	buf = appendBytes(buf, p.Value)
	buf = append(buf, byte(p.FoundHeight))
	buf = append(buf, p.LeftLabel[:]...)
	buf = append(buf, byte(p.LeftHeight))
	buf = append(buf, p.RightLabel[:]...)
	buf = append(buf, byte(p.RightHeight))
	return buf
}

// ParseMembershipProof decodes the wire form produced by MembershipProof.Bytes.
func ParseMembershipProof(b []byte) (MembershipProof, error) {
	r := &byteReader{b: b}
	count, err := r.uint32()
	if err != nil {
		return MembershipProof{}, err
	}
	ancestors := make([]Step, 0, count)
	for i := uint32(0); i < count; i++ {
		height, err := r.byte()
		if err != nil {
			return MembershipProof{}, err
		}
		wentRightByte, err := r.byte()
		if err != nil {
			return MembershipProof{}, err
		}
		otherHeight, err := r.byte()
		if err != nil {
			return MembershipProof{}, err
		}
		otherLabelBytes, err := r.bytes(32)
		if err != nil {
			return MembershipProof{}, err
		}
		key, err := r.lenPrefixed()
		if err != nil {
			return MembershipProof{}, err
		}
		value, err := r.lenPrefixed()
		if err != nil {
			return MembershipProof{}, err
		}
		var otherLabel [32]byte
		copy(otherLabel[:], otherLabelBytes)
		ancestors = append(ancestors, Step{
			Key: key, Value: value, Height: int8(height),
			WentRight: wentRightByte != 0, OtherLabel: otherLabel, OtherHeight: int8(otherHeight),
		})
	}
	key, err := r.lenPrefixed()
	if err != nil {
		return MembershipProof{}, err
	}
	value, err := r.lenPrefixed()
	if err != nil {
		return MembershipProof{}, err
	}
	foundHeight, err := r.byte()
	if err != nil {
		return MembershipProof{}, err
	}
	leftLabelBytes, err := r.bytes(32)
	if err != nil {
		return MembershipProof{}, err
	}
	leftHeight, err := r.byte()
	if err != nil {
		return MembershipProof{}, err
	}
	rightLabelBytes, err := r.bytes(32)
	if err != nil {
		return MembershipProof{}, err
	}
	rightHeight, err := r.byte()
	if err != nil {
		return MembershipProof{}, err
	}
	var leftLabel, rightLabel [32]byte
	copy(leftLabel[:], leftLabelBytes)
	copy(rightLabel[:], rightLabelBytes)
	return MembershipProof{
		Ancestors: ancestors, Key: key, Value: value, FoundHeight: int8(foundHeight),
		LeftLabel: leftLabel, LeftHeight: int8(leftHeight),
		RightLabel: rightLabel, RightHeight: int8(rightHeight),
	}, nil
}
