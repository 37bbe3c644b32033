package pow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"
	"lukechampine.com/uint128"
)

// ErrTooManyFragments is returned when encoding or decoding more than MaxFragments entries.
var ErrTooManyFragments = errors.New("too many fragments")

// Wire layout (scale):
//
//	Challenge: difficulty (4 bytes LE) | compact count | count * fragment (16 bytes)
//	Solution:  compact count | count * (fragment (16 bytes) | nonce (16 bytes LE))

func (c *Challenge) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		var difficulty [4]byte
		binary.LittleEndian.PutUint32(difficulty[:], c.Difficulty)
		n, err := scale.EncodeByteArray(enc, difficulty[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		if len(c.Fragments) > MaxFragments {
			return total, fmt.Errorf("%w: %d", ErrTooManyFragments, len(c.Fragments))
		}
		n, err := scale.EncodeLen(enc, uint32(len(c.Fragments)), MaxFragments)
		if err != nil {
			return total, fmt.Errorf("EncodeLen failed: %w", err)
		}
		total += n
		for _, fragment := range c.Fragments {
			n, err := scale.EncodeByteArray(enc, fragment[:])
			if err != nil {
				return total, fmt.Errorf("EncodeByteArray failed: %w", err)
			}
			total += n
		}
	}
	return total, nil
}

func (c *Challenge) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		var difficulty [4]byte
		n, err := scale.DecodeByteArray(dec, difficulty[:])
		if err != nil {
			return total, err
		}
		total += n
		c.Difficulty = binary.LittleEndian.Uint32(difficulty[:])
	}
	{
		length, n, err := scale.DecodeLen(dec, MaxFragments)
		if err != nil {
			return total, fmt.Errorf("DecodeLen failed: %w", err)
		}
		total += n
		if length > MaxFragments {
			return total, fmt.Errorf("%w: %d", ErrTooManyFragments, length)
		}
		c.Fragments = nil
		if length > 0 {
			c.Fragments = make([]Fragment, length)
		}
		for i := range c.Fragments {
			n, err := scale.DecodeByteArray(dec, c.Fragments[i][:])
			if err != nil {
				return total, fmt.Errorf("DecodeByteArray failed: %w", err)
			}
			total += n
		}
	}
	return total, nil
}

func (s *Solution) EncodeScale(enc *scale.Encoder) (total int, err error) {
	if len(s.Proofs) > MaxFragments {
		return total, fmt.Errorf("%w: %d proofs", ErrTooManyFragments, len(s.Proofs))
	}
	n, err := scale.EncodeLen(enc, uint32(len(s.Proofs)), MaxFragments)
	if err != nil {
		return total, fmt.Errorf("EncodeLen failed: %w", err)
	}
	total += n

	var proof [FragmentSize + NonceSize]byte
	for _, p := range s.Proofs {
		copy(proof[:FragmentSize], p.Fragment[:])
		p.Nonce.PutBytes(proof[FragmentSize:])
		n, err := scale.EncodeByteArray(enc, proof[:])
		if err != nil {
			return total, fmt.Errorf("EncodeByteArray failed: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *Solution) DecodeScale(dec *scale.Decoder) (total int, err error) {
	length, n, err := scale.DecodeLen(dec, MaxFragments)
	if err != nil {
		return total, fmt.Errorf("DecodeLen failed: %w", err)
	}
	total += n
	if length > MaxFragments {
		return total, fmt.Errorf("%w: %d proofs", ErrTooManyFragments, length)
	}

	s.Proofs = nil
	if length > 0 {
		s.Proofs = make([]Proof, length)
	}
	var proof [FragmentSize + NonceSize]byte
	for i := range s.Proofs {
		n, err := scale.DecodeByteArray(dec, proof[:])
		if err != nil {
			return total, fmt.Errorf("DecodeByteArray failed: %w", err)
		}
		total += n
		copy(s.Proofs[i].Fragment[:], proof[:FragmentSize])
		s.Proofs[i].Nonce = uint128.FromBytes(proof[FragmentSize:])
	}
	return total, nil
}

func EncodeChallenge(c *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeChallenge(data []byte) (*Challenge, error) {
	var c Challenge
	if _, err := c.DecodeScale(scale.NewDecoder(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return &c, nil
}

func EncodeSolution(s *Solution) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSolution(data []byte) (*Solution, error) {
	var s Solution
	if _, err := s.DecodeScale(scale.NewDecoder(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return &s, nil
}
