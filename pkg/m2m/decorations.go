// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"fmt"
	"io"
	"time"

	"github.com/dtn7/cboring"
)

// RPC names a method to be invoked by the receiving agent.
type RPC struct {
	MethodName string

	// Priority is only meaningful between agents agreeing on its interpretation.
	Priority uint64

	// Creator identifies the agent maintaining this datum.
	Creator string

	// OID identifies this object across the wire.
	OID string
}

// NewRPC creates an RPC for a method with a new OID.
func NewRPC(method string) RPC {
	return RPC{MethodName: method, OID: defaultOIDGenerator.NextOID()}
}

func (rpc *RPC) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(4, w); err != nil {
		return err
	}

	if err := cboring.WriteTextString(rpc.MethodName, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(rpc.Priority, w); err != nil {
		return err
	}
	for _, s := range []string{rpc.Creator, rpc.OID} {
		if err := cboring.WriteTextString(s, w); err != nil {
			return err
		}
	}
	return nil
}

func (rpc *RPC) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 4 {
		return fmt.Errorf("RPC: expected array of 4 elements, got %d", n)
	}

	if s, err := cboring.ReadTextString(r); err != nil {
		return err
	} else {
		rpc.MethodName = s
	}

	if prio, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		rpc.Priority = prio
	}

	for _, s := range []*string{&rpc.Creator, &rpc.OID} {
		if v, err := cboring.ReadTextString(r); err != nil {
			return err
		} else {
			*s = v
		}
	}
	return nil
}

// Confidence is the creator's belief in the validity of some assertion, ranging from -1 (definitely false) over 0
// (no assertion) to 1 (definitely true).
type Confidence float64

// NewConfidence creates a Confidence, failing for values outside [-1, 1].
func NewConfidence(level float64) (Confidence, error) {
	c := Confidence(level)
	return c, c.CheckValid()
}

// CheckValid checks the Confidence's range.
func (c Confidence) CheckValid() error {
	if c < -1 || c > 1 {
		return fmt.Errorf("confidence %v is outside of [-1, 1]", float64(c))
	}
	return nil
}

var (
	// MinTime is the earliest supported instant.
	MinTime = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)

	// MaxTime is the latest supported instant.
	MaxTime = time.Date(2999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// TimeBounded limits the validity of a payload to an interval.
type TimeBounded struct {
	Start time.Time
	End   time.Time
}

// MaxInterval is the TimeBounded from MinTime to MaxTime, meaning unbounded.
func MaxInterval() TimeBounded {
	return TimeBounded{Start: MinTime, End: MaxTime}
}

// CheckValid checks if the interval is not reversed and within MinTime and MaxTime.
func (tb TimeBounded) CheckValid() error {
	switch {
	case tb.End.Before(tb.Start):
		return fmt.Errorf("interval ends at %v before it starts at %v", tb.End, tb.Start)
	case tb.Start.Before(MinTime):
		return fmt.Errorf("interval starts at %v before %v", tb.Start, MinTime)
	case tb.End.After(MaxTime):
		return fmt.Errorf("interval ends at %v after %v", tb.End, MaxTime)
	default:
		return nil
	}
}

// Contains checks if an instant lies within this interval, including both bounds.
func (tb TimeBounded) Contains(t time.Time) bool {
	return !t.Before(tb.Start) && !t.After(tb.End)
}

func (tb TimeBounded) String() string {
	return fmt.Sprintf("interval from: %v to: %v", tb.Start, tb.End)
}

func (tb *TimeBounded) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, t := range []time.Time{tb.Start, tb.End} {
		if err := cboring.WriteTextString(t.UTC().Format(time.RFC3339Nano), w); err != nil {
			return err
		}
	}
	return nil
}

func (tb *TimeBounded) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("TimeBounded: expected array of 2 elements, got %d", n)
	}

	for _, t := range []*time.Time{&tb.Start, &tb.End} {
		s, err := cboring.ReadTextString(r)
		if err != nil {
			return err
		}

		if parsed, err := time.Parse(time.RFC3339Nano, s); err != nil {
			return err
		} else {
			*t = parsed
		}
	}
	return nil
}

// Personalized names the subject a record is about, e.g., a person's Address, and a label for the record.
type Personalized struct {
	Subject string
	Label   string
}

func (p Personalized) String() string {
	return fmt.Sprintf("subj:%s label:%s", p.Subject, p.Label)
}

func (p *Personalized) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, s := range []string{p.Subject, p.Label} {
		if err := cboring.WriteTextString(s, w); err != nil {
			return err
		}
	}
	return nil
}

func (p *Personalized) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("Personalized: expected array of 2 elements, got %d", n)
	}

	for _, s := range []*string{&p.Subject, &p.Label} {
		if v, err := cboring.ReadTextString(r); err != nil {
			return err
		} else {
			*s = v
		}
	}
	return nil
}
