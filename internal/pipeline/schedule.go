package pipeline

import (
	"fmt"
	"time"
)

// Step is one output time of a run.
type Step struct {
	Index int
	Time  time.Time
	// File is the output path, numbered by model time step.
	File string
}

// Schedule describes when forcing is written and where.
type Schedule struct {
	Start     time.Time
	End       time.Duration // run length after Start
	Frequency time.Duration // spacing of forcing steps
	DT        time.Duration // model time step, numbers the output files
	Prefix    string
}

// Steps lists k = 0..ceil(End/Frequency) at Start + k*Frequency, writing to
// <Prefix>_<ceil(k*Frequency/DT)>.
func (s Schedule) Steps() ([]Step, error) {
	if s.Frequency <= 0 || s.DT <= 0 {
		return nil, fmt.Errorf("schedule: frequency %s and dt %s must be positive", s.Frequency, s.DT)
	}
	if s.End < 0 {
		return nil, fmt.Errorf("schedule: negative end time %s", s.End)
	}

	n := ceilDiv(s.End, s.Frequency)
	steps := make([]Step, 0, n+1)
	for k := range n + 1 {
		offset := time.Duration(k) * s.Frequency
		steps = append(steps, Step{
			Index: int(k),
			Time:  s.Start.Add(offset),
			File:  fmt.Sprintf("%s_%d", s.Prefix, ceilDiv(offset, s.DT)),
		})
	}
	return steps, nil
}

func ceilDiv(a, b time.Duration) int64 {
	q := int64(a / b)
	if a%b != 0 {
		q++
	}
	return q
}
