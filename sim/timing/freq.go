package timing

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// FreqFromPeriod returns the frequency whose period is p.
func FreqFromPeriod(p VTimeInSec) Freq {
	if p <= 0 {
		log.Panic("period must be positive")
	}

	return Freq(1.0 / p)
}

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// ThisTick returns the current tick time
//
//	               Input
//	               (          ]
//	    |----------|----------|----------|----->
//	                          |
//	                          Output
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	if math.IsNaN(now) {
		log.Panic("invalid time")
	}

	count := math.Ceil(math.Round(now*10*float64(f)) / 10)

	return VTimeInSec(count / float64(f))
}

// NextTick returns the next tick time.
//
//	               Input
//	               [          )
//	    |----------|----------|----------|----->
//	                          |
//	                          Output
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	if math.IsNaN(now) {
		log.Panic("invalid time")
	}

	count := math.Floor(math.Round(now*10*float64(f)) / 10)

	return VTimeInSec((count + 1) / float64(f))
}
