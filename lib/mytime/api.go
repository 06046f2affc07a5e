package mytime

import "time"

var (
	ExampleTime time.Time
)

func init() {
	ExampleTime, _ = time.Parse("2006-01-02T15:04:05Z", "2024-05-12T10:11:12Z")
}

type Nower interface {
	Now() time.Time
}

type RealNower struct{}

func (n RealNower) Now() time.Time {
	return time.Now()
}
