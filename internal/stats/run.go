package stats

import "time"

// Run describes one finished simulation run. It is persisted by the SQLite
// store and announced over NATS.
type Run struct {
	ID         string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Games      uint64        `json:"games"`
	Failed     uint64        `json:"failed"`
	Steps      uint64        `json:"steps"`
	Rows       int           `json:"rows"`
	Policy     string        `json:"policy"`
	RNG        string        `json:"rng"`
	Seed       uint64        `json:"seed,omitempty"`
	File       string        `json:"file,omitempty"`
	Stopped    bool          `json:"stopped"`
	Elapsed    time.Duration `json:"-"`
}

// GamesPerSecond is the completed-game throughput of the run.
func (r Run) GamesPerSecond() float64 {
	secs := r.FinishedAt.Sub(r.StartedAt).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Games) / secs
}
