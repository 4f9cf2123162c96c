package core

// Summary is written once at experiment end, both as the experiment_end event
// payload and as a standalone JSON artifact.
type Summary struct {
	ExperimentID      string               `json:"experiment_id"`
	Config            ExperimentConfig     `json:"config"`
	EntropyHistory    []float64            `json:"entropy_history"`
	InitialEntropy    *float64             `json:"initial_entropy"`
	FinalDistribution Distribution         `json:"final_distribution"`
	FinalEntropy      *float64             `json:"final_entropy"`
	TimeToCollapse    *int                 `json:"time_to_collapse"`
	ChangeReasons     map[ChangeReason]int `json:"change_reasons"`
	TotalChanges      int                  `json:"total_changes"`
	Responses         int                  `json:"responses"`
	ParseSuccessRate  float64              `json:"parse_success_rate"`
	RoundsCompleted   int                  `json:"rounds_completed"`
	StoppedEarly      bool                 `json:"stopped_early"`
}

// Tally accumulates per-response bookkeeping for the summary.
type Tally struct {
	Reasons      map[ChangeReason]int
	Responses    int
	ParseSuccess int
}

// NewTally returns a tally with every change reason present at zero.
func NewTally() *Tally {
	t := &Tally{Reasons: make(map[ChangeReason]int, len(ChangeReasons))}
	for _, r := range ChangeReasons {
		t.Reasons[r] = 0
	}
	return t
}

// Add records one resolved response.
func (t *Tally) Add(r AgentResponse) {
	t.Responses++
	if r.ParseSuccess {
		t.ParseSuccess++
	}
	if r.ChangeReason != "" {
		t.Reasons[r.ChangeReason]++
	}
}

// Changes returns the number of responses that changed stance.
func (t *Tally) Changes() int {
	n := 0
	for r, c := range t.Reasons {
		if r.IsChange() {
			n += c
		}
	}
	return n
}

// ParseRate returns the fraction of responses that parsed.
func (t *Tally) ParseRate() float64 {
	if t.Responses == 0 {
		return 0
	}
	return float64(t.ParseSuccess) / float64(t.Responses)
}
