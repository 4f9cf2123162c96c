package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/eventlog"
)

// errStop ends a line scan early.
var errStop = errors.New("stop")

// TruncateToRound rewrites the log so that it ends with the round_end event
// of round. If that event is missing the log is left untouched and a
// *core.RecoveryError is returned. Any failure while rewriting also leaves the
// previous contents in place.
func TruncateToRound(log eventlog.Log, round int) error {
	return truncate(log, round, func(res gjson.Result) bool {
		return core.EventType(res.Get("type").String()) == core.EventRoundEnd &&
			res.Get("round").Exists() && int(res.Get("round").Int()) == round
	})
}

// TruncateToHeader keeps only the experiment_start and config events. It is
// used when a run is resumed before its first round completed.
func TruncateToHeader(log eventlog.Log) error {
	return truncate(log, -1, func(res gjson.Result) bool {
		return core.EventType(res.Get("type").String()) == core.EventConfig
	})
}

func truncate(log eventlog.Log, round int, keepThrough func(gjson.Result) bool) error {
	data, err := readAll(log)
	if err != nil {
		return &core.RecoveryError{Round: round, Reason: err.Error()}
	}

	cut := int64(-1)
	err = eachLine(bytes.NewReader(data), func(end int64, line []byte) error {
		if end < 0 || !gjson.ValidBytes(line) {
			return nil
		}
		if keepThrough(gjson.ParseBytes(line)) {
			cut = end
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return &core.RecoveryError{Round: round, Reason: err.Error()}
	}
	if cut < 0 {
		if round < 0 {
			return &core.RecoveryError{Round: round, Reason: "no config event in log"}
		}
		return &core.RecoveryError{Round: round, Reason: "no round_end event for round"}
	}
	if cut == int64(len(data)) {
		return nil
	}

	if err := log.Replace(data[:cut]); err != nil {
		return &core.RecoveryError{Round: round, Reason: fmt.Sprintf("rewrite log: %v", err)}
	}
	return nil
}

func readAll(log eventlog.Log) ([]byte, error) {
	rc, err := log.Reader()
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return data, nil
}
