package pipeline

import (
	"github.com/JonMunkholm/bankquality/internal/config"
	"github.com/JonMunkholm/bankquality/internal/csvio"
)

// NewFromConfig wires the directory source and the sinks cfg enables: the
// CSV directory and JSON report always, the HTML report when WriteHTML is
// set. Extra sinks, such as the database, run after them.
func NewFromConfig(cfg config.PipelineConfig, extra ...Sink) *Service {
	sinks := []Sink{csvio.DirSink{Dir: cfg.OutputDir}}
	if cfg.WriteHTML {
		sinks = append(sinks, HTMLSink{Dir: cfg.OutputDir})
	}
	sinks = append(sinks, extra...)

	return NewService(csvio.DirSource{Dir: cfg.InputDir}, sinks, Options{
		HighRiskThreshold: cfg.HighRiskThreshold,
		OutlierThreshold:  cfg.OutlierThreshold,
		RunTimeout:        cfg.RunTimeout,
		MaxWait:           cfg.MaxWaitTime,
	})
}

// SinkNames lists the configured sinks in write order.
func (s *Service) SinkNames() []string {
	names := make([]string, len(s.sinks))
	for i, sink := range s.sinks {
		names[i] = sink.Name()
	}
	return names
}
