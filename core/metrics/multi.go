package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTaskResults forwards the records to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTaskResults(res []TaskResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordTaskResults(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordRound forwards round events when supported by the sink.
func (m *MultiSink) RecordRound(ev RoundEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RoundRecorder); ok {
			if err := rec.RecordRound(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordOutcome forwards outcome events when supported by the sink.
func (m *MultiSink) RecordOutcome(ev OutcomeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(OutcomeRecorder); ok {
			if err := rec.RecordOutcome(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetDiscovery forwards discovery events.
func (m *MultiSink) RecordFleetDiscovery(ev FleetDiscoveryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetDiscoveryRecorder); ok {
			if err := rec.RecordFleetDiscovery(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet size metrics when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(FleetSizeRecorder); ok {
			if err := fr.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}
