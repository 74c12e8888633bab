package sink

import (
	"database/sql"
	"fmt"

	"ruleflow/internal/broker"
	"ruleflow/internal/logger"
)

type Deps struct {
	DB       *sql.DB
	Producer broker.Producer
	Topic    string
	Source   string
	Logger   logger.Logger
}

// NewFromConfig assembles the sinks named in engine.sinks. With no names
// configured records are only logged.
func NewFromConfig(names []string, deps Deps) (*Multi, error) {
	if len(names) == 0 {
		names = []string{NameLog}
	}

	m := NewMulti()
	for _, name := range names {
		switch name {
		case NamePostgres:
			if deps.DB == nil {
				return nil, fmt.Errorf("postgres sink requires a database connection")
			}
			m.Add(name, NewPostgresSink(deps.DB))
		case NameKafka:
			if deps.Producer == nil || deps.Topic == "" {
				return nil, fmt.Errorf("kafka sink requires a producer and an output topic")
			}
			m.Add(name, NewKafkaSink(deps.Producer, deps.Topic, deps.Source))
		case NameLog:
			m.Add(name, NewLogSink(deps.Logger))
		default:
			return nil, fmt.Errorf("unknown execution sink: %s", name)
		}
	}
	return m, nil
}
