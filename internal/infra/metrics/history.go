package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(followupDecisions, turnsRecorded) }

var followupDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "followup_decisions_total",
		Help: "Follow-up classifier outcomes.",
	},
	[]string{"outcome"}, // 'followup', 'new_topic', 'no_history', 'stale'
)

var turnsRecorded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "turns_recorded_total",
		Help: "Conversation turns recorded, by result.",
	},
	[]string{"result"}, // 'saved', 'failed'
)

func IncFollowupDecision(outcome string) {
	followupDecisions.WithLabelValues(norm(outcome)).Inc()
}

func IncTurnRecorded(result string) {
	turnsRecorded.WithLabelValues(norm(result)).Inc()
}
